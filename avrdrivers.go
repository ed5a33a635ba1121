// Package avrdrivers holds what the peripheral drivers in this repository share: the
// register access contract, the I2C bus interface, bounded busy-wait polling and the
// common error values.
//
// Every driver is written for a single thread of control. Nothing here takes a lock;
// a driver and the registers it owns must not be used from two goroutines at once.
package avrdrivers

// I2C represents an I2C bus. It is implemented by the twi package and accepted by the
// drivers that sit behind an I2C device, such as pcf8574.
type I2C interface {
	ReadRegister(addr uint8, r uint8, buf []byte) error
	WriteRegister(addr uint8, r uint8, buf []byte) error
	Tx(addr uint16, w, r []byte) error
}
