// Package pcf8574 is a driver for the PCF8574 I2C GPIO expander.
//
// The pins are quasi-bidirectional: a pin written high is held up by a weak pull-up
// and reads whatever drives it, and a pin written low sinks current. To use a pin as
// an input, write it high and check whether something pulls it low.
//
// On this board the expander stands in for a GPIO port. It can carry the keypad
// matrix (rows written low one at a time, columns left high and read back) or the
// 4-bit LCD bus of a character display backpack.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/pcf8574.pdf
package pcf8574

import (
	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
)

const (
	// DefaultAddress is the PCF8574 with A0-A2 tied low. The PCF8574A variant
	// starts at DefaultAddressA.
	DefaultAddress  = 0x20
	DefaultAddressA = 0x38
)

type Device struct {
	bus  avrdrivers.I2C
	addr uint16
	// last value written to the pins
	state uint8
}

type Config struct {
	Address uint8
}

// Report is a snapshot of the pins.
type Report uint8

// New creates a driver on a configured I2C bus. The chip is rated for 100 kHz.
func New(bus avrdrivers.I2C) *Device {
	return &Device{
		bus:   bus,
		addr:  DefaultAddress,
		state: 0xFF, // the power-on state
	}
}

func (d *Device) Configure(c Config) error {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Address > 0x7F {
		return errors.Errorf("pcf8574: invalid address %#x", c.Address)
	}
	d.addr = uint16(c.Address)
	return nil
}

// SetPin drives one pin: true releases it to the pull-up, false sinks current.
func (d *Device) SetPin(pin uint8, val bool) error {
	if val {
		d.state |= 1 << pin
	} else {
		d.state &^= 1 << pin
	}
	return d.send()
}

// SetAll drives every pin from its bit in state.
func (d *Device) SetAll(state uint8) error {
	d.state = state
	return d.send()
}

// State returns the value last written to the pins.
func (d *Device) State() uint8 {
	return d.state
}

func (d *Device) send() error {
	buf := [1]byte{d.state}
	return errors.Wrap(d.bus.Tx(d.addr, buf[:], nil), "pcf8574: write")
}

// Read samples every pin.
func (d *Device) Read() (Report, error) {
	var buf [1]byte
	// there are no registers: a read returns the pins directly
	if err := d.bus.Tx(d.addr, nil, buf[:]); err != nil {
		return 0, errors.Wrap(err, "pcf8574: read")
	}
	return Report(buf[0]), nil
}

// ReadAll is Read returning the raw pin byte.
func (d *Device) ReadAll() (uint8, error) {
	r, err := d.Read()
	return uint8(r), err
}

// Pin reports whether the specified pin is high.
func (r Report) Pin(p uint8) bool {
	return r&(1<<p) != 0
}
