// Package tester simulates the AVR peripherals closely enough to drive the real
// register-level code in this repository from ordinary Go tests.
//
// Each model checks the protocol it implements and fails the test through a Failer
// when the driver does something the hardware would not tolerate, such as touching the
// EEPROM address register during a write cycle or shifting I2C data outside a
// start/stop bracket.
package tester

import "tinygo.org/x/avrdrivers/avr"

// Failer is satisfied by *testing.T and *quicktest.C.
type Failer interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// MCU bundles one model of every peripheral behind a single clock.
type MCU struct {
	Clock  *Clock
	TWI    *TWI
	EEPROM *EEPROM
	ADC    *ADC
	Keypad *Keypad
	LCD    *HD44780
}

// NewMCU returns a chip with a 1024-byte EEPROM, the keypad on port C and the LCD
// on port B.
func NewMCU(c Failer) *MCU {
	clk := NewClock()
	return &MCU{
		Clock:  clk,
		TWI:    NewTWI(c),
		EEPROM: NewEEPROM(c, 1024),
		ADC:    NewADC(),
		Keypad: NewKeypad(clk),
		LCD:    NewHD44780(c),
	}
}

// Peripherals returns the handle the drivers are built from.
func (m *MCU) Peripherals() *avr.Peripherals {
	return &avr.Peripherals{
		TWI:    m.TWI.Regs(),
		EEPROM: m.EEPROM.Regs(),
		ADC:    m.ADC.Regs(),
		PortB:  m.LCD.Port(),
		PortC:  m.Keypad.Port(),
	}
}
