// Package avr describes the memory-mapped peripherals of an 8-bit AVR microcontroller
// (ATmega16/32 family and the ATmega1284P) as one owned handle.
//
// A Peripherals value is the only way to reach the registers. Drivers are handed the
// block they need at construction time and keep it for their lifetime, so ownership of
// the bus, the EEPROM controller and each port is explicit in the program rather than
// hidden in globals.
//
// Datasheet: https://ww1.microchip.com/downloads/en/DeviceDoc/doc2503.pdf
package avr

import (
	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
)

// ErrTaken is returned by Take when the peripherals were already handed out.
var ErrTaken = errors.New("avr: peripherals already taken")

// Peripherals is the register set of the chip.
type Peripherals struct {
	TWI    TWI
	EEPROM EEPROM
	ADC    ADC
	PortB  Port
	PortC  Port
}

// TWI is the two-wire serial interface register block.
type TWI struct {
	TWBR avrdrivers.Register8 // bit rate
	TWSR avrdrivers.Register8 // status and prescaler
	TWCR avrdrivers.Register8 // control
	TWDR avrdrivers.Register8 // data
}

// EEPROM is the data EEPROM controller register block.
type EEPROM struct {
	EECR avrdrivers.Register8  // control
	EEDR avrdrivers.Register8  // data
	EEAR avrdrivers.Register16 // address
}

// ADC is the analog-to-digital converter register block.
type ADC struct {
	ADMUX  avrdrivers.Register8  // multiplexer selection
	ADCSRA avrdrivers.Register8  // control and status A
	ADCW   avrdrivers.Register16 // conversion result
}
