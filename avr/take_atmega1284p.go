//go:build atmega1284p
// +build atmega1284p

package avr

import (
	device "device/avr"
	"runtime/volatile"
)

var taken bool

// Take returns the chip's peripherals. It succeeds once; later calls return ErrTaken.
func Take() (*Peripherals, error) {
	if taken {
		return nil, ErrTaken
	}
	taken = true
	return &Peripherals{
		TWI: TWI{
			TWBR: device.TWBR,
			TWSR: device.TWSR,
			TWCR: device.TWCR,
			TWDR: device.TWDR,
		},
		EEPROM: EEPROM{
			EECR: device.EECR,
			EEDR: device.EEDR,
			EEAR: pair16{lo: device.EEARL, hi: device.EEARH},
		},
		ADC: ADC{
			ADMUX:  device.ADMUX,
			ADCSRA: device.ADCSRA,
			ADCW:   pair16{lo: device.ADCL, hi: device.ADCH},
		},
		PortB: Port{DDR: device.DDRB, PORT: device.PORTB, PIN: device.PINB},
		PortC: Port{DDR: device.DDRC, PORT: device.PORTC, PIN: device.PINC},
	}, nil
}

// pair16 accesses a low/high register pair as one 16-bit value. The low byte is read
// first and written last, which latches the pair atomically in hardware.
type pair16 struct {
	lo, hi *volatile.Register8
}

func (p pair16) Get() uint16 {
	lo := p.lo.Get()
	return uint16(p.hi.Get())<<8 | uint16(lo)
}

func (p pair16) Set(v uint16) {
	p.hi.Set(uint8(v >> 8))
	p.lo.Set(uint8(v))
}
