package avr

import "tinygo.org/x/avrdrivers"

// Port is one 8-bit I/O port.
type Port struct {
	DDR  avrdrivers.Register8 // data direction, one bit per pin, 1 is output
	PORT avrdrivers.Register8 // output latch, pull-up enable for input pins
	PIN  avrdrivers.Register8 // input pins
}

// SetDirection configures the pins whose bit is set in outputs as outputs and the
// rest as inputs.
func (p Port) SetDirection(outputs uint8) error {
	p.DDR.Set(outputs)
	return nil
}

// SetAll writes the whole output latch. For input pins a one enables the pull-up.
func (p Port) SetAll(state uint8) error {
	p.PORT.Set(state)
	return nil
}

// ReadAll samples every pin of the port.
func (p Port) ReadAll() (uint8, error) {
	return p.PIN.Get(), nil
}
