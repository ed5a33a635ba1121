// Package adc reads the 10-bit successive-approximation ADC of an AVR microcontroller
// one conversion at a time.
//
// Datasheet: https://ww1.microchip.com/downloads/en/DeviceDoc/doc2503.pdf (section "Analog to Digital Converter")
package adc

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
	"tinygo.org/x/avrdrivers/avr"
)

const (
	// Channels is the number of single-ended inputs.
	Channels = 8

	// DefaultSettle is the wait after switching the multiplexer.
	DefaultSettle = 5 * time.Millisecond

	// Max is the full-scale reading.
	Max = 0x3FF
)

type Device struct {
	regs   avr.ADC
	clock  clock.Clock
	settle time.Duration
	limit  uint32
}

type Config struct {
	// Settle is the wait between selecting a channel and starting the conversion,
	// 5ms if zero.
	Settle time.Duration
	// PollLimit bounds the wait for a conversion. Zero waits forever.
	PollLimit uint32
	Clock     clock.Clock
}

func New(regs avr.ADC) *Device {
	return &Device{regs: regs, clock: clock.New(), settle: DefaultSettle}
}

// Configure enables the converter with the smallest prescaler and selects channel
// zero with a right-adjusted result and the external reference.
func (d *Device) Configure(config Config) {
	if config.Settle == 0 {
		config.Settle = DefaultSettle
	}
	if config.Clock != nil {
		d.clock = config.Clock
	}
	d.settle = config.Settle
	d.limit = config.PollLimit

	d.regs.ADCSRA.Set(1<<avr.ADEN | 1<<avr.ADPS0)
	d.regs.ADMUX.Set(0x00)
}

// Get converts the given channel and returns the 10-bit result.
func (d *Device) Get(channel uint8) (uint16, error) {
	if channel >= Channels {
		return 0, errors.Errorf("adc: no channel %d", channel)
	}
	d.regs.ADMUX.Set(channel)
	d.clock.Sleep(d.settle)
	// writing ADIF clears a completion flag left over from an earlier conversion
	d.regs.ADCSRA.Set(1<<avr.ADEN | 1<<avr.ADSC | 1<<avr.ADIF | 1<<avr.ADPS0)
	err := avrdrivers.Poll(d.limit, func() bool {
		return d.regs.ADCSRA.HasBits(1 << avr.ADIF)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "adc: channel %d", channel)
	}
	return d.regs.ADCW.Get(), nil
}
