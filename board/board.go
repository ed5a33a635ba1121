// Package board assembles the drivers of one AVR board from a Config: the I2C bus,
// the EEPROM, the keypad, the ADC, the character LCD and the real-time clock, each on
// the GPIO port or expander the config names.
package board

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tinygo.org/x/avrdrivers/adc"
	"tinygo.org/x/avrdrivers/avr"
	"tinygo.org/x/avrdrivers/ds1307"
	"tinygo.org/x/avrdrivers/eeprom"
	"tinygo.org/x/avrdrivers/hd44780"
	"tinygo.org/x/avrdrivers/keypad"
	"tinygo.org/x/avrdrivers/pcf8574"
	"tinygo.org/x/avrdrivers/twi"
)

const rtcAddress = ds1307.Address

// Board holds the configured drivers. A device that is disabled, or that failed to
// configure, is nil.
type Board struct {
	TWI    *twi.Bus
	EEPROM *eeprom.Device
	Keypad *keypad.Device
	ADC    *adc.Device
	LCD    *hd44780.Device
	RTC    *ds1307.Device
}

// New configures every enabled device on p. It returns the board even when some
// devices fail; the error then combines the failures and those devices are left nil.
func New(p *avr.Peripherals, conf *Config, logger *zap.SugaredLogger) (*Board, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	clk := conf.Clock
	if clk == nil {
		clk = clock.New()
	}
	b := &Board{}

	var errs error
	fail := func(device string, err error) {
		logger.Errorw("device failed to configure", "device", device, "error", err)
		errs = multierr.Append(errs, errors.Wrapf(err, "board: %s", device))
	}

	if conf.usesTWI() {
		bus := twi.New(p.TWI)
		err := bus.Configure(twi.Config{
			Frequency:    conf.TWI.Frequency,
			CPUFrequency: conf.TWI.CPUFrequency,
			PollLimit:    conf.TWI.PollLimit,
			CheckAck:     conf.TWI.CheckAck,
			Clock:        clk,
		})
		if err != nil {
			fail("twi", err)
			// nothing on the bus can work without it
			return b, errs
		}
		b.TWI = bus
		logger.Infow("configured", "device", "twi", "frequency", conf.TWI.Frequency.String())
	}

	if conf.EEPROM.Enabled {
		d := eeprom.New(p.EEPROM)
		d.Configure(eeprom.Config{
			Capacity:  conf.EEPROM.Capacity,
			ReadDelay: conf.EEPROM.ReadDelay,
			PollLimit: conf.EEPROM.PollLimit,
			Clock:     clk,
		})
		b.EEPROM = d
		logger.Infow("configured", "device", "eeprom", "size", d.Size())
	}

	if conf.Keypad.Enabled {
		var m keypad.Matrix = p.PortC
		if addr := conf.Keypad.Expander; addr != 0 {
			m = nil
			if exp, err := b.expander(addr); err != nil {
				fail("keypad", err)
			} else {
				m = exp
			}
		}
		if m != nil {
			d := keypad.New(m)
			err := d.Configure(keypad.Config{
				Debounce:     conf.Keypad.Debounce,
				ReleaseDelay: conf.Keypad.ReleaseDelay,
				PollLimit:    conf.Keypad.PollLimit,
				Clock:        clk,
			})
			if err != nil {
				fail("keypad", err)
			} else {
				b.Keypad = d
				logger.Infow("configured", "device", "keypad", "expander", conf.Keypad.Expander)
			}
		}
	}

	if conf.ADC.Enabled {
		d := adc.New(p.ADC)
		d.Configure(adc.Config{
			Settle:    conf.ADC.Settle,
			PollLimit: conf.ADC.PollLimit,
			Clock:     clk,
		})
		b.ADC = d
		logger.Infow("configured", "device", "adc")
	}

	if conf.LCD.Enabled {
		var bus hd44780.Bus = p.PortB
		if addr := conf.LCD.Expander; addr != 0 {
			bus = nil
			if exp, err := b.expander(addr); err != nil {
				fail("lcd", err)
			} else {
				bus = exp
			}
		}
		if bus != nil {
			d := hd44780.New(bus)
			if err := d.Configure(hd44780.Config{Backlight: conf.LCD.Backlight, Clock: clk}); err != nil {
				fail("lcd", err)
			} else {
				b.LCD = d
				logger.Infow("configured", "device", "lcd", "expander", conf.LCD.Expander)
			}
		}
	}

	if conf.RTC.Enabled {
		d := ds1307.New(b.TWI)
		if err := d.Configure(); err != nil {
			fail("rtc", err)
		} else {
			b.RTC = d
			running, err := d.Running()
			if err != nil {
				fail("rtc", err)
			} else if !running {
				logger.Warnw("clock is halted, set the time to start it", "device", "rtc")
			}
			logger.Infow("configured", "device", "rtc")
		}
	}

	return b, errs
}

// expander returns a configured PCF8574 at addr.
func (b *Board) expander(addr uint8) (*pcf8574.Device, error) {
	exp := pcf8574.New(b.TWI)
	if err := exp.Configure(pcf8574.Config{Address: addr}); err != nil {
		return nil, err
	}
	return exp, nil
}
