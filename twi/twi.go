// Package twi is a polled master driver for the AVR two-wire serial interface (TWI),
// the chip's I2C controller.
//
// The primitives Start, Stop, Send and Receive map one to one onto the hardware
// operations and leave the framing to the caller, which is what a device driver that
// needs an unusual transaction shape (such as a stop followed by a fresh start) wants.
// Tx, ReadRegister and WriteRegister build complete transactions on top of them, and
// make the bus usable wherever an avrdrivers.I2C or a periph.io i2c.Bus is expected.
//
// Datasheet: https://ww1.microchip.com/downloads/en/DeviceDoc/doc2503.pdf (section "Two-wire Serial Interface")
package twi

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"

	"tinygo.org/x/avrdrivers"
	"tinygo.org/x/avrdrivers/avr"
)

const (
	// DefaultDivisor is the bit rate register value used when no frequency is given.
	DefaultDivisor = 0x46

	// BusFree is the time the bus is left idle after a stop condition.
	BusFree = 10 * time.Microsecond
)

// Bus is the TWI controller in master mode.
type Bus struct {
	regs     avr.TWI
	clock    clock.Clock
	limit    uint32
	checkAck bool
	cpu      physic.Frequency
	divisor  uint8
}

// Config holds the bus settings. The zero value gives the divisor 0x46, unbounded
// polling and no acknowledge checking.
type Config struct {
	// Frequency is the SCL clock rate. It requires CPUFrequency.
	Frequency physic.Frequency
	// CPUFrequency is the system clock the bit rate is derived from.
	CPUFrequency physic.Frequency
	// Divisor sets the bit rate register directly and takes precedence over Frequency.
	Divisor uint8
	// PollLimit bounds every wait for the interrupt flag. Zero waits forever.
	PollLimit uint32
	// CheckAck makes Start and Send inspect the status register.
	CheckAck bool
	Clock    clock.Clock
}

// New returns a driver for the given register block. Call Configure before use.
func New(regs avr.TWI) *Bus {
	return &Bus{regs: regs, clock: clock.New(), divisor: DefaultDivisor}
}

// Configure sets the prescaler to one, loads the bit rate divisor and enables the
// interface. It may be called again to change the settings.
func (b *Bus) Configure(config Config) error {
	divisor := config.Divisor
	switch {
	case divisor != 0:
	case config.Frequency != 0:
		// zero is a valid result for an SCL rate of CPU/16
		d, err := Divisor(config.CPUFrequency, config.Frequency)
		if err != nil {
			return err
		}
		divisor = d
	default:
		divisor = DefaultDivisor
	}
	if config.Clock != nil {
		b.clock = config.Clock
	}
	b.limit = config.PollLimit
	b.checkAck = config.CheckAck
	b.cpu = config.CPUFrequency
	b.divisor = divisor

	b.regs.TWSR.Set(0)
	b.regs.TWBR.Set(divisor)
	b.regs.TWCR.Set(1 << avr.TWEN)
	return nil
}

// Divisor computes the bit rate register value for an SCL rate with the prescaler set
// to one: SCL = CPU / (16 + 2*TWBR).
func Divisor(cpu, scl physic.Frequency) (uint8, error) {
	if cpu == 0 || scl == 0 {
		return 0, errors.New("twi: CPU and SCL frequencies are required")
	}
	ratio := int64(cpu / scl)
	if ratio < 16 {
		return 0, errors.Errorf("twi: %s is too fast for a %s CPU clock", scl, cpu)
	}
	d := (ratio - 16) / 2
	if d > 0xFF {
		return 0, errors.Errorf("twi: %s is too slow for a %s CPU clock", scl, cpu)
	}
	return uint8(d), nil
}

// Start transmits a start condition, or a repeated start when the bus is already
// owned.
func (b *Bus) Start() error {
	b.regs.TWCR.Set(1<<avr.TWINT | 1<<avr.TWSTA | 1<<avr.TWEN)
	if err := b.wait(); err != nil {
		return errors.Wrap(err, "twi: start")
	}
	if b.checkAck {
		switch s := b.Status(); s {
		case avr.StatusStart, avr.StatusRestart:
		default:
			return StatusError(s)
		}
	}
	return nil
}

// Stop transmits a stop condition and then leaves the bus idle for BusFree. The stop
// completes without raising the interrupt flag, so there is nothing to poll.
func (b *Bus) Stop() {
	b.regs.TWCR.Set(1<<avr.TWINT | 1<<avr.TWEN | 1<<avr.TWSTO)
	b.clock.Sleep(BusFree)
}

// Send shifts out one byte, an address byte or data, most significant bit first.
func (b *Bus) Send(c byte) error {
	b.regs.TWDR.Set(c)
	b.regs.TWCR.Set(1<<avr.TWINT | 1<<avr.TWEN)
	if err := b.wait(); err != nil {
		return errors.Wrapf(err, "twi: send %#02x", c)
	}
	if b.checkAck {
		switch s := b.Status(); s {
		case avr.StatusSLAWAck, avr.StatusSLARAck, avr.StatusDataAck:
		case avr.StatusSLAWNack, avr.StatusSLARNack, avr.StatusDataNack:
			return errors.Wrapf(avrdrivers.ErrNACK, "twi: send %#02x", c)
		default:
			return StatusError(s)
		}
	}
	return nil
}

// Receive shifts in one byte and answers it with an acknowledge when ack is true. The
// last byte of a read is received with ack false.
func (b *Bus) Receive(ack bool) (byte, error) {
	cr := uint8(1<<avr.TWINT | 1<<avr.TWEN)
	if ack {
		cr |= 1 << avr.TWEA
	}
	b.regs.TWCR.Set(cr)
	if err := b.wait(); err != nil {
		return 0, errors.Wrap(err, "twi: receive")
	}
	return b.regs.TWDR.Get(), nil
}

// Status returns the status code of the last operation.
func (b *Bus) Status() uint8 {
	return b.regs.TWSR.Get() & avr.TWSRMask
}

func (b *Bus) wait() error {
	return avrdrivers.Poll(b.limit, func() bool {
		return b.regs.TWCR.HasBits(1 << avr.TWINT)
	})
}
