// Package eeprom drives the on-chip EEPROM of an AVR microcontroller.
//
// Every operation is built from the single-byte read and write, which wait for the
// previous write cycle to end by polling the write enable flag. Addresses are checked
// against the capacity when they are made, through Device.Addr.
//
// Datasheet: https://ww1.microchip.com/downloads/en/DeviceDoc/doc2503.pdf (section "EEPROM Data Memory")
package eeprom

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
	"tinygo.org/x/avrdrivers/avr"
)

const (
	// DefaultCapacity is the EEPROM size of the ATmega16/32 parts, which the
	// ATmega1284P has four times over.
	DefaultCapacity = 1024

	// DefaultReadDelay is the wait between the read strobe and sampling the data
	// register.
	DefaultReadDelay = time.Millisecond

	// Erased is the value of a byte that has been erased.
	Erased = 0xFF
)

// Device is the EEPROM controller.
type Device struct {
	regs      avr.EEPROM
	clock     clock.Clock
	capacity  int
	readDelay time.Duration
	limit     uint32
}

type Config struct {
	// Capacity in bytes, 1024 if zero.
	Capacity int
	// ReadDelay is the settle time after a read strobe, 1ms if zero.
	ReadDelay time.Duration
	// PollLimit bounds waits for a write cycle to end. Zero waits forever.
	PollLimit uint32
	Clock     clock.Clock
}

// Address is a byte offset known to lie inside the device.
type Address struct {
	off int
}

// Offset returns the address as a plain number.
func (a Address) Offset() int {
	return a.off
}

func New(regs avr.EEPROM) *Device {
	return &Device{
		regs:      regs,
		clock:     clock.New(),
		capacity:  DefaultCapacity,
		readDelay: DefaultReadDelay,
	}
}

func (d *Device) Configure(config Config) {
	if config.Capacity == 0 {
		config.Capacity = DefaultCapacity
	}
	if config.ReadDelay == 0 {
		config.ReadDelay = DefaultReadDelay
	}
	if config.Clock != nil {
		d.clock = config.Clock
	}
	d.capacity = config.Capacity
	d.readDelay = config.ReadDelay
	d.limit = config.PollLimit
}

// Size returns the capacity in bytes.
func (d *Device) Size() int {
	return d.capacity
}

// Addr validates off against the capacity.
func (d *Device) Addr(off int) (Address, error) {
	if off < 0 || off >= d.capacity {
		return Address{}, errors.Wrapf(avrdrivers.ErrOutOfRange, "eeprom: address %d of %d", off, d.capacity)
	}
	return Address{off: off}, nil
}

// span checks that n bytes starting at a fit.
func (d *Device) span(a Address, n int) error {
	if a.off+n > d.capacity {
		return errors.Wrapf(avrdrivers.ErrOutOfRange, "eeprom: %d bytes at %d of %d", n, a.off, d.capacity)
	}
	return nil
}

// WriteByteAt programs one byte. It returns as soon as the write cycle has started.
func (d *Device) WriteByteAt(a Address, v byte) error {
	if err := d.idle(); err != nil {
		return err
	}
	d.regs.EEAR.Set(uint16(a.off))
	d.regs.EEDR.Set(v)
	// EEWE must follow EEMWE within four cycles: nothing may come between these two
	d.regs.EECR.SetBits(1 << avr.EEMWE)
	d.regs.EECR.SetBits(1 << avr.EEWE)
	return nil
}

// ReadByteAt reads one byte.
func (d *Device) ReadByteAt(a Address) (byte, error) {
	// the CPU is halted while a read executes, so only a write can be in progress
	if err := d.idle(); err != nil {
		return 0, err
	}
	d.regs.EEAR.Set(uint16(a.off))
	d.regs.EECR.SetBits(1 << avr.EERE)
	d.clock.Sleep(d.readDelay)
	return d.regs.EEDR.Get(), nil
}

// WriteBytes programs buf at consecutive addresses starting at a.
func (d *Device) WriteBytes(a Address, buf []byte) error {
	if err := d.span(a, len(buf)); err != nil {
		return err
	}
	for i, v := range buf {
		if err := d.WriteByteAt(Address{off: a.off + i}, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes fills buf from consecutive addresses starting at a.
func (d *Device) ReadBytes(a Address, buf []byte) error {
	if err := d.span(a, len(buf)); err != nil {
		return err
	}
	for i := range buf {
		v, err := d.ReadByteAt(Address{off: a.off + i})
		if err != nil {
			return err
		}
		buf[i] = v
	}
	return nil
}

// WriteStringAt stores s followed by a zero terminator, so it takes len(s)+1 bytes.
func (d *Device) WriteStringAt(a Address, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return errors.Errorf("eeprom: string contains a zero byte at %d", i)
		}
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return d.WriteBytes(a, buf)
}

// ReadStringAt reads bytes into buf up to and including the zero terminator and
// returns how many were read. It fails with io.ErrShortBuffer when buf fills before a
// terminator is seen, and with avrdrivers.ErrOutOfRange when the end of the device
// comes first.
func (d *Device) ReadStringAt(a Address, buf []byte) (int, error) {
	for n := 0; n < len(buf); n++ {
		off := a.off + n
		if off >= d.capacity {
			return n, errors.Wrap(avrdrivers.ErrOutOfRange, "eeprom: unterminated string")
		}
		v, err := d.ReadByteAt(Address{off: off})
		if err != nil {
			return n, err
		}
		buf[n] = v
		if v == 0 {
			return n + 1, nil
		}
	}
	return len(buf), io.ErrShortBuffer
}

// Erase writes Erased to every byte, lowest address first.
func (d *Device) Erase() error {
	for off := 0; off < d.capacity; off++ {
		if err := d.WriteByteAt(Address{off: off}, Erased); err != nil {
			return errors.Wrapf(err, "eeprom: erase at %d", off)
		}
	}
	return nil
}

func (d *Device) idle() error {
	err := avrdrivers.Poll(d.limit, func() bool {
		return !d.regs.EECR.HasBits(1 << avr.EEWE)
	})
	return errors.Wrap(err, "eeprom: write cycle")
}
