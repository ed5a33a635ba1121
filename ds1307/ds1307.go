// Package ds1307 implements a driver for the DS1307 Real-Time Clock (RTC) with 56 bytes
// of battery-backed RAM.
//
// SetTime, SetDate, GetTime and GetDate move raw register values, which the chip keeps
// in BCD. Set and Now convert to and from time.Time.
//
// Reads first write the register pointer in a transaction of its own, stop, and then
// start a second transaction in the read direction.
//
// Datasheet: https://datasheets.maximintegrated.com/en/ds/DS1307.pdf
package ds1307

import (
	"time"

	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
)

// Bus is the I2C master the clock sits on. *twi.Bus implements it.
type Bus interface {
	Start() error
	Stop()
	Send(b byte) error
	Receive(ack bool) (byte, error)
}

// century is added to the two-digit year. Only the 21st century is supported.
const century = 2000

var errYearOutOfRange = errors.New("ds1307: year out of range")

type Device struct {
	bus     Bus
	Address uint8
}

func New(bus Bus) *Device {
	return &Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure clears the control register, which disables the square wave output.
func (d *Device) Configure() error {
	return d.write(Control, 0x00)
}

// SetTime writes the hour, minute and second registers.
func (d *Device) SetTime(hh, mm, ss uint8) error {
	return d.write(Seconds, ss, mm, hh)
}

// SetDate writes the date, month and year registers.
func (d *Device) SetDate(dd, mm, yy uint8) error {
	return d.write(Date, dd, mm, yy)
}

// GetTime reads the hour, minute and second registers.
func (d *Device) GetTime() (hh, mm, ss uint8, err error) {
	var buf [3]byte
	if err := d.read(Seconds, buf[:]); err != nil {
		return 0, 0, 0, err
	}
	return buf[2], buf[1], buf[0], nil
}

// GetDate reads the date, month and year registers.
func (d *Device) GetDate() (dd, mm, yy uint8, err error) {
	var buf [3]byte
	if err := d.read(Date, buf[:]); err != nil {
		return 0, 0, 0, err
	}
	return buf[0], buf[1], buf[2], nil
}

// Set sets the time and starts the oscillator, in 24-hour mode.
func (d *Device) Set(t time.Time) error {
	if t.Year() < century || t.Year() >= century+100 {
		return errYearOutOfRange
	}
	return d.write(Seconds,
		decToBcd(t.Second()),
		decToBcd(t.Minute()),
		decToBcd(t.Hour()),
		decToBcd(int(t.Weekday())+1),
		decToBcd(t.Day()),
		decToBcd(int(t.Month())),
		decToBcd(t.Year()-century),
	)
}

// Now reads the time. The result is in UTC; the chip has no notion of zones.
func (d *Device) Now() (time.Time, error) {
	var buf [7]byte
	if err := d.read(Seconds, buf[:]); err != nil {
		return time.Time{}, err
	}

	seconds := bcdToDec(buf[0] &^ ClockHalt)
	minute := bcdToDec(buf[1] & 0x7F)
	var hour int
	if buf[2]&Mode12 != 0 {
		hour = bcdToDec(buf[2]&0x1F) % 12
		if buf[2]&0x20 != 0 {
			hour += 12 // PM
		}
	} else {
		hour = bcdToDec(buf[2] & 0x3F)
	}
	// we don't need the weekday
	day := bcdToDec(buf[4] & 0x3F)
	month := time.Month(bcdToDec(buf[5] & 0x1F))
	year := bcdToDec(buf[6]) + century

	return time.Date(year, month, day, hour, minute, seconds, 0, time.UTC), nil
}

// Running reports whether the oscillator is running. It is halted on first power-up
// until the time is set.
func (d *Device) Running() (bool, error) {
	var buf [1]byte
	if err := d.read(Seconds, buf[:]); err != nil {
		return false, err
	}
	return buf[0]&ClockHalt == 0, nil
}

// ReadRAM reads len(buf) bytes of battery-backed RAM starting at offset.
func (d *Device) ReadRAM(offset int, buf []byte) error {
	if err := ramSpan(offset, len(buf)); err != nil {
		return err
	}
	return d.read(uint8(RAMStart+offset), buf)
}

// WriteRAM writes buf to battery-backed RAM starting at offset.
func (d *Device) WriteRAM(offset int, buf []byte) error {
	if err := ramSpan(offset, len(buf)); err != nil {
		return err
	}
	return d.write(uint8(RAMStart+offset), buf...)
}

func ramSpan(offset, n int) error {
	if offset < 0 || offset >= RAMSize || offset+n > RAMSize {
		return errors.Wrapf(avrdrivers.ErrOutOfRange, "ds1307: %d RAM bytes at %d", n, offset)
	}
	return nil
}

// write sends the register pointer followed by data in one transaction.
func (d *Device) write(reg uint8, data ...byte) error {
	if err := d.bus.Start(); err != nil {
		d.bus.Stop()
		return err
	}
	err := d.send(append([]byte{d.Address << 1, reg}, data...))
	d.bus.Stop()
	return err
}

// read positions the register pointer, stops, and reads buf in a new transaction.
func (d *Device) read(reg uint8, buf []byte) error {
	if err := d.write(reg); err != nil {
		return err
	}
	if err := d.bus.Start(); err != nil {
		d.bus.Stop()
		return err
	}
	defer d.bus.Stop()
	if err := d.bus.Send(d.Address<<1 | 1); err != nil {
		return err
	}
	for i := range buf {
		b, err := d.bus.Receive(i < len(buf)-1)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

func (d *Device) send(bytes []byte) error {
	for _, b := range bytes {
		if err := d.bus.Send(b); err != nil {
			return err
		}
	}
	return nil
}

// decToBcd converts int to BCD
func decToBcd(dec int) uint8 {
	return uint8(dec + 6*(dec/10))
}

// bcdToDec converts BCD to int
func bcdToDec(bcd uint8) int {
	return int(bcd - 6*(bcd>>4))
}
