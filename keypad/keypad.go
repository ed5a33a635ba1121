// Package keypad scans a 4x4 membrane keypad wired as a row/column matrix.
//
// The rows sit on the upper four bits of the matrix port and are driven, the columns
// on the lower four bits with pull-ups. A pressed key pulls its column low while its
// row is driven low. The port can be an AVR GPIO port or a PCF8574 expander.
//
// Reading a key takes four steps: wait until every key is released, wait for a press
// that is still there after the debounce interval, find the row it is on, and decode
// the row and column pattern.
package keypad

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"tinygo.org/x/avrdrivers"
)

const (
	// Rows is the mask of the row lines.
	Rows = 0xF0
	// Columns is the mask of the column lines. All columns high means no key is down.
	Columns = 0x0F

	DefaultDebounce     = time.Millisecond
	DefaultReleaseDelay = time.Millisecond
)

// Matrix is the port the keypad is wired to.
type Matrix interface {
	// SetAll drives the row lines and enables the column pull-ups.
	SetAll(state uint8) error
	// ReadAll samples every line.
	ReadAll() (uint8, error)
}

// directioner is implemented by ports whose pin directions need setting.
type directioner interface {
	SetDirection(outputs uint8) error
}

type Device struct {
	matrix       Matrix
	clock        clock.Clock
	debounce     time.Duration
	releaseDelay time.Duration
	limit        uint32
}

type Config struct {
	// Debounce is the settle time between the two samples that confirm a press.
	Debounce time.Duration
	// ReleaseDelay is the pause between seeing every key released and looking for
	// the next press.
	ReleaseDelay time.Duration
	// PollLimit bounds each wait for a release or a press, in samples. A press wait
	// counts every debounce attempt, confirming samples included. Zero waits forever.
	PollLimit uint32
	Clock     clock.Clock
}

func New(m Matrix) *Device {
	return &Device{
		matrix:       m,
		clock:        clock.New(),
		debounce:     DefaultDebounce,
		releaseDelay: DefaultReleaseDelay,
	}
}

// Configure makes the rows outputs and the columns inputs.
func (d *Device) Configure(config Config) error {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if config.ReleaseDelay == 0 {
		config.ReleaseDelay = DefaultReleaseDelay
	}
	if config.Clock != nil {
		d.clock = config.Clock
	}
	d.debounce = config.Debounce
	d.releaseDelay = config.ReleaseDelay
	d.limit = config.PollLimit

	if dir, ok := d.matrix.(directioner); ok {
		return dir.SetDirection(Rows)
	}
	return nil
}

// columns drives the rows with pattern and returns the column lines.
func (d *Device) columns(rows uint8) (uint8, error) {
	if err := d.matrix.SetAll(rows&Rows | Columns); err != nil {
		return 0, err
	}
	v, err := d.matrix.ReadAll()
	return v & Columns, err
}

// until samples the columns with every row driven low until cond holds, taking at
// most limit samples, and returns how many it took.
func (d *Device) until(limit uint32, cond func(cols uint8) bool) (uint32, error) {
	var n uint32
	var err error
	perr := avrdrivers.Poll(limit, func() bool {
		var cols uint8
		n++
		cols, err = d.columns(0x00)
		return err != nil || cond(cols)
	})
	if err != nil {
		return n, err
	}
	return n, perr
}

// WaitForRelease returns once no key is down.
func (d *Device) WaitForRelease() error {
	_, err := d.until(d.limit, func(cols uint8) bool { return cols == Columns })
	return errors.Wrap(err, "keypad: wait for release")
}

// WaitForPress returns once a key is down and still down after the debounce
// interval. A contact that opens again within the interval is ignored.
func (d *Device) WaitForPress() error {
	left := d.limit
	for {
		n, err := d.until(left, func(cols uint8) bool { return cols != Columns })
		if err != nil {
			return errors.Wrap(err, "keypad: wait for press")
		}
		if d.limit != 0 {
			// the confirming sample comes out of the same budget
			if left -= n; left == 0 {
				break
			}
			left--
		}
		d.clock.Sleep(d.debounce)
		cols, err := d.columns(0x00)
		if err != nil {
			return errors.Wrap(err, "keypad: wait for press")
		}
		if cols != Columns {
			return nil
		}
		if d.limit != 0 && left == 0 {
			break
		}
	}
	return errors.Wrap(avrdrivers.ErrTimeout, "keypad: wait for press")
}

// Scan drives one row low at a time, first row first, and returns the scan code of
// the first row that has a closed contact. When no key is down the code is NoKey.
func (d *Device) Scan() (ScanCode, error) {
	row := uint8(0xE0)
	cols := uint8(Columns)
	for i := 0; i < 4; i++ {
		var err error
		cols, err = d.columns(row)
		if err != nil {
			return NoKey, errors.Wrap(err, "keypad: scan")
		}
		if cols != Columns {
			break
		}
		row = row<<1 + 0x10
	}
	return ScanCode(row&Rows | cols), nil
}

// GetKey waits for the previous key to be released and a new one to be pressed, and
// returns the scan code of the new key.
func (d *Device) GetKey() (ScanCode, error) {
	if err := d.WaitForRelease(); err != nil {
		return NoKey, err
	}
	d.clock.Sleep(d.releaseDelay)
	if err := d.WaitForPress(); err != nil {
		return NoKey, err
	}
	return d.Scan()
}

// ReadKey is GetKey followed by decoding. ok is false for a code outside the key
// table, for instance when the key was released again before the scan reached it.
func (d *Device) ReadKey() (key rune, ok bool, err error) {
	code, err := d.GetKey()
	if err != nil {
		return 0, false, err
	}
	key, ok = code.Rune()
	return key, ok, nil
}
