// Package hd44780 drives a 16x2 character LCD with an HD44780 compatible controller
// over a 4-bit bus.
//
// The bus is one 8-bit port, either an AVR GPIO port or a PCF8574 I2C backpack, with
// RS on bit 0, RW on bit 1, EN on bit 2, the backlight (backpacks only) on bit 3 and
// D4-D7 on bits 4-7. The display is only written to; RW is held low.
//
// Datasheet: https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	rs        = 1 << 0
	rw        = 1 << 1
	en        = 1 << 2
	backlight = 1 << 3
)

const (
	Lines   = 2  // display lines
	Columns = 16 // characters per line

	LineOne = 0x80 // set DDRAM address command for the start of the first line
	LineTwo = 0xC0 // set DDRAM address command for the start of the second line
)

// Commands.
const (
	ClearDisplay  = 0x01
	ReturnHome    = 0x02
	FunctionSet4  = 0x28 // 4-bit bus, two lines, 5x8 font
	DisplayCursor = 0x0E // display on, cursor on, no blink
)

const (
	powerOnDelay = 50 * time.Millisecond
	pulseWidth   = time.Microsecond
	nibbleDelay  = 10 * time.Microsecond
	commandDelay = time.Millisecond
	clearDelay   = 2 * time.Millisecond
)

var errLine = errors.New("hd44780: no such line")

// Bus is the port the display is wired to.
type Bus interface {
	SetAll(state uint8) error
}

// directioner is implemented by ports whose pin directions need setting.
type directioner interface {
	SetDirection(outputs uint8) error
}

type Device struct {
	bus       Bus
	clock     clock.Clock
	backlight uint8
	line, col int
}

type Config struct {
	// Backlight drives bit 3 high, which turns on the backlight of an I2C backpack.
	Backlight bool
	Clock     clock.Clock
}

func New(bus Bus) *Device {
	return &Device{bus: bus, clock: clock.New()}
}

// Configure waits for the controller to power up, switches it to 4-bit mode, turns the
// display on with the cursor shown, clears it and homes the cursor.
func (d *Device) Configure(config Config) error {
	if config.Clock != nil {
		d.clock = config.Clock
	}
	d.backlight = 0
	if config.Backlight {
		d.backlight = backlight
	}

	d.clock.Sleep(powerOnDelay)
	if dir, ok := d.bus.(directioner); ok {
		if err := dir.SetDirection(0xFF); err != nil {
			return err
		}
	}
	for _, cmd := range []byte{ReturnHome, FunctionSet4, DisplayCursor, ClearDisplay, LineOne} {
		if err := d.Command(cmd); err != nil {
			return errors.Wrapf(err, "hd44780: init command %#02x", cmd)
		}
	}
	d.line, d.col = 0, 0
	return nil
}

// Command writes an instruction byte.
func (d *Device) Command(cmd byte) error {
	return d.write(cmd, 0)
}

// Data writes a character at the cursor.
func (d *Device) Data(c byte) error {
	return d.write(c, rs)
}

func (d *Device) write(b byte, mode uint8) error {
	if err := d.nibble(b&0xF0, mode); err != nil {
		return err
	}
	d.clock.Sleep(nibbleDelay)
	if err := d.nibble(b<<4, mode); err != nil {
		return err
	}
	d.clock.Sleep(commandDelay)
	return nil
}

// nibble presents the upper four bits of v with RS set as mode, and pulses EN.
func (d *Device) nibble(v, mode uint8) error {
	state := v&0xF0 | mode | d.backlight
	if err := d.bus.SetAll(state); err != nil {
		return err
	}
	if err := d.bus.SetAll(state | en); err != nil {
		return err
	}
	d.clock.Sleep(pulseWidth)
	return d.bus.SetAll(state)
}

// Clear blanks the display and homes the cursor.
func (d *Device) Clear() error {
	if err := d.Command(ClearDisplay); err != nil {
		return err
	}
	d.clock.Sleep(clearDelay)
	d.line, d.col = 0, 0
	return nil
}

// GoToLine moves the cursor to the start of line 0 or 1.
func (d *Device) GoToLine(line int) error {
	return d.SetCursor(line, 0)
}

// SetCursor moves the cursor to the given line and column.
func (d *Device) SetCursor(line, col int) error {
	if line < 0 || line >= Lines {
		return errors.Wrapf(errLine, "hd44780: line %d", line)
	}
	if col < 0 || col >= Columns {
		return errors.Errorf("hd44780: no column %d", col)
	}
	base := byte(LineOne)
	if line == 1 {
		base = LineTwo
	}
	if err := d.Command(base + byte(col)); err != nil {
		return err
	}
	d.line, d.col = line, col
	return nil
}

// Print writes s from the cursor on. A newline or a full line continues on the next
// line, and the second line wraps back to the first.
func (d *Device) Print(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if err := d.GoToLine((d.line + 1) % Lines); err != nil {
				return err
			}
			continue
		}
		if d.col == Columns {
			if err := d.GoToLine((d.line + 1) % Lines); err != nil {
				return err
			}
		}
		if err := d.Data(s[i]); err != nil {
			return err
		}
		d.col++
	}
	return nil
}

// PrintLine replaces the contents of a line with s, cut or padded with blanks to the
// line width.
func (d *Device) PrintLine(line int, s string) error {
	if err := d.GoToLine(line); err != nil {
		return err
	}
	buf := make([]byte, Columns)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, s)
	for _, c := range buf {
		if err := d.Data(c); err != nil {
			return err
		}
	}
	d.col = Columns
	return nil
}

// Write implements io.Writer on top of Print.
func (d *Device) Write(p []byte) (int, error) {
	if err := d.Print(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Cursor returns the line and column the next character goes to.
func (d *Device) Cursor() (line, col int) {
	return d.line, d.col
}
