// Package monitor is a line-oriented console over a configured board. Each line is
// split like a shell command and runs one driver operation, for instance
//
//	ee write 0x10 "hello world"
//	rtc settime 12 30 0
//	lcd "line one" "line two"
//
// It is meant for bring-up of a new board over a serial port.
package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tinygo.org/x/avrdrivers/adc"
	"tinygo.org/x/avrdrivers/board"
)

// ErrUnknownCommand is returned for a line whose first word is not a command.
var ErrUnknownCommand = errors.New("unknown command")

var usage = []string{
	"ee read <addr> <n>",
	"ee string <addr>",
	"ee write <addr> <text>",
	"ee erase",
	"rtc time",
	"rtc date",
	"rtc settime <h> <m> <s>",
	"rtc setdate <d> <m> <y>",
	"adc <ch>",
	"lcd <text> [<text>]",
	"key",
	"help",
}

// Monitor runs console commands against the devices of a board.
type Monitor struct {
	board  *board.Board
	out    io.Writer
	logger *zap.SugaredLogger
}

func New(b *board.Board, out io.Writer, logger *zap.SugaredLogger) *Monitor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Monitor{board: b, out: out, logger: logger}
}

// Run executes every line read from r. A failing line does not stop the run; the
// failures are returned together. Blank lines and lines starting with # are skipped.
func (m *Monitor) Run(r io.Reader) error {
	var errs error
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := m.Exec(line); err != nil {
			m.logger.Errorw("command failed", "line", n, "command", line, "error", err)
			fmt.Fprintf(m.out, "error: %v\n", err)
			errs = multierr.Append(errs, errors.Wrapf(err, "line %d", n))
		}
	}
	return multierr.Append(errs, scanner.Err())
}

// Exec runs one command line.
func (m *Monitor) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errors.Wrap(err, "monitor: parsing command")
	}
	if len(args) == 0 {
		return nil
	}
	m.logger.Debugw("exec", "command", args[0], "args", args[1:])

	switch args[0] {
	case "ee":
		return m.eeprom(args[1:])
	case "rtc":
		return m.rtc(args[1:])
	case "adc":
		return m.adc(args[1:])
	case "lcd":
		return m.lcd(args[1:])
	case "key":
		return m.key(args[1:])
	case "help":
		for _, u := range usage {
			fmt.Fprintln(m.out, u)
		}
		return nil
	}
	return errors.Wrapf(ErrUnknownCommand, "monitor: %q", args[0])
}

func notConfigured(device string) error {
	return errors.Errorf("monitor: %s not configured", device)
}

func usageError(prefix string) error {
	var matching []string
	for _, u := range usage {
		if strings.HasPrefix(u, prefix) {
			matching = append(matching, u)
		}
	}
	if len(matching) == 0 && strings.Contains(prefix, " ") {
		return usageError(strings.Fields(prefix)[0])
	}
	return errors.Errorf("monitor: usage: %s", strings.Join(matching, " | "))
}

// number parses a decimal, 0x hex or 0 octal argument that must fit in bits.
func number(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	return v, errors.Wrapf(err, "monitor: bad number %q", s)
}

func (m *Monitor) eeprom(args []string) error {
	d := m.board.EEPROM
	if d == nil {
		return notConfigured("eeprom")
	}
	if len(args) == 0 {
		return usageError("ee")
	}
	if args[0] == "erase" && len(args) == 1 {
		if err := d.Erase(); err != nil {
			return err
		}
		fmt.Fprintf(m.out, "erased %d bytes\n", d.Size())
		return nil
	}
	if len(args) < 2 {
		return usageError("ee " + args[0])
	}
	off, err := number(args[1], 16)
	if err != nil {
		return err
	}
	addr, err := d.Addr(int(off))
	if err != nil {
		return err
	}

	switch {
	case args[0] == "read" && len(args) == 3:
		n, err := number(args[2], 16)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if err := d.ReadBytes(addr, buf); err != nil {
			return err
		}
		dump(m.out, addr.Offset(), buf)
		return nil
	case args[0] == "string" && len(args) == 2:
		// one more than can fit, so a missing terminator reads as out of range
		buf := make([]byte, d.Size()-addr.Offset()+1)
		n, err := d.ReadStringAt(addr, buf)
		if err != nil {
			return err
		}
		fmt.Fprintln(m.out, string(buf[:n-1]))
		return nil
	case args[0] == "write" && len(args) >= 3:
		s := strings.Join(args[2:], " ")
		if err := d.WriteStringAt(addr, s); err != nil {
			return err
		}
		fmt.Fprintf(m.out, "wrote %d bytes at %#04x\n", len(s)+1, addr.Offset())
		return nil
	}
	return usageError("ee " + args[0])
}

// dump prints buf as hex, 16 bytes per row, each row prefixed with its address.
func dump(w io.Writer, base int, buf []byte) {
	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		fmt.Fprintf(w, "%04x:", base+i)
		for _, b := range buf[i:end] {
			fmt.Fprintf(w, " %02x", b)
		}
		fmt.Fprintln(w)
	}
}

func (m *Monitor) rtc(args []string) error {
	d := m.board.RTC
	if d == nil {
		return notConfigured("rtc")
	}
	if len(args) == 0 {
		return usageError("rtc")
	}
	switch {
	case args[0] == "time" && len(args) == 1:
		hh, mm, ss, err := d.GetTime()
		if err != nil {
			return err
		}
		// the registers hold BCD, so hex formatting prints the decimal digits
		fmt.Fprintf(m.out, "%02x:%02x:%02x\n", hh&0x3F, mm, ss&^0x80)
		return nil
	case args[0] == "date" && len(args) == 1:
		dd, mo, yy, err := d.GetDate()
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "%02x/%02x/%02x\n", dd, mo, yy)
		return nil
	case args[0] == "settime" && len(args) == 4:
		v, err := decimals(args[1:], [3]uint64{23, 59, 59}, [3]uint64{0, 0, 0})
		if err != nil {
			return err
		}
		return d.SetTime(v[0], v[1], v[2])
	case args[0] == "setdate" && len(args) == 4:
		v, err := decimals(args[1:], [3]uint64{31, 12, 99}, [3]uint64{1, 1, 0})
		if err != nil {
			return err
		}
		return d.SetDate(v[0], v[1], v[2])
	}
	return usageError("rtc " + args[0])
}

// decimals parses three bounded decimal fields and returns them in BCD.
func decimals(args []string, hi, lo [3]uint64) ([3]uint8, error) {
	var out [3]uint8
	for i, s := range args {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil || v < lo[i] || v > hi[i] {
			return out, errors.Errorf("monitor: %q is not between %d and %d", s, lo[i], hi[i])
		}
		out[i] = uint8(v/10<<4 | v%10)
	}
	return out, nil
}

func (m *Monitor) adc(args []string) error {
	d := m.board.ADC
	if d == nil {
		return notConfigured("adc")
	}
	if len(args) != 1 {
		return usageError("adc")
	}
	ch, err := number(args[0], 8)
	if err != nil {
		return err
	}
	v, err := d.Get(uint8(ch))
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "adc %d: %d (%d%%)\n", ch, v, int(v)*100/adc.Max)
	return nil
}

func (m *Monitor) lcd(args []string) error {
	d := m.board.LCD
	if d == nil {
		return notConfigured("lcd")
	}
	if len(args) == 0 || len(args) > 2 {
		return usageError("lcd")
	}
	for line, s := range args {
		if err := d.PrintLine(line, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) key(args []string) error {
	d := m.board.Keypad
	if d == nil {
		return notConfigured("keypad")
	}
	if len(args) != 0 {
		return usageError("key")
	}
	code, err := d.GetKey()
	if err != nil {
		return err
	}
	if r, ok := code.Rune(); ok {
		fmt.Fprintf(m.out, "%c\n", r)
		return nil
	}
	return errors.Errorf("monitor: unrecognised scan code %v", code)
}
