package monitor_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tinygo.org/x/avrdrivers"
	"tinygo.org/x/avrdrivers/board"
	"tinygo.org/x/avrdrivers/monitor"
	"tinygo.org/x/avrdrivers/tester"
)

type fixture struct {
	mon  *monitor.Monitor
	mcu  *tester.MCU
	rtc  *tester.Memory
	out  *bytes.Buffer
	logs *observer.ObservedLogs
}

func newFixture(c *qt.C) *fixture {
	f := &fixture{mcu: tester.NewMCU(c), rtc: tester.NewDS1307(), out: new(bytes.Buffer)}
	f.mcu.TWI.Attach(f.rtc)
	core, logs := observer.New(zapcore.InfoLevel)
	f.logs = logs

	// a small EEPROM keeps full-length reads quick
	b, err := board.New(f.mcu.Peripherals(), &board.Config{
		TWI:    board.TWIConfig{CheckAck: true},
		EEPROM: board.EEPROMConfig{Enabled: true, Capacity: 64},
		Keypad: board.KeypadConfig{Enabled: true},
		ADC:    board.ADCConfig{Enabled: true},
		LCD:    board.LCDConfig{Enabled: true},
		RTC:    board.RTCConfig{Enabled: true},
		Clock:  f.mcu.Clock,
	}, nil)
	c.Assert(err, qt.IsNil)
	f.mon = monitor.New(b, f.out, zap.New(core).Sugar())
	return f
}

// exec runs line and returns what it printed.
func (f *fixture) exec(c *qt.C, line string) string {
	c.Helper()
	f.out.Reset()
	c.Assert(f.mon.Exec(line), qt.IsNil, qt.Commentf("%s", line))
	return f.out.String()
}

func TestHelp(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	out := f.exec(c, "help")
	c.Assert(strings.Split(strings.TrimSpace(out), "\n"), qt.HasLen, 12)
	c.Assert(strings.HasPrefix(out, "ee read <addr> <n>\n"), qt.IsTrue)
}

func TestEEPROM(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Assert(f.exec(c, `ee write 0x10 "hello world"`), qt.Equals, "wrote 12 bytes at 0x0010\n")
	c.Assert(string(f.mcu.EEPROM.Mem[0x10:0x1C]), qt.Equals, "hello world\x00")
	c.Assert(f.exec(c, "ee read 16 12"), qt.Equals, "0010: 68 65 6c 6c 6f 20 77 6f 72 6c 64 00\n")
	c.Assert(f.exec(c, "ee string 0x10"), qt.Equals, "hello world\n")
	c.Assert(f.exec(c, "ee write 0 two words"), qt.Equals, "wrote 10 bytes at 0x0000\n")
	c.Assert(f.exec(c, "ee string 0"), qt.Equals, "two words\n")

	c.Assert(f.exec(c, "ee read 0 20"), qt.Equals,
		"0000: 74 77 6f 20 77 6f 72 64 73 00 ff ff ff ff ff ff\n"+
			"0010: 68 65 6c 6c\n")

	c.Assert(f.exec(c, "ee erase"), qt.Equals, "erased 64 bytes\n")
	c.Assert(f.mcu.EEPROM.Mem[0x10], qt.Equals, byte(0xFF))
}

func TestEEPROMErrors(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Assert(f.mon.Exec("ee read 60 8"), qt.ErrorIs, avrdrivers.ErrOutOfRange)
	c.Assert(f.mon.Exec("ee read 64 1"), qt.ErrorMatches, `eeprom: address 64 of 64: address out of range`)
	// erased memory holds no terminator
	c.Assert(f.mon.Exec("ee string 0"), qt.ErrorIs, avrdrivers.ErrOutOfRange)
	c.Assert(f.mon.Exec("ee read zero 1"), qt.ErrorMatches, `monitor: bad number "zero": .*`)
	c.Assert(f.mon.Exec("ee read 0"), qt.ErrorMatches, `monitor: usage: ee read <addr> <n>`)
	c.Assert(f.mon.Exec("ee frob 0"), qt.ErrorMatches, `monitor: usage: ee read <addr> <n> \| ee string .*`)
	c.Assert(f.mon.Exec("ee"), qt.ErrorMatches, `monitor: usage: ee read .*`)
}

func TestRTC(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Assert(f.exec(c, "rtc settime 12 30 5"), qt.Equals, "")
	c.Assert(f.rtc.Mem[0:3], qt.DeepEquals, []byte{0x05, 0x30, 0x12})
	c.Assert(f.exec(c, "rtc time"), qt.Equals, "12:30:05\n")

	c.Assert(f.exec(c, "rtc setdate 14 10 26"), qt.Equals, "")
	c.Assert(f.rtc.Mem[4:7], qt.DeepEquals, []byte{0x14, 0x10, 0x26})
	c.Assert(f.exec(c, "rtc date"), qt.Equals, "14/10/26\n")

	c.Assert(f.mon.Exec("rtc settime 24 0 0"), qt.ErrorMatches, `monitor: "24" is not between 0 and 23`)
	c.Assert(f.mon.Exec("rtc setdate 0 1 1"), qt.ErrorMatches, `monitor: "0" is not between 1 and 31`)
	c.Assert(f.mon.Exec("rtc settime 1 2"), qt.ErrorMatches, `monitor: usage: rtc settime <h> <m> <s>`)
	c.Assert(f.mcu.TWI.Idle(), qt.IsTrue)
}

func TestADC(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.mcu.ADC.Values[3] = 0x200

	c.Assert(f.exec(c, "adc 3"), qt.Equals, "adc 3: 512 (50%)\n")
	c.Assert(f.mcu.ADC.Channels, qt.DeepEquals, []uint8{3})
	c.Assert(f.mon.Exec("adc 8"), qt.ErrorMatches, `adc: no channel 8`)
	c.Assert(f.mon.Exec("adc"), qt.ErrorMatches, `monitor: usage: adc <ch>`)
}

func TestLCD(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	c.Assert(f.exec(c, `lcd "Hello there" world`), qt.Equals, "")
	c.Assert(f.mcu.LCD.Text(0), qt.Equals, "Hello there")
	c.Assert(f.mcu.LCD.Text(1), qt.Equals, "world")

	c.Assert(f.exec(c, "lcd again"), qt.Equals, "")
	c.Assert(f.mcu.LCD.Text(0), qt.Equals, "again")
	c.Assert(f.mcu.LCD.Text(1), qt.Equals, "world")

	c.Assert(f.mon.Exec("lcd a b c"), qt.ErrorMatches, `monitor: usage: lcd .*`)
	c.Assert(f.mon.Exec(`lcd "unterminated`), qt.ErrorMatches, `monitor: parsing command: .*`)
}

func TestKey(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.mcu.Keypad.Hold(1, 2, 100*time.Microsecond, 0)
	c.Assert(f.exec(c, "key"), qt.Equals, "5\n")
}

func TestNotConfigured(t *testing.T) {
	c := qt.New(t)
	mcu := tester.NewMCU(c)
	b, err := board.New(mcu.Peripherals(), &board.Config{Clock: mcu.Clock}, nil)
	c.Assert(err, qt.IsNil)
	mon := monitor.New(b, new(bytes.Buffer), nil)

	for line, device := range map[string]string{
		"ee erase": "eeprom",
		"rtc time": "rtc",
		"adc 0":    "adc",
		"lcd x":    "lcd",
		"key":      "keypad",
	} {
		c.Assert(mon.Exec(line), qt.ErrorMatches, `monitor: `+device+` not configured`)
	}
	c.Assert(mon.Exec("frob"), qt.ErrorIs, monitor.ErrUnknownCommand)
	c.Assert(mon.Exec("frob"), qt.ErrorMatches, `monitor: "frob": unknown command`)
	c.Assert(mon.Exec("   "), qt.IsNil)
}

func TestRun(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.mcu.ADC.Values[1] = 1023

	err := f.mon.Run(strings.NewReader(`# bring-up script
help

adc 1
frob
lcd "unterminated
rtc settime 8 0 0
`))
	errs := multierr.Errors(err)
	c.Assert(errs, qt.HasLen, 2)
	c.Assert(errs[0], qt.ErrorMatches, `line 5: monitor: "frob": unknown command`)
	c.Assert(errs[1], qt.ErrorMatches, `line 6: monitor: parsing command: .*`)

	out := f.out.String()
	c.Assert(strings.Contains(out, "adc 1: 1023 (100%)\n"), qt.IsTrue)
	c.Assert(strings.Contains(out, "error: monitor: \"frob\": unknown command\n"), qt.IsTrue)
	// the run went on after the failures
	c.Assert(f.rtc.Mem[2], qt.Equals, byte(0x08))

	failed := f.logs.FilterMessage("command failed")
	c.Assert(failed.Len(), qt.Equals, 2)
	c.Assert(failed.FilterField(zap.Int("line", 5)).Len(), qt.Equals, 1)
}
