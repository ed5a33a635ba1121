package ds1307_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/avrdrivers"
	"tinygo.org/x/avrdrivers/ds1307"
	"tinygo.org/x/avrdrivers/tester"
	"tinygo.org/x/avrdrivers/twi"
)

func newClock(c *qt.C, config twi.Config) (*ds1307.Device, *tester.TWI, *tester.Memory) {
	sim := tester.NewTWI(c)
	chip := tester.NewDS1307()
	sim.Attach(chip)
	config.Clock = tester.NewClock()
	bus := twi.New(sim.Regs())
	c.Assert(bus.Configure(config), qt.IsNil)
	return ds1307.New(bus), sim, chip
}

func TestConfigure(t *testing.T) {
	c := qt.New(t)
	rtc, sim, chip := newClock(c, twi.Config{})
	chip.Mem[ds1307.Control] = 0x13

	c.Assert(rtc.Configure(), qt.IsNil)
	c.Assert(chip.Mem[ds1307.Control], qt.Equals, byte(0))
	c.Assert(sim.Transactions(), qt.HasLen, 1)
	c.Assert(sim.Transactions()[0].Written(), qt.DeepEquals, []byte{0xD0, 0x07, 0x00})
}

func TestSetGetTime(t *testing.T) {
	c := qt.New(t)
	rtc, sim, chip := newClock(c, twi.Config{CheckAck: true})

	c.Assert(rtc.SetTime(0x12, 0x30, 0x45), qt.IsNil)
	c.Assert(chip.Mem[0:3], qt.DeepEquals, []byte{0x45, 0x30, 0x12})

	hh, mm, ss, err := rtc.GetTime()
	c.Assert(err, qt.IsNil)
	c.Assert([]uint8{hh, mm, ss}, qt.DeepEquals, []uint8{0x12, 0x30, 0x45})

	txs := sim.Transactions()
	c.Assert(txs, qt.HasLen, 3)
	c.Assert(txs[0].Written(), qt.DeepEquals, []byte{0xD0, 0x00, 0x45, 0x30, 0x12})
	// pointer write, stop, then a fresh start in the read direction
	c.Assert(txs[1], qt.DeepEquals, tester.Transaction{
		{Kind: tester.EventStart},
		{Kind: tester.EventWrite, Byte: 0xD0, Ack: true},
		{Kind: tester.EventWrite, Byte: 0x00, Ack: true},
		{Kind: tester.EventStop},
	})
	c.Assert(txs[2], qt.DeepEquals, tester.Transaction{
		{Kind: tester.EventStart},
		{Kind: tester.EventWrite, Byte: 0xD1, Ack: true},
		{Kind: tester.EventRead, Byte: 0x45, Ack: true},
		{Kind: tester.EventRead, Byte: 0x30, Ack: true},
		{Kind: tester.EventRead, Byte: 0x12, Ack: false},
		{Kind: tester.EventStop},
	})
}

func TestSetGetDate(t *testing.T) {
	c := qt.New(t)
	rtc, sim, chip := newClock(c, twi.Config{})

	c.Assert(rtc.SetDate(0x31, 0x12, 0x99), qt.IsNil)
	c.Assert(chip.Mem[4:7], qt.DeepEquals, []byte{0x31, 0x12, 0x99})

	dd, mm, yy, err := rtc.GetDate()
	c.Assert(err, qt.IsNil)
	c.Assert([]uint8{dd, mm, yy}, qt.DeepEquals, []uint8{0x31, 0x12, 0x99})
	c.Assert(sim.Transactions()[1].Written(), qt.DeepEquals, []byte{0xD0, 0x04})
	c.Assert(sim.Idle(), qt.IsTrue)
}

func TestSetNow(t *testing.T) {
	c := qt.New(t)
	rtc, _, chip := newClock(c, twi.Config{})

	running, err := rtc.Running()
	c.Assert(err, qt.IsNil)
	c.Assert(running, qt.IsFalse)

	want := time.Date(2024, time.February, 29, 23, 59, 58, 0, time.UTC)
	c.Assert(rtc.Set(want), qt.IsNil)
	c.Assert(chip.Mem[0:7], qt.DeepEquals, []byte{0x58, 0x59, 0x23, 0x05, 0x29, 0x02, 0x24})

	got, err := rtc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, want)

	running, err = rtc.Running()
	c.Assert(err, qt.IsNil)
	c.Assert(running, qt.IsTrue)

	c.Assert(rtc.Set(time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)), qt.ErrorMatches, `ds1307: year out of range`)
}

func TestNow12Hour(t *testing.T) {
	c := qt.New(t)
	rtc, _, chip := newClock(c, twi.Config{})
	copy(chip.Mem, []byte{0x80 | 0x15, 0x07, 0x40 | 0x20 | 0x11, 0x01, 0x02, 0x03, 0x25})

	got, err := rtc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, time.Date(2025, time.March, 2, 23, 7, 15, 0, time.UTC))

	chip.Mem[2] = 0x40 | 0x12 // 12 AM
	got, err = rtc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Hour(), qt.Equals, 0)

	chip.Mem[2] = 0x40 | 0x20 | 0x12 // 12 PM
	got, err = rtc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Hour(), qt.Equals, 12)
}

func TestRAM(t *testing.T) {
	c := qt.New(t)
	rtc, sim, chip := newClock(c, twi.Config{})

	c.Assert(rtc.WriteRAM(0, []byte("hi")), qt.IsNil)
	c.Assert(rtc.WriteRAM(54, []byte{0xAB, 0xCD}), qt.IsNil)
	c.Assert(string(chip.Mem[8:10]), qt.Equals, "hi")
	c.Assert(chip.Mem[62:64], qt.DeepEquals, []byte{0xAB, 0xCD})

	buf := make([]byte, 2)
	c.Assert(rtc.ReadRAM(54, buf), qt.IsNil)
	c.Assert(buf, qt.DeepEquals, []byte{0xAB, 0xCD})

	n := len(sim.Transactions())
	c.Assert(rtc.WriteRAM(55, buf), qt.ErrorIs, avrdrivers.ErrOutOfRange)
	c.Assert(rtc.ReadRAM(-1, buf), qt.ErrorIs, avrdrivers.ErrOutOfRange)
	c.Assert(rtc.ReadRAM(56, nil), qt.ErrorIs, avrdrivers.ErrOutOfRange)
	c.Assert(sim.Transactions(), qt.HasLen, n)
}

func TestMissingChip(t *testing.T) {
	c := qt.New(t)
	sim := tester.NewTWI(c)
	bus := twi.New(sim.Regs())
	c.Assert(bus.Configure(twi.Config{CheckAck: true, Clock: tester.NewClock()}), qt.IsNil)
	rtc := ds1307.New(bus)

	_, _, _, err := rtc.GetTime()
	c.Assert(err, qt.ErrorIs, avrdrivers.ErrNACK)
	// the failed pointer write is still closed with a stop, and no read follows it
	c.Assert(sim.Idle(), qt.IsTrue)
	c.Assert(sim.Transactions(), qt.HasLen, 1)
}

// countingBus fails the nth Send and counts start and stop conditions.
type countingBus struct {
	failAt        int
	sends         int
	starts, stops int
}

func (b *countingBus) Start() error {
	b.starts++
	return nil
}

func (b *countingBus) Stop() {
	b.stops++
}

func (b *countingBus) Send(byte) error {
	b.sends++
	if b.sends == b.failAt {
		return avrdrivers.ErrNACK
	}
	return nil
}

func (b *countingBus) Receive(bool) (byte, error) { return 0, nil }

func TestStopAfterError(t *testing.T) {
	c := qt.New(t)
	for failAt := 1; failAt <= 3; failAt++ {
		bus := &countingBus{failAt: failAt}
		_, err := ds1307.New(bus).Now()
		c.Assert(err, qt.ErrorIs, avrdrivers.ErrNACK)
		c.Assert(bus.stops, qt.Equals, bus.starts, qt.Commentf("failing send %d", failAt))
	}
}
