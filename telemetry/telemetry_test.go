package telemetry_test

import (
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tinygo.org/x/avrdrivers/board"
	"tinygo.org/x/avrdrivers/telemetry"
	"tinygo.org/x/avrdrivers/tester"
)

type message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// broker records what is published and answers every publish with err, or never
// when stuck is set.
type broker struct {
	mu        sync.Mutex
	messages  []message
	published chan message
	err       error
	stuck     bool
}

func newBroker() *broker {
	return &broker{published: make(chan message, 64)}
}

func (b *broker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	m := message{topic, qos, retained, payload.(string)}
	b.mu.Lock()
	b.messages = append(b.messages, m)
	tok := &token{err: b.err, stuck: b.stuck}
	b.mu.Unlock()
	b.published <- m
	return tok
}

func (b *broker) all() []message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]message(nil), b.messages...)
}

func (b *broker) next(c *qt.C) message {
	c.Helper()
	select {
	case m := <-b.published:
		return m
	case <-time.After(5 * time.Second):
		c.Fatalf("nothing published")
	}
	return message{}
}

type token struct {
	mqtt.Token
	err   error
	stuck bool
}

func (t *token) Wait() bool { return !t.stuck }

func (t *token) WaitTimeout(time.Duration) bool { return !t.stuck }

func (t *token) Error() error { return t.err }

func TestKeyAndTime(t *testing.T) {
	c := qt.New(t)
	br := newBroker()
	tel := telemetry.New(br, telemetry.Config{Prefix: "bench"}, nil)

	c.Assert(tel.Key('A'), qt.IsNil)
	c.Assert(tel.Time(time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)), qt.IsNil)
	c.Assert(br.all(), qt.DeepEquals, []message{
		{"bench/key", 1, false, "A"},
		{"bench/time", 1, true, "2026-10-14T09:30:00Z"},
	})
}

func TestAnalogCoalesced(t *testing.T) {
	c := qt.New(t)
	br := newBroker()
	tel := telemetry.New(br, telemetry.Config{Quiet: 20 * time.Millisecond}, nil)

	// a burst well inside the quiet interval
	for v := uint16(0); v < 20; v++ {
		c.Assert(tel.Analog(2, v), qt.IsNil)
	}
	c.Assert(tel.Analog(5, 700), qt.IsNil)

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		m := br.next(c)
		c.Assert(m.QoS, qt.Equals, byte(0))
		c.Assert(m.Retained, qt.IsFalse)
		got[m.Topic] = m.Payload
	}
	c.Assert(got, qt.DeepEquals, map[string]string{"avr/adc/2": "19", "avr/adc/5": "700"})

	time.Sleep(50 * time.Millisecond)
	c.Assert(br.all(), qt.HasLen, 2)

	c.Assert(tel.Analog(8, 0), qt.ErrorMatches, `telemetry: no channel 8`)
}

func TestPublishErrors(t *testing.T) {
	c := qt.New(t)
	br := newBroker()
	core, logs := observer.New(zapcore.InfoLevel)
	tel := telemetry.New(br, telemetry.Config{Quiet: time.Millisecond, Timeout: time.Second}, zap.New(core).Sugar())

	br.err = errors.New("not connected")
	c.Assert(tel.Key('1'), qt.ErrorMatches, `telemetry: publish avr/key: not connected`)

	c.Assert(tel.Analog(0, 1), qt.IsNil)
	br.next(c)
	br.next(c)
	deadline := time.Now().Add(5 * time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	entries := logs.FilterMessage("analog publish failed").All()
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].ContextMap()["channel"], qt.Equals, uint8(0))

	br.err = nil
	br.stuck = true
	c.Assert(tel.Key('1'), qt.ErrorMatches, `telemetry: publish avr/key: no answer after 1s`)
}

func TestReport(t *testing.T) {
	c := qt.New(t)
	mcu := tester.NewMCU(c)
	rtc := tester.NewDS1307()
	mcu.TWI.Attach(rtc)
	b, err := board.New(mcu.Peripherals(), &board.Config{
		TWI:   board.TWIConfig{CheckAck: true},
		ADC:   board.ADCConfig{Enabled: true},
		RTC:   board.RTCConfig{Enabled: true},
		Clock: mcu.Clock,
	}, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(b.RTC.Set(time.Date(2026, 10, 14, 9, 30, 15, 0, time.UTC)), qt.IsNil)
	mcu.ADC.Values[1] = 300

	br := newBroker()
	tel := telemetry.New(br, telemetry.Config{Quiet: time.Millisecond}, nil)
	errs := multierr.Errors(tel.Report(b, 1, 9))
	c.Assert(errs, qt.HasLen, 1)
	c.Assert(errs[0], qt.ErrorMatches, `adc: no channel 9`)

	c.Assert(br.next(c), qt.DeepEquals, message{"avr/time", 1, true, "2026-10-14T09:30:15Z"})
	c.Assert(br.next(c), qt.DeepEquals, message{"avr/adc/1", 0, false, "300"})
}

func TestReportWithoutADC(t *testing.T) {
	c := qt.New(t)
	mcu := tester.NewMCU(c)
	b, err := board.New(mcu.Peripherals(), &board.Config{Clock: mcu.Clock}, nil)
	c.Assert(err, qt.IsNil)

	tel := telemetry.New(newBroker(), telemetry.Config{}, nil)
	c.Assert(tel.Report(b), qt.IsNil)
	c.Assert(tel.Report(b, 0), qt.ErrorMatches, `telemetry: board has no adc`)
}
