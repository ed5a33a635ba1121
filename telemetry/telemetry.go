// Package telemetry publishes board events to an MQTT broker.
//
// Topics are rooted at a prefix:
//
//	<prefix>/key       the rune of each key press
//	<prefix>/time      the clock reading, RFC 3339
//	<prefix>/adc/<ch>  analog readings, coalesced per channel
package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/bep/debounce"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tinygo.org/x/avrdrivers/adc"
	"tinygo.org/x/avrdrivers/board"
)

const (
	DefaultPrefix  = "avr"
	DefaultQuiet   = 100 * time.Millisecond
	DefaultTimeout = 5 * time.Second
)

// Publisher is the part of an MQTT client telemetry needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var _ Publisher = mqtt.Client(nil)

type Config struct {
	// Prefix roots every topic, "avr" if empty.
	Prefix string
	// Quiet is how long a channel must go without a new reading before the latest
	// one is published, 100ms if zero.
	Quiet time.Duration
	// Timeout bounds the wait for the broker to accept a message, 5s if zero.
	Timeout time.Duration
}

type Telemetry struct {
	client  Publisher
	prefix  string
	quiet   time.Duration
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	analog [adc.Channels]func(func())
}

func New(client Publisher, config Config, logger *zap.SugaredLogger) *Telemetry {
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Quiet == 0 {
		config.Quiet = DefaultQuiet
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Telemetry{
		client:  client,
		prefix:  config.Prefix,
		quiet:   config.Quiet,
		timeout: config.Timeout,
		logger:  logger,
	}
}

// Key publishes a key press.
func (t *Telemetry) Key(r rune) error {
	return t.publish(t.prefix+"/key", 1, false, string(r))
}

// Time publishes a clock reading. It is retained, so a new subscriber sees the last
// one straight away.
func (t *Telemetry) Time(now time.Time) error {
	return t.publish(t.prefix+"/time", 1, true, now.Format(time.RFC3339))
}

// Analog queues a reading of channel ch. Only the last reading of a burst is sent,
// once the channel has been quiet for the configured interval; a failure then is
// logged rather than returned.
func (t *Telemetry) Analog(ch uint8, v uint16) error {
	if ch >= adc.Channels {
		return errors.Errorf("telemetry: no channel %d", ch)
	}
	topic := t.prefix + "/adc/" + strconv.Itoa(int(ch))
	payload := strconv.Itoa(int(v))

	t.mu.Lock()
	if t.analog[ch] == nil {
		t.analog[ch] = debounce.New(t.quiet)
	}
	debounced := t.analog[ch]
	t.mu.Unlock()

	debounced(func() {
		if err := t.publish(topic, 0, false, payload); err != nil {
			t.logger.Errorw("analog publish failed", "channel", ch, "error", err)
		}
	})
	return nil
}

// Report publishes the clock reading, when the board has a clock, and queues one
// reading of each of the given channels. It keeps going past failures and returns
// them combined.
func (t *Telemetry) Report(b *board.Board, channels ...uint8) error {
	var errs error
	if b.RTC != nil {
		now, err := b.RTC.Now()
		if err == nil {
			err = t.Time(now)
		}
		errs = multierr.Append(errs, err)
	}
	if len(channels) > 0 && b.ADC == nil {
		return multierr.Append(errs, errors.New("telemetry: board has no adc"))
	}
	for _, ch := range channels {
		v, err := b.ADC.Get(ch)
		if err == nil {
			err = t.Analog(ch, v)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (t *Telemetry) publish(topic string, qos byte, retained bool, payload string) error {
	token := t.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(t.timeout) {
		return errors.Errorf("telemetry: publish %s: no answer after %s", topic, t.timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "telemetry: publish %s", topic)
	}
	t.logger.Debugw("published", "topic", topic, "payload", payload)
	return nil
}
