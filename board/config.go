package board

import (
	"fmt"
	"reflect"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
)

// A Config describes which peripherals of the board are in use and how they are set up.
type Config struct {
	TWI    TWIConfig    `json:"twi"`
	EEPROM EEPROMConfig `json:"eeprom"`
	Keypad KeypadConfig `json:"keypad"`
	ADC    ADCConfig    `json:"adc"`
	LCD    LCDConfig    `json:"lcd"`
	RTC    RTCConfig    `json:"rtc"`

	// Clock drives every delay; nil is the wall clock. It is not decoded.
	Clock clock.Clock `json:"-"`
}

// TWIConfig sets up the I2C bus. The bus is configured whenever a device on it is enabled.
type TWIConfig struct {
	Frequency    physic.Frequency `json:"frequency,omitempty"`
	CPUFrequency physic.Frequency `json:"cpu_frequency,omitempty"`
	PollLimit    uint32           `json:"poll_limit,omitempty"`
	CheckAck     bool             `json:"check_ack"`
}

type EEPROMConfig struct {
	Enabled   bool          `json:"enabled"`
	Capacity  int           `json:"capacity,omitempty"`
	ReadDelay time.Duration `json:"read_delay,omitempty"`
	PollLimit uint32        `json:"poll_limit,omitempty"`
}

// KeypadConfig places the keypad on port C, or on a PCF8574 when Expander is set.
type KeypadConfig struct {
	Enabled      bool          `json:"enabled"`
	Expander     uint8         `json:"expander,omitempty"`
	Debounce     time.Duration `json:"debounce,omitempty"`
	ReleaseDelay time.Duration `json:"release_delay,omitempty"`
	PollLimit    uint32        `json:"poll_limit,omitempty"`
}

type ADCConfig struct {
	Enabled   bool          `json:"enabled"`
	Settle    time.Duration `json:"settle,omitempty"`
	PollLimit uint32        `json:"poll_limit,omitempty"`
}

// LCDConfig places the display on port B, or on a PCF8574 backpack when Expander is set.
type LCDConfig struct {
	Enabled   bool  `json:"enabled"`
	Expander  uint8 `json:"expander,omitempty"`
	Backlight bool  `json:"backlight"`
}

type RTCConfig struct {
	Enabled bool `json:"enabled"`
}

// usesTWI reports whether any enabled device sits on the I2C bus.
func (conf *Config) usesTWI() bool {
	return conf.RTC.Enabled ||
		conf.Keypad.Enabled && conf.Keypad.Expander != 0 ||
		conf.LCD.Enabled && conf.LCD.Expander != 0
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	var errs error
	if c := conf.EEPROM.Capacity; c < 0 || c > 4096 {
		errs = multierr.Append(errs, fieldError("eeprom", "capacity", "%d is not between 0 and 4096", c))
	}
	if conf.TWI.Frequency != 0 && conf.TWI.CPUFrequency == 0 {
		errs = multierr.Append(errs, fieldError("twi", "cpu_frequency", "required with frequency"))
	}
	for _, e := range []struct {
		section string
		addr    uint8
	}{{"keypad", conf.Keypad.Expander}, {"lcd", conf.LCD.Expander}} {
		if e.addr > 0x7F {
			errs = multierr.Append(errs, fieldError(e.section, "expander", "%#x is not a 7-bit address", e.addr))
		}
	}
	if conf.Keypad.Enabled && conf.LCD.Enabled && conf.Keypad.Expander != 0 &&
		conf.Keypad.Expander == conf.LCD.Expander {
		errs = multierr.Append(errs, fieldError("lcd", "expander", "%#x is already used by the keypad", conf.LCD.Expander))
	}
	if conf.RTC.Enabled && (conf.Keypad.Expander == rtcAddress || conf.LCD.Expander == rtcAddress) {
		errs = multierr.Append(errs, fieldError("rtc", "enabled", "the clock's address %#x is taken by an expander", rtcAddress))
	}
	return errs
}

func fieldError(section, field, format string, args ...interface{}) error {
	return errors.Errorf("%s.%s: %s", section, field, fmt.Sprintf(format, args...))
}

var frequencyType = reflect.TypeOf(physic.Frequency(0))

// frequencyHook decodes frequencies written as strings ("100kHz") or as plain
// numbers of hertz.
func frequencyHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != frequencyType || from == frequencyType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		var f physic.Frequency
		if err := f.Set(data.(string)); err != nil {
			return nil, err
		}
		return f, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return physic.Frequency(reflect.ValueOf(data).Int()) * physic.Hertz, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return physic.Frequency(reflect.ValueOf(data).Uint()) * physic.Hertz, nil
	case reflect.Float32, reflect.Float64:
		return physic.Frequency(reflect.ValueOf(data).Float() * float64(physic.Hertz)), nil
	}
	return data, nil
}

// Decode builds a Config from loosely typed attributes, such as a parsed JSON
// document. Durations are strings like "1ms", frequencies strings like "100kHz" or
// numbers of hertz. Unknown keys are an error.
func Decode(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			frequencyHook,
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "board: decoding config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
