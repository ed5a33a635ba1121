package avrdrivers

import "github.com/pkg/errors"

var (
	// ErrTimeout is returned when a poll limit is configured and the awaited
	// hardware condition did not occur within it.
	ErrTimeout = errors.New("timed out waiting for hardware")

	// ErrNACK signals that the receiver did not acknowledge a byte.
	ErrNACK = errors.New("NACK received")

	// ErrOutOfRange signals an address or span outside the device.
	ErrOutOfRange = errors.New("address out of range")
)
