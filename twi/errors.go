package twi

import "fmt"

// StatusError is an unexpected status register value.
type StatusError uint8

func (e StatusError) Error() string {
	return fmt.Sprintf("twi: unexpected status %#02x", uint8(e))
}
