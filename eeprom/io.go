package eeprom

import (
	"io"

	"github.com/pkg/errors"
)

var (
	_ io.ReaderAt = (*Device)(nil)
	_ io.WriterAt = (*Device)(nil)
)

// ReadAt implements io.ReaderAt. Reads past the end are cut short with io.EOF.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("eeprom: negative offset")
	}
	if off >= int64(d.capacity) {
		return 0, io.EOF
	}
	n := len(p)
	if rest := d.capacity - int(off); n > rest {
		n = rest
	}
	a := Address{off: int(off)}
	if err := d.ReadBytes(a, p[:n]); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. A write that does not fit is refused as a whole.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(d.capacity) {
		return 0, errors.Errorf("eeprom: offset %d outside the device", off)
	}
	if err := d.span(Address{off: int(off)}, len(p)); err != nil {
		return 0, err
	}
	if err := d.WriteBytes(Address{off: int(off)}, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
