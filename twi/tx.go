package twi

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"tinygo.org/x/avrdrivers"
)

var (
	_ avrdrivers.I2C = (*Bus)(nil)
	_ i2c.Bus        = (*Bus)(nil)
)

// Tx performs one transaction with the 7-bit address addr: w is written, then after a
// repeated start r is filled, the last byte being answered with a NACK. Either slice
// may be empty. A stop condition ends the transaction even when a step fails.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return errors.Errorf("twi: invalid address %#x", addr)
	}
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	// the start condition has gone out even when waiting for it fails
	defer b.Stop()
	if err := b.Start(); err != nil {
		return err
	}

	if len(w) > 0 {
		if err := b.Send(byte(addr) << 1); err != nil {
			return err
		}
		for _, c := range w {
			if err := b.Send(c); err != nil {
				return err
			}
		}
		if len(r) > 0 {
			if err := b.Start(); err != nil {
				return err
			}
		}
	}
	if len(r) > 0 {
		if err := b.Send(byte(addr)<<1 | 1); err != nil {
			return err
		}
		for i := range r {
			c, rerr := b.Receive(i < len(r)-1)
			if rerr != nil {
				return errors.Wrapf(rerr, "twi: after %d of %d bytes", i, len(r))
			}
			r[i] = c
		}
	}
	return nil
}

// ReadRegister writes the register pointer r and reads len(buf) bytes from it.
func (b *Bus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes buf starting at register r.
func (b *Bus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// SetSpeed changes the SCL rate. The bus must have been configured with a CPU
// frequency.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	d, err := Divisor(b.cpu, f)
	if err != nil {
		return err
	}
	b.divisor = d
	b.regs.TWBR.Set(d)
	return nil
}

func (b *Bus) String() string {
	return "twi"
}
