package tester

import "tinygo.org/x/avrdrivers/avr"

// ADC models the successive-approximation converter in single-conversion mode.
type ADC struct {
	ADMUX, ADCSRA Reg8
	ADCW          Reg16

	// Values holds the reading of each of the eight input channels.
	Values [8]uint16
	// Conversion is the number of ADCSRA reads a conversion takes.
	Conversion int
	// Conversions counts started conversions, Channels the channel each one sampled.
	Conversions int
	Channels    []uint8

	remaining int
}

func NewADC() *ADC {
	a := &ADC{Conversion: 2}
	a.ADCSRA.OnSet = a.control
	a.ADCSRA.OnGet = a.tick
	return a
}

// Regs returns the register block for the driver.
func (a *ADC) Regs() avr.ADC {
	return avr.ADC{ADMUX: &a.ADMUX, ADCSRA: &a.ADCSRA, ADCW: &a.ADCW}
}

func (a *ADC) control(r *Reg8, v uint8) {
	flag := r.Value & (1 << avr.ADIF)
	if v&(1<<avr.ADIF) != 0 {
		// writing a one clears the completion flag
		flag = 0
	}
	r.Value = v&^(1<<avr.ADIF) | flag
	if v&(1<<avr.ADSC) != 0 && v&(1<<avr.ADEN) != 0 {
		ch := a.ADMUX.Value & 0x07
		a.Conversions++
		a.Channels = append(a.Channels, ch)
		a.remaining = a.Conversion
		if a.remaining == 0 {
			a.finish(r)
		}
	}
}

func (a *ADC) tick(r *Reg8) {
	if a.remaining > 0 {
		a.remaining--
		if a.remaining == 0 {
			a.finish(r)
		}
	}
}

func (a *ADC) finish(r *Reg8) {
	a.ADCW.Value = a.Values[a.ADMUX.Value&0x07] & 0x03FF
	r.Value = r.Value&^(1<<avr.ADSC) | 1<<avr.ADIF
}
