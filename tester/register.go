package tester

// Reg8 is a simulated 8-bit register. OnGet runs before every read and OnSet replaces
// the plain store, which is how the peripheral models react to the driver.
type Reg8 struct {
	Value uint8
	OnGet func(r *Reg8)
	OnSet func(r *Reg8, v uint8)
}

func (r *Reg8) Get() uint8 {
	if r.OnGet != nil {
		r.OnGet(r)
	}
	return r.Value
}

func (r *Reg8) Set(v uint8) {
	if r.OnSet != nil {
		r.OnSet(r, v)
		return
	}
	r.Value = v
}

func (r *Reg8) SetBits(v uint8) {
	r.Set(r.Get() | v)
}

func (r *Reg8) ClearBits(v uint8) {
	r.Set(r.Get() &^ v)
}

func (r *Reg8) HasBits(v uint8) bool {
	return r.Get()&v > 0
}

// Reg16 is a simulated 16-bit register pair.
type Reg16 struct {
	Value uint16
	OnGet func(r *Reg16)
	OnSet func(r *Reg16, v uint16)
}

func (r *Reg16) Get() uint16 {
	if r.OnGet != nil {
		r.OnGet(r)
	}
	return r.Value
}

func (r *Reg16) Set(v uint16) {
	if r.OnSet != nil {
		r.OnSet(r, v)
		return
	}
	r.Value = v
}
