package avrdrivers

// Register8 is an 8-bit memory-mapped hardware register. The method set matches
// runtime/volatile.Register8 in TinyGo, so device registers satisfy it as they are.
type Register8 interface {
	Get() uint8
	Set(value uint8)
	SetBits(value uint8)
	ClearBits(value uint8)
	HasBits(value uint8) bool
}

// Register16 is a 16-bit register, usually a low/high pair such as EEAR or ADCW.
type Register16 interface {
	Get() uint16
	Set(value uint16)
}
