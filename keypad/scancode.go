package keypad

import "fmt"

// ScanCode combines the driven row pattern (upper nibble) and the sampled columns
// (lower nibble). Exactly one bit of each nibble is low for a single pressed key.
type ScanCode uint8

// NoKey is the code of a scan that found no closed contact.
const NoKey ScanCode = 0xFF

// Sentinel is what Char returns for a code outside the key table.
const Sentinel = 'z'

var keys = map[ScanCode]rune{
	0xE7: '0', 0xEB: '1', 0xED: '2', 0xEE: '3',
	0xD7: '4', 0xDB: '5', 0xDD: '6', 0xDE: '7',
	0xB7: '8', 0xBB: '9', 0xBD: 'A', 0xBE: 'B',
	0x77: 'C', 0x7B: 'D', 0x7D: 'E', 0x7E: 'F',
}

// Rune decodes the key. ok is false when the code is not in the table.
func (s ScanCode) Rune() (r rune, ok bool) {
	r, ok = keys[s]
	return r, ok
}

// Char decodes the key, returning Sentinel for codes not in the table.
func (s ScanCode) Char() byte {
	if r, ok := keys[s]; ok {
		return byte(r)
	}
	return Sentinel
}

// Position returns the row and column index of a single-key code.
func (s ScanCode) Position() (row, col int, ok bool) {
	if _, ok := keys[s]; !ok {
		return 0, 0, false
	}
	for i := 0; i < 4; i++ {
		if s&(1<<(4+i)) == 0 {
			row = i
		}
		if s&(1<<i) == 0 {
			col = i
		}
	}
	return row, col, true
}

func (s ScanCode) String() string {
	if r, ok := s.Rune(); ok {
		return fmt.Sprintf("%#02x(%c)", uint8(s), r)
	}
	return fmt.Sprintf("%#02x", uint8(s))
}
