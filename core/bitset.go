package core

// FlagSet holds up to 16 flags numbered 1 to 16. Flag 0 is never set, so
// Highest returning 0 means the set is empty.
type FlagSet uint16

// Set sets flag n
func (f *FlagSet) Set(n uint8) {
	if n >= 1 && n <= 16 {
		*f |= 1 << (n - 1)
	}
}

// Clear clears flag n
func (f *FlagSet) Clear(n uint8) {
	if n >= 1 && n <= 16 {
		*f &^= 1 << (n - 1)
	}
}

// IsSet reports whether flag n is set
func (f FlagSet) IsSet(n uint8) bool {
	if n < 1 || n > 16 {
		return false
	}
	return f&(1<<(n-1)) != 0
}

// Highest returns the highest set flag number, 0 when none are set
func (f FlagSet) Highest() uint8 {
	var n uint8
	for v := uint16(f); v != 0; v >>= 1 {
		n++
	}
	return n
}
