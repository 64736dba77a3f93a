package core

// Field describes a bit-field inside a 32-bit register. Encode and Decode are
// optional transforms between the real value and its hardware representation.
type Field struct {
	Name   string
	Pos    uint8
	Width  uint8
	Encode func(v uint32) uint32
	Decode func(raw uint32) uint32
}

// Mask returns the in-place mask of the field
func (f Field) Mask() uint32 {
	return ((uint32(1) << f.Width) - 1) << f.Pos
}

// Get extracts and decodes the field from a register word
func (f Field) Get(word uint32) uint32 {
	raw := (word & f.Mask()) >> f.Pos
	if f.Decode != nil {
		return f.Decode(raw)
	}
	return raw
}

// Insert encodes v and merges it into word, touching only the field's bits
func (f Field) Insert(word, v uint32) uint32 {
	if f.Encode != nil {
		v = f.Encode(v)
	}
	return (word &^ f.Mask()) | ((v << f.Pos) & f.Mask())
}

// Read reads the field straight from a register
func (f Field) Read(bank RegisterBank, reg Register) uint32 {
	return f.Get(bank.Get(reg))
}

// Write read-modify-writes the field in a register
func (f Field) Write(bank RegisterBank, reg Register, v uint32) {
	bank.Set(reg, f.Insert(bank.Get(reg), v))
}
