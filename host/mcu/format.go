package mcu

import (
	"fmt"
	"strings"

	"sysspeed/protocol"
)

// ParamType is the wire type of one message parameter
type ParamType uint8

const (
	ParamUint32 ParamType = iota // %u
	ParamInt32                   // %i
	ParamUint16                  // %hu
	ParamInt16                   // %hi
	ParamByte                    // %c
	ParamString                  // %s
	ParamBuffer                  // %*s and %.*s
)

var paramTypes = map[string]ParamType{
	"%u":   ParamUint32,
	"%i":   ParamInt32,
	"%hu":  ParamUint16,
	"%hi":  ParamInt16,
	"%c":   ParamByte,
	"%s":   ParamString,
	"%*s":  ParamBuffer,
	"%.*s": ParamBuffer,
}

var paramTypeNames = [...]string{"%u", "%i", "%hu", "%hi", "%c", "%s", "%*s"}

func (p ParamType) String() string {
	if int(p) < len(paramTypeNames) {
		return paramTypeNames[p]
	}
	return "%?"
}

// IsBuffer reports whether the parameter carries a byte string
func (p ParamType) IsBuffer() bool {
	return p == ParamString || p == ParamBuffer
}

// Param is one name=%type pair of a message signature
type Param struct {
	Name string
	Type ParamType
}

// MessageFormat describes a command or response from the dictionary
type MessageFormat struct {
	ID     uint16
	Name   string
	Params []Param
}

// ParseFormat parses a signature such as "set_pll m=%u n=%u p=%u q=%u r=%u"
func ParseFormat(id uint16, signature string) (*MessageFormat, error) {
	fields := strings.Fields(signature)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty message signature")
	}
	f := &MessageFormat{ID: id, Name: fields[0]}
	for _, field := range fields[1:] {
		name, typ, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%s: malformed parameter %q", f.Name, field)
		}
		pt, ok := paramTypes[typ]
		if !ok {
			return nil, fmt.Errorf("%s: unknown parameter type %q", f.Name, typ)
		}
		f.Params = append(f.Params, Param{Name: name, Type: pt})
	}
	return f, nil
}

// Signature renders the format the way the dictionary lists it
func (f *MessageFormat) Signature() string {
	var b strings.Builder
	b.WriteString(f.Name)
	for _, p := range f.Params {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Type.String())
	}
	return b.String()
}

// checkArgs verifies args can be encoded by Encode
func (f *MessageFormat) checkArgs(args []uint32) error {
	if len(args) != len(f.Params) {
		return fmt.Errorf("%s takes %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	for i, p := range f.Params {
		if p.Type.IsBuffer() {
			return fmt.Errorf("%s: parameter %s is a byte string", f.Name, p.Name)
		}
		if max, ok := p.Type.max(); ok && args[i] > max {
			return fmt.Errorf("%s: %s=%d out of range", f.Name, p.Name, args[i])
		}
	}
	return nil
}

// max returns the largest unsigned value of narrow types
func (p ParamType) max() (uint32, bool) {
	switch p {
	case ParamByte:
		return 0xFF, true
	case ParamUint16:
		return 0xFFFF, true
	}
	return 0, false
}

// Encode writes integer arguments. Callers validate with checkArgs first.
func (f *MessageFormat) Encode(output protocol.OutputBuffer, args []uint32) {
	for i, p := range f.Params {
		switch p.Type {
		case ParamInt32, ParamInt16:
			protocol.EncodeVLQInt(output, int32(args[i]))
		default:
			protocol.EncodeVLQUint(output, args[i])
		}
	}
}

// Response is a decoded message. Integer parameters land in Values, byte
// strings in Data.
type Response struct {
	Name   string
	Values map[string]uint32
	Data   map[string][]byte
}

// Get returns an integer parameter, 0 if absent
func (r *Response) Get(name string) uint32 {
	return r.Values[name]
}

// Int returns a signed parameter
func (r *Response) Int(name string) int32 {
	return int32(r.Values[name])
}

// Decode reads the parameters of f from data
func (f *MessageFormat) Decode(data *[]byte) (*Response, error) {
	r := &Response{Name: f.Name, Values: make(map[string]uint32, len(f.Params))}
	for _, p := range f.Params {
		switch p.Type {
		case ParamString, ParamBuffer:
			b, err := protocol.DecodeVLQBytes(data)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
			if r.Data == nil {
				r.Data = make(map[string][]byte)
			}
			r.Data[p.Name] = append([]byte(nil), b...)
		case ParamInt32, ParamInt16:
			v, err := protocol.DecodeVLQInt(data)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
			r.Values[p.Name] = uint32(v)
		default:
			v, err := protocol.DecodeVLQUint(data)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
			r.Values[p.Name] = v
		}
	}
	return r, nil
}
