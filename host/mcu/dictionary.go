package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Fixed IDs of the identify exchange, valid before a dictionary is loaded
const (
	identifyResponseID = 0
	identifyID         = 1
)

// Dictionary is the data dictionary reported by the firmware
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`

	commandsByName map[string]*MessageFormat
	responsesByID  map[uint16]*MessageFormat
}

// bootstrapDictionary knows only identify and identify_response
func bootstrapDictionary() *Dictionary {
	d := &Dictionary{
		Commands:  map[string]int{"identify offset=%u count=%c": identifyID},
		Responses: map[string]int{"identify_response offset=%u data=%*s": identifyResponseID},
	}
	if err := d.index(); err != nil {
		panic(err)
	}
	return d
}

// ParseDictionary decodes raw identify data, inflating it first if it is
// zlib compressed.
func ParseDictionary(raw []byte) (*Dictionary, error) {
	data, err := inflate(raw)
	if err != nil {
		return nil, err
	}
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("unmarshal dictionary: %w", err)
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

// inflate returns data unchanged unless it starts with a zlib header
func inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0]&0x0F != 8 || (uint16(data[0])<<8|uint16(data[1]))%31 != 0 {
		return data, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compressed dictionary: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate dictionary: %w", err)
	}
	return out, nil
}

func (d *Dictionary) index() error {
	d.commandsByName = make(map[string]*MessageFormat, len(d.Commands))
	for sig, id := range d.Commands {
		f, err := ParseFormat(uint16(id), sig)
		if err != nil {
			return fmt.Errorf("command %q: %w", sig, err)
		}
		d.commandsByName[f.Name] = f
	}
	d.responsesByID = make(map[uint16]*MessageFormat, len(d.Responses))
	for sig, id := range d.Responses {
		f, err := ParseFormat(uint16(id), sig)
		if err != nil {
			return fmt.Errorf("response %q: %w", sig, err)
		}
		d.responsesByID[f.ID] = f
	}
	return nil
}

// Command returns the format of a command by name
func (d *Dictionary) Command(name string) (*MessageFormat, bool) {
	f, ok := d.commandsByName[name]
	return f, ok
}

// Response returns the format of a response by wire ID
func (d *Dictionary) Response(id uint16) (*MessageFormat, bool) {
	f, ok := d.responsesByID[id]
	return f, ok
}

// HasResponse reports whether a response named name exists
func (d *Dictionary) HasResponse(name string) bool {
	for _, f := range d.responsesByID {
		if f.Name == name {
			return true
		}
	}
	return false
}

// CommandFormats returns all command formats ordered by ID
func (d *Dictionary) CommandFormats() []*MessageFormat {
	out := make([]*MessageFormat, 0, len(d.commandsByName))
	for _, f := range d.commandsByName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResponseFormats returns all response formats ordered by ID
func (d *Dictionary) ResponseFormats() []*MessageFormat {
	out := make([]*MessageFormat, 0, len(d.responsesByID))
	for _, f := range d.responsesByID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConfigUint returns a numeric constant
func (d *Dictionary) ConfigUint(name string) (uint32, error) {
	s, ok := d.Config[name]
	if !ok {
		return 0, fmt.Errorf("constant %s not in dictionary", name)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("constant %s: %w", name, err)
	}
	return uint32(v), nil
}

// EnumValue maps an enumeration name to its wire value
func (d *Dictionary) EnumValue(enum, name string) (uint32, error) {
	values, ok := d.Enumerations[enum]
	if !ok {
		return 0, fmt.Errorf("enumeration %s not in dictionary", enum)
	}
	v, ok := values[name]
	if !ok {
		return 0, fmt.Errorf("%s has no value %q", enum, name)
	}
	return uint32(v), nil
}

// EnumName maps a wire value back to its enumeration name
func (d *Dictionary) EnumName(enum string, value uint32) string {
	for name, v := range d.Enumerations[enum] {
		if uint32(v) == value {
			return name
		}
	}
	return strconv.FormatUint(uint64(value), 10)
}
