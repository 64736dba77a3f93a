package mcu

import (
	"bytes"
	"compress/zlib"
	"testing"
)

const testDictionary = `{"version":"sysspeed-test","build_versions":"go",` +
	`"config":{"CLOCK_FREQ":"16000000","MCU":"stm32f4"},` +
	`"commands":{"identify offset=%u count=%c":1,"set_speed preset=%c":12},` +
	`"responses":{"identify_response offset=%u data=%*s":0,"pll_result status=%c clock_freq=%u":20},` +
	`"enumerations":{"speed_preset":{"low":0,"high":1}}}`

func TestParseDictionaryPlain(t *testing.T) {
	d, err := ParseDictionary([]byte(testDictionary))
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != "sysspeed-test" {
		t.Errorf("version = %q", d.Version)
	}
	f, ok := d.Command("set_speed")
	if !ok || f.ID != 12 || len(f.Params) != 1 {
		t.Errorf("set_speed = %+v, %v", f, ok)
	}
	r, ok := d.Response(20)
	if !ok || r.Name != "pll_result" {
		t.Errorf("response 20 = %+v, %v", r, ok)
	}
	if !d.HasResponse("identify_response") || d.HasResponse("set_speed") {
		t.Error("HasResponse mixed up commands and responses")
	}

	cmds := d.CommandFormats()
	if len(cmds) != 2 || cmds[0].ID != 1 || cmds[1].ID != 12 {
		t.Errorf("CommandFormats order = %v", cmds)
	}
}

func TestParseDictionaryCompressed(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write([]byte(testDictionary))
	w.Close()

	d, err := ParseDictionary(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if d.Config["MCU"] != "stm32f4" {
		t.Errorf("config = %v", d.Config)
	}
}

func TestParseDictionaryErrors(t *testing.T) {
	if _, err := ParseDictionary([]byte(`{"commands":`)); err == nil {
		t.Error("truncated JSON accepted")
	}
	if _, err := ParseDictionary([]byte(`{"commands":{"x a=%z":3}}`)); err == nil {
		t.Error("bad signature accepted")
	}
	// Valid zlib header, corrupt body
	if _, err := ParseDictionary([]byte{0x78, 0x01, 0xFF, 0xFF}); err == nil {
		t.Error("corrupt stream accepted")
	}
}

func TestDictionaryLookups(t *testing.T) {
	d, err := ParseDictionary([]byte(testDictionary))
	if err != nil {
		t.Fatal(err)
	}

	if hz, err := d.ConfigUint("CLOCK_FREQ"); err != nil || hz != 16000000 {
		t.Errorf("CLOCK_FREQ = %d, %v", hz, err)
	}
	if _, err := d.ConfigUint("MCU"); err == nil {
		t.Error("non-numeric constant parsed")
	}
	if _, err := d.ConfigUint("MISSING"); err == nil {
		t.Error("missing constant parsed")
	}

	if v, err := d.EnumValue("speed_preset", "high"); err != nil || v != 1 {
		t.Errorf("high = %d, %v", v, err)
	}
	if _, err := d.EnumValue("speed_preset", "turbo"); err == nil {
		t.Error("unknown preset accepted")
	}
	if name := d.EnumName("speed_preset", 0); name != "low" {
		t.Errorf("EnumName(0) = %q", name)
	}
	if name := d.EnumName("speed_preset", 9); name != "9" {
		t.Errorf("EnumName(9) = %q", name)
	}
}

func TestBootstrapDictionary(t *testing.T) {
	d := bootstrapDictionary()
	if f, ok := d.Command("identify"); !ok || f.ID != identifyID {
		t.Errorf("identify = %+v", f)
	}
	if f, ok := d.Response(identifyResponseID); !ok || f.Name != "identify_response" {
		t.Errorf("identify_response = %+v", f)
	}
}
