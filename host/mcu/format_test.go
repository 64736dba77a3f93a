package mcu

import (
	"strings"
	"testing"

	"sysspeed/protocol"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(7, "load_report valid=%c percent_x100=%u awake=%u asleep=%u")
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != 7 || f.Name != "load_report" || len(f.Params) != 4 {
		t.Fatalf("format = %+v", f)
	}
	if f.Params[0].Type != ParamByte || f.Params[1].Name != "percent_x100" {
		t.Errorf("params = %+v", f.Params)
	}
	if got := f.Signature(); got != "load_report valid=%c percent_x100=%u awake=%u asleep=%u" {
		t.Errorf("Signature() = %q", got)
	}

	bare, err := ParseFormat(3, "get_pll")
	if err != nil || len(bare.Params) != 0 || bare.Signature() != "get_pll" {
		t.Errorf("bare = %+v, %v", bare, err)
	}
}

func TestParseFormatErrors(t *testing.T) {
	for _, sig := range []string{"", "x a", "x =%u", "x a=%q"} {
		if _, err := ParseFormat(0, sig); err == nil {
			t.Errorf("ParseFormat(%q) succeeded", sig)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	f, _ := ParseFormat(2, "probe a=%u b=%i c=%hu")
	args := []uint32{180000000, uint32(0xFFFFFFF6), 4}
	if err := f.checkArgs(args); err != nil {
		t.Fatal(err)
	}
	out := protocol.NewScratchOutput()
	f.Encode(out, args)

	data := append([]byte(nil), out.Result()...)
	r, err := f.Decode(&data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Get("a") != 180000000 || r.Int("b") != -10 || r.Get("c") != 4 {
		t.Errorf("decoded %v", r.Values)
	}
	if len(data) != 0 {
		t.Errorf("%d bytes left", len(data))
	}
}

func TestDecodeBuffer(t *testing.T) {
	f, _ := ParseFormat(0, "identify_response offset=%u data=%*s")
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 40)
	protocol.EncodeVLQBytes(out, []byte(`{"ver`))

	data := out.Result()
	r, err := f.Decode(&data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Get("offset") != 40 || string(r.Data["data"]) != `{"ver` {
		t.Errorf("response = %+v", r)
	}

	short := []byte{5}
	if _, err := f.Decode(&short); err == nil {
		t.Error("truncated response decoded")
	}
}

func TestCheckArgs(t *testing.T) {
	f, _ := ParseFormat(1, "identify offset=%u count=%c")
	tests := []struct {
		args []uint32
		want string
	}{
		{[]uint32{0}, "takes 2 arguments"},
		{[]uint32{0, 256}, "out of range"},
	}
	for _, tt := range tests {
		err := f.checkArgs(tt.args)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("checkArgs(%v) = %v, want %q", tt.args, err, tt.want)
		}
	}

	resp, _ := ParseFormat(0, "identify_response offset=%u data=%*s")
	if err := resp.checkArgs([]uint32{0, 0}); err == nil {
		t.Error("byte string parameter accepted")
	}
}
