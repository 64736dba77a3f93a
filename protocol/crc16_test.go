package protocol

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0xFFFF},
		{"check string", []byte("123456789"), 0x6F91},
		{"ack 0x10", []byte{5, 0x10}, 0x9E81},
		{"ack 0x11", []byte{5, 0x11}, 0x8F08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16 = %#04x, want %#04x", got, tt.want)
			}
		})
	}
}

func TestAppendFrame(t *testing.T) {
	frame := appendFrame(nil, 0x10, nil)
	want := []byte{5, 0x10, 0x9E, 0x81, MessageValueSync}
	if string(frame) != string(want) {
		t.Errorf("ack frame = % x, want % x", frame, want)
	}
}
