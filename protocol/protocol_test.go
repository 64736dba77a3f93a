package protocol

import "testing"

func TestScanFrame(t *testing.T) {
	frame := commandFrame(0x12, 7, 300)

	msg, res := scanFrame(frame)
	if res != scanOK {
		t.Fatalf("result = %d, want scanOK", res)
	}
	if int(msg.Length) != len(frame) || msg.Sequence != 0x12 {
		t.Errorf("message = %+v", msg)
	}

	tests := []struct {
		name string
		data []byte
		want scanResult
	}{
		{"short", frame[:MessageLengthMin-1], scanIncomplete},
		{"truncated", frame[:len(frame)-1], scanIncomplete},
		{"bad length", append([]byte{MessageLengthMax + 1}, frame[1:]...), scanBad},
		{"bad crc", corruptCRC(frame), scanBad},
	}
	for _, tt := range tests {
		if _, res := scanFrame(tt.data); res != tt.want {
			t.Errorf("%s: result = %d, want %d", tt.name, res, tt.want)
		}
	}
}

func TestFrameReaderSkipsGarbage(t *testing.T) {
	first := commandFrame(0x10, 4, 1)
	second := commandFrame(0x11, 5, 2)
	stream := append(append([]byte{0xAA, 0xBB, MessageValueSync}, first...), second...)

	var r frameReader
	msg, consumed, ok, resynced := r.next(stream)
	if !ok || !resynced || msg.Sequence != 0x10 {
		t.Fatalf("first frame: ok=%v resynced=%v msg=%+v", ok, resynced, msg)
	}
	if consumed != 3+len(first) {
		t.Errorf("consumed = %d, want %d", consumed, 3+len(first))
	}

	msg, n, ok, resynced := r.next(stream[consumed:])
	if !ok || resynced || msg.Sequence != 0x11 || n != len(second) {
		t.Errorf("second frame: ok=%v resynced=%v n=%d msg=%+v", ok, resynced, n, msg)
	}
}

func corruptCRC(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-MessageTrailerCRC] ^= 0xFF
	return out
}
