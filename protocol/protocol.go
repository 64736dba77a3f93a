// Package protocol implements the Klipper serial protocol: VLQ argument
// encoding, CRC16 framing and the sequence/ACK transport on both ends.
package protocol

// Version of the wire protocol implementation
const Version = "0.1.0"

// Frame layout: len seq payload... crc_hi crc_lo 0x7E
const (
	MessageMax         = 512 // output scratch size, holds several frames
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// Message is a validated frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // between header and trailer
	CRC      uint16
}

// IsAck reports whether the frame carries no commands
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

type scanResult uint8

const (
	scanIncomplete scanResult = iota // need more bytes
	scanOK                           // a valid frame was found
	scanBad                          // framing error, resynchronize
)

// scanFrame validates the frame at the start of data. Payload aliases data.
func scanFrame(data []byte) (Message, scanResult) {
	if len(data) < MessageLengthMin {
		return Message{}, scanIncomplete
	}
	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Message{}, scanBad
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return Message{}, scanBad
	}
	if len(data) < msgLen {
		return Message{}, scanIncomplete
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Message{}, scanBad
	}
	crc := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
	if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
		return Message{}, scanBad
	}
	return Message{
		Length:   uint8(msgLen),
		Sequence: data[MessagePositionSeq],
		Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
		CRC:      crc,
	}, scanOK
}

// frameReader walks a byte stream frame by frame, dropping garbage up to the
// next sync byte after a framing error.
type frameReader struct {
	synced bool
}

// next returns the next frame in data and the bytes consumed. ok is false
// when data holds no complete frame; consumed then covers skipped garbage.
// resynced is true when a sync byte ended a desynchronized stretch.
func (r *frameReader) next(data []byte) (msg Message, consumed int, ok, resynced bool) {
	for consumed < len(data) {
		rest := data[consumed:]
		if !r.synced {
			idx := indexSync(rest)
			if idx < 0 {
				return Message{}, len(data), false, resynced
			}
			consumed += idx + 1
			r.synced = true
			resynced = true
			continue
		}
		if rest[0] == MessageValueSync {
			consumed++
			continue
		}
		m, res := scanFrame(rest)
		switch res {
		case scanIncomplete:
			return Message{}, consumed, false, resynced
		case scanBad:
			r.synced = false
		case scanOK:
			return m, consumed + int(m.Length), true, resynced
		}
	}
	return Message{}, consumed, false, resynced
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}

// appendFrame wraps payload in a frame with the given sequence byte
func appendFrame(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, uint8(len(payload)+MessageLengthMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync)
}
