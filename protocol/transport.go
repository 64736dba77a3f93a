package protocol

import "sync/atomic"

// CommandHandler handles one decoded command; data holds its arguments and
// must be advanced past them.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the MCU end of the link. It validates incoming frames, runs
// their commands in sequence order, and ACKs every frame with the sequence it
// expects next.
type Transport struct {
	reader        frameReader
	nextSequence  uint32 // atomic, 0x10..0x1F
	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()

	framesIn  uint32 // atomic
	framesBad uint32 // atomic
}

// NewTransport creates a synchronized transport writing to output
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		reader:       frameReader{synced: true},
		nextSequence: MessageDest,
		output:       output,
		handler:      handler,
	}
}

// Receive consumes complete frames from input
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	total := len(data)
	for len(data) > 0 {
		msg, n, ok, resynced := t.reader.next(data)
		data = data[n:]
		if resynced {
			t.encodeAckNak()
		}
		if !ok {
			if n == 0 {
				break
			}
			continue
		}
		t.handleFrame(msg)
	}
	if consumed := total - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleFrame(msg Message) {
	expected := uint8(atomic.LoadUint32(&t.nextSequence))
	if msg.Sequence == MessageDest && expected != MessageDest {
		// Host restarted its sequence
		atomic.StoreUint32(&t.nextSequence, MessageDest)
		expected = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}
	if msg.Sequence == expected {
		atomic.StoreUint32(&t.nextSequence, uint32(NextSequence(expected)))
		atomic.AddUint32(&t.framesIn, 1)
		if err := t.parseFrame(msg.Payload); err != nil {
			atomic.AddUint32(&t.framesBad, 1)
		}
	}
	// A mismatched sequence gets the same reply, which the host reads as a NAK
	t.encodeAckNak()
}

// parseFrame dispatches every command in a frame. A panicking handler drops
// the link out of sync instead of taking the firmware down.
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.reader.synced = false
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.reader.synced = false
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak writes an empty frame and flushes it at once, the host waits
// for it before reading responses.
func (t *Transport) encodeAckNak() {
	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	var buf [MessageLengthMin]byte
	t.output.Output(appendFrame(buf[:0], seq, nil))
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one frame built by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()
	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	t.output.Update(cursor, uint8(len(t.output.DataSince(cursor))+MessageTrailerSize))
	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand writes a frame holding one command or response
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state
func (t *Transport) Reset() {
	t.reader.synced = true
	atomic.StoreUint32(&t.nextSequence, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// Stats returns the number of accepted frames and frames whose commands failed
func (t *Transport) Stats() (frames, failed uint32) {
	return atomic.LoadUint32(&t.framesIn), atomic.LoadUint32(&t.framesBad)
}

// SetResetCallback sets a callback for host sequence resets
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes ACKs to the wire immediately
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
