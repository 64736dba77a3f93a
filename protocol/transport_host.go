package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrAckTimeout      = errors.New("ack timeout")
	ErrResponseTimeout = errors.New("response timeout")
	ErrMessageTooLong  = errors.New("message too long")
)

// DefaultAckTimeout bounds SendCommand
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler is called from the read loop for every response frame
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host end of the link. Commands are sent one frame at a
// time; each send waits for the MCU's ACK before returning.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq uint32 // atomic, 0x10..0x1F

	reader frameReader
	input  *FifoBuffer

	ackChan      chan Message
	responseChan chan Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	sendMu sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
	readErr  atomic.Value // error
}

// NewHostTransport starts the read loop on port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		reader:       frameReader{synced: true},
		input:        NewFifoBuffer(1024),
		ackChan:      make(chan Message, 1),
		responseChan: make(chan Message, 32),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultAckTimeout)
	defer cancel()
	return t.SendCommandContext(ctx, cmdID, args)
}

// SendCommandWithTimeout is SendCommand with a custom ACK timeout
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.SendCommandContext(ctx, cmdID, args)
}

// SendCommandContext sends one command and waits for its ACK until ctx ends
func (t *HostTransport) SendCommandContext(ctx context.Context, cmdID uint16, args func(output OutputBuffer)) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()
	if len(payload)+MessageLengthMin > MessageLengthMax {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, len(payload)+MessageLengthMin, MessageLengthMax)
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	frame := appendFrame(make([]byte, 0, MessageLengthMax), seq, payload)
	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return t.waitForAck(ctx, NextSequence(seq))
}

// waitForAck consumes ACKs until one names want as the next sequence
func (t *HostTransport) waitForAck(ctx context.Context, want uint8) error {
	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != want {
				// NAK or stale ACK from a previous exchange
				continue
			}
			atomic.StoreUint32(&t.currentSeq, uint32(want))
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrAckTimeout, ctx.Err())
		case <-t.stopChan:
			return ErrTransportClosed
		}
	}
}

// ReceiveResponse returns the next response frame
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.ReceiveResponseContext(ctx)
}

// ReceiveResponseContext returns the next response frame or ctx's error
func (t *HostTransport) ReceiveResponseContext(ctx context.Context) (*Message, error) {
	select {
	case resp := <-t.responseChan:
		return &resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrResponseTimeout, ctx.Err())
	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

// SetResponseHandler installs an asynchronous response callback
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.responseHandler = handler
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			t.processMessages()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				t.readErr.Store(err)
				t.stop()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) processMessages() {
	data := t.input.Data()
	total := len(data)
	for len(data) > 0 {
		msg, n, ok, _ := t.reader.next(data)
		if ok {
			// The fifo may hand out its own storage
			msg.Payload = append([]byte(nil), msg.Payload...)
			t.dispatchMessage(msg)
		}
		data = data[n:]
		if !ok && n == 0 {
			break
		}
	}
	t.input.Pop(total - len(data))
}

func (t *HostTransport) dispatchMessage(msg Message) {
	if msg.IsAck() {
		select {
		case t.ackChan <- msg:
		default:
			// Keep only the newest ACK
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		payload := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&payload); err == nil {
			_ = handler(uint16(cmdID), &payload)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

func (t *HostTransport) stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Done is closed once the read loop has exited
func (t *HostTransport) Done() <-chan struct{} {
	return t.doneChan
}

// Err returns the error that ended the read loop, if any
func (t *HostTransport) Err() error {
	if err, ok := t.readErr.Load().(error); ok {
		return err
	}
	return nil
}

// Close stops the read loop and closes the port
func (t *HostTransport) Close() error {
	t.stop()
	var err error
	if t.port != nil {
		// Unblocks a pending Read
		err = t.port.Close()
	}
	<-t.doneChan
	return err
}

// Reset drops buffered frames and restarts the sequence
func (t *HostTransport) Reset() {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	atomic.StoreUint32(&t.currentSeq, MessageDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
}

// GetCurrentSequence returns the sequence byte of the next command
func (t *HostTransport) GetCurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}
