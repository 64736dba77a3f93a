// Package mcu is the host-side client for the clock controller firmware. It
// loads the data dictionary over the identify exchange and encodes commands
// and decodes responses from the formats it describes.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sysspeed/host/serial"
	"sysspeed/protocol"
)

var (
	ErrNotConnected    = errors.New("not connected to MCU")
	ErrNoDictionary    = errors.New("dictionary not loaded")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnknownResponse = errors.New("unknown response")
	ErrShutdown        = errors.New("MCU is shut down")
)

// identifyChunk is the number of dictionary bytes requested per identify.
// The reply must fit in one 64 byte frame.
const identifyChunk = 40

// maxDictionarySize stops a misbehaving firmware from streaming forever
const maxDictionarySize = 64 * 1024

// MCU is a connection to one controller
type MCU struct {
	transport *protocol.HostTransport
	logger    zerolog.Logger

	mu       sync.RWMutex
	dict     *Dictionary
	raw      []byte
	waiters  []*waiter
	subs     map[string][]func(*Response)
	shutdown bool

	queryMu sync.Mutex
}

type waiter struct {
	name string
	ch   chan *Response
}

// New runs the protocol over port. The dictionary is not loaded yet; call
// RetrieveDictionary before sending anything but identify.
func New(port io.ReadWriteCloser, logger zerolog.Logger) *MCU {
	m := &MCU{
		transport: protocol.NewHostTransport(port),
		logger:    logger.With().Str("component", "mcu").Logger(),
		dict:      bootstrapDictionary(),
		subs:      make(map[string][]func(*Response)),
	}
	m.transport.SetResponseHandler(m.handleResponse)
	return m
}

// Open opens a serial device and connects to it
func Open(cfg *serial.Config, logger zerolog.Logger) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port, logger), nil
}

// Connect opens the port and loads the dictionary
func Connect(ctx context.Context, cfg *serial.Config, logger zerolog.Logger) (*MCU, error) {
	m, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := m.RetrieveDictionary(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Close shuts the transport down and closes the port
func (m *MCU) Close() error {
	return m.transport.Close()
}

// Done is closed when the link goes down
func (m *MCU) Done() <-chan struct{} {
	return m.transport.Done()
}

// RetrieveDictionary pulls the dictionary in identify chunks
func (m *MCU) RetrieveDictionary(ctx context.Context) error {
	var raw []byte
	for {
		resp, err := m.Query(ctx, "identify_response", "identify", uint32(len(raw)), identifyChunk)
		if err != nil {
			return fmt.Errorf("identify at offset %d: %w", len(raw), err)
		}
		if off := resp.Get("offset"); off != uint32(len(raw)) {
			return fmt.Errorf("identify offset mismatch: want %d, got %d", len(raw), off)
		}
		chunk := resp.Data["data"]
		raw = append(raw, chunk...)
		if len(chunk) < identifyChunk {
			break
		}
		if len(raw) > maxDictionarySize {
			return fmt.Errorf("dictionary exceeds %d bytes", maxDictionarySize)
		}
	}

	dict, err := ParseDictionary(raw)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.dict = dict
	m.raw = raw
	m.mu.Unlock()

	m.logger.Info().
		Str("version", dict.Version).
		Int("bytes", len(raw)).
		Int("commands", len(dict.Commands)).
		Int("responses", len(dict.Responses)).
		Msg("Dictionary loaded")
	return nil
}

// Dictionary returns the loaded dictionary or ErrNoDictionary
func (m *MCU) Dictionary() (*Dictionary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.raw == nil {
		return nil, ErrNoDictionary
	}
	return m.dict, nil
}

// RawDictionary returns the dictionary bytes as received
func (m *MCU) RawDictionary() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.raw
}

// Send encodes and sends one command, waiting for the ACK
func (m *MCU) Send(ctx context.Context, name string, args ...uint32) error {
	m.mu.RLock()
	dict, loaded := m.dict, m.raw != nil
	m.mu.RUnlock()

	f, ok := dict.Command(name)
	if !ok {
		if !loaded {
			return fmt.Errorf("%w: %s", ErrNoDictionary, name)
		}
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if err := f.checkArgs(args); err != nil {
		return err
	}
	select {
	case <-m.transport.Done():
		return ErrNotConnected
	default:
	}

	m.logger.Debug().Str("command", name).Interface("args", args).Msg("Send")
	return m.transport.SendCommandContext(ctx, f.ID, func(output protocol.OutputBuffer) {
		f.Encode(output, args)
	})
}

// Query sends a command and waits for the named response. Queries are
// serialized, so a response is matched to the oldest pending query for it.
// A shutdown announced while waiting fails the query with ErrShutdown.
func (m *MCU) Query(ctx context.Context, respName, cmdName string, args ...uint32) (*Response, error) {
	m.queryMu.Lock()
	defer m.queryMu.Unlock()

	w := &waiter{name: respName, ch: make(chan *Response, 1)}
	m.mu.Lock()
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()
	defer m.dropWaiter(w)

	if err := m.Send(ctx, cmdName, args...); err != nil {
		return nil, err
	}

	select {
	case resp := <-w.ch:
		if resp == nil {
			return nil, ErrShutdown
		}
		return resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", respName, ctx.Err())
	case <-m.transport.Done():
		return nil, ErrNotConnected
	}
}

// QueryTimeout is Query with a deadline
func (m *MCU) QueryTimeout(timeout time.Duration, respName, cmdName string, args ...uint32) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.Query(ctx, respName, cmdName, args...)
}

func (m *MCU) dropWaiter(w *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.waiters {
		if o == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// OnResponse calls fn from the read loop for every response named name.
// fn must not block.
func (m *MCU) OnResponse(name string, fn func(*Response)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[name] = append(m.subs[name], fn)
}

// IsShutdown reports whether the firmware announced a shutdown
func (m *MCU) IsShutdown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shutdown
}

// ClearShutdown forgets a shutdown after the firmware was reset
func (m *MCU) ClearShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// handleResponse runs on the transport read loop
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	m.mu.RLock()
	f, ok := m.dict.Response(cmdID)
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn().Uint16("id", cmdID).Msg("Response not in dictionary")
		return fmt.Errorf("%w: id %d", ErrUnknownResponse, cmdID)
	}

	resp, err := f.Decode(data)
	if err != nil {
		m.logger.Warn().Err(err).Str("response", f.Name).Msg("Malformed response")
		return err
	}
	m.logger.Trace().Str("response", resp.Name).Interface("values", resp.Values).Msg("Receive")

	m.mu.Lock()
	var subs []func(*Response)
	if resp.Name == "shutdown" {
		m.shutdown = true
		m.logger.Error().Uint32("clock", resp.Get("clock")).Msg("MCU shutdown")
		for _, w := range m.waiters {
			select {
			case w.ch <- nil:
			default:
			}
		}
		m.waiters = nil
	} else {
		for i, w := range m.waiters {
			if w.name == resp.Name {
				w.ch <- resp
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				break
			}
		}
	}
	subs = append(subs, m.subs[resp.Name]...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(resp)
	}
	return nil
}

// Reset sends the reset command and restarts the host sequence
func (m *MCU) Reset(ctx context.Context) error {
	if err := m.Send(ctx, "reset"); err != nil {
		return err
	}
	m.transport.Reset()
	m.ClearShutdown()
	return nil
}
