package sim

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sysspeed/core"
	"sysspeed/protocol"
)

// Defaults for NewFirmware
const (
	DefaultSleepCycles = 16000 // 1ms at HSI
	DefaultBusyCycles  = 4000
	DefaultIdle        = time.Millisecond
)

var initCore sync.Once

// Firmware runs the firmware main loop on a simulated bank and speaks the
// serial protocol over a stream. The command registry and dictionary are
// process globals, so only one Firmware should serve at a time.
type Firmware struct {
	Bank       *Bank
	Power      *Power
	Controller *core.ClockController

	// BusyCycles is charged for every chunk of input handled
	BusyCycles uint32
	// Idle is the wall time between simulated sleeps
	Idle time.Duration

	transport *protocol.Transport
	out       *protocol.ScratchOutput
	input     *protocol.FifoBuffer

	conn     io.Writer
	writeErr error
	resets   atomic.Int32
}

// NewFirmware registers the command set and builds the dictionary. The
// firmware starts from power-on state.
func NewFirmware(mcu string) *Firmware {
	initCore.Do(core.InitCoreCommands)
	core.ResetFirmwareState()

	bank := NewBank()
	power := NewPower(bank, DefaultSleepCycles, DefaultSleepCycles)
	ctl := core.NewClockController(bank, power, core.PLLManagerConfig{})
	core.InitClockCommands(ctl, mcu)
	core.GetGlobalDictionary().BuildDictionary()

	f := &Firmware{
		Bank:       bank,
		Power:      power,
		Controller: ctl,
		BusyCycles: DefaultBusyCycles,
		Idle:       DefaultIdle,
		out:        protocol.NewScratchOutput(),
		input:      protocol.NewFifoBuffer(4096),
	}
	f.transport = protocol.NewTransport(f.out, core.DispatchCommand)
	f.transport.SetFlushCallback(f.flush)
	core.SetGlobalTransport(f.transport)
	core.SetResetHandler(f.reset)
	core.SetTime(ctl.Counter.Now())
	return f
}

// Serve runs the main loop until ctx ends or conn fails. A closed conn ends
// Serve without error.
func (f *Firmware) Serve(ctx context.Context, conn io.ReadWriter) error {
	f.conn = conn
	f.writeErr = nil

	rx := make(chan []byte)
	rxErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case rx <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				rxErr <- err
				return
			}
		}
	}()

	idle := time.NewTicker(f.Idle)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-rxErr:
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		case chunk := <-rx:
			f.Bank.Advance(f.BusyCycles)
			f.receive(chunk)
		case <-idle.C:
			f.Controller.Load.EnterSleep()
		}
		f.step()
		if f.writeErr != nil {
			if errors.Is(f.writeErr, io.ErrClosedPipe) {
				return nil
			}
			return f.writeErr
		}
	}
}

func (f *Firmware) receive(chunk []byte) {
	for len(chunk) > 0 {
		n := f.input.Write(chunk)
		chunk = chunk[n:]
		f.transport.Receive(f.input)
		if n == 0 && f.input.Free() == 0 {
			// Nothing parseable in a full buffer
			f.input.Reset()
		}
	}
}

// step is one pass of the firmware main loop after a wake
func (f *Firmware) step() {
	f.Controller.Counter.Uptime()
	core.SetTime(f.Controller.Counter.Now())
	core.ProcessTimers()
	f.Controller.Task()
	core.CheckPendingReset()
	f.flush()
}

func (f *Firmware) flush() {
	if f.out.CurPosition() == 0 || f.conn == nil {
		return
	}
	if _, err := f.conn.Write(f.out.Result()); err != nil && f.writeErr == nil {
		f.writeErr = err
	}
	f.out.Reset()
}

// reset emulates a reboot. The clock tree, link state and load epoch return
// to power-on values; the cycle counter keeps running.
func (f *Firmware) reset() {
	f.resets.Add(1)
	f.Controller.ConfigureLoadReport(0)
	f.Bank.ResetClockTree()
	core.SetTimerFreq(f.Controller.PLL.CurrentClockFrequencyHz())
	f.Controller.Load.Sample()
	core.ResetFirmwareState()
	f.transport.Reset()
	f.input.Reset()
}

// Resets returns how many reset commands were handled
func (f *Firmware) Resets() int {
	return int(f.resets.Load())
}

// Stats returns the transport frame counters
func (f *Firmware) Stats() (frames, failed uint32) {
	return f.transport.Stats()
}
