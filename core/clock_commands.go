package core

import (
	"errors"

	"sysspeed/protocol"
)

// ErrInvalidPreset is returned by set_speed for presets other than 0 and 1
var ErrInvalidPreset = errors.New("invalid speed preset")

// Pending report flags, emitted highest first by Task
const (
	pendingLoadReport uint8 = 1
	pendingClockFreq  uint8 = 2
)

// ClockController ties the cycle counter, the PLL manager and load accounting
// to the command transport and the timer list.
type ClockController struct {
	Counter *CycleCounter
	PLL     *PLLManager
	Load    *LoadAccounting

	reportTimer    Timer
	reportInterval uint32
	pending        FlagSet
}

// NewClockController starts the cycle counter and hooks the PLL frequency
// listener into the timer tick rate.
func NewClockController(bank RegisterBank, power PowerDriver, cfg PLLManagerConfig) *ClockController {
	counter := NewCycleCounter(bank)
	counter.Init()

	c := &ClockController{
		Counter: counter,
		PLL:     NewPLLManager(bank, cfg),
		Load:    NewLoadAccounting(counter, power),
	}
	c.reportTimer.Handler = c.loadReportEvent
	c.PLL.SetFrequencyListener(c.onFrequencyChange)
	SetTimerFreq(c.PLL.CoreClockHz())
	SetUptimeSource(counter.Uptime)
	return c
}

func (c *ClockController) onFrequencyChange(hz uint32) {
	SetTimerFreq(hz)
	c.pending.Set(pendingClockFreq)
}

var clockCtl *ClockController

// InitClockCommands registers the clock and power commands for c
func InitClockCommands(c *ClockController, mcu string) {
	clockCtl = c

	RegisterCommand("get_pll", "", handleGetPLL)
	RegisterCommand("set_pll", "m=%u n=%u p=%u q=%u r=%u", handleSetPLL)
	RegisterCommand("set_speed", "preset=%c", handleSetSpeed)
	RegisterCommand("get_clock_freq", "", handleGetClockFreq)
	RegisterCommand("get_load", "", handleGetLoad)
	RegisterCommand("config_load_report", "interval=%u", handleConfigLoadReport)

	RegisterResponse("pll_config", "m=%u n=%u p=%u q=%u r=%u")
	RegisterResponse("pll_result", "status=%c clock_freq=%u")
	RegisterResponse("clock_freq", "hz=%u")
	RegisterResponse("load_report", "valid=%c percent_x100=%u awake=%u asleep=%u")

	RegisterConstant("MCU", mcu)
	RegisterConstant("CLOCK_FREQ", c.PLL.CoreClockHz())
	RegisterConstant("PLL_PRESET_HIGH_N", uint32(PresetHighN))
	RegisterConstant("PLL_PRESET_LOW_N", uint32(PresetLowN))
	RegisterEnumeration("speed_preset", []string{SpeedLow.String(), SpeedHigh.String()})
	RegisterEnumeration("pll_status", PLLStatusNames())

	OnShutdown(c.stopLoadReport)
}

func handleGetPLL(data *[]byte) error {
	cfg := clockCtl.PLL.Configuration()
	SendResponse("pll_config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, cfg.M)
		protocol.EncodeVLQUint(output, cfg.N)
		protocol.EncodeVLQUint(output, cfg.P)
		protocol.EncodeVLQUint(output, cfg.Q)
		protocol.EncodeVLQUint(output, cfg.R)
	})
	return nil
}

func handleSetPLL(data *[]byte) error {
	var vals [5]uint32
	for i := range vals {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	cfg := PLLConfig{M: vals[0], N: vals[1], P: vals[2], Q: vals[3], R: vals[4]}
	if err := cfg.Validate(); err != nil {
		DebugPrintln("[PLL] rejected set_pll: " + err.Error())
		return err
	}
	sendPLLResult(clockCtl.PLL.SetConfiguration(cfg))
	return nil
}

func handleSetSpeed(data *[]byte) error {
	preset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if preset > uint32(SpeedHigh) {
		return ErrInvalidPreset
	}
	sendPLLResult(clockCtl.PLL.ApplyPreset(SpeedPreset(preset)))
	return nil
}

func sendPLLResult(res SetResult) {
	if res.Degraded() {
		DebugPrintln("[PLL] " + res.Status().String() + " after " +
			utoa(res.HSI.Polls) + "/" + utoa(res.PLL.Polls) + " polls")
	}
	SendResponse("pll_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(res.Status()))
		protocol.EncodeVLQUint(output, res.ClockHz)
	})
}

func handleGetClockFreq(data *[]byte) error {
	sendClockFreq(clockCtl.PLL.CurrentClockFrequencyHz())
	return nil
}

func sendClockFreq(hz uint32) {
	SendResponse("clock_freq", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, hz)
	})
}

func handleGetLoad(data *[]byte) error {
	clockCtl.sendLoadReport()
	return nil
}

// handleConfigLoadReport (re)arms the periodic report; interval is in cycles
// and 0 disables it.
func handleConfigLoadReport(data *[]byte) error {
	interval, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	clockCtl.ConfigureLoadReport(interval)
	return nil
}

// ConfigureLoadReport schedules a load sample every interval cycles
func (c *ClockController) ConfigureLoadReport(interval uint32) {
	CancelTimer(&c.reportTimer)
	c.reportInterval = interval
	if interval == 0 {
		return
	}
	c.reportTimer.WakeTime = GetTime() + interval
	ScheduleTimer(&c.reportTimer)
}

// ReportInterval returns the periodic report interval, 0 when disabled
func (c *ClockController) ReportInterval() uint32 {
	return c.reportInterval
}

func (c *ClockController) stopLoadReport() {
	c.ConfigureLoadReport(0)
}

// loadReportEvent runs from the timer list; reports are sent from Task
func (c *ClockController) loadReportEvent(t *Timer) uint8 {
	c.pending.Set(pendingLoadReport)
	if c.reportInterval == 0 {
		return SF_DONE
	}
	t.WakeTime += c.reportInterval
	return SF_RESCHEDULE
}

func (c *ClockController) sendLoadReport() {
	s := c.Load.Sample()
	RecordTiming(EvtLoadSample, boolToUint8(s.Valid), GetTime(), s.PercentX100(), 0)
	SendResponse("load_report", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolToUint(s.Valid))
		protocol.EncodeVLQUint(output, s.PercentX100())
		protocol.EncodeVLQUint(output, saturate32(s.AwakeCycles))
		protocol.EncodeVLQUint(output, saturate32(s.AsleepCycles))
	})
}

// Task sends pending reports. Call it from the main loop after ProcessTimers.
func (c *ClockController) Task() {
	state := disableInterrupts()
	pending := c.pending
	c.pending = 0
	restoreInterrupts(state)

	for n := pending.Highest(); n != 0; n = pending.Highest() {
		pending.Clear(n)
		switch n {
		case pendingClockFreq:
			sendClockFreq(c.PLL.CoreClockHz())
		case pendingLoadReport:
			c.sendLoadReport()
		}
	}
}

// Pending reports whether Task has reports to send
func (c *ClockController) Pending() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return c.pending.Highest() != 0
}

func saturate32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
