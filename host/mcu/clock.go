package mcu

import (
	"context"
	"fmt"
	"math"
	"time"

	"sysspeed/core"
)

// PLLResult is the firmware's answer to set_pll and set_speed
type PLLResult struct {
	Status  string
	Code    uint32
	ClockHz uint32
}

// Degraded reports a readiness timeout during the switch
func (r PLLResult) Degraded() bool {
	return r.Code >= uint32(core.PLLHSITimeout)
}

// LoadReport is one load_report message
type LoadReport struct {
	Valid        bool
	Percent      float64
	AwakeCycles  uint32
	AsleepCycles uint32
}

func loadReportFrom(r *Response) LoadReport {
	return LoadReport{
		Valid:        r.Get("valid") != 0,
		Percent:      float64(r.Get("percent_x100")) / 100,
		AwakeCycles:  r.Get("awake"),
		AsleepCycles: r.Get("asleep"),
	}
}

// GetPLL reads the PLL configuration register fields
func (m *MCU) GetPLL(ctx context.Context) (core.PLLConfig, error) {
	r, err := m.Query(ctx, "pll_config", "get_pll")
	if err != nil {
		return core.PLLConfig{}, err
	}
	return core.PLLConfig{
		M: r.Get("m"),
		N: r.Get("n"),
		P: r.Get("p"),
		Q: r.Get("q"),
		R: r.Get("r"),
	}, nil
}

// SetPLL reprograms the PLL. Zero fields are left unchanged by the firmware.
func (m *MCU) SetPLL(ctx context.Context, cfg core.PLLConfig) (PLLResult, error) {
	if err := cfg.Validate(); err != nil {
		return PLLResult{}, err
	}
	r, err := m.Query(ctx, "pll_result", "set_pll", cfg.M, cfg.N, cfg.P, cfg.Q, cfg.R)
	if err != nil {
		return PLLResult{}, err
	}
	return m.pllResult(r), nil
}

// SetSpeed applies a named preset from the speed_preset enumeration
func (m *MCU) SetSpeed(ctx context.Context, preset string) (PLLResult, error) {
	dict, err := m.Dictionary()
	if err != nil {
		return PLLResult{}, err
	}
	v, err := dict.EnumValue("speed_preset", preset)
	if err != nil {
		return PLLResult{}, err
	}
	r, err := m.Query(ctx, "pll_result", "set_speed", v)
	if err != nil {
		return PLLResult{}, err
	}
	return m.pllResult(r), nil
}

func (m *MCU) pllResult(r *Response) PLLResult {
	code := r.Get("status")
	status := core.PLLStatus(code).String()
	if dict, err := m.Dictionary(); err == nil {
		status = dict.EnumName("pll_status", code)
	}
	res := PLLResult{Status: status, Code: code, ClockHz: r.Get("clock_freq")}
	if res.Degraded() {
		m.logger.Warn().Str("status", res.Status).Uint32("clock_hz", res.ClockHz).Msg("PLL switch degraded")
	}
	return res
}

// GetClockFreq returns the core clock computed from the live registers
func (m *MCU) GetClockFreq(ctx context.Context) (uint32, error) {
	r, err := m.Query(ctx, "clock_freq", "get_clock_freq")
	if err != nil {
		return 0, err
	}
	return r.Get("hz"), nil
}

// GetLoad samples the load and starts a new accounting epoch
func (m *MCU) GetLoad(ctx context.Context) (LoadReport, error) {
	r, err := m.Query(ctx, "load_report", "get_load")
	if err != nil {
		return LoadReport{}, err
	}
	return loadReportFrom(r), nil
}

// ConfigureLoadReport asks for a load_report every interval, converted to
// cycles at the current core clock. Zero disables the reports. The period
// stretches or shrinks if the clock is changed afterwards.
func (m *MCU) ConfigureLoadReport(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return m.Send(ctx, "config_load_report", 0)
	}
	hz, err := m.GetClockFreq(ctx)
	if err != nil {
		return err
	}
	cycles := interval.Seconds() * float64(hz)
	if cycles < 1 || cycles > math.MaxInt32 {
		return fmt.Errorf("report interval %v out of range at %d Hz", interval, hz)
	}
	return m.Send(ctx, "config_load_report", uint32(cycles))
}

// OnLoadReport subscribes to periodic and queried load reports
func (m *MCU) OnLoadReport(fn func(LoadReport)) {
	m.OnResponse("load_report", func(r *Response) { fn(loadReportFrom(r)) })
}

// OnClockChange subscribes to clock_freq reports
func (m *MCU) OnClockChange(fn func(hz uint32)) {
	m.OnResponse("clock_freq", func(r *Response) { fn(r.Get("hz")) })
}

// EmergencyStop puts the firmware in shutdown, which also stops load reports
func (m *MCU) EmergencyStop(ctx context.Context) error {
	return m.Send(ctx, "emergency_stop")
}

// Uptime returns the 64-bit cycle count since boot
func (m *MCU) Uptime(ctx context.Context) (uint64, error) {
	r, err := m.Query(ctx, "uptime", "get_uptime")
	if err != nil {
		return 0, err
	}
	return uint64(r.Get("high"))<<32 | uint64(r.Get("clock")), nil
}
