package core

import "errors"

// PLLCFGR divider fields. P is stored as (P/2)-1, so 2,4,6,8 map to 0..3.
var (
	FieldPLLM = Field{Name: "m", Pos: 0, Width: 6}
	FieldPLLN = Field{Name: "n", Pos: 6, Width: 9}
	FieldPLLP = Field{
		Name:   "p",
		Pos:    16,
		Width:  2,
		Encode: func(v uint32) uint32 { return (v >> 1) - 1 },
		Decode: func(raw uint32) uint32 { return (raw + 1) << 1 },
	}
	FieldPLLQ = Field{Name: "q", Pos: 24, Width: 4}
	FieldPLLR = Field{Name: "r", Pos: 28, Width: 3}

	// FieldClockSwitch selects the system clock source in RCC_CFGR
	FieldClockSwitch = Field{Name: "sw", Pos: RCC_CFGR_SW_Pos, Width: 2}
	// FieldClockSwitchStatus reports the source actually in use
	FieldClockSwitchStatus = Field{Name: "sws", Pos: RCC_CFGR_SWS_Pos, Width: 2}
)

// Oscillator frequencies
const (
	HSIFrequency        = 16000000
	DefaultHSEFrequency = 8000000
)

// SpeedPreset selects a fixed PLL multiplier
type SpeedPreset uint8

const (
	SpeedLow SpeedPreset = iota
	SpeedHigh
)

// N values applied by the presets
const (
	PresetHighN = 180
	PresetLowN  = 72
)

// N returns the multiplier the preset programs
func (p SpeedPreset) N() uint32 {
	if p == SpeedHigh {
		return PresetHighN
	}
	return PresetLowN
}

func (p SpeedPreset) String() string {
	if p == SpeedHigh {
		return "high"
	}
	return "low"
}

// PLLConfig is the complete PLL programming state. In SetConfiguration a zero
// field means "leave unchanged".
type PLLConfig struct {
	M, N, P, Q, R uint32
}

// Equal compares field by field
func (c PLLConfig) Equal(o PLLConfig) bool {
	return c.M == o.M && c.N == o.N && c.P == o.P && c.Q == o.Q && c.R == o.R
}

var (
	ErrInvalidPLLM = errors.New("pll m out of range 2..63")
	ErrInvalidPLLN = errors.New("pll n out of range 50..432")
	ErrInvalidPLLP = errors.New("pll p must be 2, 4, 6 or 8")
	ErrInvalidPLLQ = errors.New("pll q out of range 2..15")
	ErrInvalidPLLR = errors.New("pll r out of range 2..7")
)

// Validate checks non-zero fields against the datasheet ranges
func (c PLLConfig) Validate() error {
	if c.M != 0 && (c.M < 2 || c.M > 63) {
		return ErrInvalidPLLM
	}
	if c.N != 0 && (c.N < 50 || c.N > 432) {
		return ErrInvalidPLLN
	}
	if c.P != 0 && (c.P > 8 || c.P%2 != 0) {
		return ErrInvalidPLLP
	}
	if c.Q != 0 && (c.Q < 2 || c.Q > 15) {
		return ErrInvalidPLLQ
	}
	if c.R != 0 && (c.R < 2 || c.R > 7) {
		return ErrInvalidPLLR
	}
	return nil
}

// PLLStatus classifies a SetConfiguration call
type PLLStatus uint8

const (
	PLLUnchanged PLLStatus = iota
	PLLApplied
	PLLHSITimeout
	PLLLockTimeout
)

var pllStatusNames = [...]string{"unchanged", "applied", "hsi_timeout", "pll_timeout"}

func (s PLLStatus) String() string {
	if int(s) < len(pllStatusNames) {
		return pllStatusNames[s]
	}
	return "unknown"
}

// PLLStatusNames lists status codes in wire order
func PLLStatusNames() []string {
	return pllStatusNames[:]
}

// SetResult is the outcome of a reconfiguration. A timed-out wait does not stop
// the sequence, it is only reported here.
type SetResult struct {
	Changed bool
	HSI     WaitOutcome
	PLL     WaitOutcome
	ClockHz uint32
}

// Status reports the first degraded step, if any
func (r SetResult) Status() PLLStatus {
	switch {
	case !r.Changed:
		return PLLUnchanged
	case r.HSI.TimedOut():
		return PLLHSITimeout
	case r.PLL.TimedOut():
		return PLLLockTimeout
	}
	return PLLApplied
}

// Degraded is true when the PLL may not be locked after the call returned
func (r SetResult) Degraded() bool {
	return r.Changed && (r.HSI.TimedOut() || r.PLL.TimedOut())
}

// PLLManagerConfig holds board specific values
type PLLManagerConfig struct {
	HSEFrequency uint32
	Ready        RetryPolicy
}

// PLLManager reprograms the main PLL through the RCC registers
type PLLManager struct {
	bank     RegisterBank
	ready    RetryPolicy
	hseHz    uint32
	coreHz   uint32
	listener func(hz uint32)
}

// NewPLLManager creates a manager and primes the cached core clock
func NewPLLManager(bank RegisterBank, cfg PLLManagerConfig) *PLLManager {
	if cfg.HSEFrequency == 0 {
		cfg.HSEFrequency = DefaultHSEFrequency
	}
	if cfg.Ready.MaxPolls == 0 {
		cfg.Ready.MaxPolls = DefaultReadyPolls
	}
	m := &PLLManager{
		bank:  bank,
		ready: cfg.Ready,
		hseHz: cfg.HSEFrequency,
	}
	m.coreHz = m.computeClockHz()
	return m
}

// SetFrequencyListener registers a callback run after every reconfiguration
func (m *PLLManager) SetFrequencyListener(fn func(hz uint32)) {
	m.listener = fn
}

// Configuration reads the live PLL fields
func (m *PLLManager) Configuration() PLLConfig {
	word := m.bank.Get(RegRCC_PLLCFGR)
	return PLLConfig{
		M: FieldPLLM.Get(word),
		N: FieldPLLN.Get(word),
		P: FieldPLLP.Get(word),
		Q: FieldPLLQ.Get(word),
		R: FieldPLLR.Get(word),
	}
}

// SetConfiguration programs the PLL with desired. The system clock is parked
// on HSI while the PLL is off, then switched back once it reports lock.
func (m *PLLManager) SetConfiguration(desired PLLConfig) SetResult {
	if desired.Equal(m.Configuration()) {
		return SetResult{Changed: false, ClockHz: m.coreHz}
	}

	res := SetResult{Changed: true}

	setBits(m.bank, RegRCC_CR, RCC_CR_HSION)
	res.HSI = m.ready.Wait(func() bool { return hasBits(m.bank, RegRCC_CR, RCC_CR_HSIRDY) })
	if res.HSI.TimedOut() {
		RecordTiming(EvtReadyTimeout, timeoutHSI, GetTime(), res.HSI.Polls, 0)
	}

	// PLL cannot be reprogrammed while it drives SYSCLK
	FieldClockSwitch.Write(m.bank, RegRCC_CFGR, ClockSourceHSI)
	clearBits(m.bank, RegRCC_CR, RCC_CR_PLLON)

	fields := [...]struct {
		f Field
		v uint32
	}{
		{FieldPLLM, desired.M},
		{FieldPLLN, desired.N},
		{FieldPLLP, desired.P},
		{FieldPLLQ, desired.Q},
		{FieldPLLR, desired.R},
	}
	for _, fv := range fields {
		if fv.v != 0 {
			fv.f.Write(m.bank, RegRCC_PLLCFGR, fv.v)
		}
	}

	setBits(m.bank, RegRCC_CR, RCC_CR_PLLON)
	res.PLL = m.ready.Wait(func() bool { return hasBits(m.bank, RegRCC_CR, RCC_CR_PLLRDY) })
	if res.PLL.TimedOut() {
		RecordTiming(EvtReadyTimeout, timeoutPLL, GetTime(), res.PLL.Polls, 0)
	}

	FieldClockSwitch.Write(m.bank, RegRCC_CFGR, ClockSourcePLL)

	res.ClockHz = m.refresh()
	RecordTiming(EvtPLLSwitch, uint8(res.Status()), GetTime(), desired.N, res.ClockHz)
	return res
}

// ApplyPreset rewrites only N, keeping the other fields as they are
func (m *PLLManager) ApplyPreset(p SpeedPreset) SetResult {
	cfg := m.Configuration()
	cfg.N = p.N()
	RecordTiming(EvtPreset, uint8(p), GetTime(), cfg.N, 0)
	return m.SetConfiguration(cfg)
}

// CurrentClockFrequencyHz recomputes SYSCLK from the live registers
func (m *PLLManager) CurrentClockFrequencyHz() uint32 {
	return m.refresh()
}

// CoreClockHz returns the cached SYSCLK value without touching hardware
func (m *PLLManager) CoreClockHz() uint32 {
	return m.coreHz
}

func (m *PLLManager) refresh() uint32 {
	hz := m.computeClockHz()
	changed := hz != m.coreHz
	m.coreHz = hz
	if changed && m.listener != nil {
		m.listener(hz)
	}
	return hz
}

func (m *PLLManager) computeClockHz() uint32 {
	switch FieldClockSwitchStatus.Read(m.bank, RegRCC_CFGR) {
	case ClockSourceHSI:
		return HSIFrequency
	case ClockSourceHSE:
		return m.hseHz
	case ClockSourcePLL:
		cfg := m.Configuration()
		if cfg.M == 0 || cfg.P == 0 {
			return 0
		}
		src := uint64(HSIFrequency)
		if hasBits(m.bank, RegRCC_PLLCFGR, RCC_PLLCFGR_PLLSRC) {
			src = uint64(m.hseHz)
		}
		vco := src / uint64(cfg.M) * uint64(cfg.N)
		return uint32(vco / uint64(cfg.P))
	}
	return HSIFrequency
}
