package core

import "sync"

// PowerDriver issues the low-power directives
type PowerDriver interface {
	// WaitForInterrupt enters sleep mode and returns once an interrupt wakes
	// the core. It is the only blocking call in the clock controller.
	WaitForInterrupt()

	// EnterStop enters stop mode, halting most clocks until a wakeup event
	EnterStop()
}

// ClockAccounting is the awake/asleep bookkeeping. Durations are in cycles and
// cover the time since the previous load sample.
type ClockAccounting struct {
	AwakeCycles    uint64
	AsleepCycles   uint64
	SleepStartedAt uint32
	WokeAt         uint32
}

// LoadSample is the result of closing a sampling epoch
type LoadSample struct {
	Percent      float32
	AwakeCycles  uint64
	AsleepCycles uint64
	// Valid is false when no cycles were accounted since the previous sample
	Valid bool
}

// PercentX100 returns the load in hundredths of a percent for integer transports
func (s LoadSample) PercentX100() uint32 {
	if !s.Valid {
		return 0
	}
	return uint32(s.Percent*100 + 0.5)
}

// LoadAccounting tracks how long the core spends awake versus asleep
type LoadAccounting struct {
	mu    sync.Mutex
	clock CycleClock
	power PowerDriver
	acct  ClockAccounting
	stops uint32
}

// NewLoadAccounting starts the first epoch at the current cycle count
func NewLoadAccounting(clock CycleClock, power PowerDriver) *LoadAccounting {
	return &LoadAccounting{
		clock: clock,
		power: power,
		acct:  ClockAccounting{WokeAt: clock.Now()},
	}
}

// EnterSleep sleeps until the next interrupt, charging the time since the last
// wake to awake and the time spent in sleep to asleep. Each step reads the
// clock afresh; cycles between two reads land in neither bucket. Interrupts
// stay masked for the whole sequence. A pending interrupt still wakes the
// core and its handler runs once the mask is restored.
func (a *LoadAccounting) EnterSleep() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.acct.AwakeCycles += uint64(a.clock.Now() - a.acct.WokeAt)
	a.acct.SleepStartedAt = a.clock.Now()
	RecordTiming(EvtSleep, 0, a.acct.SleepStartedAt, 0, 0)

	a.power.WaitForInterrupt()

	a.acct.AsleepCycles += uint64(a.clock.Now() - a.acct.SleepStartedAt)
	a.acct.WokeAt = a.clock.Now()
	RecordTiming(EvtWake, 0, a.acct.WokeAt, a.acct.WokeAt-a.acct.SleepStartedAt, 0)
}

// EnterStop enters stop mode. Unlike EnterSleep it does not update the
// accounting: time spent stopped is later charged as awake time.
func (a *LoadAccounting) EnterStop() {
	a.mu.Lock()
	a.stops++
	RecordTiming(EvtStop, 0, a.clock.Now(), 0, 0)
	a.mu.Unlock()

	DebugPrintln("[POWER] stop mode entered without load accounting")
	a.power.EnterStop()
}

// StopCount returns how many times stop mode was entered
func (a *LoadAccounting) StopCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

// Sample closes the current epoch and resets both accumulators
func (a *LoadAccounting) Sample() LoadSample {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	a.mu.Lock()
	defer a.mu.Unlock()

	s := LoadSample{
		AwakeCycles:  a.acct.AwakeCycles,
		AsleepCycles: a.acct.AsleepCycles,
	}
	total := s.AwakeCycles + s.AsleepCycles
	if total != 0 {
		s.Percent = float32(s.AwakeCycles) / float32(total) * 100
		s.Valid = true
	}
	a.acct.AwakeCycles = 0
	a.acct.AsleepCycles = 0
	return s
}

// SampleLoadPercent returns the awake share since the previous sample. An
// empty epoch yields 0.
func (a *LoadAccounting) SampleLoadPercent() float32 {
	return a.Sample().Percent
}

// Snapshot copies the accounting state without resetting it
func (a *LoadAccounting) Snapshot() ClockAccounting {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acct
}
