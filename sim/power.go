package sim

import "sync/atomic"

// Power is a core.PowerDriver that advances the bank's cycle counter instead
// of halting the core.
type Power struct {
	Bank        *Bank
	SleepCycles uint32
	StopCycles  uint32

	// OnWake, if set, runs after each simulated sleep or stop
	OnWake func()

	sleeps atomic.Uint32
	stops  atomic.Uint32
}

// NewPower creates a driver over bank
func NewPower(bank *Bank, sleepCycles, stopCycles uint32) *Power {
	return &Power{Bank: bank, SleepCycles: sleepCycles, StopCycles: stopCycles}
}

// WaitForInterrupt implements core.PowerDriver
func (p *Power) WaitForInterrupt() {
	p.sleeps.Add(1)
	p.Bank.Advance(p.SleepCycles)
	if p.OnWake != nil {
		p.OnWake()
	}
}

// EnterStop implements core.PowerDriver
func (p *Power) EnterStop() {
	p.stops.Add(1)
	p.Bank.Advance(p.StopCycles)
	if p.OnWake != nil {
		p.OnWake()
	}
}

// Sleeps returns the number of WaitForInterrupt calls
func (p *Power) Sleeps() uint32 {
	return p.sleeps.Load()
}

// Stops returns the number of EnterStop calls
func (p *Power) Stops() uint32 {
	return p.stops.Load()
}

// ScriptedClock is a core.CycleClock that returns Values in order and then
// repeats the last one.
type ScriptedClock struct {
	Values []uint32
	next   int
}

// Now implements core.CycleClock
func (c *ScriptedClock) Now() uint32 {
	if len(c.Values) == 0 {
		return 0
	}
	if c.next >= len(c.Values) {
		return c.Values[len(c.Values)-1]
	}
	v := c.Values[c.next]
	c.next++
	return v
}

// Reads returns how many values have been consumed
func (c *ScriptedClock) Reads() int {
	return c.next
}
