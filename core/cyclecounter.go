package core

// CycleClock is the time base shared by the clock controller. One tick is one
// core clock cycle; the value wraps at 2^32.
type CycleClock interface {
	Now() uint32
}

// CycleCounter reads the DWT cycle counter
type CycleCounter struct {
	bank        RegisterBank
	initialized bool

	// Uptime extension
	lastLow uint32
	high    uint32
}

// NewCycleCounter creates a counter on top of bank. Call Init before Now.
func NewCycleCounter(bank RegisterBank) *CycleCounter {
	return &CycleCounter{bank: bank}
}

// Init enables trace, zeroes the counter and starts it. Only the first call
// has any effect; the counter is never stopped afterwards.
func (c *CycleCounter) Init() {
	if c.initialized {
		return
	}
	setBits(c.bank, RegDEMCR, DEMCR_TRCENA)
	c.bank.Set(RegDWT_CYCCNT, 0)
	setBits(c.bank, RegDWT_CTRL, DWT_CTRL_CYCCNTENA)
	c.initialized = true
	c.lastLow = 0
	c.high = 0
}

// Initialized reports whether Init has run
func (c *CycleCounter) Initialized() bool {
	return c.initialized
}

// Now returns the raw 32-bit cycle count
func (c *CycleCounter) Now() uint32 {
	return c.bank.Get(RegDWT_CYCCNT)
}

// Uptime returns a 64-bit cycle count. It must be called at least once per
// counter wrap (about 23s at 180MHz) to see every overflow.
func (c *CycleCounter) Uptime() uint64 {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	low := c.Now()
	if low < c.lastLow {
		c.high++
	}
	c.lastLow = low
	return uint64(c.high)<<32 | uint64(low)
}
