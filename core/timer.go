package core

// Timer frequency before the clock controller reports the real core clock
const (
	DefaultTimerFreq = HSIFrequency
)

var uptimeFn func() uint64

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (main loop or tests)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// SetUptimeSource installs the 64-bit time source used by get_uptime
func SetUptimeSource(fn func() uint64) {
	uptimeFn = fn
}

// GetUptime returns 64-bit uptime in timer ticks
func GetUptime() uint64 {
	if uptimeFn != nil {
		return uptimeFn()
	}
	return uint64(GetTime())
}

// SetTimerFreq updates the tick rate; the cycle counter follows SYSCLK, so
// the PLL manager calls this after every reconfiguration.
func SetTimerFreq(hz uint32) {
	if hz == 0 {
		return
	}
	setTimerFreqValue(hz)
}

// TimerFreq returns the current tick rate in Hz
func TimerFreq() uint32 {
	return getTimerFreqValue()
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * uint64(TimerFreq()) / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / uint64(TimerFreq()))
}

// timeReached reports whether t is at or before now, tolerating counter wrap
func timeReached(t, now uint32) bool {
	return int32(t-now) <= 0
}

// ProcessTimers processes scheduled timers
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
