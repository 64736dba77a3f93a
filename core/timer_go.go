//go:build !tinygo

package core

import "sync/atomic"

// Host builds run tests from several goroutines, so the tick values are atomic
// here as well.
var (
	systemTicksHost uint32
	timerFreqHost   uint32 = DefaultTimerFreq
)

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksHost)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksHost, ticks)
}

func getTimerFreqValue() uint32 {
	return atomic.LoadUint32(&timerFreqHost)
}

func setTimerFreqValue(hz uint32) {
	atomic.StoreUint32(&timerFreqHost, hz)
}
