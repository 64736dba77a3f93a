//go:build tinygo

package core

import "sync/atomic"

var (
	systemTicks uint32
	timerFreq   uint32 = DefaultTimerFreq
)

// getSystemTicks returns the current system ticks
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// setSystemTicks sets the system ticks
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

func getTimerFreqValue() uint32 {
	return atomic.LoadUint32(&timerFreq)
}

func setTimerFreqValue(hz uint32) {
	atomic.StoreUint32(&timerFreq, hz)
}
