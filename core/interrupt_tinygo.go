//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts sets PRIMASK and returns the previous state. A pending
// interrupt still ends a wfi while masked; its handler runs on restore.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// Critical runs fn with interrupts masked
func Critical(fn func()) {
	state := interrupt.Disable()
	fn()
	interrupt.Restore(state)
}
