//go:build !tinygo

package core

// State stands in for interrupt.State on host builds
type State uintptr

// disableInterrupts is a no-op on host builds; shared state that goroutines
// touch is also guarded by a mutex.
func disableInterrupts() State {
	return 0
}

func restoreInterrupts(state State) {}

// Critical runs fn; host builds have no interrupts to mask
func Critical(fn func()) {
	fn()
}
