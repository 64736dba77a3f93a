package core

// DefaultReadyPolls matches a post-decrement countdown from 0xFFFF, which
// checks the ready bit 0x10000 times before giving up
const DefaultReadyPolls = 0x10000

// RetryPolicy bounds a busy-wait on a hardware status bit
type RetryPolicy struct {
	MaxPolls uint32
}

// WaitOutcome reports how a bounded wait ended
type WaitOutcome struct {
	Ready bool
	Polls uint32
}

// TimedOut is true when the bound was reached without the predicate holding
func (w WaitOutcome) TimedOut() bool {
	return !w.Ready
}

// Wait polls ready until it returns true or MaxPolls polls have been made.
// At least one poll is always made. Exhausting the bound is not an error: the
// caller decides whether to carry on.
func (p RetryPolicy) Wait(ready func() bool) WaitOutcome {
	limit := p.MaxPolls
	if limit == 0 {
		limit = 1
	}
	var polls uint32
	for polls < limit {
		polls++
		if ready() {
			return WaitOutcome{Ready: true, Polls: polls}
		}
	}
	return WaitOutcome{Ready: false, Polls: polls}
}
