package core_test

import (
	"sync"
	"testing"

	"sysspeed/core"
	"sysspeed/sim"
)

type nopPower struct {
	sleeps, stops int
}

func (p *nopPower) WaitForInterrupt() { p.sleeps++ }
func (p *nopPower) EnterStop()        { p.stops++ }

func newRunningBank() *sim.Bank {
	bank := sim.NewBank()
	core.NewCycleCounter(bank).Init()
	return bank
}

func TestEnterSleepScenario(t *testing.T) {
	// The constructor takes woke_at = 0; the final wake read repeats 250
	clock := &sim.ScriptedClock{Values: []uint32{0, 100, 100, 250}}
	power := &nopPower{}
	acct := core.NewLoadAccounting(clock, power)

	acct.EnterSleep()

	snap := acct.Snapshot()
	if snap.AwakeCycles != 100 {
		t.Errorf("AwakeCycles = %d, want 100", snap.AwakeCycles)
	}
	if snap.AsleepCycles != 150 {
		t.Errorf("AsleepCycles = %d, want 150", snap.AsleepCycles)
	}
	if snap.WokeAt != 250 || snap.SleepStartedAt != 100 {
		t.Errorf("timestamps = %+v", snap)
	}
	if power.sleeps != 1 {
		t.Errorf("WaitForInterrupt calls = %d, want 1", power.sleeps)
	}
	if clock.Reads() != 4 {
		t.Errorf("clock reads = %d, want 4", clock.Reads())
	}
}

func TestLoadAccountingConservation(t *testing.T) {
	bank := newRunningBank()
	power := sim.NewPower(bank, 0, 0)
	counter := core.NewCycleCounter(bank)
	acct := core.NewLoadAccounting(counter, power)

	awake := []uint32{300, 50, 1200, 0, 75}
	asleep := []uint32{700, 950, 0, 400, 25}
	var total uint64
	for i := range awake {
		bank.Advance(awake[i])
		power.SleepCycles = asleep[i]
		acct.EnterSleep()
		total += uint64(awake[i]) + uint64(asleep[i])
	}

	s := acct.Sample()
	if got := s.AwakeCycles + s.AsleepCycles; got != total {
		t.Errorf("awake+asleep = %d, want %d", got, total)
	}
	if s.AwakeCycles != 1625 || s.AsleepCycles != 2075 {
		t.Errorf("sample = %+v", s)
	}
	if !s.Valid {
		t.Error("sample not valid")
	}
}

func TestLoadAccountingCounterWrap(t *testing.T) {
	bank := newRunningBank()
	bank.Poke(core.RegDWT_CYCCNT, 0xFFFFFF00)
	power := sim.NewPower(bank, 0x200, 0)
	acct := core.NewLoadAccounting(core.NewCycleCounter(bank), power)

	bank.Advance(0x80)
	acct.EnterSleep()

	s := acct.Sample()
	if s.AwakeCycles != 0x80 || s.AsleepCycles != 0x200 {
		t.Errorf("sample across wrap = %+v", s)
	}
}

func TestSampleLoadPercent(t *testing.T) {
	bank := newRunningBank()
	power := sim.NewPower(bank, 750, 0)
	acct := core.NewLoadAccounting(core.NewCycleCounter(bank), power)

	bank.Advance(250)
	acct.EnterSleep()

	s := acct.Sample()
	if s.Percent != 25 {
		t.Errorf("Percent = %v, want 25", s.Percent)
	}
	if s.PercentX100() != 2500 {
		t.Errorf("PercentX100 = %d, want 2500", s.PercentX100())
	}
}

func TestSampleResetsEpoch(t *testing.T) {
	bank := newRunningBank()
	power := sim.NewPower(bank, 100, 0)
	acct := core.NewLoadAccounting(core.NewCycleCounter(bank), power)

	bank.Advance(100)
	acct.EnterSleep()

	if pct := acct.SampleLoadPercent(); pct != 50 {
		t.Fatalf("first sample = %v, want 50", pct)
	}

	s := acct.Sample()
	if s.Valid || s.Percent != 0 || s.AwakeCycles != 0 || s.AsleepCycles != 0 {
		t.Errorf("second sample = %+v, want empty", s)
	}
	if s.PercentX100() != 0 {
		t.Errorf("PercentX100 = %d", s.PercentX100())
	}
}

func TestEnterStopSkipsAccounting(t *testing.T) {
	bank := newRunningBank()
	power := sim.NewPower(bank, 100, 5000)
	acct := core.NewLoadAccounting(core.NewCycleCounter(bank), power)

	before := acct.Snapshot()
	acct.EnterStop()
	after := acct.Snapshot()

	if before != after {
		t.Errorf("EnterStop changed accounting: %+v -> %+v", before, after)
	}
	if acct.StopCount() != 1 || power.Stops() != 1 {
		t.Errorf("StopCount = %d, driver stops = %d", acct.StopCount(), power.Stops())
	}

	// Time spent stopped lands in awake on the next sleep
	acct.EnterSleep()
	s := acct.Sample()
	if s.AwakeCycles != 5000 || s.AsleepCycles != 100 {
		t.Errorf("sample = %+v", s)
	}
}

func TestLoadAccountingConcurrent(t *testing.T) {
	bank := newRunningBank()
	bank.CycleStep = 3
	power := sim.NewPower(bank, 40, 0)
	counter := core.NewCycleCounter(bank)
	acct := core.NewLoadAccounting(counter, power)
	start := acct.Snapshot().WokeAt

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		totals uint64
	)
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				acct.EnterSleep()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s := acct.Sample()
				mu.Lock()
				totals += s.AwakeCycles + s.AsleepCycles
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s := acct.Sample()
	totals += s.AwakeCycles + s.AsleepCycles
	end := acct.Snapshot().WokeAt
	// Each sleep loses one step between the awake and sleep-start reads and
	// one between the asleep and wake reads
	lost := uint64(2*bank.CycleStep) * uint64(power.Sleeps())
	if want := uint64(end - start); totals+lost != want {
		t.Errorf("accounted %d + %d lost cycles, elapsed %d", totals, lost, want)
	}
	if power.Sleeps() != 800 {
		t.Errorf("sleeps = %d, want 800", power.Sleeps())
	}
}
