package core_test

import (
	"testing"

	"sysspeed/core"
	"sysspeed/sim"
)

func TestCycleCounterInit(t *testing.T) {
	bank := sim.NewBank()
	bank.Poke(core.RegDWT_CYCCNT, 12345)
	c := core.NewCycleCounter(bank)

	if c.Initialized() {
		t.Fatal("initialized before Init")
	}
	c.Init()
	if !c.Initialized() {
		t.Fatal("not initialized after Init")
	}
	if bank.Peek(core.RegDEMCR)&core.DEMCR_TRCENA == 0 {
		t.Error("TRCENA not set")
	}
	if bank.Peek(core.RegDWT_CTRL)&core.DWT_CTRL_CYCCNTENA == 0 {
		t.Error("CYCCNTENA not set")
	}
	if got := c.Now(); got != 0 {
		t.Errorf("Now() after Init = %d, want 0", got)
	}
}

func TestCycleCounterInitIdempotent(t *testing.T) {
	bank := sim.NewBank()
	c := core.NewCycleCounter(bank)
	c.Init()
	bank.Advance(500)
	bank.ResetWrites()

	c.Init()

	if bank.TotalWrites() != 0 {
		t.Errorf("second Init wrote %d registers", bank.TotalWrites())
	}
	if got := c.Now(); got != 500 {
		t.Errorf("Now() = %d, want 500", got)
	}
}

func TestCycleCounterMonotonic(t *testing.T) {
	bank := sim.NewBank()
	bank.CycleStep = 7
	c := core.NewCycleCounter(bank)
	c.Init()

	prev := c.Now()
	for i := 0; i < 100; i++ {
		now := c.Now()
		if now-prev != 7 {
			t.Fatalf("step %d: delta %d", i, now-prev)
		}
		prev = now
	}
}

func TestCycleCounterUptimeWrap(t *testing.T) {
	bank := sim.NewBank()
	c := core.NewCycleCounter(bank)
	c.Init()

	bank.Poke(core.RegDWT_CYCCNT, 0xFFFFFFF0)
	if got := c.Uptime(); got != 0xFFFFFFF0 {
		t.Errorf("Uptime() = %#x", got)
	}
	bank.Poke(core.RegDWT_CYCCNT, 5)
	if got := c.Uptime(); got != 1<<32|5 {
		t.Errorf("Uptime() after wrap = %#x", got)
	}
}
