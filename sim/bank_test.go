package sim

import (
	"testing"

	"sysspeed/core"
)

func TestBankResetValues(t *testing.T) {
	b := NewBank()
	if got := b.Peek(core.RegRCC_CR); got != ResetRCC_CR {
		t.Errorf("CR = %#x, want %#x", got, ResetRCC_CR)
	}
	if got := core.FieldPLLM.Get(b.Peek(core.RegRCC_PLLCFGR)); got != 16 {
		t.Errorf("reset M = %d, want 16", got)
	}
	if got := core.FieldPLLN.Get(b.Peek(core.RegRCC_PLLCFGR)); got != 192 {
		t.Errorf("reset N = %d, want 192", got)
	}
}

func TestBankSWSMirrorsSW(t *testing.T) {
	b := NewBank()
	b.Set(core.RegRCC_CFGR, core.ClockSourcePLL)
	if got := core.FieldClockSwitchStatus.Read(b, core.RegRCC_CFGR); got != core.ClockSourcePLL {
		t.Errorf("SWS = %d, want PLL", got)
	}
}

func TestBankPLLReadyAfterPolls(t *testing.T) {
	b := NewBank()
	b.PLLReadyAfter = 3
	b.Set(core.RegRCC_CR, b.Peek(core.RegRCC_CR)|core.RCC_CR_PLLON)

	for i := 0; i < 3; i++ {
		if b.Get(core.RegRCC_CR)&core.RCC_CR_PLLRDY != 0 {
			t.Fatalf("PLLRDY set after %d polls", i+1)
		}
	}
	if b.Get(core.RegRCC_CR)&core.RCC_CR_PLLRDY == 0 {
		t.Fatal("PLLRDY not set after 4th poll")
	}

	b.Set(core.RegRCC_CR, b.Peek(core.RegRCC_CR)&^core.RCC_CR_PLLON)
	if b.Peek(core.RegRCC_CR)&core.RCC_CR_PLLRDY != 0 {
		t.Error("PLLRDY should drop with PLLON")
	}
}

func TestBankReadyNever(t *testing.T) {
	b := NewBank()
	b.HSIReadyAfter = Never
	b.Set(core.RegRCC_CR, 0)
	b.Set(core.RegRCC_CR, core.RCC_CR_HSION)
	for i := 0; i < 100; i++ {
		if b.Get(core.RegRCC_CR)&core.RCC_CR_HSIRDY != 0 {
			t.Fatal("HSIRDY appeared")
		}
	}
}

func TestBankReadyBitsNotWritable(t *testing.T) {
	b := NewBank()
	b.Set(core.RegRCC_CR, core.RCC_CR_HSION|core.RCC_CR_PLLRDY)
	if b.Peek(core.RegRCC_CR)&core.RCC_CR_PLLRDY != 0 {
		t.Error("PLLRDY was writable")
	}
}

func TestBankCycleCounter(t *testing.T) {
	b := NewBank()
	b.CycleStep = 10
	if b.Get(core.RegDWT_CYCCNT) != 0 || b.Get(core.RegDWT_CYCCNT) != 0 {
		t.Fatal("counter advanced while disabled")
	}

	b.Set(core.RegDEMCR, core.DEMCR_TRCENA)
	b.Set(core.RegDWT_CTRL, core.DWT_CTRL_CYCCNTENA)
	if v := b.Get(core.RegDWT_CYCCNT); v != 0 {
		t.Errorf("first read = %d, want 0", v)
	}
	if v := b.Get(core.RegDWT_CYCCNT); v != 10 {
		t.Errorf("second read = %d, want 10", v)
	}
	b.Advance(1000)
	if v := b.Peek(core.RegDWT_CYCCNT); v != 1020 {
		t.Errorf("after Advance = %d, want 1020", v)
	}
}

func TestBankWriteCounters(t *testing.T) {
	b := NewBank()
	b.Set(core.RegRCC_PLLCFGR, 1)
	b.Set(core.RegRCC_PLLCFGR, 2)
	b.Poke(core.RegRCC_PLLCFGR, 3)
	if got := b.Writes(core.RegRCC_PLLCFGR); got != 2 {
		t.Errorf("Writes = %d, want 2", got)
	}
	b.ResetWrites()
	if got := b.TotalWrites(); got != 0 {
		t.Errorf("TotalWrites after reset = %d", got)
	}
}

func TestPowerAdvancesCounter(t *testing.T) {
	b := NewBank()
	b.Set(core.RegDEMCR, core.DEMCR_TRCENA)
	b.Set(core.RegDWT_CTRL, core.DWT_CTRL_CYCCNTENA)

	woke := 0
	p := NewPower(b, 500, 7000)
	p.OnWake = func() { woke++ }
	p.WaitForInterrupt()
	p.EnterStop()

	if got := b.Peek(core.RegDWT_CYCCNT); got != 7500 {
		t.Errorf("CYCCNT = %d, want 7500", got)
	}
	if p.Sleeps() != 1 || p.Stops() != 1 || woke != 2 {
		t.Errorf("sleeps=%d stops=%d woke=%d", p.Sleeps(), p.Stops(), woke)
	}
}

func TestScriptedClock(t *testing.T) {
	c := &ScriptedClock{Values: []uint32{5, 9}}
	if c.Now() != 5 || c.Now() != 9 || c.Now() != 9 {
		t.Error("unexpected sequence")
	}
	if c.Reads() != 2 {
		t.Errorf("Reads = %d, want 2", c.Reads())
	}
}
