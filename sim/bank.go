// Package sim provides a simulated register bank and power driver so the clock
// controller can run on a host without hardware.
package sim

import (
	"sync"

	"sysspeed/core"
)

// Never disables a ready bit permanently when used as a poll count
const Never = -1

// Reset values of the STM32F4 RCC registers: HSI on and ready, PLL fed by HSI
// with M=16 N=192 P=2 Q=4.
const (
	ResetRCC_CR      = core.RCC_CR_HSION | core.RCC_CR_HSIRDY
	ResetRCC_PLLCFGR = 0x24003010
	ResetRCC_CFGR    = 0
)

// Bank is an in-memory core.RegisterBank. Ready bits appear after a
// configurable number of status polls, SWS follows SW, and the cycle counter
// advances by CycleStep on every read once it is enabled.
type Bank struct {
	mu     sync.Mutex
	regs   [core.NumRegisters]uint32
	writes [core.NumRegisters]int

	// HSIReadyAfter is the number of RCC_CR reads that see HSIRDY clear after
	// HSION is set. Never keeps it clear.
	HSIReadyAfter int
	// PLLReadyAfter is the same for PLLRDY after PLLON is set
	PLLReadyAfter int
	// CycleStep is added to CYCCNT after each read
	CycleStep uint32

	hsiPolls int
	pllPolls int
}

// NewBank returns a bank holding the reset values with instant readiness
func NewBank() *Bank {
	b := &Bank{}
	b.regs[core.RegRCC_CR] = ResetRCC_CR
	b.regs[core.RegRCC_PLLCFGR] = ResetRCC_PLLCFGR
	b.regs[core.RegRCC_CFGR] = ResetRCC_CFGR
	return b
}

// Get implements core.RegisterBank
func (b *Bank) Get(reg core.Register) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch reg {
	case core.RegRCC_CR:
		b.pollReady()
	case core.RegDWT_CYCCNT:
		v := b.regs[reg]
		if b.counting() {
			b.regs[reg] += b.CycleStep
		}
		return v
	}
	return b.regs[reg]
}

// Set implements core.RegisterBank
func (b *Bank) Set(reg core.Register, value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes[reg]++
	switch reg {
	case core.RegRCC_CR:
		b.writeCR(value)
	case core.RegRCC_CFGR:
		sw := (value & core.RCC_CFGR_SW_Msk) >> core.RCC_CFGR_SW_Pos
		value = (value &^ core.RCC_CFGR_SWS_Msk) | sw<<core.RCC_CFGR_SWS_Pos
		b.regs[reg] = value
	default:
		b.regs[reg] = value
	}
}

// writeCR keeps the read-only ready bits under simulator control
func (b *Bank) writeCR(value uint32) {
	const ro = core.RCC_CR_HSIRDY | core.RCC_CR_HSERDY | core.RCC_CR_PLLRDY
	old := b.regs[core.RegRCC_CR]
	next := (value &^ ro) | (old & ro)

	if next&core.RCC_CR_HSION == 0 {
		next &^= core.RCC_CR_HSIRDY
	}
	if old&core.RCC_CR_HSION == 0 && next&core.RCC_CR_HSION != 0 {
		b.hsiPolls = 0
	}
	if next&core.RCC_CR_PLLON == 0 {
		next &^= core.RCC_CR_PLLRDY
	}
	if old&core.RCC_CR_PLLON == 0 && next&core.RCC_CR_PLLON != 0 {
		b.pllPolls = 0
	}
	b.regs[core.RegRCC_CR] = next
}

func (b *Bank) pollReady() {
	cr := b.regs[core.RegRCC_CR]
	if cr&core.RCC_CR_HSION != 0 && cr&core.RCC_CR_HSIRDY == 0 {
		if b.HSIReadyAfter != Never && b.hsiPolls >= b.HSIReadyAfter {
			cr |= core.RCC_CR_HSIRDY
		}
		b.hsiPolls++
	}
	if cr&core.RCC_CR_PLLON != 0 && cr&core.RCC_CR_PLLRDY == 0 {
		if b.PLLReadyAfter != Never && b.pllPolls >= b.PLLReadyAfter {
			cr |= core.RCC_CR_PLLRDY
		}
		b.pllPolls++
	}
	b.regs[core.RegRCC_CR] = cr
}

func (b *Bank) counting() bool {
	return b.regs[core.RegDEMCR]&core.DEMCR_TRCENA != 0 &&
		b.regs[core.RegDWT_CTRL]&core.DWT_CTRL_CYCCNTENA != 0
}

// Advance moves the cycle counter forward if it is running
func (b *Bank) Advance(cycles uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counting() {
		b.regs[core.RegDWT_CYCCNT] += cycles
	}
}

// Peek reads a register without side effects
func (b *Bank) Peek(reg core.Register) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[reg]
}

// Poke writes a register directly, bypassing write counting and hardware rules
func (b *Bank) Poke(reg core.Register, value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[reg] = value
}

// Writes returns how many times reg was written through Set
func (b *Bank) Writes(reg core.Register) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[reg]
}

// TotalWrites sums the write counters of all registers
func (b *Bank) TotalWrites() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, w := range b.writes {
		n += w
	}
	return n
}

// ResetWrites zeroes all write counters
func (b *Bank) ResetWrites() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = [core.NumRegisters]int{}
}

// ResetClockTree restores the RCC registers to their reset values. The cycle
// counter keeps running.
func (b *Bank) ResetClockTree() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[core.RegRCC_CR] = ResetRCC_CR
	b.regs[core.RegRCC_PLLCFGR] = ResetRCC_PLLCFGR
	b.regs[core.RegRCC_CFGR] = ResetRCC_CFGR
	b.hsiPolls = 0
	b.pllPolls = 0
}
