package core

// Register identifies one memory-mapped register the clock controller touches.
// Targets map each identifier to its physical address; the simulator keeps a
// plain array indexed by it.
type Register uint8

const (
	RegRCC_CR Register = iota
	RegRCC_PLLCFGR
	RegRCC_CFGR
	RegDWT_CTRL
	RegDWT_CYCCNT
	RegDEMCR

	NumRegisters
)

// STM32F4 physical addresses, in Register order.
var RegisterAddress = [NumRegisters]uintptr{
	RegRCC_CR:      0x40023800,
	RegRCC_PLLCFGR: 0x40023804,
	RegRCC_CFGR:    0x40023808,
	RegDWT_CTRL:    0xE0001000,
	RegDWT_CYCCNT:  0xE0001004,
	RegDEMCR:       0xE000EDFC,
}

var registerNames = [NumRegisters]string{
	"RCC_CR", "RCC_PLLCFGR", "RCC_CFGR", "DWT_CTRL", "DWT_CYCCNT", "DEMCR",
}

func (r Register) String() string {
	if r < NumRegisters {
		return registerNames[r]
	}
	return "REG_" + utoa(uint32(r))
}

// RCC_CR bits
const (
	RCC_CR_HSION  = 1 << 0
	RCC_CR_HSIRDY = 1 << 1
	RCC_CR_HSEON  = 1 << 16
	RCC_CR_HSERDY = 1 << 17
	RCC_CR_PLLON  = 1 << 24
	RCC_CR_PLLRDY = 1 << 25
)

// RCC_CFGR system clock switch (SW) and switch status (SWS)
const (
	RCC_CFGR_SW_Pos  = 0
	RCC_CFGR_SW_Msk  = 0x3 << RCC_CFGR_SW_Pos
	RCC_CFGR_SWS_Pos = 2
	RCC_CFGR_SWS_Msk = 0x3 << RCC_CFGR_SWS_Pos

	ClockSourceHSI = 0
	ClockSourceHSE = 1
	ClockSourcePLL = 2
)

// RCC_PLLCFGR source select; the divider fields are described in pll.go
const (
	RCC_PLLCFGR_PLLSRC = 1 << 22
)

// Debug and trace unit
const (
	DWT_CTRL_CYCCNTENA = 1 << 0
	DEMCR_TRCENA       = 1 << 24
)

// RegisterBank is the injectable hardware context. The firmware passes an MMIO
// implementation, tests pass a simulated one.
type RegisterBank interface {
	// Get returns the current register value
	Get(reg Register) uint32

	// Set overwrites the whole register
	Set(reg Register, value uint32)
}

func setBits(bank RegisterBank, reg Register, mask uint32) {
	bank.Set(reg, bank.Get(reg)|mask)
}

func clearBits(bank RegisterBank, reg Register, mask uint32) {
	bank.Set(reg, bank.Get(reg)&^mask)
}

func hasBits(bank RegisterBank, reg Register, mask uint32) bool {
	return bank.Get(reg)&mask == mask
}

// replaceBits read-modify-writes only the masked bits of reg.
func replaceBits(bank RegisterBank, reg Register, mask, value uint32) {
	bank.Set(reg, (bank.Get(reg)&^mask)|(value&mask))
}
