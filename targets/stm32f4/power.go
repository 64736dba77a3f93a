//go:build stm32f4

package main

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// System control and power registers used by stop mode
const (
	scbSCR     = 0xE000ED10
	pwrCR      = 0x40007000
	rccAPB1ENR = 0x40023840

	scbSCRSleepDeep = 1 << 2
	pwrCRLPDS       = 1 << 0
	pwrCRPDDS       = 1 << 1
	rccAPB1ENRPWREN = 1 << 28
)

var (
	scr     = (*volatile.Register32)(unsafe.Pointer(uintptr(scbSCR)))
	pwrCtl  = (*volatile.Register32)(unsafe.Pointer(uintptr(pwrCR)))
	apb1ENR = (*volatile.Register32)(unsafe.Pointer(uintptr(rccAPB1ENR)))
)

// cortexPower implements core.PowerDriver with wfi
type cortexPower struct{}

func newCortexPower() *cortexPower {
	apb1ENR.SetBits(rccAPB1ENRPWREN)
	return &cortexPower{}
}

// WaitForInterrupt sleeps until the UART receive interrupt or the runtime
// tick timer fires.
func (cortexPower) WaitForInterrupt() {
	scr.ClearBits(scbSCRSleepDeep)
	arm.Asm("wfi")
}

// EnterStop halts the core clocks with the regulator in low power. The PLL
// is off on wakeup and the core runs from HSI until it is reprogrammed.
func (cortexPower) EnterStop() {
	pwrCtl.ClearBits(pwrCRPDDS)
	pwrCtl.SetBits(pwrCRLPDS)
	scr.SetBits(scbSCRSleepDeep)
	arm.Asm("wfi")
	scr.ClearBits(scbSCRSleepDeep)
}
