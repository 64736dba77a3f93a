//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"

	"sysspeed/core"
)

// mmioBank maps core registers onto their STM32F4 addresses
type mmioBank struct {
	regs [core.NumRegisters]*volatile.Register32
}

func newMMIOBank() *mmioBank {
	b := &mmioBank{}
	for i, addr := range core.RegisterAddress {
		b.regs[i] = (*volatile.Register32)(unsafe.Pointer(addr))
	}
	return b
}

// Get implements core.RegisterBank
func (b *mmioBank) Get(reg core.Register) uint32 {
	return b.regs[reg].Get()
}

// Set implements core.RegisterBank
func (b *mmioBank) Set(reg core.Register, value uint32) {
	b.regs[reg].Set(value)
}
