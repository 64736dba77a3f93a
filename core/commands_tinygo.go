//go:build tinygo

package core

import (
	"unsafe"

	"sysspeed/protocol"
)

func registerPlatformCommands() {
	RegisterCommand("debug_read", "order=%c addr=%u", handleDebugRead)
	RegisterResponse("debug_result", "val=%u")
}

// handleDebugRead reads a 16-bit (order 1) or 32-bit (order 2) value from addr
func handleDebugRead(data *[]byte) error {
	order, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	addr, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var val uint32
	switch order {
	case 1:
		val = uint32(*(*uint16)(unsafe.Pointer(uintptr(addr))))
	case 2:
		val = *(*uint32)(unsafe.Pointer(uintptr(addr)))
	}

	SendResponse("debug_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, val)
	})
	return nil
}
