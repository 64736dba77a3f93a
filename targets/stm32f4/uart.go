//go:build stm32f4

package main

import (
	"machine"

	"sysspeed/core"
)

const baudRate = 250000

// consecutive write failures before buffered state is dropped
const maxWriteFailures = 10

var (
	uart          = machine.Serial
	writeFailures uint32
)

func initUART() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: baudRate})
	core.RegisterConstant("SERIAL_BAUD", uint32(baudRate))
}

// readUART moves received bytes into the input FIFO and reports whether
// anything arrived.
func readUART() bool {
	got := false
	for uart.Buffered() > 0 && inputBuffer.Free() > 0 {
		b, err := uart.ReadByte()
		if err != nil {
			msgErrors++
			break
		}
		inputBuffer.Write([]byte{b})
		got = true
	}
	return got
}

// writeUART drains the output buffer
func writeUART() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	if _, err := uart.Write(result); err != nil {
		writeFailures++
		if writeFailures > maxWriteFailures {
			writeFailures = 0
			outputBuffer.Reset()
			inputBuffer.Reset()
		}
		return
	}
	writeFailures = 0
	outputBuffer.Reset()
}
