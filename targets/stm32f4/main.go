//go:build stm32f4

// Command stm32f4 is the clock controller firmware for STM32F4 boards. It
// runs the PLL manager and load accounting on the real RCC and DWT registers
// and speaks the serial protocol over the board's default UART.
package main

import (
	"device/arm"

	"sysspeed/core"
	"sysspeed/protocol"
)

// Board settings
const (
	hseFrequency = 8000000 // Nucleo ST-LINK MCO
	readyPolls   = 100000
	// load_report period at boot in cycles, 0 leaves reports off
	bootReportInterval = 0
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	controller *core.ClockController

	msgErrors uint32
)

func main() {
	initUART()

	bank := newMMIOBank()
	controller = core.NewClockController(bank, newCortexPower(), core.PLLManagerConfig{
		HSEFrequency: hseFrequency,
		Ready:        core.RetryPolicy{MaxPolls: readyPolls},
	})

	core.InitCoreCommands()
	core.InitClockCommands(controller, "stm32f4")
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	// The host expects the ACK before any response
	transport.SetFlushCallback(writeUART)
	core.SetGlobalTransport(transport)

	core.SetResetHandler(arm.SystemReset)
	controller.ConfigureLoadReport(bootReportInterval)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgErrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			controller.Counter.Uptime()
			core.SetTime(controller.Counter.Now())

			received := readUART()
			if received {
				transport.Receive(inputBuffer)
			}
			writeUART()

			// After the ACK has gone out
			core.CheckPendingReset()

			core.ProcessTimers()
			controller.Task()
			writeUART()

			// A partial frame waits for the next receive interrupt
			if !received && !controller.Pending() {
				controller.Load.EnterSleep()
			}
		}()
	}
}
