package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"sysspeed/host/mcu"
	"sysspeed/sim"
)

// dictionaryTimeout scales the command timeout for the identify exchange,
// which takes one round trip per chunk.
const dictionaryTimeout = 10

// connect opens the configured link and loads the dictionary. The returned
// function closes everything.
func connect(cmd *cobra.Command) (*mcu.MCU, func(), error) {
	var (
		m       *mcu.MCU
		cleanup = func() {}
	)

	if cfg.Serial.Simulate {
		fw := sim.NewFirmware("stm32f4-sim")
		hostEnd, fwEnd := net.Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		served := make(chan error, 1)
		go func() { served <- fw.Serve(ctx, fwEnd) }()

		m = mcu.New(hostEnd, logger)
		cleanup = func() {
			m.Close()
			fwEnd.Close()
			cancel()
			if err := <-served; err != nil && err != context.Canceled {
				logger.Warn().Err(err).Msg("Simulated controller stopped")
			}
			// The timer list is process-wide
			fw.Controller.ConfigureLoadReport(0)
		}
		logger.Info().Msg("Using simulated controller")
	} else {
		var err error
		m, err = mcu.Open(cfg.Serial.Port(), logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { m.Close() }
		logger.Debug().Str("device", cfg.Serial.Device).Int("baud", cfg.Serial.Baud).Msg("Serial port open")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), dictionaryTimeout*cfg.Serial.CommandTimeout)
	defer cancel()
	if err := m.RetrieveDictionary(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to retrieve dictionary: %w", err)
	}
	return m, cleanup, nil
}
