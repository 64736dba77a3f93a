package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sysspeed/host/mcu"
	"sysspeed/host/metrics"
	"sysspeed/host/systemd"
)

var monitorCount int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Sample the load continuously and export it as Prometheus metrics",
	Long: `monitor keeps the link open and records every load sample. With
monitor.firmware_reports the firmware pushes load_report on its own timer;
otherwise get_load is polled every monitor.interval. Under systemd the
metrics socket may be passed in with socket activation.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().IntVarP(&monitorCount, "count", "n", 0, "Stop after this many samples (0 runs until interrupted)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, cleanup, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	listeners, err := systemd.GetListeners()
	if err != nil {
		return err
	}
	var server *metrics.Server
	if cfg.Metrics.Listen != "" || listeners.Metrics != nil {
		server = metrics.NewServer(cfg.Metrics.Listen, logger)
		if listeners.Metrics != nil {
			server.SetListener(listeners.Metrics)
		}
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer server.Stop()
	}

	if err := observeClockTree(ctx, m); err != nil {
		return err
	}
	m.OnClockChange(func(hz uint32) {
		logger.Info().Uint32("clock_hz", hz).Msg("Core clock changed")
		metrics.ObserveClock(hz)
	})

	samples := make(chan mcu.LoadReport, 16)
	if cfg.Monitor.FirmwareReports {
		m.OnLoadReport(func(r mcu.LoadReport) {
			select {
			case samples <- r:
			default:
				logger.Warn().Msg("Dropped load report")
			}
		})
		qctx, cancel := commandContext(cmd)
		err := m.ConfigureLoadReport(qctx, cfg.Monitor.Interval)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), cfg.Serial.CommandTimeout)
			defer cancel()
			if err := m.ConfigureLoadReport(dctx, 0); err != nil {
				logger.Debug().Err(err).Msg("Could not disarm load reports")
			}
		}()
	} else {
		go pollLoad(ctx, m, samples)
	}

	watchdog, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid systemd watchdog setting")
	}
	var watchdogC <-chan time.Time
	if watchdog > 0 {
		t := time.NewTicker(watchdog)
		defer t.Stop()
		watchdogC = t.C
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}
	defer systemd.NotifyStopping()

	logger.Info().
		Dur("interval", cfg.Monitor.Interval).
		Bool("firmware_reports", cfg.Monitor.FirmwareReports).
		Msg("Monitoring load")

	seen := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Monitor stopping")
			return nil
		case <-m.Done():
			metrics.LinkErrors.Inc()
			return fmt.Errorf("controller link closed")
		case <-watchdogC:
			systemd.NotifyWatchdog()
		case r := <-samples:
			metrics.ObserveLoad(r)
			metrics.ObserveShutdown(m.IsShutdown())
			printLoad(cmd.OutOrStdout(), r)
			if r.Valid {
				systemd.NotifyStatus(fmt.Sprintf("load %.2f%%", r.Percent))
			}
			seen++
			if monitorCount > 0 && seen >= monitorCount {
				return nil
			}
		}
	}
}

// observeClockTree seeds the clock gauges before the first sample
func observeClockTree(ctx context.Context, m *mcu.MCU) error {
	qctx, cancel := context.WithTimeout(ctx, cfg.Serial.CommandTimeout)
	defer cancel()
	pll, err := m.GetPLL(qctx)
	if err != nil {
		return err
	}
	metrics.ObservePLL(pll)
	hz, err := m.GetClockFreq(qctx)
	if err != nil {
		return err
	}
	metrics.ObserveClock(hz)
	logger.Info().Uint32("clock_hz", hz).Uint32("pll_n", pll.N).Msg("Clock tree")
	return nil
}

// pollLoad queries get_load every monitor.interval until ctx ends
func pollLoad(ctx context.Context, m *mcu.MCU, out chan<- mcu.LoadReport) {
	ticker := time.NewTicker(cfg.Monitor.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		qctx, cancel := context.WithTimeout(ctx, cfg.Serial.CommandTimeout)
		r, err := m.GetLoad(qctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.LinkErrors.Inc()
			metrics.ObserveShutdown(m.IsShutdown())
			logger.Warn().Err(err).Msg("Load query failed")
			continue
		}
		select {
		case out <- r:
		case <-ctx.Done():
			return
		}
	}
}
