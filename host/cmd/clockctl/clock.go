package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var speedCmd = &cobra.Command{
	Use:       "speed high|low",
	Short:     "Switch the core clock to a speed preset",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"high", "low"},
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := m.SetSpeed(ctx, args[0])
		if err != nil {
			return err
		}
		logger.Info().Str("preset", args[0]).Str("status", res.Status).Uint32("clock_hz", res.ClockHz).Msg("Speed preset applied")
		printPLLResult(cmd.OutOrStdout(), res)
		return nil
	},
}

var freqCmd = &cobra.Command{
	Use:   "freq",
	Short: "Print the core clock frequency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		hz, err := m.GetClockFreq(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatHz(hz))
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Sample the awake/asleep load since the last sample",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		r, err := m.GetLoad(ctx)
		if err != nil {
			return err
		}
		printLoad(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(speedCmd, freqCmd, loadCmd)
}
