package main

import (
	"github.com/spf13/cobra"

	"sysspeed/core"
)

var pllCmd = &cobra.Command{
	Use:   "pll",
	Short: "Read or reprogram the main PLL",
}

var pllGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the PLL configuration register fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		pll, err := m.GetPLL(ctx)
		if err != nil {
			return err
		}
		printPLL(cmd.OutOrStdout(), pll)
		return nil
	},
}

var pllSet core.PLLConfig

var pllSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Reprogram the PLL; omitted fields keep their current value",
	Example: `  clockctl pll set --m 8 --n 336 --p 2 --q 7
  clockctl pll set --n 180`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pllSet.Equal(core.PLLConfig{}) {
			return cmd.Usage()
		}
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := m.SetPLL(ctx, pllSet)
		if err != nil {
			return err
		}
		logger.Info().Str("status", res.Status).Uint32("clock_hz", res.ClockHz).Msg("PLL reprogrammed")
		printPLLResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := pllSetCmd.Flags()
	f.Uint32Var(&pllSet.M, "m", 0, "input divider (2-63)")
	f.Uint32Var(&pllSet.N, "n", 0, "VCO multiplier (50-432)")
	f.Uint32Var(&pllSet.P, "p", 0, "system clock divider (2, 4, 6 or 8)")
	f.Uint32Var(&pllSet.Q, "q", 0, "48MHz domain divider (2-15)")
	f.Uint32Var(&pllSet.R, "r", 0, "I2S/DSI divider (2-7)")

	pllCmd.AddCommand(pllGetCmd, pllSetCmd)
	rootCmd.AddCommand(pllCmd)
}
