package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sysspeed/core"
	"sysspeed/host/mcu"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive command loop against the controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		dict, err := m.Dictionary()
		if err != nil {
			return err
		}
		printDictionary(cmd, dict, len(m.RawDictionary()))

		m.OnResponse("shutdown", func(r *mcu.Response) {
			red.Fprintf(out, "MCU shutdown at clock %d\n", r.Get("clock"))
		})

		fmt.Fprintln(out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" || fields[0] == "q" {
				return nil
			}
			if err := runConsoleLine(cmd, m, fields); err != nil {
				red.Fprintf(out, "Error: %v\n", err)
			}
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func printConsoleHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  help                   - Show this help message")
	fmt.Fprintln(w, "  dict                   - Print dictionary summary")
	fmt.Fprintln(w, "  raw                    - Print raw dictionary size and header")
	fmt.Fprintln(w, "  get_uptime             - Get MCU uptime in cycles")
	fmt.Fprintln(w, "  get_clock              - Get the 32-bit cycle counter")
	fmt.Fprintln(w, "  get_config             - Get MCU configuration state")
	fmt.Fprintln(w, "  get_pll                - Print the PLL fields")
	fmt.Fprintln(w, "  set_pll M N P Q R      - Reprogram the PLL, 0 keeps a field")
	fmt.Fprintln(w, "  speed high|low         - Apply a speed preset")
	fmt.Fprintln(w, "  freq                   - Print the core clock")
	fmt.Fprintln(w, "  load                   - Sample the load")
	fmt.Fprintln(w, "  stop                   - Emergency stop")
	fmt.Fprintln(w, "  reset                  - Reset the controller")
	fmt.Fprintln(w, "  quit/exit/q            - Exit the console")
	fmt.Fprintln(w)
}

func runConsoleLine(cmd *cobra.Command, m *mcu.MCU, fields []string) error {
	out := cmd.OutOrStdout()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	switch fields[0] {
	case "help", "?":
		printConsoleHelp(out)

	case "dict":
		dict, err := m.Dictionary()
		if err != nil {
			return err
		}
		printDictionary(cmd, dict, len(m.RawDictionary()))

	case "raw":
		raw := m.RawDictionary()
		fmt.Fprintf(out, "Raw dictionary data (%d bytes), header % x\n", len(raw), raw[:min(len(raw), 2)])

	case "get_uptime":
		up, err := m.Uptime(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "uptime %d cycles\n", up)

	case "get_clock":
		r, err := m.Query(ctx, "clock", "get_clock")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "clock %d\n", r.Get("clock"))

	case "get_config":
		r, err := m.Query(ctx, "config", "get_config")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "is_config=%d crc=%#x is_shutdown=%d move_count=%d\n",
			r.Get("is_config"), r.Get("crc"), r.Get("is_shutdown"), r.Get("move_count"))

	case "get_pll":
		pll, err := m.GetPLL(ctx)
		if err != nil {
			return err
		}
		printPLL(out, pll)

	case "set_pll":
		if len(fields) != 6 {
			return fmt.Errorf("usage: set_pll M N P Q R")
		}
		var v [5]uint32
		for i, s := range fields[1:] {
			n, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return fmt.Errorf("bad value %q: %w", s, err)
			}
			v[i] = uint32(n)
		}
		res, err := m.SetPLL(ctx, core.PLLConfig{M: v[0], N: v[1], P: v[2], Q: v[3], R: v[4]})
		if err != nil {
			return err
		}
		printPLLResult(out, res)

	case "speed":
		if len(fields) != 2 {
			return fmt.Errorf("usage: speed high|low")
		}
		res, err := m.SetSpeed(ctx, fields[1])
		if err != nil {
			return err
		}
		printPLLResult(out, res)

	case "freq":
		hz, err := m.GetClockFreq(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatHz(hz))

	case "load":
		r, err := m.GetLoad(ctx)
		if err != nil {
			return err
		}
		printLoad(out, r)

	case "stop":
		return m.EmergencyStop(ctx)

	case "reset":
		if err := m.Reset(ctx); err != nil {
			return err
		}
		green.Fprintln(out, "Controller reset")

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help' for available commands)\n", fields[0])
	}
	return nil
}
