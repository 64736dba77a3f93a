package main

import (
	"io"
	"strconv"

	"github.com/fatih/color"

	"sysspeed/core"
	"sysspeed/host/mcu"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
)

func printPLL(w io.Writer, cfg core.PLLConfig) {
	cyan.Fprintln(w, "PLL configuration")
	for _, f := range []struct {
		name  string
		value uint32
	}{{"M", cfg.M}, {"N", cfg.N}, {"P", cfg.P}, {"Q", cfg.Q}, {"R", cfg.R}} {
		green.Fprintf(w, "  %s ", f.name)
		color.New(color.Reset).Fprintf(w, "%d\n", f.value)
	}
}

func printPLLResult(w io.Writer, res mcu.PLLResult) {
	status := green
	if res.Degraded() {
		status = yellow
	}
	cyan.Fprint(w, "Result: ")
	status.Fprintln(w, res.Status)
	cyan.Fprint(w, "Clock:  ")
	color.New(color.Reset).Fprintln(w, formatHz(res.ClockHz))
	if res.Degraded() {
		yellow.Fprintln(w, "warning: clock ready wait timed out, the switch went ahead anyway")
	}
}

func printLoad(w io.Writer, r mcu.LoadReport) {
	if !r.Valid {
		yellow.Fprintln(w, "load: no samples since the last read")
		return
	}
	c := green
	switch {
	case r.Percent >= 90:
		c = red
	case r.Percent >= 60:
		c = yellow
	}
	cyan.Fprint(w, "load: ")
	c.Fprintf(w, "%6.2f%%", r.Percent)
	color.New(color.Reset).Fprintf(w, "  awake %d  asleep %d cycles\n", r.AwakeCycles, r.AsleepCycles)
}

// formatHz renders a frequency in MHz with the raw value
func formatHz(hz uint32) string {
	return color.New(color.Bold).Sprintf("%.3f MHz", float64(hz)/1e6) + " (" + strconv.FormatUint(uint64(hz), 10) + " Hz)"
}
