package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"sysspeed/host/mcu"
)

var dictJSON bool

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Print the firmware data dictionary",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		dict, err := m.Dictionary()
		if err != nil {
			return err
		}
		if dictJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dict)
		}
		printDictionary(cmd, dict, len(m.RawDictionary()))
		return nil
	},
}

func init() {
	dictCmd.Flags().BoolVar(&dictJSON, "json", false, "Print the decoded dictionary as JSON")
	rootCmd.AddCommand(dictCmd)
}

func printDictionary(cmd *cobra.Command, dict *mcu.Dictionary, size int) {
	w := cmd.OutOrStdout()
	cyan.Fprintf(w, "Dictionary %s", dict.Version)
	fmt.Fprintf(w, " (%d bytes)\n", size)

	green.Fprintln(w, "Commands:")
	for _, f := range dict.CommandFormats() {
		fmt.Fprintf(w, "  %3d  %s\n", f.ID, f.Signature())
	}
	green.Fprintln(w, "Responses:")
	for _, f := range dict.ResponseFormats() {
		fmt.Fprintf(w, "  %3d  %s\n", f.ID, f.Signature())
	}

	green.Fprintln(w, "Config:")
	keys := make([]string, 0, len(dict.Config))
	for k := range dict.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, dict.Config[k])
	}
}
