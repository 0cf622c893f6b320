package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <experiment>",
	Short: "Check the item tree for consistency",
	Long:  `Checks that the start item exists and that every referenced child is defined and free of cycles. Items that are never run are reported.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		exp, closeExp, err := openExperiment(cmd, args)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeExp(); err == nil {
				err = cerr
			}
		}()

		if err := exp.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, name := range exp.Unused() {
			fmt.Fprintf(out, "Unused item: %s\n", name)
		}
		fmt.Fprintln(out, "Experiment is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
