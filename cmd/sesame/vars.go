package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sesame/internal/presentation/tui"
	"github.com/aretw0/sesame/pkg/adapters/terminal"
)

var varsCmd = &cobra.Command{
	Use:   "vars <experiment>",
	Short: "List the experiment variables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, closeExp, err := openExperiment(cmd, args)
		if err != nil {
			return err
		}
		filter, _ := cmd.Flags().GetString("filter")
		printMarkdown(cmd, tui.VarTable(exp.VarList(filter)))
		return closeExp()
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items <experiment>",
	Short: "List the items and their types",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, closeExp, err := openExperiment(cmd, args)
		if err != nil {
			return err
		}
		printMarkdown(cmd, tui.ItemTable(exp.ItemTypes()))
		return closeExp()
	},
}

func init() {
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(itemsCmd)
	varsCmd.Flags().String("filter", "", "Only list variables whose name, value or owner contains this text")
}

// printMarkdown renders md for terminals and prints it raw otherwise.
func printMarkdown(cmd *cobra.Command, md string) {
	out := cmd.OutOrStdout()
	if terminal.IsTerminal(out) {
		style := ""
		if cfg, err := loadConfig(cmd); err == nil {
			style = cfg.Style
		}
		md, _ = tui.NewRenderer(style)(md)
	}
	fmt.Fprint(out, md)
}
