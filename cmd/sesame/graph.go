package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <experiment>",
	Short: "Export the item tree visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the item tree, starting at the start item.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, closeExp, err := openExperiment(cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), exp.Mermaid())
		return closeExp()
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
