package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sesame"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sesame",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sesame version %s (%s)\n", strings.TrimSpace(sesame.Version), sesame.Codename)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
