package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <experiment> <destination>",
	Short: "Convert an experiment to a script file or archive",
	Long: `Saves the experiment to destination. A destination ending in .opensesame
gets a plain script; anything else becomes a .opensesame.tar.gz archive
bundling the file pool.`,
	Args: cobra.ExactArgs(2),
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

		force, _ := cmd.Flags().GetBool("force")
		path, err := exp.Save(args[1], force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().BoolP("force", "f", false, "Overwrite an existing destination")
}
