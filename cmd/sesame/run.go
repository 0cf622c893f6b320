package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sesame/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <experiment>",
	Short: "Run an experiment in the terminal",
	Long: `Loads an experiment file or archive and runs it. Responses are read
from standard input one line at a time, or generated with --auto. With
--json, output and input are JSON lines for driving runs from another
program.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("logfile") {
			cfg.Logfile, _ = flags.GetString("logfile")
		}
		if flags.Changed("subject") {
			cfg.SubjectNr, _ = flags.GetInt("subject")
		}
		if flags.Changed("auto") {
			cfg.AutoResponse, _ = flags.GetBool("auto")
		}
		if flags.Changed("json") {
			cfg.JSON, _ = flags.GetBool("json")
		}
		if flags.Changed("inspect") {
			cfg.InspectAddr, _ = flags.GetString("inspect")
		}
		quiet, _ := flags.GetBool("quiet")

		return cli.RunSession(cli.RunOptions{
			Path:   args[0],
			Config: cfg,
			IO: cli.IO{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
				Err: cmd.ErrOrStderr(),
			},
			Quiet: quiet,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("logfile", "l", "", "Data log file; relative paths are placed next to the experiment")
	runCmd.Flags().IntP("subject", "s", 0, "Subject number")
	runCmd.Flags().Bool("auto", false, "Respond automatically instead of reading standard input")
	runCmd.Flags().Bool("json", false, "Exchange canvases, sounds and responses as JSON lines")
	runCmd.Flags().String("inspect", "", "Serve the inspector API on this address (e.g. localhost:8080)")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
}
