package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sesame"
	"github.com/aretw0/sesame/internal/cli"
	"github.com/aretw0/sesame/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "sesame",
	Short:         "Sesame runs OpenSesame experiments",
	Long:          `Sesame loads experiment definitions (.opensesame files or .opensesame.tar.gz archives), runs them in the terminal and converts between formats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "Configuration file")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a configuration key (key=value)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Version = sesame.Version
}

// loadConfig reads the configuration file and applies --set and
// --log-level on top of it.
func loadConfig(cmd *cobra.Command) (config.Run, error) {
	path, _ := cmd.Flags().GetString("config")
	sets, _ := cmd.Flags().GetStringArray("set")
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		sets = append(sets, "log_level="+level)
	}
	return config.Load(path, sets)
}

// openExperiment loads the experiment named by args for the read-only
// commands. The caller closes the experiment and then the log.
func openExperiment(cmd *cobra.Command, args []string) (*sesame.Experiment, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, closeLog, err := cli.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	exp, err := cli.Open(args[0], cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	logger.Debug("Experiment opened", slog.String("path", args[0]))
	return exp, func() error {
		err := exp.Close()
		closeLog()
		return err
	}, nil
}
