package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"privrun/pkg/config"
	"privrun/pkg/identity"
	"privrun/pkg/log"
	"privrun/pkg/runner"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logger    log.Logger
	cfg       *config.Config
	exitCode  int
	idStore   identity.Store       = &identity.PasswdStore{}
	cmdRunner runner.CommandRunner // nil means a live runner is built per invocation

	rootCmd = &cobra.Command{
		Use:   "privrun",
		Short: "privrun runs commands and desktop notifications as another user",
		Long: `privrun demotes the calling process to an unprivileged user's identity,
runs a shell command under that identity with a reconstructed environment,
and streams its combined output line by line. The notify subcommand delivers
a desktop notification into that user's session bus.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			writer := cmd.ErrOrStderr()
			logger = log.NewSlogLogger(level, writer)

			cfg, err = config.Load(cfgFile, logger)
			if err != nil {
				return err
			}
			// The config level applies only when the flag was left at
			// its default.
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
				level, err = log.ParseLevel(cfg.LogLevel)
				if err != nil {
					return err
				}
				logger = log.NewSlogLogger(level, writer)
			}

			ctx := context.WithValue(cmd.Context(), "logger", logger)
			cmd.SetContext(ctx)
			return nil
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT cancels the command context, which kills any in-flight child process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// getRunner returns the injected runner (tests) or a live one.
func getRunner(logger log.Logger) runner.CommandRunner {
	if cmdRunner != nil {
		return cmdRunner
	}
	return runner.New(idStore, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./privrun.yaml", "config file (default is ./privrun.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
