package cmd

import (
	"fmt"
	"strings"

	"privrun/pkg/log"

	"github.com/spf13/cobra"
)

var (
	runUser string
	runEnv  []string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] COMMAND",
	Short: "Run a shell command, optionally demoted to another user",
	Long: `The run command tokenizes COMMAND with shell-word-splitting rules
(quoted substrings stay single arguments; no interactive shell is involved),
runs it with a reconstructed environment, and tees its combined output.
When --user names a different user, the child process is demoted to that
user's identity before it executes, and HOME, LOGNAME and USER are set from
the resolved account. privrun exits with the command's exit status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cmd.Context().Value("logger").(log.Logger)

		overrides, err := collectOverrides(runEnv)
		if err != nil {
			return err
		}

		user := runUser
		if user == "" {
			user = cfg.User
		}

		r := getRunner(logger)
		sink := func(line string) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}

		res, err := r.Run(cmd.Context(), args[0], user, overrides, sink)
		if err != nil {
			return err
		}

		exitCode = res.ExitCode
		if cmd.Context().Err() != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Exiting...")
			if exitCode == 0 {
				exitCode = 130
			}
		}
		return nil
	},
}

// collectOverrides merges the config's standing env entries with the --env
// flags. Flags win.
func collectOverrides(flagEnv []string) (map[string]string, error) {
	overrides := make(map[string]string, len(cfg.Env)+len(flagEnv))
	for k, v := range cfg.Env {
		overrides[k] = v
	}
	for _, kv := range flagEnv {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", kv)
		}
		overrides[key] = value
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	return overrides, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runUser, "user", "", "User to run the command as (default: no privilege change)")
	runCmd.Flags().StringArrayVar(&runEnv, "env", nil, "Extra environment variable as KEY=VALUE (repeatable)")
}
