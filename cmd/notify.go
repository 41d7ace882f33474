package cmd

import (
	"fmt"

	"privrun/pkg/log"
	"privrun/pkg/notify"

	"github.com/spf13/cobra"
)

var notifyUser string

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify TITLE MESSAGE",
	Short: "Send a desktop notification into a user's session",
	Long: `The notify command runs notify-send as the target user with
DBUS_SESSION_BUS_ADDRESS pointed at that user's session bus
(unix:path=/run/user/<uid>/bus), so the notification shows up in their
desktop session.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cmd.Context().Value("logger").(log.Logger)

		user := notifyUser
		if user == "" {
			user = cfg.User
		}
		if user == "" {
			return fmt.Errorf("a target user is required: pass --user or set 'user' in the config file")
		}

		n := notify.New(getRunner(logger), idStore, logger)
		sink := func(line string) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}

		res, err := n.Send(cmd.Context(), args[0], args[1], user, sink)
		if err != nil {
			return err
		}
		exitCode = res.ExitCode
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().StringVar(&notifyUser, "user", "", "User whose session receives the notification")
}
