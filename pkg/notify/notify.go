// Package notify delivers desktop notifications into another user's session
// bus by running notify-send as that user.
package notify

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"

	"privrun/pkg/identity"
	"privrun/pkg/log"
	"privrun/pkg/runner"
)

// BusAddressEnv is the variable the notification daemon reads to find the
// session bus.
const BusAddressEnv = "DBUS_SESSION_BUS_ADDRESS"

// Notifier composes notify-send invocations and delegates them to a
// CommandRunner, impersonating the target user.
type Notifier struct {
	Runner runner.CommandRunner
	Store  identity.Store
	Logger log.Logger
}

func New(r runner.CommandRunner, store identity.Store, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Notifier{Runner: r, Store: store, Logger: logger}
}

// Send runs `notify-send <title> <message>` as userName with the session bus
// address derived from that user's uid. The bus address follows the
// well-known per-user pattern unix:path=/run/user/<uid>/bus.
func (n *Notifier) Send(ctx context.Context, title, message, userName string, sink runner.Sink) (*runner.Result, error) {
	id, err := n.Store.Lookup(userName)
	if err != nil {
		return nil, err
	}

	busPath := fmt.Sprintf("/run/user/%d/bus", id.UID)
	n.probeBus(busPath)

	command := "notify-send " + shellquote.Join(title, message)
	overrides := map[string]string{
		BusAddressEnv: "unix:path=" + busPath,
	}
	return n.Runner.Run(ctx, command, userName, overrides, sink)
}

// probeBus warns when the session bus socket is missing or not a socket.
// The send is still attempted: the daemon may listen on an abstract address.
func (n *Notifier) probeBus(path string) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		n.Logger.Warn("session bus socket not found", "path", path, "error", err)
		return
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		n.Logger.Warn("session bus path is not a socket", "path", path)
	}
}
