// Package identity resolves login names against the system user database.
package identity

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// AppFs is the filesystem used to read the user database.
// Tests replace it with an in-memory filesystem.
var AppFs afero.Fs = afero.NewOsFs()

const passwdPath = "/etc/passwd"

// Identity is one resolved user account record. It is looked up fresh for
// every invocation and never cached.
type Identity struct {
	Name string
	UID  int
	GID  int
	Home string
}

// Store looks up accounts by login name. Implementations return a
// *NotFoundError when the name has no account.
type Store interface {
	Lookup(name string) (Identity, error)
}

// NotFoundError reports a login name absent from the user database.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user %q not found in user database", e.Name)
}

// PasswdStore resolves identities by scanning a passwd-format file.
type PasswdStore struct {
	// Path of the database file. Empty means /etc/passwd.
	Path string
}

// Lookup scans the passwd file for the given login name.
// Malformed lines are skipped, the same way the rest of the system tooling
// treats them.
func (s *PasswdStore) Lookup(name string) (Identity, error) {
	if strings.TrimSpace(name) == "" {
		return Identity{}, fmt.Errorf("login name cannot be empty")
	}

	path := s.Path
	if path == "" {
		path = passwdPath
	}

	f, err := AppFs.Open(path)
	if err != nil {
		return Identity{}, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 7 {
			continue
		}
		if fields[0] != name {
			continue
		}

		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		gid, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}

		return Identity{
			Name: fields[0],
			UID:  uid,
			GID:  gid,
			Home: fields[5],
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return Identity{}, fmt.Errorf("error reading %s: %w", path, err)
	}

	return Identity{}, &NotFoundError{Name: name}
}
