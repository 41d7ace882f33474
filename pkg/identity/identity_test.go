package identity

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPasswd = `root:x:0:0:root:/root:/bin/bash
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin
malformed line without colons
short:x:42
alice:x:1000:1000:Alice:/home/alice:/bin/bash
bob:x:1001:1002:Bob:/home/bob:/bin/sh
baduid:x:notanumber:1000::/home/baduid:/bin/sh
`

func setupPasswd(t *testing.T) {
	AppFs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(AppFs, "/etc/passwd", []byte(testPasswd), 0644))
}

func TestPasswdStore_Lookup(t *testing.T) {
	setupPasswd(t)
	store := &PasswdStore{}

	tests := []struct {
		name string
		want Identity
	}{
		{"root", Identity{Name: "root", UID: 0, GID: 0, Home: "/root"}},
		{"alice", Identity{Name: "alice", UID: 1000, GID: 1000, Home: "/home/alice"}},
		{"bob", Identity{Name: "bob", UID: 1001, GID: 1002, Home: "/home/bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasswdStore_Lookup_NotFound(t *testing.T) {
	setupPasswd(t)
	store := &PasswdStore{}

	_, err := store.Lookup("nosuchuser")
	require.Error(t, err)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nosuchuser", notFound.Name)
	assert.Contains(t, err.Error(), "nosuchuser")
}

func TestPasswdStore_Lookup_SkipsMalformedLines(t *testing.T) {
	setupPasswd(t)
	store := &PasswdStore{}

	// "malformed", "short" and "baduid" are present in the file but not
	// resolvable; they must be skipped, not returned or fatal.
	for _, name := range []string{"malformed", "short", "baduid"} {
		_, err := store.Lookup(name)
		var notFound *NotFoundError
		assert.True(t, errors.As(err, &notFound), "expected NotFoundError for %q", name)
	}
}

func TestPasswdStore_Lookup_EmptyName(t *testing.T) {
	setupPasswd(t)
	store := &PasswdStore{}

	_, err := store.Lookup("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	_, err = store.Lookup("   ")
	require.Error(t, err)
}

func TestPasswdStore_Lookup_MissingFile(t *testing.T) {
	AppFs = afero.NewMemMapFs()
	store := &PasswdStore{}

	_, err := store.Lookup("alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/etc/passwd")
}

func TestPasswdStore_Lookup_CustomPath(t *testing.T) {
	AppFs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(AppFs, "/tmp/passwd", []byte("carol:x:1100:1100::/home/carol:/bin/sh\n"), 0644))

	store := &PasswdStore{Path: "/tmp/passwd"}
	got, err := store.Lookup("carol")
	require.NoError(t, err)
	assert.Equal(t, 1100, got.UID)
}
