package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/jwtgate/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentialFileJSON(t *testing.T) {
	path := writeFile(t, "users.json", `{
  "alice": {"password": "$2a$09$hash", "scope": {"roles": ["admin"]}},
  "bob": {"password": "other", "scope": "read"}
}`)

	f, err := LoadCredentialFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	alice, ok := f.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "$2a$09$hash", alice.PasswordHash)
	assert.Equal(t, map[string]any{"roles": []any{"admin"}}, alice.Scope)

	bob, ok := f.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, "read", bob.Scope)

	_, ok = f.Lookup("nobody")
	assert.False(t, ok)

	assert.Equal(t, []string{"$2a$09$hash", "other"}, f.PasswordHashes())
}

func TestLoadCredentialFileYAML(t *testing.T) {
	path := writeFile(t, "users.yaml", `
carol:
  password: secret
  scope: [read, write]
`)

	f, err := LoadCredentialFile(path)
	require.NoError(t, err)

	carol, ok := f.Lookup("carol")
	require.True(t, ok)
	assert.Equal(t, []any{"read", "write"}, carol.Scope)
}

func TestLoadCredentialFileErrors(t *testing.T) {
	_, err := LoadCredentialFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	path := writeFile(t, "broken.json", `{"alice": [`)
	_, err = LoadCredentialFile(path)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestParseUsersJSONEscapes(t *testing.T) {
	users, err := ParseUsers([]byte(`{"alice":{"password":"$2a$09$ab\/cd","scope":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "$2a$09$ab/cd", users["alice"].Password)
	assert.Equal(t, "x", users["alice"].Scope)
}

func TestParseUsersJSONDuplicateKeys(t *testing.T) {
	users, err := ParseUsers([]byte(`
	{
		"alice": {"password": "first"},
		"alice": {"password": "second"}
	}`))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "second", users["alice"].Password)
}
