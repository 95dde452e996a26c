package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/layer-3/jwtgate/core"
)

// UserEntry is one record of the users file. Password holds a bcrypt hash
// unless the gateway runs with plaintext compare.
type UserEntry struct {
	Password string `yaml:"password" json:"password"`
	Scope    any    `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// CredentialFile is an immutable snapshot of the users file
type CredentialFile struct {
	users map[string]core.Credential
}

// LoadCredentialFile reads a users file. JSON and YAML are both accepted.
func LoadCredentialFile(path string) (*CredentialFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read users file: %v", core.ErrConfiguration, err)
	}

	entries, err := ParseUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse users file %s: %v", core.ErrConfiguration, path, err)
	}

	return NewCredentialFile(entries), nil
}

// ParseUsers decodes a users document. A document opening with '{' is
// read as JSON, anything else as YAML.
func ParseUsers(data []byte) (map[string]UserEntry, error) {
	entries := make(map[string]UserEntry)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// NewCredentialFile builds a snapshot from decoded entries
func NewCredentialFile(entries map[string]UserEntry) *CredentialFile {
	users := make(map[string]core.Credential, len(entries))
	for name, e := range entries {
		users[name] = core.Credential{
			Username:     name,
			PasswordHash: e.Password,
			Scope:        e.Scope,
		}
	}
	return &CredentialFile{users: users}
}

// Lookup returns the credential registered for username
func (f *CredentialFile) Lookup(username string) (core.Credential, bool) {
	c, ok := f.users[username]
	return c, ok
}

// PasswordHashes returns every stored hash in username order
func (f *CredentialFile) PasswordHashes() []string {
	names := make([]string, 0, len(f.users))
	for name := range f.users {
		names = append(names, name)
	}
	sort.Strings(names)

	hashes := make([]string, 0, len(names))
	for _, name := range names {
		hashes = append(hashes, f.users[name].PasswordHash)
	}
	return hashes
}

// Len returns the number of users
func (f *CredentialFile) Len() int { return len(f.users) }
