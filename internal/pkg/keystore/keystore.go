/*
Package keystore persists the bearer token of the signed-in user between runs.

The OS keyring is preferred; when it is unavailable (headless Linux without a
secret service, containers) the token is written to a 0600 file under the user's
config directory instead.
*/
package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/zalando/go-keyring"

	"hzchat-client/internal/pkg/logx"
)

const (
	// ServiceName is the keyring service entry.
	ServiceName = "hzchat-client"

	// TokenKey is the keyring user entry holding the bearer token.
	TokenKey = "bearer-token"

	// DefaultDir is the file fallback location.
	DefaultDir = "~/.config/hzchat-client"

	tokenFileName = "token"
)

// ErrNoToken is returned by Load when nothing has been saved.
var ErrNoToken = errors.New("no saved token")

// Store saves, loads and erases the bearer token.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Erase() error
}

// Open returns the keyring store when the keyring answers, otherwise a FileStore rooted at dir.
func Open(dir string) Store {
	if _, err := keyring.Get(ServiceName, TokenKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logx.Warn("OS keyring unavailable, falling back to file token store", "error", err.Error(), "dir", dir)
		return FileStore{Dir: dir}
	}

	return KeyringStore{}
}

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct{}

func (KeyringStore) Load() (string, error) {
	token, err := keyring.Get(ServiceName, TokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("couldn't load token from keyring: %w", err)
	}
	return token, nil
}

func (KeyringStore) Save(token string) error {
	return keyring.Set(ServiceName, TokenKey, token)
}

func (KeyringStore) Erase() error {
	err := keyring.Delete(ServiceName, TokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStore keeps the token in Dir/token. Dir may start with "~".
type FileStore struct {
	Dir string
}

func (f FileStore) path() (string, error) {
	dir := f.Dir
	if dir == "" {
		dir = DefaultDir
	}

	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(expanded, tokenFileName), nil
}

func (f FileStore) Load() (string, error) {
	file, err := f.path()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from file (%s): %w", file, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f FileStore) Save(token string) error {
	file, err := f.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(token), 0o600)
}

func (f FileStore) Erase() error {
	file, err := f.path()
	if err != nil {
		return err
	}

	err = os.Remove(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
