package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "notifyagent"

// Placeholder is the CLI value that means "read this secret from the
// system keyring".
const Placeholder = "-"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/notifyagent/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("notifyagent-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Getter looks up a secret by key.
type Getter func(key string) (string, error)

// Store reads and writes secrets by key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Keyring is the Store backed by the system keyring.
type Keyring struct{}

func (Keyring) Get(key string) (string, error) { return Get(key) }

func (Keyring) Set(key, value string) error { return Set(key, value) }

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// KeyFor maps a secret kind ("apikey" or "password") to username's
// keyring entry.
func KeyFor(username, kind string) (string, error) {
	switch kind {
	case "apikey":
		return APIKeyKey(username), nil
	case "password":
		return PasswordKey(username), nil
	}
	return "", fmt.Errorf("unknown secret kind %q, supported kinds: apikey, password", kind)
}

// APIKeyKey is the keyring entry holding username's API key.
func APIKeyKey(username string) string { return username + "-apikey" }

// PasswordKey is the keyring entry holding username's password.
func PasswordKey(username string) string { return username + "-password" }

// Resolve returns value unchanged unless it is Placeholder, in which case
// the secret stored under key is fetched with get.
func Resolve(value, key string, get Getter) (string, error) {
	if value != Placeholder {
		return value, nil
	}
	secret, err := get(key)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("credential %q is empty", key)
	}
	return secret, nil
}
