// Package identity keeps a stable per-installation client id, used only to
// recognise alerts this installation authored.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"
)

const (
	// ClientIDKey is the storage key the id lives under
	ClientIDKey = "client_id"

	// PlaceholderClientID is returned when storage cannot be used
	PlaceholderClientID = "anonymous"

	serviceName = "alertmap"
)

var (
	// ErrNotFound means the key has never been written
	ErrNotFound = errors.New("key not found")
	// ErrStorageUnavailable means the backend cannot be opened or used
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Storage is a small persistent key/value store.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// GetOrCreateClientID returns the persisted id, generating and storing one on
// first use. Storage failures degrade to PlaceholderClientID.
func GetOrCreateClientID(storage Storage) string {
	return getOrCreate(storage, time.Now, rand.Read)
}

func getOrCreate(storage Storage, now func() time.Time, random func([]byte) (int, error)) string {
	if storage == nil {
		return PlaceholderClientID
	}

	id, err := storage.Get(ClientIDKey)
	switch {
	case err == nil && id != "":
		return id
	case err != nil && !errors.Is(err, ErrNotFound):
		logrus.WithError(err).Warn("Client id storage unavailable, using placeholder")
		return PlaceholderClientID
	}

	id, err = newClientID(now(), random)
	if err != nil {
		logrus.WithError(err).Warn("Failed to generate client id")
		return PlaceholderClientID
	}

	if err := storage.Set(ClientIDKey, id); err != nil {
		logrus.WithError(err).Warn("Failed to persist client id, using placeholder")
		return PlaceholderClientID
	}
	return id
}

// newClientID builds "<base36 unix millis>-<8 hex chars>"
func newClientID(now time.Time, random func([]byte) (int, error)) (string, error) {
	buf := make([]byte, 4)
	if _, err := random(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + hex.EncodeToString(buf), nil
}

// KeyringStorage keeps values in the OS keyring, falling back to an
// encrypted file when no native backend exists.
type KeyringStorage struct {
	ring keyring.Keyring
}

// OpenKeyring opens the keyring; fileDir is used by the file backend.
func OpenKeyring(fileDir string) (*KeyringStorage, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening keyring: %v", ErrStorageUnavailable, err)
	}
	return &KeyringStorage{ring: ring}, nil
}

// NewKeyringStorage wraps an already opened keyring.
func NewKeyringStorage(ring keyring.Keyring) *KeyringStorage {
	return &KeyringStorage{ring: ring}
}

func (s *KeyringStorage) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: getting %q: %v", ErrStorageUnavailable, key, err)
	}
	return string(item.Data), nil
}

func (s *KeyringStorage) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("%w: setting %q: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}
