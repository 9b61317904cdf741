// Package session persists the signed-in account between runs and fans out auth-state changes.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"todo/internal/service"
)

// Data is the persisted credential cache for one signed-in account.
type Data struct {
	// Backend names the backend that issued the tokens ("firebase" or "local").
	Backend string `json:"backend"`

	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Account returns the identity carried by the session.
func (d *Data) Account() *service.Account {
	if d == nil {
		return nil
	}
	return &service.Account{ID: d.UserID, Email: d.Email}
}

// Load reads a session file. A missing file is not an error: it returns nil, nil.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	if d.UserID == "" || d.IDToken == "" {
		return nil, fmt.Errorf("invalid session file: missing user or token")
	}
	return &d, nil
}

// Save writes a session file with mode 0600, creating the directory (0700) if needed.
func Save(path string, d *Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0600)
}

// Remove deletes a session file. Removing a missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
