package google

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the single OAuth token record kept by the gateway.
//
// The JSON keys match the authorized-user files written by Google's Python
// client libraries, so an existing token file keeps working.
type Credential struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Expired reports whether the access token is unusable at now, treating
// tokens that lapse within delta as already expired. A zero Expiry never
// expires.
func (c *Credential) Expired(now time.Time, delta time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(delta).Before(c.Expiry)
}

// Refreshable reports whether a refresh token is available.
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != ""
}

// Token converts the record into an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    tokenType,
		Expiry:       c.Expiry,
	}
}

// credentialFromToken builds a record from a token endpoint response.
// Google reports the granted scopes in the "scope" field; fallback is used
// when it is missing.
func credentialFromToken(tok *oauth2.Token, fallback []string) *Credential {
	scopes := fallback
	if granted, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		scopes = strings.Fields(granted)
	}
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       append([]string(nil), scopes...),
	}
}

// CredentialStore persists the credential record.
type CredentialStore interface {
	// Load returns ErrNoCredential when nothing is stored.
	Load() (*Credential, error)
	Save(cred *Credential) error
}

// FileStore keeps the credential in a single file.
type FileStore struct {
	path       string
	encryption *TokenEncryption
}

// NewFileStore creates a store at path. A non-empty key enables AES-256-GCM
// encryption of the file contents.
func NewFileStore(path string, key []byte) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path cannot be empty")
	}
	enc, err := NewTokenEncryption(key)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, encryption: enc}, nil
}

// Path returns the location of the token file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the stored credential.
func (s *FileStore) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoCredential
	}

	// A plaintext file left from before encryption was enabled is still
	// accepted; the next save encrypts it.
	if s.encryption.Enabled() && data[0] != '{' {
		data, err = s.encryption.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token file: %w", err)
		}
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &cred, nil
}

// Save atomically replaces the stored credential. The file is written with
// mode 0600 inside a 0700 directory.
func (s *FileStore) Save(cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("credential cannot be nil")
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	data, err = s.encryption.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
