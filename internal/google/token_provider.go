package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider abstracts where OAuth tokens come from, so the calendar
// adapter can be exercised in tests without touching the filesystem.
type TokenProvider interface {
	// GetToken retrieves the current OAuth token.
	GetToken(ctx context.Context) (*oauth2.Token, error)

	// HasToken checks whether a stored token exists.
	HasToken() bool

	// SaveAuthCode exchanges an authorization code and persists the result.
	SaveAuthCode(ctx context.Context, authCode string) error

	// DeleteToken removes the stored token. Idempotent.
	DeleteToken() error
}

// FileTokenProvider provides tokens from the on-disk token store.
type FileTokenProvider struct{}

// NewFileTokenProvider creates a new file-based token provider.
func NewFileTokenProvider() *FileTokenProvider {
	return &FileTokenProvider{}
}

// GetToken retrieves a token from disk, refreshing it if necessary.
func (p *FileTokenProvider) GetToken(ctx context.Context) (*oauth2.Token, error) {
	ts, err := GetTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}

	return token, nil
}

// HasToken checks if a token file exists.
func (p *FileTokenProvider) HasToken() bool {
	return HasToken()
}

// SaveAuthCode exchanges an authorization code and writes the token file.
func (p *FileTokenProvider) SaveAuthCode(ctx context.Context, authCode string) error {
	return SaveAuthCode(ctx, authCode)
}

// DeleteToken removes the token file.
func (p *FileTokenProvider) DeleteToken() error {
	return DeleteToken()
}
