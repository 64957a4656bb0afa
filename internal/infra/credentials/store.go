package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"creativegen/internal/infra"
	"creativegen/internal/sqlinline"
)

const (
	ProviderVideo  = "video"
	ProviderOpenAI = "openai"
)

// Store keeps provider API keys in integration_tokens so deployments can
// rotate them without touching the environment.
type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// TokenInfo describes a stored key without revealing it.
type TokenInfo struct {
	Provider  string
	Suffix    string
	UpdatedAt time.Time
}

func (s *Store) VideoAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderVideo)
}

func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetVideoAPIKey(ctx context.Context, key string) error {
	return s.Set(ctx, ProviderVideo, key)
}

func (s *Store) SetOpenAIAPIKey(ctx context.Context, key string) error {
	return s.Set(ctx, ProviderOpenAI, key)
}

// Set upserts the token for provider and stamps the rotation time into the
// row's properties.
func (s *Store) Set(ctx context.Context, provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	raw, err := json.Marshal(map[string]any{"rotated_at": s.now().UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderToken, provider, key, raw); err != nil {
		return fmt.Errorf("credentials: store %s: %w", provider, err)
	}
	return nil
}

// Delete removes the stored token for provider and reports whether one existed.
func (s *Store) Delete(ctx context.Context, provider string) (bool, error) {
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteProviderToken, provider)
	if err != nil {
		return false, fmt.Errorf("credentials: delete %s: %w", provider, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns every stored provider with the last four key characters.
func (s *Store) List(ctx context.Context) ([]TokenInfo, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListProviderTokens)
	if err != nil {
		return nil, fmt.Errorf("credentials: list: %w", err)
	}
	defer rows.Close()

	var out []TokenInfo
	for rows.Next() {
		var info TokenInfo
		if err := rows.Scan(&info.Provider, &info.Suffix, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("credentials: list: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credentials: list: %w", err)
	}
	return out, nil
}

// Resolve prefers the configured value and falls back to the store.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	return s.Token(ctx, provider)
}
