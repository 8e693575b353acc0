package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor returns nil for an empty token.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// PageSize clamps a requested size into [1, MaxPageSize].
func PageSize(requested int32) int {
	switch {
	case requested <= 0:
		return DefaultPageSize
	case requested > MaxPageSize:
		return MaxPageSize
	default:
		return int(requested)
	}
}

// Trim cuts a limit+1 result set down to limit and reports whether more rows exist.
func Trim[T any](items []T, limit int) ([]T, bool) {
	if limit <= 0 || len(items) <= limit {
		return items, false
	}
	return items[:limit], true
}
