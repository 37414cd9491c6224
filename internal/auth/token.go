package auth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// expiryMargin treats a token as expired slightly before Spotify does.
const expiryMargin = 60 * time.Second

// Token is the persisted form of an OAuth token. The field layout matches
// the token cache row already written by existing deployments, so it keeps working.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresAt    int64  `json:"expires_at"`
}

// FromOAuth converts an oauth2 token. The scope is read from the token
// response and falls back to scope when the server omitted it.
func FromOAuth(t *oauth2.Token, scope string, now time.Time) *Token {
	if s, ok := t.Extra("scope").(string); ok && s != "" {
		scope = s
	}

	tok := &Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Scope:        NormalizeScope(scope),
	}
	if !t.Expiry.IsZero() {
		tok.ExpiresAt = t.Expiry.Unix()
		tok.ExpiresIn = int64(t.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	return tok
}

// OAuth returns the token in the form the oauth2 transport expects.
func (t *Token) OAuth() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresAt != 0 {
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	}
	return tok
}

// Expired reports whether the access token is expired or about to be.
// A token without expiry information never expires.
func (t *Token) Expired(now time.Time) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return now.Add(expiryMargin).Unix() >= t.ExpiresAt
}

// Covers reports whether every scope in requested was granted to the token.
func (t *Token) Covers(requested string) bool {
	granted := strings.Fields(t.Scope)
	for _, s := range strings.Fields(requested) {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}

// NormalizeScope sorts and deduplicates a space separated scope list.
func NormalizeScope(scope string) string {
	fields := strings.Fields(scope)
	slices.Sort(fields)
	return strings.Join(slices.Compact(fields), " ")
}

func encodeToken(t *Token) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding token: %w", err)
	}
	return data, nil
}

func decodeToken(data []byte) (*Token, error) {
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return &t, nil
}
