package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signalx/internal/common/errors"
)

// KeycloakClient introspects bearer tokens issued by the identity provider.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// TokenInfo is the subset of the RFC 7662 introspection response we use.
type TokenInfo struct {
	Active      bool        `json:"active"`
	Sub         string      `json:"sub,omitempty"`
	Username    string      `json:"username,omitempty"`
	Email       string      `json:"email,omitempty"`
	ClientID    string      `json:"client_id,omitempty"`
	Exp         int64       `json:"exp,omitempty"`
	RealmAccess RealmAccess `json:"realm_access"`
}

type RealmAccess struct {
	Roles []string `json:"roles"`
}

// HasRole reports whether the token carries the realm role.
func (t *TokenInfo) HasRole(role string) bool {
	for _, r := range t.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateToken introspects token and fails with AUTHENTICATION_ERROR when it is not active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("build introspection request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAuthenticationError(fmt.Sprintf("introspection request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.NewAuthenticationError(fmt.Sprintf("introspection status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewAuthenticationError(fmt.Sprintf("decode introspection response: %v", err))
	}

	if !tokenInfo.Active {
		return nil, errors.NewAuthenticationError("token is not active")
	}

	return &tokenInfo, nil
}
