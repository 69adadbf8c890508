package rte

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCred obtains and caches OAuth2 client-credential tokens.
type ClientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCred(cfg Config) *ClientCred {
	return &ClientCred{conf: clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
	}}
}

// GetToken retrieves a valid access token, requesting a new one when the
// cached token expired.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// SetAuthHeader sets the bearer token on r.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	tok, err := c.GetToken(r.Context())
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+tok)
	return nil
}
