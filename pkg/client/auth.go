package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"yogaportal/pkg/model"
)

// AuthClient covers the password and refresh grants of the hosted auth API.
type AuthClient struct {
	httpClient *HttpClient
	now        func() time.Time
}

func NewAuthClient(baseURL, authPath, anonKey string) *AuthClient {
	hc := NewHttpClient(strings.TrimRight(baseURL, "/") + authPath)
	hc.APIKey = anonKey
	return &AuthClient{httpClient: hc, now: time.Now}
}

func (c *AuthClient) HTTP() *HttpClient {
	return c.httpClient
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *model.Session {
	s := &model.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		UserID:       t.User.ID,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return s
}

func (c *AuthClient) PasswordGrant(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tr tokenResponse
	if err := c.httpClient.Fetch(ctx, http.MethodPost, "/token?grant_type=password", body, Call{}, &tr); err != nil {
		return nil, err
	}
	return tr.session(c.now()), nil
}

func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var tr tokenResponse
	if err := c.httpClient.Fetch(ctx, http.MethodPost, "/token?grant_type=refresh_token", body, Call{}, &tr); err != nil {
		return nil, err
	}
	return tr.session(c.now()), nil
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *AuthClient) User(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.httpClient.Fetch(ctx, http.MethodGet, "/user", nil, Call{Token: token}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *AuthClient) SignOut(ctx context.Context, token string) error {
	return c.httpClient.Fetch(ctx, http.MethodPost, "/logout", nil, Call{Token: token}, nil)
}
