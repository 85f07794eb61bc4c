package rest

import (
	"context"
	"net/http"

	"shophub/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var result AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", &LoginRequest{
		Username: username,
		Password: password,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type profileResponse struct {
	User models.User `json:"user"`
}

// Profile returns the current operator for the installed bearer token.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var result profileResponse
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}
