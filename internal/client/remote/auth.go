package remote

import (
	"context"
	"net/http"
)

// AuthSession is what the server hands back after register or login.
type AuthSession struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and returns a fresh session.
func (g *HTTPGateway) Register(ctx context.Context, email, password string) (*AuthSession, error) {
	var out AuthSession
	if err := g.do(ctx, http.MethodPost, "/auth/register", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates existing credentials and returns a session.
func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	var out AuthSession
	if err := g.do(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
