package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/daguilastro/Los5deSergito/internal/session"
)

type accountRow struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"rol"`
}

func (r accountRow) toActor() session.Actor {
	return session.Actor{ID: r.ID, Username: r.Username, Role: r.Role}
}

type loginResponse struct {
	OK   bool        `json:"ok"`
	User *accountRow `json:"user"`
}

// Login authenticates against the upstream. The session cookie it sets lands
// in the client's jar and rides along on every later call.
func (c *Client) Login(ctx context.Context, username, password string) (session.Actor, error) {
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	status, body, err := c.doMutating(ctx, "/api/login-view/", payload)
	if err != nil {
		return session.Actor{}, err
	}
	if status != http.StatusOK {
		return session.Actor{}, apiError(status, body)
	}

	var resp loginResponse
	if errDec := json.Unmarshal(body, &resp); errDec != nil || resp.User == nil {
		return session.Actor{}, fmt.Errorf("%w: missing user", ErrMalformedResponse)
	}
	return resp.User.toActor(), nil
}

// Logout flushes the upstream session.
func (c *Client) Logout(ctx context.Context) error {
	status, body, err := c.doMutating(ctx, "/api/logout/", struct{}{})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, body)
	}
	return nil
}

// WhoAmI re-reads the authenticated identity, the explicit refresh path for
// the actor store.
func (c *Client) WhoAmI(ctx context.Context) (session.Actor, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/whoami/", nil)
	if err != nil {
		return session.Actor{}, err
	}
	if status != http.StatusOK {
		return session.Actor{}, apiError(status, body)
	}

	var row accountRow
	if errDec := json.Unmarshal(body, &row); errDec != nil || row.Username == "" {
		return session.Actor{}, fmt.Errorf("%w: missing identity", ErrMalformedResponse)
	}
	return row.toActor(), nil
}
