package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitwarden/sm-action/internal/bwcrypto"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrNotAuthenticated is returned by calls made before AccessTokenLogin.
var ErrNotAuthenticated = errors.New("not authenticated, call AccessTokenLogin first")

// expiryMargin renews the session a little before the server would reject it.
const expiryMargin = time.Minute

// LoginResponse is the identity service's reply to a client credentials
// grant.
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	EncryptedPayload string `json:"encrypted_payload"`
}

// loginPayload is the decrypted EncryptedPayload.
type loginPayload struct {
	EncryptionKey string `json:"encryptionKey"`
}

type session struct {
	token           *bwcrypto.AccessToken
	bearer          string
	expiresAt       time.Time
	organizationID  uuid.UUID
	organizationKey bwcrypto.SymmetricKey
}

func (s *session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && now.Add(expiryMargin).After(s.expiresAt)
}

// AccessTokenLogin exchanges a machine account access token for an API
// bearer token and unlocks the organization key used to decrypt secrets.
func (c *Client) AccessTokenLogin(ctx context.Context, accessToken string) (*Response, error) {
	tok, err := bwcrypto.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	return c.login(ctx, tok)
}

func (c *Client) login(ctx context.Context, tok *bwcrypto.AccessToken) (*Response, error) {
	form := url.Values{
		"scope":         {"api.secrets"},
		"client_id":     {tok.ClientID.String()},
		"client_secret": {tok.ClientSecret},
		"grant_type":    {"client_credentials"},
	}

	var login LoginResponse
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, c.conf.IdentityURL, "connect/token",
			strings.NewReader(form.Encode()),
			Header{Name: "Content-Type", Value: "application/x-www-form-urlencoded; charset=utf-8"},
		)
	}, &login)
	if err != nil {
		return resp, err
	}

	s, err := newSession(tok, &login, time.Now())
	if err != nil {
		return resp, err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.Debug("Logged in as machine account %s for organization %s", tok.ClientID, s.organizationID)
	return resp, nil
}

func newSession(tok *bwcrypto.AccessToken, login *LoginResponse, now time.Time) (*session, error) {
	if login.AccessToken == "" {
		return nil, errors.New("login response has no access token")
	}
	if login.EncryptedPayload == "" {
		return nil, errors.New("login response has no encrypted payload")
	}

	key, err := tok.Key()
	if err != nil {
		return nil, err
	}
	plain, err := bwcrypto.DecryptString(login.EncryptedPayload, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting login payload: %w", err)
	}

	var payload loginPayload
	if err := json.Unmarshal([]byte(plain), &payload); err != nil {
		return nil, fmt.Errorf("decoding login payload: %w", err)
	}
	orgKey, err := bwcrypto.ParseSymmetricKey(payload.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("organization key: %w", err)
	}

	orgID, exp, err := bearerClaims(login.AccessToken)
	if err != nil {
		return nil, err
	}
	if exp.IsZero() && login.ExpiresIn > 0 {
		exp = now.Add(time.Duration(login.ExpiresIn) * time.Second)
	}

	return &session{
		token:           tok,
		bearer:          login.AccessToken,
		expiresAt:       exp,
		organizationID:  orgID,
		organizationKey: orgKey,
	}, nil
}

// bearerClaims reads the organization and expiry of the bearer token without
// verifying it. The API verifies it on every request.
func bearerClaims(bearer string) (uuid.UUID, time.Time, error) {
	tok, err := jwt.ParseInsecure([]byte(bearer))
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("parsing access token: %w", err)
	}

	claim, ok := tok.Get("organization")
	if !ok {
		return uuid.Nil, time.Time{}, errors.New("access token has no organization claim")
	}

	var raw string
	switch v := claim.(type) {
	case string:
		raw = v
	case []any:
		if len(v) > 0 {
			raw, _ = v[0].(string)
		}
	}

	orgID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("access token organization claim: %w", err)
	}
	return orgID, tok.Expiration(), nil
}

// OrganizationID returns the organization of the logged in machine account,
// or uuid.Nil before login.
func (c *Client) OrganizationID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return uuid.Nil
	}
	return c.session.organizationID
}

// currentSession returns the session, logging in again first if the bearer
// token is about to expire.
func (c *Client) currentSession(ctx context.Context) (*session, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if s == nil {
		return nil, ErrNotAuthenticated
	}
	if !s.expired(time.Now()) {
		return s, nil
	}

	c.logger.Debug("Access token expired, logging in again")
	if _, err := c.login(ctx, s.token); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, nil
}
