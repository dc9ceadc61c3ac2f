package api

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bitwarden/sm-action/internal/bwcrypto"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBitwarden serves the identity and API endpoints the client uses.
type fakeBitwarden struct {
	t *testing.T

	accessToken     string
	clientID        uuid.UUID
	clientSecret    string
	organizationID  uuid.UUID
	organizationKey bwcrypto.SymmetricKey
	tokenLifetime   time.Duration

	mu        sync.Mutex
	secrets   map[uuid.UUID]string
	logins    int
	fetches   int
	failures  []int // statuses returned, in order, before succeeding
	lastIDs   []uuid.UUID
	userAgent string
}

func newFakeBitwarden(t *testing.T) *fakeBitwarden {
	t.Helper()

	encKey := make([]byte, 16)
	_, err := rand.Read(encKey)
	require.NoError(t, err)

	orgKeyBytes := make([]byte, 64)
	_, err = rand.Read(orgKeyBytes)
	require.NoError(t, err)
	orgKey, err := bwcrypto.NewSymmetricKey(orgKeyBytes)
	require.NoError(t, err)

	tok := &bwcrypto.AccessToken{
		ClientID:      uuid.New(),
		ClientSecret:  "fake-client-secret",
		EncryptionKey: encKey,
	}

	return &fakeBitwarden{
		t:               t,
		accessToken:     tok.String(),
		clientID:        tok.ClientID,
		clientSecret:    tok.ClientSecret,
		organizationID:  uuid.New(),
		organizationKey: orgKey,
		tokenLifetime:   time.Hour,
		secrets:         map[uuid.UUID]string{},
	}
}

func (f *fakeBitwarden) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /identity/connect/token", f.handleLogin)
	mux.HandleFunc("POST /api/secrets/get-by-ids", f.handleGetByIDs)

	server := httptest.NewServer(mux)
	f.t.Cleanup(server.Close)
	return server
}

// failWith makes the next requests fail with the given statuses.
func (f *fakeBitwarden) failWith(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = statuses
}

func (f *fakeBitwarden) stats() (logins, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.fetches
}

func (f *fakeBitwarden) lastRequest() (ids []uuid.UUID, userAgent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastIDs, f.userAgent
}

func (f *fakeBitwarden) nextFailure() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) == 0 {
		return 0
	}
	status := f.failures[0]
	f.failures = f.failures[1:]
	return status
}

func (f *fakeBitwarden) handleLogin(rw http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	f.logins++
	f.userAgent = req.Header.Get("User-Agent")
	f.mu.Unlock()

	if status := f.nextFailure(); status != 0 {
		http.Error(rw, `{"message":"try again"}`, status)
		return
	}

	if err := req.ParseForm(); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PostForm.Get("grant_type") != "client_credentials" ||
		req.PostForm.Get("scope") != "api.secrets" ||
		req.PostForm.Get("client_id") != f.clientID.String() ||
		req.PostForm.Get("client_secret") != f.clientSecret ||
		req.Header.Get("Device-Type") != deviceTypeSDK {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(rw, `{"error":"invalid_client","error_description":"invalid client credentials"}`)
		return
	}

	tok, err := bwcrypto.ParseAccessToken(f.accessToken)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	key, err := tok.Key()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	payload, err := json.Marshal(loginPayload{EncryptionKey: f.organizationKey.String()})
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	encPayload, err := bwcrypto.Encrypt(payload, key)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	bearer, err := jwt.NewBuilder().
		Claim("organization", f.organizationID.String()).
		Expiration(time.Now().Add(f.tokenLifetime)).
		Build()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	signed, err := jwt.Sign(bearer, jwt.WithKey(jwa.HS256, []byte("fake-signing-key")))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(LoginResponse{
		AccessToken:      string(signed),
		ExpiresIn:        int(f.tokenLifetime.Seconds()),
		TokenType:        "Bearer",
		Scope:            "api.secrets",
		EncryptedPayload: encPayload.String(),
	})
}

func (f *fakeBitwarden) handleGetByIDs(rw http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if status := f.nextFailure(); status != 0 {
		http.Error(rw, `{"message":"try again"}`, status)
		return
	}

	if _, err := jwt.ParseRequest(req, jwt.WithKey(jwa.HS256, []byte("fake-signing-key"))); err != nil {
		rw.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(rw, `{"message":"unauthorized"}`)
		return
	}

	var body getSecretsByIDsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.lastIDs = body.IDs
	f.mu.Unlock()

	resp := secretsResponse{Data: []secretResponse{}}
	for _, id := range body.IDs {
		value, ok := f.secrets[id]
		if !ok {
			continue
		}
		resp.Data = append(resp.Data, secretResponse{
			ID:             id,
			OrganizationID: f.organizationID,
			Key:            f.encrypt("name-" + id.String()),
			Value:          f.encrypt(value),
			Note:           f.encrypt(""),
			CreationDate:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			RevisionDate:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		})
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(resp)
}

// encrypt runs on the server goroutine, so it must not use require.
func (f *fakeBitwarden) encrypt(s string) string {
	es, err := bwcrypto.Encrypt([]byte(s), f.organizationKey)
	assert.NoError(f.t, err)
	return es.String()
}
