package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bitwarden/sm-action/internal/bwcrypto"
	"github.com/google/uuid"
)

// Secret is a decrypted Secrets Manager secret.
type Secret struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Key            string
	Value          string
	Note           string
	CreationDate   time.Time
	RevisionDate   time.Time
}

type getSecretsByIDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type secretResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Key            string    `json:"key"`
	Value          string    `json:"value"`
	Note           string    `json:"note"`
	CreationDate   time.Time `json:"creationDate"`
	RevisionDate   time.Time `json:"revisionDate"`
}

type secretsResponse struct {
	Data []secretResponse `json:"data"`
}

// GetSecretsByIDs fetches and decrypts the secrets with the given ids in a
// single request. Secrets the machine account cannot see are left out of the
// result rather than reported.
func (c *Client) GetSecretsByIDs(ctx context.Context, ids []uuid.UUID) ([]Secret, *Response, error) {
	s, err := c.currentSession(ctx)
	if err != nil {
		return nil, nil, err
	}

	var body secretsResponse
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newJSONRequest(ctx, http.MethodPost, c.conf.APIURL, "secrets/get-by-ids",
			getSecretsByIDsRequest{IDs: ids},
			Header{Name: "Authorization", Value: "Bearer " + s.bearer},
		)
	}, &body)
	if err != nil {
		return nil, resp, err
	}

	secrets := make([]Secret, 0, len(body.Data))
	for _, sr := range body.Data {
		secret, err := sr.decrypt(s.organizationKey)
		if err != nil {
			return nil, resp, fmt.Errorf("secret %s: %w", sr.ID, err)
		}
		secrets = append(secrets, secret)
	}

	return secrets, resp, nil
}

func (sr secretResponse) decrypt(key bwcrypto.SymmetricKey) (Secret, error) {
	secret := Secret{
		ID:             sr.ID,
		OrganizationID: sr.OrganizationID,
		CreationDate:   sr.CreationDate,
		RevisionDate:   sr.RevisionDate,
	}

	for _, f := range []struct {
		name string
		in   string
		out  *string
	}{
		{"key", sr.Key, &secret.Key},
		{"value", sr.Value, &secret.Value},
		{"note", sr.Note, &secret.Note},
	} {
		if f.in == "" {
			continue
		}
		plain, err := bwcrypto.DecryptString(f.in, key)
		if err != nil {
			return Secret{}, fmt.Errorf("decrypting %s: %w", f.name, err)
		}
		*f.out = plain
	}

	return secret, nil
}
