package action

import (
	"testing"

	"github.com/bitwarden/sm-action/api"
	"github.com/bitwarden/sm-action/ci"
	"github.com/bitwarden/sm-action/internal/secrets"
	"github.com/bitwarden/sm-action/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretLine = "de66de56-0b1f-42ff-8033-8b7866416520 > SECRET_NAME"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(ci.NewFake(map[string]string{
		"access_token": "token",
		"secrets":      testSecretLine + "\n\n",
	}))
	require.NoError(t, err)

	want := &Config{
		AccessToken:   "token",
		Secrets:       []string{testSecretLine},
		SetEnv:        true,
		TransformKeys: true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig diff (-want +got):\n%s", diff)
	}
	assert.Equal(t, secrets.StructureNone, cfg.Structure())
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		inputs map[string]string
		want   string
	}{
		{
			name:   "missing access token",
			inputs: map[string]string{"secrets": testSecretLine},
			want:   "access_token",
		},
		{
			name:   "missing secrets",
			inputs: map[string]string{"access_token": "token", "secrets": "  \n "},
			want:   "secrets",
		},
		{
			name:   "bad set_env",
			inputs: map[string]string{"access_token": "token", "secrets": testSecretLine, "set_env": "maybe"},
			want:   "set_env",
		},
		{
			name:   "bad base url",
			inputs: map[string]string{"access_token": "token", "secrets": testSecretLine, "base_url": "ftp://vault.example.com"},
			want:   "base_url",
		},
		{
			name: "json and yaml",
			inputs: map[string]string{
				"access_token": "token", "secrets": testSecretLine,
				"parse_json": "true", "parse_yaml": "true",
			},
			want: "parse_yaml and parse_json cannot both be set to true",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(ci.NewFake(test.inputs))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestConfigStructure(t *testing.T) {
	t.Parallel()

	assert.Equal(t, secrets.StructureJSON, (&Config{ParseJSON: true}).Structure())
	assert.Equal(t, secrets.StructureYAML, (&Config{ParseYAML: true}).Structure())
}

func TestInferURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want Endpoints
	}{
		{
			name: "defaults to us cloud",
			want: Endpoints{APIURL: api.DefaultAPIURL, IdentityURL: api.DefaultIdentityURL},
		},
		{
			name: "us region",
			cfg:  Config{CloudRegion: "us"},
			want: Endpoints{APIURL: "https://api.bitwarden.com", IdentityURL: "https://identity.bitwarden.com"},
		},
		{
			name: "eu region",
			cfg:  Config{CloudRegion: "EU"},
			want: Endpoints{APIURL: "https://api.bitwarden.eu", IdentityURL: "https://identity.bitwarden.eu"},
		},
		{
			name: "region wins over urls",
			cfg:  Config{CloudRegion: "eu", BaseURL: "https://vault.example.com"},
			want: Endpoints{APIURL: "https://api.bitwarden.eu", IdentityURL: "https://identity.bitwarden.eu"},
		},
		{
			name: "api and identity",
			cfg:  Config{APIURL: "https://api.example.com", IdentityURL: "https://identity.example.com"},
			want: Endpoints{APIURL: "https://api.example.com", IdentityURL: "https://identity.example.com"},
		},
		{
			name: "api and identity win over base url",
			cfg: Config{
				BaseURL: "https://vault.example.com",
				APIURL:  "https://api.example.com", IdentityURL: "https://identity.example.com",
			},
			want: Endpoints{APIURL: "https://api.example.com", IdentityURL: "https://identity.example.com"},
		},
		{
			name: "base url",
			cfg:  Config{BaseURL: "https://vault.example.com"},
			want: Endpoints{APIURL: "https://vault.example.com/api", IdentityURL: "https://vault.example.com/identity"},
		},
		{
			name: "base url trailing slash",
			cfg:  Config{BaseURL: "https://vault.example.com/"},
			want: Endpoints{APIURL: "https://vault.example.com/api", IdentityURL: "https://vault.example.com/identity"},
		},
		{
			name: "self-hosted region with base url",
			cfg:  Config{CloudRegion: "self-hosted", BaseURL: "http://localhost:8080"},
			want: Endpoints{APIURL: "http://localhost:8080/api", IdentityURL: "http://localhost:8080/identity"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := InferURLs(logger.Discard, &test.cfg)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestInferURLs_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "only api url",
			cfg:  Config{APIURL: "https://api.example.com"},
			want: "both api_url and identity_url must be provided if one is specified",
		},
		{
			name: "only identity url",
			cfg:  Config{IdentityURL: "https://identity.example.com", BaseURL: "https://vault.example.com"},
			want: "both api_url and identity_url must be provided if one is specified",
		},
		{
			name: "unknown region without urls",
			cfg:  Config{CloudRegion: "ap"},
			want: `cloud region "ap"`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := InferURLs(logger.Discard, &test.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestInferURLs_WarnsWhenBaseURLIgnored(t *testing.T) {
	t.Parallel()

	l := logger.NewBuffer()
	_, err := InferURLs(l, &Config{
		BaseURL: "https://vault.example.com",
		APIURL:  "https://api.example.com", IdentityURL: "https://identity.example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, l.Messages, "[warn] Ignoring base_url because api_url and identity_url are set")
}
