package bwcrypto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessToken = "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.C2IgxjjLF7qSshsbwe8JGcbM075YXw:X8vbvA0bduihIDe/qrzIQQ=="

func TestParseAccessToken(t *testing.T) {
	t.Parallel()

	tok, err := ParseAccessToken(testAccessToken)
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse("ec2c1d46-6a4b-4751-a310-af9601317f2d"), tok.ClientID)
	assert.Equal(t, "C2IgxjjLF7qSshsbwe8JGcbM075YXw", tok.ClientSecret)
	assert.Len(t, tok.EncryptionKey, 16)
	assert.Equal(t, testAccessToken, tok.String())
}

func TestAccessTokenKey(t *testing.T) {
	t.Parallel()

	tok, err := ParseAccessToken(testAccessToken)
	require.NoError(t, err)

	key, err := tok.Key()
	require.NoError(t, err)
	assert.Equal(t,
		"H9/oIRLtL9nGCQOVDjSMoEbJsjWXSOCb3qeyDt6ckzS3FhyboEDWyTP/CQfbIszNmAVg2ExFganG1FVFGXO/Jg==",
		key.String())
}

func TestParseAccessTokenErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no key", token: "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.C2IgxjjLF7qSshsbwe8JGcbM075YXw"},
		{name: "wrong version", token: "1.ec2c1d46-6a4b-4751-a310-af9601317f2d.C2IgxjjLF7qSshsbwe8JGcbM075YXw:X8vbvA0bduihIDe/qrzIQQ=="},
		{name: "bad client id", token: "0.not-a-uuid.C2IgxjjLF7qSshsbwe8JGcbM075YXw:X8vbvA0bduihIDe/qrzIQQ=="},
		{name: "missing secret", token: "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.:X8vbvA0bduihIDe/qrzIQQ=="},
		{name: "too many fields", token: "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.a.b:X8vbvA0bduihIDe/qrzIQQ=="},
		{name: "key not base64", token: "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.C2IgxjjLF7qSshsbwe8JGcbM075YXw:!!!"},
		{name: "short key", token: "0.ec2c1d46-6a4b-4751-a310-af9601317f2d.C2IgxjjLF7qSshsbwe8JGcbM075YXw:AAAA"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseAccessToken(test.token)
			assert.ErrorIs(t, err, ErrInvalidAccessToken)
			if test.token != "" {
				assert.NotContains(t, err.Error(), "C2IgxjjLF7qSshsbwe8JGcbM075YXw")
			}
		})
	}
}
