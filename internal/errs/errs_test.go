package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Wrap(errors.New("underlying"), CodeProfileNotFound, "profile missing").
		WithProfile("staging").
		WithRemediation("check ~/.aws/credentials")

	msg := err.Error()
	assert.Contains(t, msg, "[PROFILE_NOT_FOUND]")
	assert.Contains(t, msg, "profile missing")
	assert.Contains(t, msg, "staging")
	assert.Contains(t, msg, "underlying")
	assert.Contains(t, msg, "check ~/.aws/credentials")
}

func TestCodeThroughWrapping(t *testing.T) {
	inner := New(CodeCredentialsExpired, "expired")
	outer := fmt.Errorf("during connect: %w", inner)

	assert.Equal(t, CodeCredentialsExpired, Code(outer))
	assert.True(t, Is(outer, CodeCredentialsExpired))
	assert.False(t, Is(outer, CodeProfileNotFound))
	assert.Empty(t, Code(errors.New("plain")))
}

func TestClassifyAWS(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"expired token", errors.New("api error ExpiredToken: the security token included in the request is expired"), CodeCredentialsExpired},
		{"access denied", errors.New("api error AccessDeniedException: access denied"), CodeInsufficientPermissions},
		{"not authorized", errors.New("User is not authorized to perform this operation"), CodeInsufficientPermissions},
		{"assume role", errors.New("operation error STS: AssumeRole, request failed"), CodeRoleAssumptionFailed},
		{"missing profile", errors.New("failed to get shared config profile, staging"), CodeProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyAWS(tt.err, "staging", "arn:aws:iam::1:role/r")
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantCode, classified.Code)
			assert.ErrorIs(t, classified, tt.err)
		})
	}

	t.Run("unrecognized returns nil", func(t *testing.T) {
		assert.Nil(t, ClassifyAWS(errors.New("connection refused"), "", ""))
	})

	t.Run("nil returns nil", func(t *testing.T) {
		assert.Nil(t, ClassifyAWS(nil, "", ""))
	})
}
