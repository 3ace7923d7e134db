package awsauth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

func writeCredentialsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

type fakeSTS struct {
	calls []sts.AssumeRoleInput
	out   *sts.AssumeRoleOutput
	err   error
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.calls = append(f.calls, *in)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func TestResolve_ExplicitProfileBeatsEnvironment(t *testing.T) {
	credsFile := writeCredentialsFile(t, `
[staging]
aws_access_key_id = AKIAPROFILE
aws_secret_access_key = profilesecret
`)

	// Ambient environment credentials must not leak into an explicit
	// profile selection.
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAENVIRONMENT")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")

	r := &CredentialResolver{credentialsFiles: []string{credsFile}, configFiles: []string{credsFile}}
	creds, err := r.Resolve(context.Background(), "staging", "", "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "AKIAPROFILE", creds.AccessKeyID)
	assert.Equal(t, "profilesecret", creds.SecretAccessKey)
}

func TestResolve_NoProfileUsesDefaultChain(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAENVIRONMENT")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")
	t.Setenv("AWS_SESSION_TOKEN", "")
	// Point the shared files at an empty directory so only the environment
	// participates in the default chain.
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))

	r := NewCredentialResolver()
	creds, err := r.Resolve(context.Background(), "", "", "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "AKIAENVIRONMENT", creds.AccessKeyID)
}

func TestResolve_MissingProfile(t *testing.T) {
	credsFile := writeCredentialsFile(t, `
[other]
aws_access_key_id = AKIAOTHER
aws_secret_access_key = othersecret
`)

	r := &CredentialResolver{credentialsFiles: []string{credsFile}, configFiles: []string{credsFile}}
	_, err := r.Resolve(context.Background(), "missing", "", "us-east-1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeProfileNotFound, errs.Code(err))
}

func TestResolve_ProfileMissingKeys(t *testing.T) {
	credsFile := writeCredentialsFile(t, `
[incomplete]
aws_access_key_id = AKIAINCOMPLETE
`)

	r := &CredentialResolver{credentialsFiles: []string{credsFile}, configFiles: []string{credsFile}}
	_, err := r.Resolve(context.Background(), "incomplete", "", "us-east-1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeCredentialsNotFound, errs.Code(err))
}

func TestResolve_AssumeRole(t *testing.T) {
	credsFile := writeCredentialsFile(t, `
[base]
aws_access_key_id = AKIABASE
aws_secret_access_key = basesecret
`)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	fake := &fakeSTS{out: &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIAASSUMED"),
			SecretAccessKey: aws.String("assumedsecret"),
			SessionToken:    aws.String("assumedtoken"),
			Expiration:      aws.Time(expiry),
		},
	}}
	r := &CredentialResolver{
		newSTS:           func(aws.Config) STSClient { return fake },
		credentialsFiles: []string{credsFile},
		configFiles:      []string{credsFile},
	}

	roleARN := "arn:aws:iam::123456789012:role/kafka-admin"
	creds, err := r.Resolve(context.Background(), "base", roleARN, "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, "ASIAASSUMED", creds.AccessKeyID)
	assert.Equal(t, "assumedtoken", creds.SessionToken)
	assert.True(t, creds.CanExpire)
	assert.Equal(t, expiry, creds.Expires)

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, roleARN, aws.ToString(call.RoleArn))
	assert.Equal(t, assumeRoleSessionName, aws.ToString(call.RoleSessionName))
	assert.EqualValues(t, assumeRoleDurationSeconds, aws.ToInt32(call.DurationSeconds))
}

func TestResolve_AssumeRoleDenied(t *testing.T) {
	credsFile := writeCredentialsFile(t, `
[base]
aws_access_key_id = AKIABASE
aws_secret_access_key = basesecret
`)

	fake := &fakeSTS{err: errors.New("api error AccessDenied: not authorized to perform sts:AssumeRole")}
	r := &CredentialResolver{
		newSTS:           func(aws.Config) STSClient { return fake },
		credentialsFiles: []string{credsFile},
		configFiles:      []string{credsFile},
	}

	_, err := r.Resolve(context.Background(), "base", "arn:aws:iam::123456789012:role/denied", "eu-west-1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeRoleAssumptionFailed, errs.Code(err))

	var appErr *errs.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "base", appErr.Profile)
	assert.NotEmpty(t, appErr.Remediation)
}
