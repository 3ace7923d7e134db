package awsauth

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

type fixedCredentials struct {
	creds aws.Credentials
	err   error
	calls atomic.Int64
}

func (f *fixedCredentials) Resolve(context.Context, string, string, string) (aws.Credentials, error) {
	f.calls.Add(1)
	if f.err != nil {
		return aws.Credentials{}, f.err
	}
	return f.creds, nil
}

func newTestTokenProvider(sign SignFunc) (*TokenProvider, *fixedCredentials) {
	src := &fixedCredentials{creds: aws.Credentials{AccessKeyID: "AKIATEST", SecretAccessKey: "secret"}}
	p := NewTokenProvider("us-east-1", "default", "", src)
	p.sign = sign
	return p, src
}

func TestGenerateAuthToken_CachesUntilExpiry(t *testing.T) {
	var signs atomic.Int64
	p, _ := newTestTokenProvider(func(context.Context, string, aws.CredentialsProvider) (string, int64, error) {
		n := signs.Add(1)
		return strings.Repeat("t", int(n)), time.Now().Add(15 * time.Minute).UnixMilli(), nil
	})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	first, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Username, first.Password, "OAUTHBEARER carries the token in both fields")

	// Within the TTL the cached token is served without signing again.
	clock = clock.Add(13 * time.Minute)
	second, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, signs.Load())

	// Past the TTL a fresh token is generated.
	clock = clock.Add(2 * time.Minute)
	third, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Password, third.Password)
	assert.EqualValues(t, 2, signs.Load())
}

func TestGenerateAuthToken_ConcurrentCallersShareOneSigning(t *testing.T) {
	const callers = 16

	var signs atomic.Int64
	release := make(chan struct{})
	p, _ := newTestTokenProvider(func(ctx context.Context, _ string, _ aws.CredentialsProvider) (string, int64, error) {
		signs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
		return "shared-token", time.Now().Add(15 * time.Minute).UnixMilli(), nil
	})

	started := make(chan struct{}, callers)
	results := make(chan SASLCredentials, callers)
	errsCh := make(chan error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			creds, err := p.GenerateAuthToken(context.Background())
			if err != nil {
				errsCh <- err
				return
			}
			results <- creds
		}()
	}

	for i := 0; i < callers; i++ {
		<-started
	}
	close(release)
	wg.Wait()
	close(results)
	close(errsCh)

	for err := range errsCh {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for creds := range results {
		count++
		assert.Equal(t, "shared-token", creds.Password)
	}
	assert.Equal(t, callers, count)
	assert.EqualValues(t, 1, signs.Load(), "all callers must share a single signing call")
}

func TestGenerateAuthToken_FailureNotCached(t *testing.T) {
	var signs atomic.Int64
	failing := true
	p, _ := newTestTokenProvider(func(context.Context, string, aws.CredentialsProvider) (string, int64, error) {
		signs.Add(1)
		if failing {
			return "", 0, errors.New("signer unavailable")
		}
		return "recovered-token", time.Now().Add(15 * time.Minute).UnixMilli(), nil
	})

	_, err := p.GenerateAuthToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.CodeTokenGenerationFailed, errs.Code(err))

	failing = false
	creds, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered-token", creds.Password)
	assert.EqualValues(t, 2, signs.Load())
}

func TestGenerateAuthToken_CredentialErrorPropagates(t *testing.T) {
	src := &fixedCredentials{err: errs.New(errs.CodeProfileNotFound, "no such profile")}
	p := NewTokenProvider("us-east-1", "ghost", "", src)
	p.sign = func(context.Context, string, aws.CredentialsProvider) (string, int64, error) {
		t.Fatal("sign must not be called when credential resolution fails")
		return "", 0, nil
	}

	_, err := p.GenerateAuthToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.CodeProfileNotFound, errs.Code(err))
}

func TestGenerateAuthToken_EnvironmentUntouched(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAAMBIENT")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "ambientsecret")
	t.Setenv("AWS_SESSION_TOKEN", "ambienttoken")

	var seen aws.Credentials
	p, _ := newTestTokenProvider(func(ctx context.Context, _ string, provider aws.CredentialsProvider) (string, int64, error) {
		var err error
		seen, err = provider.Retrieve(ctx)
		return "token", time.Now().Add(15 * time.Minute).UnixMilli(), err
	})

	before := os.Environ()
	sort.Strings(before)

	_, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)

	after := os.Environ()
	sort.Strings(after)
	assert.Equal(t, before, after, "token generation must not mutate the process environment")

	// The signer saw the resolved credentials, not the ambient ones.
	assert.Equal(t, "AKIATEST", seen.AccessKeyID)
}

func TestInvalidate_ForcesResign(t *testing.T) {
	var signs atomic.Int64
	p, _ := newTestTokenProvider(func(context.Context, string, aws.CredentialsProvider) (string, int64, error) {
		signs.Add(1)
		return "token", time.Now().Add(15 * time.Minute).UnixMilli(), nil
	})

	_, err := p.GenerateAuthToken(context.Background())
	require.NoError(t, err)

	p.Invalidate()

	_, err = p.GenerateAuthToken(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, signs.Load())
}
