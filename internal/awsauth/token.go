package awsauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	signer "github.com/aws/aws-msk-iam-sasl-signer-go/signer"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// AWS MSK IAM tokens are valid for 15 minutes; caching for 14 leaves a margin
// for clock skew and in-flight use so a served token never expires mid-use.
const tokenCacheTTL = 14 * time.Minute

// SignFunc generates a SASL/OAUTHBEARER token from explicit credentials.
// It matches signer.GenerateAuthTokenFromCredentialsProvider.
type SignFunc func(ctx context.Context, region string, creds aws.CredentialsProvider) (string, int64, error)

// SASLCredentials is the token-as-password pair handed to the wire client.
// By OAUTHBEARER convention both fields carry the signed token.
type SASLCredentials struct {
	Username string
	Password string
}

// TokenProvider generates short-lived MSK IAM tokens for one cluster. It
// caches the token and collapses concurrent generation requests into a single
// signing call. Unlike the cooperative-scheduler original, the check-and-set
// around the in-flight generation is guarded by a real mutex: Go goroutines
// preempt.
//
// The signer receives the resolved credentials through an injected provider,
// so it never reads ambient AWS_* environment variables and no process-wide
// state is touched on any path.
type TokenProvider struct {
	region   string
	profile  string
	roleARN  string
	resolver CredentialSource

	sign SignFunc
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	cached  *cachedToken
	pending *tokenFuture
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// tokenFuture is the shared result cell for one in-flight generation.
// Callers arriving while it exists wait on done instead of signing again.
type tokenFuture struct {
	done  chan struct{}
	token string
	err   error
}

// NewTokenProvider creates a provider for one IAM-authenticated cluster.
// Topic and group admin on the broker needs the assumed role, so role
// assumption (when configured) applies here, unlike bootstrap resolution.
func NewTokenProvider(region, profile, roleARN string, resolver CredentialSource) *TokenProvider {
	return &TokenProvider{
		region:   region,
		profile:  profile,
		roleARN:  roleARN,
		resolver: resolver,
		sign:     signer.GenerateAuthTokenFromCredentialsProvider,
		ttl:      tokenCacheTTL,
		now:      time.Now,
	}
}

// GenerateAuthToken returns a valid SASL token pair, serving from cache when
// possible. N concurrent callers with a cold cache trigger exactly one
// signing call; all receive the same token.
func (p *TokenProvider) GenerateAuthToken(ctx context.Context) (SASLCredentials, error) {
	p.mu.Lock()
	if p.cached != nil && p.now().Before(p.cached.expiresAt) {
		token := p.cached.token
		p.mu.Unlock()
		return SASLCredentials{Username: token, Password: token}, nil
	}
	if p.pending != nil {
		fut := p.pending
		p.mu.Unlock()
		select {
		case <-fut.done:
			if fut.err != nil {
				return SASLCredentials{}, fut.err
			}
			return SASLCredentials{Username: fut.token, Password: fut.token}, nil
		case <-ctx.Done():
			return SASLCredentials{}, ctx.Err()
		}
	}

	fut := &tokenFuture{done: make(chan struct{})}
	p.pending = fut
	p.mu.Unlock()

	token, err := p.generate(ctx)

	p.mu.Lock()
	fut.token, fut.err = token, err
	if err == nil {
		p.cached = &cachedToken{token: token, expiresAt: p.now().Add(p.ttl)}
	}
	p.pending = nil
	p.mu.Unlock()
	close(fut.done)

	if err != nil {
		return SASLCredentials{}, err
	}
	return SASLCredentials{Username: token, Password: token}, nil
}

func (p *TokenProvider) generate(ctx context.Context) (string, error) {
	creds, err := p.resolver.Resolve(ctx, p.profile, p.roleARN, p.region)
	if err != nil {
		return "", err
	}

	token, expiryMs, err := p.sign(ctx, p.region, staticProvider(creds))
	if err != nil {
		if classified := errs.ClassifyAWS(err, p.profile, p.roleARN); classified != nil {
			return "", classified
		}
		return "", errs.Wrap(err, errs.CodeTokenGenerationFailed, "failed to generate MSK IAM auth token").
			WithProfile(p.profile).WithRole(p.roleARN)
	}

	slog.Debug("Generated MSK IAM auth token",
		"region", p.region,
		"signerExpiry", time.UnixMilli(expiryMs).UTC().Format(time.RFC3339))
	return token, nil
}

// Invalidate drops the cached token so the next call signs again. Used after
// the broker rejects a token that should still be valid.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
