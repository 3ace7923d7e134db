// Package awsauth resolves AWS credentials, fetches MSK bootstrap brokers,
// and generates MSK IAM SASL tokens. It reads the shared credentials files
// and never writes them.
package awsauth

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

const (
	assumeRoleSessionName     = "kafka-cluster-mcp"
	assumeRoleDurationSeconds = 3600
)

// CredentialSource yields a complete credential triple. CredentialResolver is
// the production implementation; consumers depend on the interface so tests
// can substitute fixed credentials.
type CredentialSource interface {
	Resolve(ctx context.Context, profile, assumeRoleARN, region string) (aws.Credentials, error)
}

// STSClient is the subset of the STS API used for role assumption.
type STSClient interface {
	AssumeRole(ctx context.Context, in *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// CredentialResolver resolves AWS credentials in a fixed precedence order
// mirroring the AWS CLI: an explicit profile reads the shared credentials
// file directly so that ambient AWS_* environment variables never override a
// deliberate profile selection in the UI.
type CredentialResolver struct {
	// newSTS builds the STS client used for AssumeRole. Overridable in tests.
	newSTS func(cfg aws.Config) STSClient

	// sharedFiles overrides the credentials/config file locations. Populated
	// from AWS_SHARED_CREDENTIALS_FILE / AWS_CONFIG_FILE when set, matching
	// CLI behavior.
	credentialsFiles []string
	configFiles      []string
}

// NewCredentialResolver creates a resolver using the real AWS SDK.
func NewCredentialResolver() *CredentialResolver {
	r := &CredentialResolver{
		newSTS: func(cfg aws.Config) STSClient { return sts.NewFromConfig(cfg) },
	}
	if f := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); f != "" {
		r.credentialsFiles = []string{f}
	}
	if f := os.Getenv("AWS_CONFIG_FILE"); f != "" {
		r.configFiles = []string{f}
	}
	return r
}

// Resolve returns a complete credential triple for the given profile and
// optional role. Role assumption resolves base credentials first (honoring
// the profile), then exchanges them for a temporary triple via STS.
func (r *CredentialResolver) Resolve(ctx context.Context, profile, assumeRoleARN, region string) (aws.Credentials, error) {
	base, err := r.resolveBase(ctx, profile, region)
	if err != nil {
		return aws.Credentials{}, err
	}
	if assumeRoleARN == "" {
		return base, nil
	}
	return r.assumeRole(ctx, base, assumeRoleARN, region, profile)
}

func (r *CredentialResolver) resolveBase(ctx context.Context, profile, region string) (aws.Credentials, error) {
	if profile != "" {
		return r.resolveProfile(ctx, profile)
	}

	// No explicit profile: defer to the SDK default chain, which checks
	// environment variables, then shared credentials/config files (default
	// profile), then credential_process.
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Credentials{}, errs.Wrap(err, errs.CodeCredentialsNotFound,
			"failed to load AWS configuration")
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return aws.Credentials{}, errs.Wrap(err, errs.CodeCredentialsNotFound,
			"no AWS credentials found in environment variables, shared credentials files, or credential process").
			WithRemediation("configure credentials with `aws configure` or set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY")
	}
	return creds, nil
}

// resolveProfile reads the named profile straight from the shared files,
// bypassing the environment-variable precedence a generic SDK chain applies.
func (r *CredentialResolver) resolveProfile(ctx context.Context, profile string) (aws.Credentials, error) {
	shared, err := awsconfig.LoadSharedConfigProfile(ctx, profile, func(o *awsconfig.LoadSharedConfigOptions) {
		if r.credentialsFiles != nil {
			o.CredentialsFiles = r.credentialsFiles
		}
		if r.configFiles != nil {
			o.ConfigFiles = r.configFiles
		}
	})
	if err != nil {
		if classified := errs.ClassifyAWS(err, profile, ""); classified != nil {
			return aws.Credentials{}, classified
		}
		return aws.Credentials{}, errs.Wrap(err, errs.CodeProfileNotFound,
			fmt.Sprintf("failed to read profile %q from shared credentials files", profile)).
			WithProfile(profile).
			WithRemediation("check ~/.aws/credentials for a [" + profile + "] section")
	}
	creds := shared.Credentials
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errs.New(errs.CodeCredentialsNotFound,
			fmt.Sprintf("profile %q is missing aws_access_key_id or aws_secret_access_key", profile)).
			WithProfile(profile)
	}
	creds.Source = "SharedConfigProfile:" + profile
	return creds, nil
}

func (r *CredentialResolver) assumeRole(ctx context.Context, base aws.Credentials, roleARN, region, profile string) (aws.Credentials, error) {
	cfg := aws.Config{
		Region:      region,
		Credentials: staticProvider(base),
	}
	client := r.newSTS(cfg)
	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(assumeRoleSessionName),
		DurationSeconds: aws.Int32(assumeRoleDurationSeconds),
	})
	if err != nil {
		return aws.Credentials{}, errs.Wrap(err, errs.CodeRoleAssumptionFailed,
			fmt.Sprintf("failed to assume role %s", roleARN)).
			WithProfile(profile).WithRole(roleARN).
			WithRemediation("verify the role exists and its trust policy allows your principal")
	}
	if out.Credentials == nil {
		return aws.Credentials{}, errs.New(errs.CodeRoleAssumptionFailed,
			fmt.Sprintf("AssumeRole for %s returned no credentials", roleARN)).
			WithProfile(profile).WithRole(roleARN)
	}
	return aws.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		CanExpire:       true,
		Expires:         aws.ToTime(out.Credentials.Expiration),
		Source:          "AssumeRole:" + roleARN,
	}, nil
}

// staticProvider wraps already-resolved credentials so downstream SDK calls
// see exactly these and nothing from the ambient process environment.
func staticProvider(creds aws.Credentials) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	})
}
