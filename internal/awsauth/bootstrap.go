package awsauth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kafka"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// MSKClient is the subset of the MSK control-plane API used here.
type MSKClient interface {
	GetBootstrapBrokers(ctx context.Context, in *kafka.GetBootstrapBrokersInput, optFns ...func(*kafka.Options)) (*kafka.GetBootstrapBrokersOutput, error)
}

// BootstrapResolver fetches broker connection strings from the MSK control
// plane. It resolves credentials with the base profile only: listing
// bootstrap brokers needs read-level account permissions, while role-assumed
// credentials are reserved for broker-level admin operations.
type BootstrapResolver struct {
	resolver  CredentialSource
	newClient func(cfg aws.Config) MSKClient
}

// NewBootstrapResolver creates a resolver backed by the real MSK API.
func NewBootstrapResolver(creds CredentialSource) *BootstrapResolver {
	return &BootstrapResolver{
		resolver:  creds,
		newClient: func(cfg aws.Config) MSKClient { return kafka.NewFromConfig(cfg) },
	}
}

// GetBootstrapBrokers returns the broker host:port list for the cluster,
// selecting the connection-string variant matching the auth method.
func (b *BootstrapResolver) GetBootstrapBrokers(ctx context.Context, region, clusterARN, authMethod, awsProfile string) ([]string, error) {
	creds, err := b.resolver.Resolve(ctx, awsProfile, "", region)
	if err != nil {
		return nil, err
	}

	client := b.newClient(aws.Config{
		Region:      region,
		Credentials: staticProvider(creds),
	})
	out, err := client.GetBootstrapBrokers(ctx, &kafka.GetBootstrapBrokersInput{
		ClusterArn: aws.String(clusterARN),
	})
	if err != nil {
		return nil, classifyBootstrapError(err, awsProfile, clusterARN)
	}

	brokerString := selectBrokerString(out, authMethod)
	if brokerString == "" {
		return nil, errs.New(errs.CodeNoBrokersAvailable,
			fmt.Sprintf("MSK cluster has no bootstrap brokers for auth method %q", authMethod)).
			WithResource(clusterARN).
			WithRemediation("enable the matching authentication method on the cluster or pick another mechanism")
	}

	brokers := strings.Split(brokerString, ",")
	slog.DebugContext(ctx, "Resolved MSK bootstrap brokers", "clusterArn", clusterARN, "brokerCount", len(brokers))
	return brokers, nil
}

// selectBrokerString prefers the most auth-specific variant present in the
// control-plane response: IAM when requested, then SCRAM when a SCRAM
// mechanism is configured, then TLS, then plaintext.
func selectBrokerString(out *kafka.GetBootstrapBrokersOutput, authMethod string) string {
	if authMethod == connection.MechanismAWSMSKIAM {
		return aws.ToString(out.BootstrapBrokerStringSaslIam)
	}
	if strings.Contains(strings.ToUpper(authMethod), "SCRAM") {
		if s := aws.ToString(out.BootstrapBrokerStringSaslScram); s != "" {
			return s
		}
	}
	if s := aws.ToString(out.BootstrapBrokerStringTls); s != "" {
		return s
	}
	return aws.ToString(out.BootstrapBrokerString)
}

func classifyBootstrapError(err error, profile, clusterARN string) error {
	if classified := errs.ClassifyAWS(err, profile, ""); classified != nil {
		if classified.Code == errs.CodeInsufficientPermissions {
			classified.Remediation = "grant the kafka:GetBootstrapBrokers permission to your IAM principal"
			classified.Resource = clusterARN
		}
		return classified
	}
	return errs.Wrap(err, errs.CodeBootstrapFetchFailed,
		"failed to fetch bootstrap brokers from the MSK control plane").
		WithProfile(profile).WithResource(clusterARN).
		WithRemediation("check the cluster ARN, region, and network access to the AWS API")
}
