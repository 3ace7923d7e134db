// Package kafka wraps the franz-go client with the operations the connection
// manager exposes: topic and consumer-group administration, producing, and
// bounded consumption.
package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/oauth"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/awsauth"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// TokenGenerator supplies SASL/OAUTHBEARER token pairs for MSK IAM auth.
type TokenGenerator interface {
	GenerateAuthToken(ctx context.Context) (awsauth.SASLCredentials, error)
}

// Client wraps one cluster's franz-go client. The same underlying client
// serves admin and producer duties; consumers are ephemeral and created per
// operation (see consume.go).
type Client struct {
	name      string
	kgoClient *kgo.Client
	admin     *kadm.Client

	// baseOpts rebuilds connection options for ephemeral consumers.
	baseOpts []kgo.Opt
}

// NewClient connects to the cluster described by conn using the given broker
// list (already resolved for MSK clusters). tokens may be nil unless the
// SASL mechanism is AWS_MSK_IAM.
func NewClient(ctx context.Context, conn *connection.ClusterConnection, brokers []string, tokens TokenGenerator) (*Client, error) {
	opts, err := buildOpts(conn, brokers, tokens)
	if err != nil {
		return nil, err
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeClusterUnreachable, "failed to create Kafka client").
			WithCluster(conn.Name).
			WithRemediation("check broker addresses and credentials, then reconnect the cluster")
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, errs.Wrap(err, errs.CodeClusterUnreachable, "failed to reach Kafka brokers").
			WithCluster(conn.Name).
			WithRemediation("check broker addresses and credentials, then reconnect the cluster")
	}

	return &Client{
		name:      conn.Name,
		kgoClient: cl,
		admin:     kadm.NewClient(cl),
		baseOpts:  opts,
	}, nil
}

// buildOpts maps a ClusterConnection onto franz-go options. SSL materials
// are loaded from their file paths here and handed straight to the TLS
// config; they are not retained anywhere else.
func buildOpts(conn *connection.ClusterConnection, brokers []string, tokens TokenGenerator) ([]kgo.Opt, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("kafka-cluster-mcp-" + uuid.NewString()[:8]),
		kgo.WithLogger(kgo.BasicLogger(os.Stderr, kgo.LogLevelWarn, nil)),
	}

	needTLS := conn.UsesTLS() || conn.SASLMechanism == connection.MechanismAWSMSKIAM
	if needTLS {
		tlsConfig, err := buildTLSConfig(conn)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	mechanism, err := buildSASLMechanism(conn, tokens)
	if err != nil {
		return nil, err
	}
	if mechanism != nil {
		opts = append(opts, kgo.SASL(mechanism))
	}
	return opts, nil
}

func buildTLSConfig(conn *connection.ClusterConnection) (*tls.Config, error) {
	//nolint:gosec // InsecureSkipVerify is an explicit user opt-out
	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !conn.VerifyTLS(),
	}

	if conn.SSLCAFile != "" {
		caCert, err := os.ReadFile(conn.SSLCAFile)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidClusterConfig, "failed to read CA certificate").
				WithCluster(conn.Name).WithResource(conn.SSLCAFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errs.New(errs.CodeInvalidClusterConfig, "CA file contains no valid PEM certificates").
				WithCluster(conn.Name).WithResource(conn.SSLCAFile)
		}
		config.RootCAs = pool
	}

	if conn.SSLCertFile != "" || conn.SSLKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(conn.SSLCertFile, conn.SSLKeyFile)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeInvalidClusterConfig, "failed to load client certificate/key pair").
				WithCluster(conn.Name).WithResource(conn.SSLCertFile)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

func buildSASLMechanism(conn *connection.ClusterConnection, tokens TokenGenerator) (sasl.Mechanism, error) {
	if !conn.UsesSASL() && conn.SASLMechanism != connection.MechanismAWSMSKIAM {
		return nil, nil
	}

	switch conn.SASLMechanism {
	case connection.MechanismPlain:
		return plain.Auth{User: conn.SASLUsername, Pass: conn.SASLPassword}.AsMechanism(), nil
	case connection.MechanismScramSha256:
		return scram.Auth{User: conn.SASLUsername, Pass: conn.SASLPassword}.AsSha256Mechanism(), nil
	case connection.MechanismScramSha512:
		return scram.Auth{User: conn.SASLUsername, Pass: conn.SASLPassword}.AsSha512Mechanism(), nil
	case connection.MechanismAWSMSKIAM:
		if tokens == nil {
			return nil, errs.New(errs.CodeInvalidClusterConfig, "AWS_MSK_IAM requires a token provider").
				WithCluster(conn.Name)
		}
		return oauth.Oauth(func(ctx context.Context) (oauth.Auth, error) {
			creds, err := tokens.GenerateAuthToken(ctx)
			if err != nil {
				return oauth.Auth{}, err
			}
			return oauth.Auth{Token: creds.Password}, nil
		}), nil
	case "":
		return nil, nil
	default:
		return nil, errs.New(errs.CodeInvalidClusterConfig,
			fmt.Sprintf("unsupported SASL mechanism: %s", conn.SASLMechanism)).
			WithCluster(conn.Name)
	}
}

// Name returns the cluster name this client serves.
func (c *Client) Name() string {
	return c.name
}

// Ping verifies broker connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.kgoClient.Ping(ctx)
}

// ProduceMessage sends one message and waits for the broker acknowledgement.
func (c *Client) ProduceMessage(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := c.kgoClient.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close gracefully shuts down the underlying client.
func (c *Client) Close() {
	if c.kgoClient != nil {
		c.kgoClient.Close()
	}
}
