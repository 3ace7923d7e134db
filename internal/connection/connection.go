// Package connection defines the persisted cluster connection model and its
// storage. A ClusterConnection describes how to reach one Kafka or MSK
// cluster; live handles derived from it are owned elsewhere.
package connection

import (
	"fmt"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// ClusterType distinguishes plain Kafka clusters from AWS MSK clusters whose
// brokers are resolved dynamically from the control plane.
type ClusterType string

const (
	TypeKafka ClusterType = "kafka"
	TypeMSK   ClusterType = "msk"
)

// Security protocols.
const (
	SecurityPlaintext     = "PLAINTEXT"
	SecuritySSL           = "SSL"
	SecuritySASLPlaintext = "SASL_PLAINTEXT"
	SecuritySASLSSL       = "SASL_SSL"
)

// SASL mechanisms.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSha256 = "SCRAM-SHA-256"
	MechanismScramSha512 = "SCRAM-SHA-512"
	MechanismAWSMSKIAM   = "AWS_MSK_IAM"
)

// ClusterConnection is one configured cluster. Records are replaced whole on
// mutation; there are no ad-hoc partial field updates.
type ClusterConnection struct {
	Name string      `json:"name"`
	Type ClusterType `json:"type"`

	// Brokers is the host:port seed list for kafka-type clusters. Empty for
	// msk-type clusters, whose brokers come from the control plane.
	Brokers []string `json:"brokers,omitempty"`

	SecurityProtocol string `json:"securityProtocol"`

	// SASL settings. The password is session-only and never written to the
	// durable config store; see Sanitize.
	SASLMechanism string `json:"saslMechanism,omitempty"`
	SASLUsername  string `json:"saslUsername,omitempty"`
	SASLPassword  string `json:"-"`

	// SSL settings reference files by path; contents are loaded only when
	// building a live client configuration.
	SSLCAFile          string `json:"sslCaFile,omitempty"`
	SSLCertFile        string `json:"sslCertFile,omitempty"`
	SSLKeyFile         string `json:"sslKeyFile,omitempty"`
	SSLPassword        string `json:"-"`
	RejectUnauthorized *bool  `json:"rejectUnauthorized,omitempty"`

	// MSK settings.
	Region        string `json:"region,omitempty"`
	ClusterArn    string `json:"clusterArn,omitempty"`
	AWSProfile    string `json:"awsProfile,omitempty"`
	AssumeRoleArn string `json:"assumeRoleArn,omitempty"`
}

// VerifyTLS reports whether server certificates should be verified.
// Defaults to true when unset.
func (c *ClusterConnection) VerifyTLS() bool {
	if c.RejectUnauthorized == nil {
		return true
	}
	return *c.RejectUnauthorized
}

// UsesTLS reports whether the security protocol involves TLS.
func (c *ClusterConnection) UsesTLS() bool {
	return c.SecurityProtocol == SecuritySSL || c.SecurityProtocol == SecuritySASLSSL
}

// UsesSASL reports whether the security protocol involves SASL.
func (c *ClusterConnection) UsesSASL() bool {
	return c.SecurityProtocol == SecuritySASLPlaintext || c.SecurityProtocol == SecuritySASLSSL
}

// Validate enforces the type-specific invariants. It must reject a bad record
// before any network call is made on its behalf.
func (c *ClusterConnection) Validate() error {
	if c.Name == "" {
		return errs.New(errs.CodeInvalidClusterConfig, "cluster name is required")
	}
	switch c.Type {
	case TypeKafka:
		if len(c.Brokers) == 0 {
			return errs.New(errs.CodeInvalidClusterConfig, "kafka cluster requires at least one broker address").
				WithCluster(c.Name)
		}
	case TypeMSK:
		if c.Region == "" || c.ClusterArn == "" {
			return errs.New(errs.CodeInvalidClusterConfig, "msk cluster requires region and clusterArn").
				WithCluster(c.Name)
		}
	default:
		return errs.New(errs.CodeInvalidClusterConfig, fmt.Sprintf("unknown cluster type %q", c.Type)).
			WithCluster(c.Name)
	}
	switch c.SecurityProtocol {
	case "", SecurityPlaintext, SecuritySSL, SecuritySASLPlaintext, SecuritySASLSSL:
	default:
		return errs.New(errs.CodeInvalidClusterConfig, fmt.Sprintf("unknown security protocol %q", c.SecurityProtocol)).
			WithCluster(c.Name)
	}
	if c.UsesSASL() {
		switch c.SASLMechanism {
		case MechanismPlain, MechanismScramSha256, MechanismScramSha512:
			if c.SASLUsername == "" {
				return errs.New(errs.CodeInvalidClusterConfig, "SASL username is required for "+c.SASLMechanism).
					WithCluster(c.Name)
			}
		case MechanismAWSMSKIAM:
			if c.Region == "" {
				return errs.New(errs.CodeInvalidClusterConfig, "AWS_MSK_IAM requires a region").
					WithCluster(c.Name)
			}
		default:
			return errs.New(errs.CodeInvalidClusterConfig, fmt.Sprintf("unknown SASL mechanism %q", c.SASLMechanism)).
				WithCluster(c.Name)
		}
	}
	return nil
}

// Sanitize returns a copy safe for the durable config store: passwords are
// stripped, SSL materials remain as paths only. Everything needed to
// reconnect (region, ARN, profile, role) is retained.
func (c *ClusterConnection) Sanitize() ClusterConnection {
	out := *c
	out.SASLPassword = ""
	out.SSLPassword = ""
	out.Brokers = append([]string(nil), c.Brokers...)
	return out
}
