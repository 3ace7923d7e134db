package kafka

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

func TestClampLag(t *testing.T) {
	tests := []struct {
		name          string
		highWaterMark int64
		committed     int64
		want          int64
	}{
		{"behind", 100, 40, 60},
		{"caught up", 100, 100, 0},
		{"committed ahead of snapshot", 100, 105, 0},
		{"empty partition", 0, 0, 0},
		{"nothing committed", 50, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLag(tt.highWaterMark, tt.committed))
		})
	}
}

func TestBuildSASLMechanism(t *testing.T) {
	t.Run("plaintext needs no mechanism", func(t *testing.T) {
		mech, err := buildSASLMechanism(&connection.ClusterConnection{
			SecurityProtocol: connection.SecurityPlaintext,
		}, nil)
		require.NoError(t, err)
		assert.Nil(t, mech)
	})

	t.Run("plain", func(t *testing.T) {
		mech, err := buildSASLMechanism(&connection.ClusterConnection{
			SecurityProtocol: connection.SecuritySASLSSL,
			SASLMechanism:    connection.MechanismPlain,
			SASLUsername:     "admin",
			SASLPassword:     "pw",
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, mech)
		assert.Equal(t, "PLAIN", mech.Name())
	})

	t.Run("scram variants", func(t *testing.T) {
		for mechanism, wire := range map[string]string{
			connection.MechanismScramSha256: "SCRAM-SHA-256",
			connection.MechanismScramSha512: "SCRAM-SHA-512",
		} {
			mech, err := buildSASLMechanism(&connection.ClusterConnection{
				SecurityProtocol: connection.SecuritySASLSSL,
				SASLMechanism:    mechanism,
				SASLUsername:     "admin",
				SASLPassword:     "pw",
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, wire, mech.Name())
		}
	})

	t.Run("iam without token provider", func(t *testing.T) {
		_, err := buildSASLMechanism(&connection.ClusterConnection{
			Name:             "msk",
			SecurityProtocol: connection.SecuritySASLSSL,
			SASLMechanism:    connection.MechanismAWSMSKIAM,
		}, nil)
		require.Error(t, err)
		assert.Equal(t, errs.CodeInvalidClusterConfig, errs.Code(err))
	})

	t.Run("unsupported mechanism", func(t *testing.T) {
		_, err := buildSASLMechanism(&connection.ClusterConnection{
			SecurityProtocol: connection.SecuritySASLSSL,
			SASLMechanism:    "GSSAPI",
		}, nil)
		require.Error(t, err)
		assert.Equal(t, errs.CodeInvalidClusterConfig, errs.Code(err))
	})
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("verification on by default", func(t *testing.T) {
		cfg, err := buildTLSConfig(&connection.ClusterConnection{
			SecurityProtocol: connection.SecuritySSL,
		})
		require.NoError(t, err)
		assert.False(t, cfg.InsecureSkipVerify)
	})

	t.Run("explicit opt-out disables verification", func(t *testing.T) {
		off := false
		cfg, err := buildTLSConfig(&connection.ClusterConnection{
			SecurityProtocol:   connection.SecuritySSL,
			RejectUnauthorized: &off,
		})
		require.NoError(t, err)
		assert.True(t, cfg.InsecureSkipVerify)
	})

	t.Run("missing CA file", func(t *testing.T) {
		_, err := buildTLSConfig(&connection.ClusterConnection{
			Name:      "secure",
			SSLCAFile: filepath.Join(t.TempDir(), "absent.pem"),
		})
		require.Error(t, err)
		assert.Equal(t, errs.CodeInvalidClusterConfig, errs.Code(err))
	})

	t.Run("CA file without PEM certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

		_, err := buildTLSConfig(&connection.ClusterConnection{Name: "secure", SSLCAFile: path})
		require.Error(t, err)
		assert.Equal(t, errs.CodeInvalidClusterConfig, errs.Code(err))
	})

	t.Run("broken client key pair", func(t *testing.T) {
		dir := t.TempDir()
		cert := filepath.Join(dir, "client.pem")
		key := filepath.Join(dir, "client.key")
		require.NoError(t, os.WriteFile(cert, []byte("bad cert"), 0o600))
		require.NoError(t, os.WriteFile(key, []byte("bad key"), 0o600))

		_, err := buildTLSConfig(&connection.ClusterConnection{
			Name:        "secure",
			SSLCertFile: cert,
			SSLKeyFile:  key,
		})
		require.Error(t, err)
		assert.Equal(t, errs.CodeInvalidClusterConfig, errs.Code(err))
	})
}
