// Package manager orchestrates credential resolution, MSK bootstrap, token
// providers, and the connection pool behind a single facade the host UI
// talks to.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/awsauth"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/kafka"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/pool"
)

// ClientFactory builds a live cluster client. Injectable for tests.
type ClientFactory func(ctx context.Context, conn *connection.ClusterConnection, brokers []string, tokens kafka.TokenGenerator) (kafka.ClusterClient, error)

// BrokerResolver resolves MSK bootstrap brokers. Injectable for tests.
type BrokerResolver interface {
	GetBootstrapBrokers(ctx context.Context, region, clusterARN, authMethod, awsProfile string) ([]string, error)
}

// clusterEntry is the registered state for one cluster: its configuration,
// the resolved broker list, and the IAM token provider when applicable.
// Live clients are owned by the pool, not the entry.
type clusterEntry struct {
	conn    connection.ClusterConnection
	brokers []string
	tokens  *awsauth.TokenProvider
}

// Manager is the cluster connection and credential manager facade.
type Manager struct {
	credentials *awsauth.CredentialResolver
	bootstrap   BrokerResolver
	store       connection.Store
	secrets     connection.SecretStore
	newClient   ClientFactory

	connections *pool.Pool

	mu       sync.Mutex
	clusters map[string]*clusterEntry
}

// Option configures a Manager.
type Option func(*Manager)

// WithClientFactory overrides how live cluster clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) { m.newClient = f }
}

// WithBrokerResolver overrides MSK bootstrap resolution.
func WithBrokerResolver(r BrokerResolver) Option {
	return func(m *Manager) { m.bootstrap = r }
}

// WithPool overrides the connection pool (e.g. to tune eviction in tests).
func WithPool(p *pool.Pool) Option {
	return func(m *Manager) { m.connections = p }
}

// New creates a Manager persisting cluster records to store and secrets to
// the given secret store.
func New(store connection.Store, secrets connection.SecretStore, opts ...Option) *Manager {
	credentials := awsauth.NewCredentialResolver()
	m := &Manager{
		credentials: credentials,
		bootstrap:   awsauth.NewBootstrapResolver(credentials),
		store:       store,
		secrets:     secrets,
		newClient: func(ctx context.Context, conn *connection.ClusterConnection, brokers []string, tokens kafka.TokenGenerator) (kafka.ClusterClient, error) {
			return kafka.NewClient(ctx, conn, brokers, tokens)
		},
		clusters: make(map[string]*clusterEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.connections == nil {
		m.connections = pool.New()
	}
	return m
}

// AddClusterFromConnection validates and registers a cluster. Validation
// failures reject the record before any network call. A connect failure is
// non-fatal: the cluster stays registered and connecting is retried lazily
// on first use.
func (m *Manager) AddClusterFromConnection(ctx context.Context, conn connection.ClusterConnection) error {
	if err := conn.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.clusters[conn.Name]; exists {
		m.mu.Unlock()
		return errs.New(errs.CodeInvalidClusterConfig, "a cluster with this name already exists").
			WithCluster(conn.Name).
			WithRemediation("remove the existing cluster first or pick another name")
	}
	m.mu.Unlock()

	entry := &clusterEntry{conn: conn}

	if conn.Type == connection.TypeMSK {
		brokers, err := m.bootstrap.GetBootstrapBrokers(ctx, conn.Region, conn.ClusterArn, conn.SASLMechanism, conn.AWSProfile)
		if err != nil {
			return err
		}
		entry.brokers = brokers
	} else {
		entry.brokers = conn.Brokers
	}

	if conn.SASLMechanism == connection.MechanismAWSMSKIAM {
		entry.tokens = awsauth.NewTokenProvider(conn.Region, conn.AWSProfile, conn.AssumeRoleArn, m.credentials)
	}

	m.mu.Lock()
	m.clusters[conn.Name] = entry
	m.mu.Unlock()

	if conn.SASLPassword != "" || conn.SSLPassword != "" {
		m.secrets.Store(conn.Name, connection.Credentials{
			SASLPassword: conn.SASLPassword,
			SSLPassword:  conn.SSLPassword,
		})
	}

	// Eagerly connect to surface configuration problems early, but tolerate
	// failure: unreachable brokers at add-time must not lose the config.
	if client, err := m.connect(ctx, entry); err != nil {
		slog.WarnContext(ctx, "Cluster added but initial connection failed; will retry on first use",
			"cluster", conn.Name, "error", err)
	} else {
		m.connections.Put(conn.Name, client)
	}

	return m.persist()
}

// connect builds a live client for the entry. Callers must not hold m.mu:
// connecting performs network I/O.
func (m *Manager) connect(ctx context.Context, entry *clusterEntry) (kafka.ClusterClient, error) {
	conn := entry.conn
	if creds, ok := m.secrets.Get(conn.Name); ok {
		if conn.SASLPassword == "" {
			conn.SASLPassword = creds.SASLPassword
		}
		if conn.SSLPassword == "" {
			conn.SSLPassword = creds.SSLPassword
		}
	}

	brokers := entry.brokers
	if len(brokers) == 0 && conn.Type == connection.TypeMSK {
		resolved, err := m.bootstrap.GetBootstrapBrokers(ctx, conn.Region, conn.ClusterArn, conn.SASLMechanism, conn.AWSProfile)
		if err != nil {
			return nil, err
		}
		entry.brokers = resolved
		brokers = resolved
	}

	var tokens kafka.TokenGenerator
	if entry.tokens != nil {
		tokens = entry.tokens
	}
	return m.newClient(ctx, &conn, brokers, tokens)
}

// getClient returns the pooled client for a cluster, creating it lazily on
// first use. Failed creations are not cached, so the next call retries.
func (m *Manager) getClient(ctx context.Context, name string) (kafka.ClusterClient, error) {
	if client, ok := m.connections.Get(name); ok {
		return client.(kafka.ClusterClient), nil
	}

	m.mu.Lock()
	entry, ok := m.clusters[name]
	m.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.CodeTopicOrGroupNotFound, "no such cluster").
			WithCluster(name).
			WithRemediation("add the cluster first")
	}

	client, err := m.connect(ctx, entry)
	if err != nil {
		return nil, err
	}
	m.connections.Put(name, client)
	return client, nil
}

// GetClusters lists registered cluster names, sorted.
func (m *Manager) GetClusters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.clusters))
	for name := range m.clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetClusterConnection returns the sanitized record for one cluster.
func (m *Manager) GetClusterConnection(name string) (connection.ClusterConnection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.clusters[name]
	if !ok {
		return connection.ClusterConnection{}, false
	}
	return entry.conn.Sanitize(), true
}

// RemoveCluster tears down a cluster's live handles and deletes its
// configuration and secrets. Handle teardown failures do not abort removal.
func (m *Manager) RemoveCluster(name string) error {
	m.mu.Lock()
	_, ok := m.clusters[name]
	delete(m.clusters, name)
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeTopicOrGroupNotFound, "no such cluster").WithCluster(name)
	}

	m.connections.Remove(name)
	m.secrets.Delete(name)
	return m.persist()
}

// DisposeAll tears down every cluster, best-effort, and stops the pool.
func (m *Manager) DisposeAll() {
	m.mu.Lock()
	m.clusters = make(map[string]*clusterEntry)
	m.mu.Unlock()
	m.connections.Stop()
}

// LoadFailure records one cluster that could not be restored at startup.
type LoadFailure struct {
	Cluster string
	Code    string
	Err     error
}

// LoadConfiguration restores every persisted cluster. Per-cluster failures
// are collected, classified, and returned; they never abort loading the
// remaining clusters.
func (m *Manager) LoadConfiguration(ctx context.Context) ([]LoadFailure, error) {
	records, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	var failures []LoadFailure
	for _, record := range records {
		if err := m.AddClusterFromConnection(ctx, record); err != nil {
			code := errs.Code(err)
			if code == "" {
				code = errs.CodeClusterUnreachable
			}
			slog.WarnContext(ctx, "Failed to restore cluster from configuration",
				"cluster", record.Name, "code", code, "error", err)
			failures = append(failures, LoadFailure{Cluster: record.Name, Code: code, Err: err})
		}
	}
	return failures, nil
}

// persist saves all sanitized records.
func (m *Manager) persist() error {
	m.mu.Lock()
	records := make([]connection.ClusterConnection, 0, len(m.clusters))
	for _, entry := range m.clusters {
		records = append(records, entry.conn.Sanitize())
	}
	m.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	if err := m.store.Save(records); err != nil {
		return fmt.Errorf("persist cluster configuration: %w", err)
	}
	return nil
}
