package kafka

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
)

var testKafkaContainer *tckafka.KafkaContainer
var testKafkaBrokers []string

// setupKafkaContainer starts a Kafka container for integration tests.
func setupKafkaContainer(ctx context.Context) error {
	if os.Getenv("CI") == "true" || os.Getenv("SKIP_KAFKA_TESTS") == "true" {
		return fmt.Errorf("skipping Kafka container setup")
	}

	kc, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		return fmt.Errorf("failed to start Kafka container: %w", err)
	}
	testKafkaContainer = kc

	brokers, err := kc.Brokers(ctx)
	if err != nil {
		teardownKafkaContainer(context.Background())
		return fmt.Errorf("failed to get Kafka brokers: %w", err)
	}
	testKafkaBrokers = brokers
	fmt.Printf("Kafka container started with brokers: %s\n", strings.Join(brokers, ","))
	return nil
}

func teardownKafkaContainer(ctx context.Context) {
	if testKafkaContainer != nil {
		if err := testKafkaContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate Kafka container: %v\n", err)
		}
		testKafkaContainer = nil
		testKafkaBrokers = nil
	}
}

// TestMain manages the Kafka container lifecycle for the suite. When no
// container can be started the unit tests still run; only the integration
// tests skip.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	kafkaAvailable := false
	if err := setupKafkaContainer(ctx); err != nil {
		fmt.Printf("WARNING: Kafka container unavailable, integration tests will be skipped: %v\n", err)
	} else {
		kafkaAvailable = true
	}

	exitCode := m.Run()

	if kafkaAvailable {
		teardownKafkaContainer(context.Background())
	}
	os.Exit(exitCode)
}

func newIntegrationClient(t *testing.T) *Client {
	t.Helper()
	if testKafkaContainer == nil {
		t.Skip("Skipping test: Kafka container not available")
	}
	require.NotEmpty(t, testKafkaBrokers)

	conn := &connection.ClusterConnection{
		Name:             "integration",
		Type:             connection.TypeKafka,
		Brokers:          testKafkaBrokers,
		SecurityProtocol: connection.SecurityPlaintext,
	}
	client, err := NewClient(context.Background(), conn, testKafkaBrokers, nil)
	require.NoError(t, err, "NewClient should connect to the container")
	t.Cleanup(client.Close)
	return client
}

func TestIntegration_TopicLifecycle(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := context.Background()
	topic := fmt.Sprintf("lifecycle-%d", time.Now().UnixNano())

	require.NoError(t, client.CreateTopic(ctx, topic, 3, 1, map[string]*string{
		"cleanup.policy": ptr("compact"),
	}))

	topics, err := client.ListTopics(ctx)
	require.NoError(t, err)
	assert.Contains(t, topics, topic)

	meta, err := client.DescribeTopic(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, topic, meta.Name)
	assert.Len(t, meta.Partitions, 3)

	configs, err := client.DescribeTopicConfigs(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, "compact", configValue(configs, "cleanup.policy"))

	require.NoError(t, client.AlterTopicConfig(ctx, topic, "retention.ms", "3600000"))
	configs, err = client.DescribeTopicConfigs(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, "3600000", configValue(configs, "retention.ms"))

	require.NoError(t, client.DeleteTopic(ctx, topic))
}

func TestIntegration_ProduceConsumeRoundTrip(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := context.Background()
	topic := fmt.Sprintf("roundtrip-%d", time.Now().UnixNano())

	require.NoError(t, client.CreateTopic(ctx, topic, 1, 1, nil))

	key := "order-42"
	value := "payload " + time.Now().String()
	require.NoError(t, client.ProduceMessage(ctx, topic, []byte(key), []byte(value)))

	messages, err := client.ConsumeMessages(ctx, []string{topic}, 1, true)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, key, msg.Key)
	assert.Equal(t, value, msg.Value)
	assert.GreaterOrEqual(t, msg.Offset, int64(0))
	assert.Positive(t, msg.Timestamp)
}

func TestIntegration_ClusterOverview(t *testing.T) {
	client := newIntegrationClient(t)

	overview, err := client.GetClusterOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, overview.BrokerCount)
	assert.Zero(t, overview.OfflinePartitions)
	assert.Empty(t, overview.OfflineBrokerIDs)
}

func TestIntegration_DescribeMissingTopic(t *testing.T) {
	client := newIntegrationClient(t)

	_, err := client.DescribeTopic(context.Background(), "no-such-topic")
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }

func configValue(configs []ConfigEntry, key string) string {
	for _, entry := range configs {
		if entry.Key == key {
			return entry.Value
		}
	}
	return ""
}
