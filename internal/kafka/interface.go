package kafka

import (
	"context"
)

// ClusterClient defines the per-cluster operations the connection manager
// depends on. The interface exists so the manager can be tested against a
// mock without broker connectivity.
type ClusterClient interface {
	// Name returns the cluster name this client serves.
	Name() string

	// Ping verifies broker connectivity.
	Ping(ctx context.Context) error

	// ProduceMessage sends one message and waits for acknowledgement.
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error

	// ConsumeMessages reads up to limit messages with an ephemeral consumer.
	ConsumeMessages(ctx context.Context, topics []string, limit int, fromBeginning bool) ([]Message, error)

	// ListTopics returns all topic names.
	ListTopics(ctx context.Context) ([]string, error)

	// DescribeTopic returns partition layout and configuration for a topic.
	DescribeTopic(ctx context.Context, topic string) (*TopicMetadata, error)

	// CreateTopic creates a topic.
	CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16, configs map[string]*string) error

	// DeleteTopic deletes a topic.
	DeleteTopic(ctx context.Context, topic string) error

	// DescribeTopicConfigs returns a topic's configuration entries.
	DescribeTopicConfigs(ctx context.Context, topic string) ([]ConfigEntry, error)

	// AlterTopicConfig sets one configuration value on a topic.
	AlterTopicConfig(ctx context.Context, topic, key, value string) error

	// ListConsumerGroups returns all consumer groups.
	ListConsumerGroups(ctx context.Context) ([]ConsumerGroupInfo, error)

	// DescribeConsumerGroup returns group members and optionally offsets/lag.
	DescribeConsumerGroup(ctx context.Context, groupID string, includeOffsets bool) (*ConsumerGroupDetails, error)

	// ConsumerGroupLag computes per-partition lag for a group.
	ConsumerGroupLag(ctx context.Context, groupID string) ([]PartitionLag, error)

	// DeleteConsumerGroup deletes an inactive consumer group.
	DeleteConsumerGroup(ctx context.Context, groupID string) error

	// ResetConsumerGroupOffsets rewrites a group's committed offsets.
	ResetConsumerGroupOffsets(ctx context.Context, groupID, topic string, mode OffsetResetMode, specificOffset *int64) error

	// GetClusterOverview returns cluster health counters.
	GetClusterOverview(ctx context.Context) (*ClusterOverview, error)

	// Close shuts the client down.
	Close()
}

// Ensure Client implements ClusterClient.
var _ ClusterClient = (*Client)(nil)
