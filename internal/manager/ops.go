package manager

import (
	"context"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/kafka"
)

// Topic, message, and consumer-group operations, each resolved through the
// pooled per-cluster client.

func (m *Manager) ListTopics(ctx context.Context, cluster string) ([]string, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.ListTopics(ctx)
}

func (m *Manager) DescribeTopic(ctx context.Context, cluster, topic string) (*kafka.TopicMetadata, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.DescribeTopic(ctx, topic)
}

func (m *Manager) CreateTopic(ctx context.Context, cluster, topic string, partitions int32, replicationFactor int16, configs map[string]*string) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.CreateTopic(ctx, topic, partitions, replicationFactor, configs)
}

func (m *Manager) DeleteTopic(ctx context.Context, cluster, topic string) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.DeleteTopic(ctx, topic)
}

func (m *Manager) AlterTopicConfig(ctx context.Context, cluster, topic, key, value string) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.AlterTopicConfig(ctx, topic, key, value)
}

func (m *Manager) ProduceMessage(ctx context.Context, cluster, topic string, key, value []byte) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.ProduceMessage(ctx, topic, key, value)
}

// ConsumeMessages reads up to limit messages. Cancellation through ctx stops
// the read and returns the messages accumulated so far.
func (m *Manager) ConsumeMessages(ctx context.Context, cluster string, topics []string, limit int, fromBeginning bool) ([]kafka.Message, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.ConsumeMessages(ctx, topics, limit, fromBeginning)
}

func (m *Manager) ListConsumerGroups(ctx context.Context, cluster string) ([]kafka.ConsumerGroupInfo, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.ListConsumerGroups(ctx)
}

func (m *Manager) DescribeConsumerGroup(ctx context.Context, cluster, groupID string, includeOffsets bool) (*kafka.ConsumerGroupDetails, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.DescribeConsumerGroup(ctx, groupID, includeOffsets)
}

func (m *Manager) DeleteConsumerGroup(ctx context.Context, cluster, groupID string) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.DeleteConsumerGroup(ctx, groupID)
}

func (m *Manager) ResetConsumerGroupOffsets(ctx context.Context, cluster, groupID, topic string, mode kafka.OffsetResetMode, specificOffset *int64) error {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return err
	}
	return client.ResetConsumerGroupOffsets(ctx, groupID, topic, mode, specificOffset)
}

func (m *Manager) GetConsumerGroupLag(ctx context.Context, cluster, groupID string) ([]kafka.PartitionLag, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.ConsumerGroupLag(ctx, groupID)
}

func (m *Manager) GetClusterOverview(ctx context.Context, cluster string) (*kafka.ClusterOverview, error) {
	client, err := m.getClient(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return client.GetClusterOverview(ctx)
}
