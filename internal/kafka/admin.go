package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// classifyKafkaErr maps broker error codes onto the error taxonomy so the
// facade can surface actionable messages without inspecting kerr itself.
func (c *Client) classifyKafkaErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, kerr.UnknownTopicOrPartition), errors.Is(err, kerr.GroupIDNotFound):
		return errs.Wrap(err, errs.CodeTopicOrGroupNotFound, "topic or consumer group not found").
			WithCluster(c.name).WithResource(resource)
	case errors.Is(err, kerr.CoordinatorNotAvailable), errors.Is(err, kerr.NotCoordinator), errors.Is(err, kerr.CoordinatorLoadInProgress):
		return errs.Wrap(err, errs.CodeCoordinatorUnavailable, "group coordinator unavailable").
			WithCluster(c.name).WithResource(resource).
			WithRemediation("retry shortly; the coordinator may be moving between brokers")
	case errors.Is(err, kerr.NonEmptyGroup):
		return errs.Wrap(err, errs.CodeGroupHasActiveMembers, "consumer group still has active members").
			WithCluster(c.name).WithResource(resource).
			WithRemediation("stop the group's consumers before deleting it")
	default:
		return err
	}
}

// ListTopics returns all topic names, sorted.
func (c *Client) ListTopics(ctx context.Context) ([]string, error) {
	details, err := c.admin.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	names := details.Names()
	sort.Strings(names)
	return names, nil
}

// DescribeTopic returns partition layout and configuration for one topic.
func (c *Client) DescribeTopic(ctx context.Context, topic string) (*TopicMetadata, error) {
	details, err := c.admin.ListTopics(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("describe topic %s: %w", topic, err)
	}
	detail, ok := details[topic]
	if !ok {
		return nil, errs.New(errs.CodeTopicOrGroupNotFound, "topic not found").
			WithCluster(c.name).WithResource(topic)
	}
	if detail.Err != nil {
		return nil, c.classifyKafkaErr(detail.Err, topic)
	}

	meta := &TopicMetadata{Name: topic}
	for _, p := range detail.Partitions.Sorted() {
		meta.Partitions = append(meta.Partitions, PartitionMetadata{
			ID:              p.Partition,
			Leader:          p.Leader,
			Replicas:        p.Replicas,
			ISR:             p.ISR,
			OfflineReplicas: p.OfflineReplicas,
		})
	}

	configs, err := c.DescribeTopicConfigs(ctx, topic)
	if err != nil {
		// Configs are supplementary; partition metadata alone is still useful.
		slog.WarnContext(ctx, "Failed to fetch topic configs", "cluster", c.name, "topic", topic, "error", err)
	} else {
		meta.Configs = configs
	}
	return meta, nil
}

// CreateTopic creates a topic with the given partition count, replication
// factor, and optional config overrides.
func (c *Client) CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16, configs map[string]*string) error {
	resp, err := c.admin.CreateTopic(ctx, partitions, replicationFactor, configs, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil {
		return c.classifyKafkaErr(resp.Err, topic)
	}
	return nil
}

// DeleteTopic deletes one topic.
func (c *Client) DeleteTopic(ctx context.Context, topic string) error {
	resp, err := c.admin.DeleteTopic(ctx, topic)
	if err != nil {
		return fmt.Errorf("delete topic %s: %w", topic, err)
	}
	if resp.Err != nil {
		return c.classifyKafkaErr(resp.Err, topic)
	}
	return nil
}

// DescribeTopicConfigs returns the non-default-sensitive config entries for a topic.
func (c *Client) DescribeTopicConfigs(ctx context.Context, topic string) ([]ConfigEntry, error) {
	resources, err := c.admin.DescribeTopicConfigs(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("describe configs for %s: %w", topic, err)
	}
	var entries []ConfigEntry
	for _, resource := range resources {
		if resource.Err != nil {
			return nil, c.classifyKafkaErr(resource.Err, topic)
		}
		for _, cfg := range resource.Configs {
			entry := ConfigEntry{Key: cfg.Key, Sensitive: cfg.Sensitive}
			if cfg.Value != nil && !cfg.Sensitive {
				entry.Value = *cfg.Value
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// AlterTopicConfig sets one configuration value on a topic.
func (c *Client) AlterTopicConfig(ctx context.Context, topic, key, value string) error {
	alterations := []kadm.AlterConfig{{Op: kadm.SetConfig, Name: key, Value: &value}}
	responses, err := c.admin.AlterTopicConfigs(ctx, alterations, topic)
	if err != nil {
		return fmt.Errorf("alter config %s on %s: %w", key, topic, err)
	}
	for _, resp := range responses {
		if resp.Err != nil {
			return c.classifyKafkaErr(resp.Err, topic)
		}
	}
	return nil
}

// ListConsumerGroups returns all consumer groups known by the cluster.
func (c *Client) ListConsumerGroups(ctx context.Context) ([]ConsumerGroupInfo, error) {
	groups, err := c.admin.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list consumer groups: %w", err)
	}
	infos := make([]ConsumerGroupInfo, 0, len(groups))
	for _, g := range groups.Sorted() {
		infos = append(infos, ConsumerGroupInfo{
			GroupID:      g.Group,
			State:        g.State,
			ProtocolType: g.ProtocolType,
		})
	}
	return infos, nil
}

// DescribeConsumerGroup returns members and, when requested, per-partition
// committed offsets with lag.
func (c *Client) DescribeConsumerGroup(ctx context.Context, groupID string, includeOffsets bool) (*ConsumerGroupDetails, error) {
	described, err := c.admin.DescribeGroups(ctx, groupID)
	if err != nil {
		return nil, c.classifyKafkaErr(err, groupID)
	}
	group, ok := described[groupID]
	if !ok {
		return nil, errs.New(errs.CodeTopicOrGroupNotFound, "consumer group not found").
			WithCluster(c.name).WithResource(groupID)
	}
	if group.Err != nil {
		return nil, c.classifyKafkaErr(group.Err, groupID)
	}

	details := &ConsumerGroupDetails{GroupID: groupID, State: group.State}
	for _, member := range group.Members {
		info := GroupMemberInfo{
			MemberID:   member.MemberID,
			ClientID:   member.ClientID,
			ClientHost: member.ClientHost,
		}
		if assigned, ok := member.Assigned.AsConsumer(); ok {
			for _, t := range assigned.Topics {
				info.Topics = append(info.Topics, t.Topic)
			}
		}
		details.Members = append(details.Members, info)
	}

	if includeOffsets {
		offsets, err := c.ConsumerGroupLag(ctx, groupID)
		if err != nil {
			return nil, err
		}
		details.Offsets = offsets
	}
	return details, nil
}

// ConsumerGroupLag computes per-partition lag for a group: the partition's
// high-water mark minus the committed offset, clamped to zero.
func (c *Client) ConsumerGroupLag(ctx context.Context, groupID string) ([]PartitionLag, error) {
	committed, err := c.admin.FetchOffsets(ctx, groupID)
	if err != nil {
		return nil, c.classifyKafkaErr(err, groupID)
	}
	if err := committed.Error(); err != nil {
		return nil, c.classifyKafkaErr(err, groupID)
	}

	topics := make([]string, 0, len(committed))
	for topic := range committed {
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil, nil
	}

	ends, err := c.admin.ListEndOffsets(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("list end offsets for group %s: %w", groupID, err)
	}

	var lags []PartitionLag
	committed.Each(func(o kadm.OffsetResponse) {
		end, ok := ends.Lookup(o.Topic, o.Partition)
		if !ok {
			return
		}
		lags = append(lags, PartitionLag{
			Topic:           o.Topic,
			Partition:       o.Partition,
			CommittedOffset: o.At,
			HighWaterMark:   end.Offset,
			Lag:             clampLag(end.Offset, o.At),
		})
	})
	sort.Slice(lags, func(i, j int) bool {
		if lags[i].Topic != lags[j].Topic {
			return lags[i].Topic < lags[j].Topic
		}
		return lags[i].Partition < lags[j].Partition
	})
	return lags, nil
}

// clampLag never reports negative lag, which can transiently occur when the
// committed offset was read after the high-water mark.
func clampLag(highWaterMark, committed int64) int64 {
	if lag := highWaterMark - committed; lag > 0 {
		return lag
	}
	return 0
}

// DeleteConsumerGroup deletes a group after verifying it has no active members.
func (c *Client) DeleteConsumerGroup(ctx context.Context, groupID string) error {
	described, err := c.admin.DescribeGroups(ctx, groupID)
	if err == nil {
		if group, ok := described[groupID]; ok && group.Err == nil && len(group.Members) > 0 {
			return errs.New(errs.CodeGroupHasActiveMembers, "consumer group still has active members").
				WithCluster(c.name).WithResource(groupID).
				WithRemediation("stop the group's consumers before deleting it")
		}
	}

	resp, err := c.admin.DeleteGroup(ctx, groupID)
	if err != nil {
		return c.classifyKafkaErr(err, groupID)
	}
	if resp.Err != nil {
		return c.classifyKafkaErr(resp.Err, groupID)
	}
	return nil
}

// ResetConsumerGroupOffsets rewrites a group's committed offsets for a topic.
// An unrecognized mode, or the offset mode without an explicit offset, falls
// back to resetting to the beginning.
func (c *Client) ResetConsumerGroupOffsets(ctx context.Context, groupID, topic string, mode OffsetResetMode, specificOffset *int64) error {
	var offsets kadm.Offsets
	switch {
	case mode == ResetToEnd:
		listed, err := c.admin.ListEndOffsets(ctx, topic)
		if err != nil {
			return fmt.Errorf("list end offsets for %s: %w", topic, err)
		}
		offsets = listed.Offsets()
	case mode == ResetToOffset && specificOffset != nil:
		details, err := c.admin.ListTopics(ctx, topic)
		if err != nil {
			return fmt.Errorf("list partitions for %s: %w", topic, err)
		}
		detail, ok := details[topic]
		if !ok || detail.Err != nil {
			return errs.New(errs.CodeTopicOrGroupNotFound, "topic not found").
				WithCluster(c.name).WithResource(topic)
		}
		offsets = make(kadm.Offsets)
		for _, p := range detail.Partitions.Sorted() {
			offsets.Add(kadm.Offset{Topic: topic, Partition: p.Partition, At: *specificOffset, LeaderEpoch: -1})
		}
	default:
		if mode != ResetToBeginning {
			slog.WarnContext(ctx, "Unrecognized offset reset mode, defaulting to beginning",
				"cluster", c.name, "group", groupID, "mode", string(mode))
		}
		listed, err := c.admin.ListStartOffsets(ctx, topic)
		if err != nil {
			return fmt.Errorf("list start offsets for %s: %w", topic, err)
		}
		offsets = listed.Offsets()
	}

	responses, err := c.admin.CommitOffsets(ctx, groupID, offsets)
	if err != nil {
		return c.classifyKafkaErr(err, groupID)
	}
	if err := responses.Error(); err != nil {
		return c.classifyKafkaErr(err, groupID)
	}
	return nil
}

// GetClusterOverview returns broker, topic, and partition health counters.
func (c *Client) GetClusterOverview(ctx context.Context) (*ClusterOverview, error) {
	meta, err := c.admin.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cluster metadata: %w", err)
	}

	overview := &ClusterOverview{
		BrokerCount:  len(meta.Brokers),
		ControllerID: meta.Controller,
		TopicCount:   len(meta.Topics),
	}

	online := make(map[int32]bool, len(meta.Brokers))
	for _, b := range meta.Brokers {
		online[b.NodeID] = true
	}
	offline := make(map[int32]bool)

	for _, topic := range meta.Topics {
		for _, p := range topic.Partitions {
			overview.PartitionCount++
			if p.Leader < 0 || p.Err != nil {
				overview.OfflinePartitions++
			}
			if len(p.ISR) < len(p.Replicas) {
				overview.UnderReplicatedPartitions++
			}
			for _, replica := range p.Replicas {
				if !online[replica] {
					offline[replica] = true
				}
			}
		}
	}
	for id := range offline {
		overview.OfflineBrokerIDs = append(overview.OfflineBrokerIDs, id)
	}
	sort.Slice(overview.OfflineBrokerIDs, func(i, j int) bool {
		return overview.OfflineBrokerIDs[i] < overview.OfflineBrokerIDs[j]
	})
	return overview, nil
}
