package kafka

// Message represents a consumed Kafka message.
type Message struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// PartitionMetadata holds replication details for one partition.
type PartitionMetadata struct {
	ID              int32   `json:"id"`
	Leader          int32   `json:"leader"`
	Replicas        []int32 `json:"replicas"`
	ISR             []int32 `json:"isr"`
	OfflineReplicas []int32 `json:"offline_replicas,omitempty"`
}

// TopicMetadata is the describe-topic result.
type TopicMetadata struct {
	Name       string              `json:"name"`
	Partitions []PartitionMetadata `json:"partitions"`
	Configs    []ConfigEntry       `json:"configs,omitempty"`
}

// ConfigEntry is one resource configuration key/value.
type ConfigEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// ConsumerGroupInfo summarizes one consumer group.
type ConsumerGroupInfo struct {
	GroupID      string `json:"group_id"`
	State        string `json:"state"`
	ProtocolType string `json:"protocol_type"`
}

// GroupMemberInfo describes one member of a consumer group.
type GroupMemberInfo struct {
	MemberID   string   `json:"member_id"`
	ClientID   string   `json:"client_id"`
	ClientHost string   `json:"client_host"`
	Topics     []string `json:"topics,omitempty"`
}

// PartitionLag is the committed offset vs. high-water mark for one partition.
type PartitionLag struct {
	Topic           string `json:"topic"`
	Partition       int32  `json:"partition"`
	CommittedOffset int64  `json:"committed_offset"`
	HighWaterMark   int64  `json:"high_water_mark"`
	Lag             int64  `json:"lag"`
}

// ConsumerGroupDetails is the describe-consumer-group result.
type ConsumerGroupDetails struct {
	GroupID string            `json:"group_id"`
	State   string            `json:"state"`
	Members []GroupMemberInfo `json:"members"`
	Offsets []PartitionLag    `json:"offsets,omitempty"`
}

// ClusterOverview summarizes cluster health.
type ClusterOverview struct {
	BrokerCount               int     `json:"broker_count"`
	ControllerID              int32   `json:"controller_id"`
	TopicCount                int     `json:"topic_count"`
	PartitionCount            int     `json:"partition_count"`
	UnderReplicatedPartitions int     `json:"under_replicated_partitions"`
	OfflinePartitions         int     `json:"offline_partitions"`
	OfflineBrokerIDs          []int32 `json:"offline_broker_ids,omitempty"`
}

// OffsetResetMode selects where a consumer group's offsets are reset to.
type OffsetResetMode string

const (
	ResetToBeginning OffsetResetMode = "beginning"
	ResetToEnd       OffsetResetMode = "end"
	ResetToOffset    OffsetResetMode = "offset"
)
