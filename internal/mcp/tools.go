package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpServer "github.com/mark3labs/mcp-go/server"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/kafka"
)

// ClusterManager is the facade surface the MCP tools call into.
type ClusterManager interface {
	AddClusterFromConnection(ctx context.Context, conn connection.ClusterConnection) error
	RemoveCluster(name string) error
	GetClusters() []string
	GetClusterConnection(name string) (connection.ClusterConnection, bool)

	ListTopics(ctx context.Context, cluster string) ([]string, error)
	DescribeTopic(ctx context.Context, cluster, topic string) (*kafka.TopicMetadata, error)
	CreateTopic(ctx context.Context, cluster, topic string, partitions int32, replicationFactor int16, configs map[string]*string) error
	DeleteTopic(ctx context.Context, cluster, topic string) error
	AlterTopicConfig(ctx context.Context, cluster, topic, key, value string) error

	ProduceMessage(ctx context.Context, cluster, topic string, key, value []byte) error
	ConsumeMessages(ctx context.Context, cluster string, topics []string, limit int, fromBeginning bool) ([]kafka.Message, error)

	ListConsumerGroups(ctx context.Context, cluster string) ([]kafka.ConsumerGroupInfo, error)
	DescribeConsumerGroup(ctx context.Context, cluster, groupID string, includeOffsets bool) (*kafka.ConsumerGroupDetails, error)
	DeleteConsumerGroup(ctx context.Context, cluster, groupID string) error
	ResetConsumerGroupOffsets(ctx context.Context, cluster, groupID, topic string, mode kafka.OffsetResetMode, specificOffset *int64) error
	GetConsumerGroupLag(ctx context.Context, cluster, groupID string) ([]kafka.PartitionLag, error)

	GetClusterOverview(ctx context.Context, cluster string) (*kafka.ClusterOverview, error)
}

// RegisterTools defines and registers the MCP tools with the server.
func RegisterTools(s *mcpServer.MCPServer, mgr ClusterManager) {
	registerClusterTools(s, mgr)
	registerTopicTools(s, mgr)
	registerMessageTools(s, mgr)
	registerGroupTools(s, mgr)
}

func registerClusterTools(s *mcpServer.MCPServer, mgr ClusterManager) {
	addClusterTool := mcp.NewTool("add_cluster",
		mcp.WithDescription("Register a Kafka or AWS MSK cluster connection"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique cluster name")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Cluster type: \"kafka\" or \"msk\"")),
		mcp.WithArray("brokers", mcp.Description("host:port seed brokers (kafka type)")),
		mcp.WithString("security_protocol", mcp.Description("PLAINTEXT, SSL, SASL_PLAINTEXT, or SASL_SSL")),
		mcp.WithString("sasl_mechanism", mcp.Description("PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, or AWS_MSK_IAM")),
		mcp.WithString("sasl_username", mcp.Description("SASL username")),
		mcp.WithString("sasl_password", mcp.Description("SASL password (stored in the secret store only)")),
		mcp.WithString("region", mcp.Description("AWS region (msk type)")),
		mcp.WithString("cluster_arn", mcp.Description("MSK cluster ARN (msk type)")),
		mcp.WithString("aws_profile", mcp.Description("AWS profile for credential resolution")),
		mcp.WithString("assume_role_arn", mcp.Description("IAM role to assume for broker-level operations")),
	)
	s.AddTool(addClusterTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		conn := connection.ClusterConnection{
			Name:             stringArg(args, "name"),
			Type:             connection.ClusterType(stringArg(args, "type")),
			Brokers:          stringSliceArg(args, "brokers"),
			SecurityProtocol: stringArg(args, "security_protocol"),
			SASLMechanism:    stringArg(args, "sasl_mechanism"),
			SASLUsername:     stringArg(args, "sasl_username"),
			SASLPassword:     stringArg(args, "sasl_password"),
			Region:           stringArg(args, "region"),
			ClusterArn:       stringArg(args, "cluster_arn"),
			AWSProfile:       stringArg(args, "aws_profile"),
			AssumeRoleArn:    stringArg(args, "assume_role_arn"),
		}

		slog.InfoContext(ctx, "Executing add_cluster tool", "cluster", conn.Name, "type", conn.Type)
		if err := mgr.AddClusterFromConnection(ctx, conn); err != nil {
			slog.ErrorContext(ctx, "Failed to add cluster", "cluster", conn.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Cluster " + conn.Name + " added"), nil
	})

	removeClusterTool := mcp.NewTool("remove_cluster",
		mcp.WithDescription("Remove a cluster connection, tearing down its live handles"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
	)
	s.AddTool(removeClusterTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := stringArg(req.GetArguments(), "cluster")
		slog.InfoContext(ctx, "Executing remove_cluster tool", "cluster", cluster)
		if err := mgr.RemoveCluster(cluster); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Cluster " + cluster + " removed"), nil
	})

	listClustersTool := mcp.NewTool("list_clusters",
		mcp.WithDescription("List registered cluster connections"),
	)
	s.AddTool(listClustersTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(ctx, mgr.GetClusters())
	})

	overviewTool := mcp.NewTool("cluster_overview",
		mcp.WithDescription("Broker, topic, and partition health counters for a cluster"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
	)
	s.AddTool(overviewTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := stringArg(req.GetArguments(), "cluster")
		overview, err := mgr.GetClusterOverview(ctx, cluster)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, overview)
	})
}

func registerTopicTools(s *mcpServer.MCPServer, mgr ClusterManager) {
	listTopicsTool := mcp.NewTool("list_topics",
		mcp.WithDescription("List topics in a cluster"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
	)
	s.AddTool(listTopicsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := stringArg(req.GetArguments(), "cluster")
		topics, err := mgr.ListTopics(ctx, cluster)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, topics)
	})

	describeTopicTool := mcp.NewTool("describe_topic",
		mcp.WithDescription("Partition layout and configuration of a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name")),
	)
	s.AddTool(describeTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		meta, err := mgr.DescribeTopic(ctx, stringArg(args, "cluster"), stringArg(args, "topic"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, meta)
	})

	createTopicTool := mcp.NewTool("create_topic",
		mcp.WithDescription("Create a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name")),
		mcp.WithNumber("partitions", mcp.Description("Partition count (default 1)")),
		mcp.WithNumber("replication_factor", mcp.Description("Replication factor (default 1)")),
	)
	s.AddTool(createTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		topic := stringArg(args, "topic")
		partitions := int32(numberArg(args, "partitions", 1))
		replication := int16(numberArg(args, "replication_factor", 1))

		slog.InfoContext(ctx, "Executing create_topic tool", "cluster", cluster, "topic", topic, "partitions", partitions)
		if err := mgr.CreateTopic(ctx, cluster, topic, partitions, replication, nil); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Topic " + topic + " created"), nil
	})

	deleteTopicTool := mcp.NewTool("delete_topic",
		mcp.WithDescription("Delete a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name")),
	)
	s.AddTool(deleteTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		topic := stringArg(args, "topic")
		slog.InfoContext(ctx, "Executing delete_topic tool", "cluster", cluster, "topic", topic)
		if err := mgr.DeleteTopic(ctx, cluster, topic); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Topic " + topic + " deleted"), nil
	})

	alterConfigTool := mcp.NewTool("alter_topic_config",
		mcp.WithDescription("Set one configuration value on a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Configuration key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Configuration value")),
	)
	s.AddTool(alterConfigTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if err := mgr.AlterTopicConfig(ctx, stringArg(args, "cluster"), stringArg(args, "topic"),
			stringArg(args, "key"), stringArg(args, "value")); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Topic configuration updated"), nil
	})
}

func registerMessageTools(s *mcpServer.MCPServer, mgr ClusterManager) {
	produceTool := mcp.NewTool("produce_message",
		mcp.WithDescription("Produce a message to a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Target topic name")),
		mcp.WithString("key", mcp.Description("Optional message key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Message value")),
	)
	s.AddTool(produceTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		topic := stringArg(args, "topic")

		slog.InfoContext(ctx, "Executing produce_message tool", "cluster", cluster, "topic", topic)
		err := mgr.ProduceMessage(ctx, cluster, topic, []byte(stringArg(args, "key")), []byte(stringArg(args, "value")))
		if err != nil {
			slog.ErrorContext(ctx, "Failed to produce message", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Message produced successfully to topic " + topic), nil
	})

	consumeTool := mcp.NewTool("consume_messages",
		mcp.WithDescription("Consume a bounded batch of messages from topics"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithArray("topics", mcp.Required(), mcp.Description("Topics to consume from")),
		mcp.WithNumber("limit", mcp.Description("Maximum messages to return (default 10)")),
		mcp.WithBoolean("from_beginning", mcp.Description("Start from the earliest offset (default true)")),
	)
	s.AddTool(consumeTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		topics := stringSliceArg(args, "topics")
		if len(topics) == 0 {
			return mcp.NewToolResultError("No valid topics provided."), nil
		}
		limit := int(numberArg(args, "limit", 10))
		fromBeginning := boolArg(args, "from_beginning", true)

		slog.InfoContext(ctx, "Executing consume_messages tool", "cluster", cluster, "topics", topics, "limit", limit)
		messages, err := mgr.ConsumeMessages(ctx, cluster, topics, limit, fromBeginning)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to consume messages", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Failed to consume messages: %v", err)), nil
		}
		return jsonResult(ctx, messages)
	})
}

func registerGroupTools(s *mcpServer.MCPServer, mgr ClusterManager) {
	listGroupsTool := mcp.NewTool("list_consumer_groups",
		mcp.WithDescription("List consumer groups in a cluster"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
	)
	s.AddTool(listGroupsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groups, err := mgr.ListConsumerGroups(ctx, stringArg(req.GetArguments(), "cluster"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, groups)
	})

	describeGroupTool := mcp.NewTool("describe_consumer_group",
		mcp.WithDescription("Members and optionally offsets/lag of a consumer group"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID")),
		mcp.WithBoolean("include_offsets", mcp.Description("Include committed offsets and lag")),
	)
	s.AddTool(describeGroupTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		details, err := mgr.DescribeConsumerGroup(ctx, stringArg(args, "cluster"),
			stringArg(args, "group_id"), boolArg(args, "include_offsets", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, details)
	})

	deleteGroupTool := mcp.NewTool("delete_consumer_group",
		mcp.WithDescription("Delete an inactive consumer group"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID")),
	)
	s.AddTool(deleteGroupTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		groupID := stringArg(args, "group_id")
		slog.InfoContext(ctx, "Executing delete_consumer_group tool", "cluster", cluster, "group", groupID)
		if err := mgr.DeleteConsumerGroup(ctx, cluster, groupID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Consumer group " + groupID + " deleted"), nil
	})

	resetOffsetsTool := mcp.NewTool("reset_consumer_group_offsets",
		mcp.WithDescription("Reset a consumer group's offsets for a topic"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name")),
		mcp.WithString("mode", mcp.Description("beginning, end, or offset (default beginning)")),
		mcp.WithNumber("offset", mcp.Description("Explicit offset for mode=offset")),
	)
	s.AddTool(resetOffsetsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cluster := stringArg(args, "cluster")
		groupID := stringArg(args, "group_id")
		topic := stringArg(args, "topic")
		mode := kafka.OffsetResetMode(stringArg(args, "mode"))
		if mode == "" {
			mode = kafka.ResetToBeginning
		}
		var specificOffset *int64
		if raw, ok := args["offset"].(float64); ok {
			v := int64(raw)
			specificOffset = &v
		}

		slog.InfoContext(ctx, "Executing reset_consumer_group_offsets tool",
			"cluster", cluster, "group", groupID, "topic", topic, "mode", string(mode))
		if err := mgr.ResetConsumerGroupOffsets(ctx, cluster, groupID, topic, mode, specificOffset); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Offsets reset for group " + groupID), nil
	})

	lagTool := mcp.NewTool("consumer_lag_report",
		mcp.WithDescription("Per-partition committed offset, high-water mark, and lag for a group"),
		mcp.WithString("cluster", mcp.Required(), mcp.Description("Cluster name")),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID")),
	)
	s.AddTool(lagTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		lags, err := mgr.GetConsumerGroupLag(ctx, stringArg(args, "cluster"), stringArg(args, "group_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ctx, lags)
	})
}

// --- argument and result helpers ---

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func numberArg(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func jsonResult(ctx context.Context, v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal tool result", "error", err)
		return mcp.NewToolResultError("Internal server error: failed to marshal results"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
