package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterResources registers per-cluster monitoring resources.
func RegisterResources(s *server.MCPServer, mgr ClusterManager) {
	s.AddResourceTemplate(mcp.NewResourceTemplate(
		"kafka-cluster://{cluster}/overview",
		"Cluster Overview",
		mcp.WithTemplateDescription("Broker counts, controller status, topic/partition metrics, and replication health for one cluster."),
		mcp.WithTemplateMIMEType("application/json"),
	), overviewResource(mgr))

	s.AddResourceTemplate(mcp.NewResourceTemplate(
		"kafka-cluster://{cluster}/consumer-lag/{group}",
		"Consumer Group Lag Report",
		mcp.WithTemplateDescription("Per-partition committed offset, high-water mark, and lag for one consumer group."),
		mcp.WithTemplateMIMEType("application/json"),
	), lagResource(mgr))
}

func overviewResource(mgr ClusterManager) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cluster, _, err := parseClusterURI(req.Params.URI)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Fetching cluster overview resource", "cluster", cluster)

		overview, err := mgr.GetClusterOverview(ctx, cluster)
		if err != nil {
			return nil, err
		}

		response := map[string]any{
			"timestamp":                   time.Now().UTC().Format(time.RFC3339),
			"cluster":                     cluster,
			"broker_count":                overview.BrokerCount,
			"controller_id":               overview.ControllerID,
			"topic_count":                 overview.TopicCount,
			"partition_count":             overview.PartitionCount,
			"under_replicated_partitions": overview.UnderReplicatedPartitions,
			"offline_partitions":          overview.OfflinePartitions,
			"offline_broker_ids":          overview.OfflineBrokerIDs,
			"health_status": healthStatus(
				overview.OfflinePartitions > 0,
				overview.ControllerID == -1,
				len(overview.OfflineBrokerIDs) > 0,
				overview.UnderReplicatedPartitions > 0,
			),
		}
		return jsonContents(req.Params.URI, response)
	}
}

func lagResource(mgr ClusterManager) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cluster, rest, err := parseClusterURI(req.Params.URI)
		if err != nil {
			return nil, err
		}
		group := strings.TrimPrefix(rest, "consumer-lag/")
		if group == "" || group == rest {
			return nil, fmt.Errorf("resource URI %q is missing the consumer group", req.Params.URI)
		}
		slog.InfoContext(ctx, "Fetching consumer lag resource", "cluster", cluster, "group", group)

		lags, err := mgr.GetConsumerGroupLag(ctx, cluster, group)
		if err != nil {
			return nil, err
		}

		var total int64
		for _, lag := range lags {
			total += lag.Lag
		}
		response := map[string]any{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"cluster":    cluster,
			"group_id":   group,
			"total_lag":  total,
			"partitions": lags,
		}
		return jsonContents(req.Params.URI, response)
	}
}

// parseClusterURI splits kafka-cluster://{cluster}/{rest}.
func parseClusterURI(uri string) (cluster, rest string, err error) {
	const scheme = "kafka-cluster://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("unexpected resource URI scheme in %q", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("resource URI %q is missing the cluster name", uri)
	}
	cluster = parts[0]
	if len(parts) == 2 {
		rest = parts[1]
	}
	return cluster, rest, nil
}

func healthStatus(offlinePartitions, noController, offlineBrokers, underReplicated bool) string {
	switch {
	case offlinePartitions || noController:
		return "critical"
	case offlineBrokers || underReplicated:
		return "degraded"
	default:
		return "healthy"
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
