package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpServer "github.com/mark3labs/mcp-go/server"
)

// RegisterPrompts defines the diagnostic prompts: pre-baked reports an
// operator can pull up without composing tool calls by hand.
func RegisterPrompts(s *mcpServer.MCPServer, mgr ClusterManager) {
	registerClusterHealthPrompt(s, mgr)
	registerLagInvestigationPrompt(s, mgr)
}

func registerClusterHealthPrompt(s *mcpServer.MCPServer, mgr ClusterManager) {
	prompt := mcp.Prompt{
		Name:        "cluster_health_report",
		Description: "Summarizes broker, partition, and controller health for one cluster",
		Arguments: []mcp.PromptArgument{
			{Name: "cluster", Description: "Registered cluster name", Required: true},
		},
	}

	s.AddPrompt(prompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		cluster := req.Params.Arguments["cluster"]

		var b strings.Builder
		overview, err := mgr.GetClusterOverview(ctx, cluster)
		if err != nil {
			fmt.Fprintf(&b, "Could not fetch an overview for cluster %q: %s\n", cluster, err)
		} else {
			fmt.Fprintf(&b, "CLUSTER HEALTH: %s\n\n", cluster)
			fmt.Fprintf(&b, "Brokers online:            %d\n", overview.BrokerCount)
			fmt.Fprintf(&b, "Topics:                    %d\n", overview.TopicCount)
			fmt.Fprintf(&b, "Partitions:                %d\n", overview.PartitionCount)
			fmt.Fprintf(&b, "Under-replicated:          %d\n", overview.UnderReplicatedPartitions)
			fmt.Fprintf(&b, "Offline partitions:        %d\n", overview.OfflinePartitions)
			if overview.ControllerID >= 0 {
				fmt.Fprintf(&b, "Controller broker:         %d\n", overview.ControllerID)
			} else {
				b.WriteString("Controller broker:         NONE (election in progress?)\n")
			}

			status := healthStatus(overview.OfflinePartitions > 0, overview.ControllerID < 0,
				len(overview.OfflineBrokerIDs) > 0, overview.UnderReplicatedPartitions > 0)
			fmt.Fprintf(&b, "\nOverall status: %s\n", strings.ToUpper(status))
		}

		return &mcp.GetPromptResult{
			Description: "Cluster health report",
			Messages: []mcp.PromptMessage{{
				Role:    mcp.RoleAssistant,
				Content: mcp.TextContent{Type: "text", Text: b.String()},
			}},
		}, nil
	})
}

func registerLagInvestigationPrompt(s *mcpServer.MCPServer, mgr ClusterManager) {
	prompt := mcp.Prompt{
		Name:        "investigate_consumer_lag",
		Description: "Reports per-partition lag for a consumer group with its member assignments",
		Arguments: []mcp.PromptArgument{
			{Name: "cluster", Description: "Registered cluster name", Required: true},
			{Name: "group", Description: "Consumer group ID", Required: true},
		},
	}

	s.AddPrompt(prompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		cluster := req.Params.Arguments["cluster"]
		group := req.Params.Arguments["group"]

		var b strings.Builder
		fmt.Fprintf(&b, "CONSUMER LAG: group %q on cluster %q\n\n", group, cluster)

		lags, err := mgr.GetConsumerGroupLag(ctx, cluster, group)
		switch {
		case err != nil:
			fmt.Fprintf(&b, "Could not compute lag: %s\n", err)
		case len(lags) == 0:
			b.WriteString("The group has no committed offsets.\n")
		default:
			var total int64
			fmt.Fprintf(&b, "%-30s %-10s %12s %12s %8s\n", "Topic", "Partition", "Committed", "End", "Lag")
			for _, lag := range lags {
				total += lag.Lag
				fmt.Fprintf(&b, "%-30s %-10d %12d %12d %8d\n",
					lag.Topic, lag.Partition, lag.CommittedOffset, lag.HighWaterMark, lag.Lag)
			}
			fmt.Fprintf(&b, "\nTotal lag: %d messages\n", total)
		}

		if details, err := mgr.DescribeConsumerGroup(ctx, cluster, group, false); err == nil {
			fmt.Fprintf(&b, "\nState: %s, members: %d\n", details.State, len(details.Members))
			for _, member := range details.Members {
				fmt.Fprintf(&b, "  %s (client %s) -> %s\n",
					member.MemberID, member.ClientID, strings.Join(member.Topics, ", "))
			}
		}

		return &mcp.GetPromptResult{
			Description: "Consumer lag investigation",
			Messages: []mcp.PromptMessage{{
				Role:    mcp.RoleAssistant,
				Content: mcp.TextContent{Type: "text", Text: b.String()},
			}},
		}, nil
	})
}
