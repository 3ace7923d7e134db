package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/errs"
)

// consumeTimeout bounds every consume operation regardless of caller context.
const consumeTimeout = 30 * time.Second

// fetchPoller is the slice of kgo.Client used by bounded consumption,
// extracted so the limit/cancel/timeout race is testable without brokers.
type fetchPoller interface {
	PollFetches(ctx context.Context) kgo.Fetches
	Close()
}

// ConsumeMessages reads up to limit messages from the given topics using a
// short-lived consumer that is disconnected exactly once when the operation
// concludes. Three conditions terminate the read: the message limit, caller
// cancellation, and a fixed timeout. Messages accumulated before
// cancellation or timeout are returned, not discarded.
func (c *Client) ConsumeMessages(ctx context.Context, topics []string, limit int, fromBeginning bool) ([]Message, error) {
	offset := kgo.NewOffset().AtEnd()
	if fromBeginning {
		offset = kgo.NewOffset().AtStart()
	}

	opts := append(append([]kgo.Opt(nil), c.baseOpts...),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(offset),
	)
	consumer, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeClusterUnreachable, "failed to create consumer").
			WithCluster(c.name)
	}

	slog.InfoContext(ctx, "Polling for messages", "cluster", c.name, "topics", topics, "limit", limit)
	messages, err := consumeBounded(ctx, consumer, limit, consumeTimeout)
	slog.InfoContext(ctx, "Finished polling", "cluster", c.name, "messagesConsumed", len(messages))
	return messages, err
}

func consumeBounded(ctx context.Context, poller fetchPoller, limit int, timeout time.Duration) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The consumer must be disconnected exactly once whichever condition
	// concludes the operation; Once makes later triggers no-ops.
	var once sync.Once
	disconnect := func() { once.Do(poller.Close) }
	defer disconnect()

	messages := make([]Message, 0, limit)
	for len(messages) < limit {
		if ctx.Err() != nil {
			break
		}
		fetches := poller.PollFetches(ctx)
		if fetches.IsClientClosed() {
			break
		}
		if err := firstFatalFetchError(fetches); err != nil {
			if len(messages) == 0 {
				return nil, err
			}
			// Partial results beat an error after progress was made.
			slog.WarnContext(ctx, "Fetch error after partial consume", "error", err, "messagesConsumed", len(messages))
			break
		}

		iter := fetches.RecordIter()
		for !iter.Done() && len(messages) < limit {
			rec := iter.Next()
			messages = append(messages, Message{
				Topic:     rec.Topic,
				Partition: rec.Partition,
				Offset:    rec.Offset,
				Key:       string(rec.Key),
				Value:     string(rec.Value),
				Timestamp: rec.Timestamp.UnixMilli(),
			})
		}
	}

	disconnect()
	return messages, nil
}

// firstFatalFetchError returns the first fetch error that is not a
// cancellation or deadline: those conclude the operation without failing it.
func firstFatalFetchError(fetches kgo.Fetches) error {
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
			continue
		}
		return fe.Err
	}
	return nil
}
