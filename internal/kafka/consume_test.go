package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// scriptedPoller replays a fixed sequence of fetch results. Each step may
// also trigger a side effect (e.g. canceling the caller's context) before
// its result is returned.
type scriptedPoller struct {
	steps  []pollStep
	next   int
	closes int
}

type pollStep struct {
	fetches kgo.Fetches
	before  func()
}

func (s *scriptedPoller) PollFetches(ctx context.Context) kgo.Fetches {
	if s.next >= len(s.steps) {
		// Script exhausted: behave like a poll aborted by cancellation.
		<-ctx.Done()
		return fetchesWithErr(ctx.Err())
	}
	step := s.steps[s.next]
	s.next++
	if step.before != nil {
		step.before()
	}
	return step.fetches
}

func (s *scriptedPoller) Close() { s.closes++ }

func fetchesWithRecords(topic string, n int, startOffset int64) kgo.Fetches {
	records := make([]*kgo.Record, n)
	for i := range records {
		records[i] = &kgo.Record{
			Topic:     topic,
			Partition: 0,
			Offset:    startOffset + int64(i),
			Key:       []byte(fmt.Sprintf("key-%d", startOffset+int64(i))),
			Value:     []byte(fmt.Sprintf("value-%d", startOffset+int64(i))),
			Timestamp: time.Unix(1700000000, 0),
		}
	}
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      topic,
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
	}}}}
}

func fetchesWithErr(err error) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "orders",
		Partitions: []kgo.FetchPartition{{Partition: 0, Err: err}},
	}}}}
}

func TestConsumeBounded_StopsAtLimit(t *testing.T) {
	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithRecords("orders", 3, 0)},
		{fetches: fetchesWithRecords("orders", 3, 3)},
	}}

	messages, err := consumeBounded(context.Background(), poller, 5, time.Second)
	require.NoError(t, err)
	require.Len(t, messages, 5, "limit must cap the result even mid-batch")
	assert.Equal(t, 1, poller.closes, "consumer disconnected exactly once")

	assert.Equal(t, "orders", messages[0].Topic)
	assert.Equal(t, int64(4), messages[4].Offset)
	assert.Equal(t, "key-4", messages[4].Key)
	assert.Equal(t, "value-4", messages[4].Value)
	assert.Equal(t, time.Unix(1700000000, 0).UnixMilli(), messages[4].Timestamp)
}

func TestConsumeBounded_CancellationReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithRecords("orders", 2, 0)},
		{before: cancel, fetches: fetchesWithErr(context.Canceled)},
	}}

	messages, err := consumeBounded(ctx, poller, 10, time.Second)
	require.NoError(t, err, "cancellation concludes the read, it does not fail it")
	assert.Len(t, messages, 2)
	assert.Equal(t, 1, poller.closes)
}

func TestConsumeBounded_TimeoutReturnsAccumulated(t *testing.T) {
	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithRecords("orders", 1, 0)},
		// No further steps: the script-exhausted path blocks until the
		// internal timeout fires.
	}}

	messages, err := consumeBounded(context.Background(), poller, 10, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, 1, poller.closes)
}

func TestConsumeBounded_FatalErrorBeforeProgress(t *testing.T) {
	fetchErr := errors.New("TOPIC_AUTHORIZATION_FAILED")
	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithErr(fetchErr)},
	}}

	_, err := consumeBounded(context.Background(), poller, 10, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, poller.closes)
}

func TestConsumeBounded_FatalErrorAfterProgressKeepsMessages(t *testing.T) {
	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithRecords("orders", 4, 0)},
		{fetches: fetchesWithErr(errors.New("broker went away"))},
	}}

	messages, err := consumeBounded(context.Background(), poller, 10, time.Second)
	require.NoError(t, err, "partial results beat an error after progress")
	assert.Len(t, messages, 4)
	assert.Equal(t, 1, poller.closes)
}

func TestConsumeBounded_ClientClosedConcludes(t *testing.T) {
	poller := &scriptedPoller{steps: []pollStep{
		{fetches: fetchesWithRecords("orders", 2, 0)},
		{fetches: fetchesWithErr(kgo.ErrClientClosed)},
	}}

	messages, err := consumeBounded(context.Background(), poller, 10, time.Second)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, 1, poller.closes)
}

func TestFirstFatalFetchError_IgnoresCancellation(t *testing.T) {
	assert.NoError(t, firstFatalFetchError(fetchesWithErr(context.Canceled)))
	assert.NoError(t, firstFatalFetchError(fetchesWithErr(context.DeadlineExceeded)))
	assert.Error(t, firstFatalFetchError(fetchesWithErr(errors.New("corrupt message"))))
}
