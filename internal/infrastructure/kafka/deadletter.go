package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// brokerClient is the slice of kafka.Client the gate uses. All three calls
// are plain broker queries; the gate never joins the redelivery consumer
// group, so it cannot steal partitions from the live dead-letter consumer or
// trigger a rebalance.
type brokerClient interface {
	Metadata(ctx context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error)
	ListOffsets(ctx context.Context, req *kafka.ListOffsetsRequest) (*kafka.ListOffsetsResponse, error)
	OffsetFetch(ctx context.Context, req *kafka.OffsetFetchRequest) (*kafka.OffsetFetchResponse, error)
}

// DeadLetterGate reports whether the dead-letter topic still holds messages
// the redelivery group has not worked through. Emptiness is consumer-group
// lag: the log-end offset of every partition against the group's committed
// offset; zero lag everywhere means empty. The answer is advisory, a stale
// result only delays promotion by one poll cycle.
type DeadLetterGate struct {
	client  brokerClient
	topic   string
	groupID string
}

func NewDeadLetterGate(brokers []string, topic, groupID string) *DeadLetterGate {
	return &DeadLetterGate{
		client:  &kafka.Client{Addr: kafka.TCP(brokers...)},
		topic:   topic,
		groupID: groupID,
	}
}

// Empty reports whether the dead-letter group has zero lag on every partition
// of the topic. A partition the group has never committed on counts its whole
// retained range as lag. Errors are returned to the caller; the promotion
// loop holds promotion on error.
func (g *DeadLetterGate) Empty(ctx context.Context) (bool, error) {
	meta, err := g.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{g.topic}})
	if err != nil {
		return false, fmt.Errorf("dead-letter topic metadata: %w", err)
	}

	var partitions []int
	for _, t := range meta.Topics {
		if t.Name != g.topic {
			continue
		}
		if t.Error != nil {
			return false, fmt.Errorf("dead-letter topic %s: %w", g.topic, t.Error)
		}
		for _, p := range t.Partitions {
			partitions = append(partitions, p.ID)
		}
	}
	if len(partitions) == 0 {
		// Topic not created yet, so nothing can be waiting on it.
		return true, nil
	}

	offsetReqs := make([]kafka.OffsetRequest, 0, len(partitions)*2)
	for _, p := range partitions {
		offsetReqs = append(offsetReqs, kafka.FirstOffsetOf(p), kafka.LastOffsetOf(p))
	}
	ends, err := g.client.ListOffsets(ctx, &kafka.ListOffsetsRequest{
		Topics: map[string][]kafka.OffsetRequest{g.topic: offsetReqs},
	})
	if err != nil {
		return false, fmt.Errorf("dead-letter log offsets: %w", err)
	}

	committed, err := g.client.OffsetFetch(ctx, &kafka.OffsetFetchRequest{
		GroupID: g.groupID,
		Topics:  map[string][]int{g.topic: partitions},
	})
	if err != nil {
		return false, fmt.Errorf("dead-letter group offsets: %w", err)
	}
	if committed.Error != nil {
		return false, fmt.Errorf("dead-letter group offsets: %w", committed.Error)
	}

	position := make(map[int]int64, len(partitions))
	for _, p := range committed.Topics[g.topic] {
		if p.Error != nil {
			return false, fmt.Errorf("dead-letter group offset for partition %d: %w", p.Partition, p.Error)
		}
		position[p.Partition] = p.CommittedOffset
	}

	for _, p := range ends.Topics[g.topic] {
		if p.Error != nil {
			return false, fmt.Errorf("dead-letter log offset for partition %d: %w", p.Partition, p.Error)
		}
		pos, ok := position[p.Partition]
		if !ok || pos < p.FirstOffset {
			// No commit yet, or the commit predates retention truncation;
			// everything still retained is pending.
			pos = p.FirstOffset
		}
		if pos < p.LastOffset {
			return false, nil
		}
	}
	return true, nil
}
