package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BucketRebuilt is published after a bucket rebuild commits
type BucketRebuilt struct {
	Bucket        BucketKey
	Transactions  int
	Matches       int
	OpenAdvances  int
	RealisedTotal decimal.Decimal
	RebuiltAt     time.Time
}

// EventPublisher publishes reconciliation events to downstream consumers
type EventPublisher interface {
	PublishBucketRebuilt(ctx context.Context, evt BucketRebuilt) error
}
