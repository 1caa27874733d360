package ports

import (
	"context"

	"github.com/geogift/geogift/core"
)

// EventPublisher emits fire-and-forget notification events. Publish failures
// must never roll back the claim that triggered them.
type EventPublisher interface {
	PublishGiftClaimed(ctx context.Context, gift *core.Gift) error
	PublishStepCompleted(ctx context.Context, chain *core.GiftChain, step *core.ChainStep) error
	PublishChainCompleted(ctx context.Context, chain *core.GiftChain) error
}
