package release

import (
	"context"
	"time"

	"relkit/src/events"
	"relkit/src/logger"
	"relkit/src/teamcity"
)

// PublishTimeout bounds a single event publish, independent of the
// workflow's own deadline.
const PublishTimeout = 5 * time.Second

// notifier publishes release events. Delivery failures are logged, never returned.
type notifier struct {
	pub     events.Publisher
	log     logger.Logger
	timeout time.Duration
}

func (n notifier) emit(ctx context.Context, eventType string, b *teamcity.Build, tag string) {
	if n.pub == nil || b == nil {
		return
	}
	e := events.New(eventType, b.ID)
	e.BuildTypeID = b.BuildTypeID
	e.Branch = b.BranchName
	e.Status = b.Status
	e.Tag = tag

	timeout := n.timeout
	if timeout <= 0 {
		timeout = PublishTimeout
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := n.pub.Publish(pubCtx, e); err != nil {
		n.log.Warn("Failed to publish %s event for build %d: %v", eventType, b.ID, err)
	}
}
