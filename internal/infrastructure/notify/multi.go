package notify

import (
	"context"
	"errors"

	"PrismPipeline/internal/ports"
)

// Multi fans a digest out to several notifiers; every channel is attempted.
type Multi []ports.Notifier

var _ ports.Notifier = Multi(nil)

// PublishDigest returns the joined errors of the channels that failed.
func (m Multi) PublishDigest(ctx context.Context, digest string) error {
	var errs []error
	for _, n := range m {
		if err := n.PublishDigest(ctx, digest); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
