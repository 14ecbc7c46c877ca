package notifier

import (
	"context"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// Notifier defines the interface for posting plant notifications
type Notifier interface {
	// Notify posts notifications for the given plants
	Notify(plants []*lake.NewPlant) error
}

// ContextNotifier is a Notifier whose sends stop when the context is canceled
type ContextNotifier interface {
	Notifier
	NotifyContext(ctx context.Context, plants []*lake.NewPlant) error
}

// Send posts plants through n, passing ctx on when n supports it
func Send(ctx context.Context, n Notifier, plants []*lake.NewPlant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cn, ok := n.(ContextNotifier); ok {
		return cn.NotifyContext(ctx, plants)
	}
	return n.Notify(plants)
}
