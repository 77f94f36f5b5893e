package engine

import (
	"context"

	"github.com/ndh707/sart/internal/domain/model"
)

// Observer receives the engine's outputs. Callbacks run on the engine's event
// loop: they must return quickly and must not call back into the Engine
// synchronously.
type Observer interface {
	PhaseChanged(ctx context.Context, change model.PhaseChange)
	ResponseRecorded(ctx context.Context, attribution model.Attribution)
	RunCompleted(ctx context.Context, run model.Run)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) PhaseChanged(context.Context, model.PhaseChange)     {}
func (NopObserver) ResponseRecorded(context.Context, model.Attribution) {}
func (NopObserver) RunCompleted(context.Context, model.Run)             {}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) PhaseChanged(ctx context.Context, change model.PhaseChange) {
	for _, obs := range o {
		obs.PhaseChanged(ctx, change)
	}
}

func (o Observers) ResponseRecorded(ctx context.Context, a model.Attribution) {
	for _, obs := range o {
		obs.ResponseRecorded(ctx, a)
	}
}

func (o Observers) RunCompleted(ctx context.Context, run model.Run) {
	for _, obs := range o {
		obs.RunCompleted(ctx, run)
	}
}
