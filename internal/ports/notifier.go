package ports

import (
	"context"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// Notifier presenta los timelines de resolución al usuario.
type Notifier interface {
	// Notify muestra los timelines evaluados en un ciclo.
	Notify(ctx context.Context, reports []domain.TimelineReport) error
}
