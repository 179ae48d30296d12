package ports

import (
	"context"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// TimelineStorage persiste el paso actual de cada mercado y sus transiciones.
type TimelineStorage interface {
	// SaveTimeline guarda el estado del timeline. Devuelve la transición
	// registrada si el paso actual cambió respecto al último guardado.
	SaveTimeline(ctx context.Context, report domain.TimelineReport) (*domain.Transition, error)

	// GetTransitions devuelve el historial de un mercado, más antiguo primero.
	GetTransitions(ctx context.Context, conditionID string) ([]domain.Transition, error)

	// GetTracked devuelve los condition_ids con timeline no terminal.
	GetTracked(ctx context.Context) ([]string, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
