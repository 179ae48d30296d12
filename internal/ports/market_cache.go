package ports

import (
	"context"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// MarketCache guarda snapshots recientes de mercados para no repetir requests.
type MarketCache interface {
	// Get devuelve domain.ErrNotFound si el mercado no está en cache.
	Get(ctx context.Context, conditionID string) (domain.Market, error)
	Set(ctx context.Context, market domain.Market) error
	Invalidate(ctx context.Context, conditionID string) error
}
