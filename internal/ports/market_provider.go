package ports

import (
	"context"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// MarketProvider obtiene mercados con su estado de resolución desde la API.
type MarketProvider interface {
	// FetchResolvingMarkets devuelve los mercados que tienen un request de
	// resolución en curso o recién liquidado. Pagina automáticamente.
	FetchResolvingMarkets(ctx context.Context) ([]domain.Market, error)

	// FetchMarket devuelve un mercado por condition_id.
	// Devuelve domain.ErrNotFound si no existe.
	FetchMarket(ctx context.Context, conditionID string) (domain.Market, error)
}
