package polymarket

// markets.go — endpoints de mercados en resolución.
//
// FetchMarketsByID lanza un request por mercado con errgroup limitado; el
// rate limiter de doWithRetry marca el ritmo real contra la API.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

const (
	marketsPath     = "/markets"
	defaultPageSize = 100
	maxConcurrent   = 8
)

// FetchResolvingMarkets devuelve todos los mercados con resolución en curso.
// Pagina con next_offset hasta que la API devuelve null o se alcanza el máximo configurado.
func (c *Client) FetchResolvingMarkets(ctx context.Context) ([]domain.Market, error) {
	var all []domain.Market
	offset := 0

	for page := 0; c.maxPages == 0 || page < c.maxPages; page++ {
		params := url.Values{}
		params.Set("resolving", "true")
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var resp marketsPage
		if err := c.get(ctx, c.baseURL+marketsPath+"?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchResolvingMarkets: %w", err)
		}

		all = append(all, mapMarkets(resp.Data)...)

		slog.Debug("fetched resolving markets page",
			"count", len(resp.Data),
			"total", len(all),
			"has_more", resp.NextOffset != nil,
		)

		if resp.NextOffset == nil || len(resp.Data) == 0 {
			break
		}
		offset = *resp.NextOffset
	}

	slog.Info("resolving markets fetched", "total", len(all))
	return all, nil
}

// FetchMarket devuelve un mercado por condition_id.
func (c *Client) FetchMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	var raw apiMarket
	u := c.baseURL + marketsPath + "/" + url.PathEscape(conditionID)
	if err := c.get(ctx, u, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket.FetchMarket %s: %w", conditionID, err)
	}
	return mapMarket(raw), nil
}

// FetchMarketsByID obtiene varios mercados en paralelo. Los que no existen se
// omiten; cualquier otro error cancela el resto y se devuelve.
func (c *Client) FetchMarketsByID(ctx context.Context, conditionIDs []string) ([]domain.Market, error) {
	if len(conditionIDs) == 0 {
		return nil, nil
	}

	results := make([]*domain.Market, len(conditionIDs))
	var missing int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, id := range conditionIDs {
		i, id := i, id
		g.Go(func() error {
			m, err := c.FetchMarket(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				mu.Lock()
				missing++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("polymarket.FetchMarketsByID: %w", err)
	}

	markets := make([]domain.Market, 0, len(conditionIDs))
	for _, m := range results {
		if m != nil {
			markets = append(markets, *m)
		}
	}
	if missing > 0 {
		slog.Debug("markets not found", "missing", missing, "requested", len(conditionIDs))
	}
	return markets, nil
}
