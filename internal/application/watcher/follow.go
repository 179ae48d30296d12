package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// RenderFunc recibe cada recálculo del timeline en modo follow.
type RenderFunc func(domain.TimelineReport)

// Follow sigue un único mercado: recalcula el timeline cada Tick mientras haya
// un countdown activo y vuelve a pedir el mercado cada PollInterval (o en cuanto
// un countdown llega a cero). Termina cuando el timeline es terminal o se
// cancela el contexto, y devuelve el último timeline calculado.
func (w *Watcher) Follow(ctx context.Context, conditionID string, render RenderFunc) (domain.TimelineReport, error) {
	m, err := w.loadMarket(ctx, conditionID)
	if err != nil {
		return domain.TimelineReport{}, fmt.Errorf("watcher.Follow: %w", err)
	}

	report := w.evaluate(ctx, m, render)
	if report.Timeline.IsTerminal() {
		return report, nil
	}

	tick := time.NewTicker(w.cfg.Tick)
	defer tick.Stop()
	refresh := time.NewTicker(w.cfg.PollInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return report, nil

		case <-tick.C:
			it, ok := report.Timeline.Active()
			if !ok || it.Remaining == nil {
				continue
			}
			report = domain.NewTimelineReport(m, w.now())
			render(report)

			if it, ok := report.Timeline.Active(); ok && it.Remaining != nil {
				continue
			}
			// el countdown llegó a cero: el oráculo puede haber avanzado
			m, report = w.reload(ctx, m, render)

		case <-refresh.C:
			m, report = w.reload(ctx, m, render)
		}

		if report.Timeline.IsTerminal() {
			slog.Info("market resolved, stop following",
				"condition_id", conditionID,
				"outcome", lastOutcome(report),
			)
			return report, nil
		}
	}
}

// loadMarket busca el mercado en cache y si no está lo pide a la API.
func (w *Watcher) loadMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	if w.cache != nil {
		m, err := w.cache.Get(ctx, conditionID)
		if err == nil {
			slog.Debug("market served from cache", "condition_id", conditionID)
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("cache read failed", "condition_id", conditionID, "err", err)
		}
	}
	return w.fetchAndCache(ctx, conditionID)
}

func (w *Watcher) fetchAndCache(ctx context.Context, conditionID string) (domain.Market, error) {
	m, err := w.markets.FetchMarket(ctx, conditionID)
	if err != nil {
		return domain.Market{}, err
	}
	if w.cache != nil {
		if err := w.cache.Set(ctx, m); err != nil {
			slog.Warn("cache write failed", "condition_id", conditionID, "err", err)
		}
	}
	return m, nil
}

// reload pide de nuevo el mercado a la API (saltándose la cache). Si falla se
// sigue con el snapshot anterior.
func (w *Watcher) reload(ctx context.Context, prev domain.Market, render RenderFunc) (domain.Market, domain.TimelineReport) {
	m, err := w.fetchAndCache(ctx, prev.ConditionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && w.cache != nil {
			if err := w.cache.Invalidate(ctx, prev.ConditionID); err != nil {
				slog.Warn("cache invalidate failed", "condition_id", prev.ConditionID, "err", err)
			}
		}
		if ctx.Err() == nil {
			slog.Warn("refresh market failed", "condition_id", prev.ConditionID, "err", err)
		}
		m = prev
	}
	return m, w.evaluate(ctx, m, render)
}

// evaluate construye el timeline, lo muestra y lo persiste.
func (w *Watcher) evaluate(ctx context.Context, m domain.Market, render RenderFunc) domain.TimelineReport {
	report := domain.NewTimelineReport(m, w.now())
	render(report)
	w.logTransitions([]domain.TimelineReport{report})
	w.persist(ctx, []domain.TimelineReport{report})
	return report
}

func lastOutcome(r domain.TimelineReport) string {
	last, ok := r.Timeline.Last()
	if !ok {
		return ""
	}
	return last.Outcome.String()
}
