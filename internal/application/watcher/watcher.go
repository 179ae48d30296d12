package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/domain"
	"github.com/alejandrodnm/resolwatch/internal/ports"
)

// Config contiene la configuración del watcher.
type Config struct {
	PollInterval time.Duration // refresco de mercados contra la API
	Tick         time.Duration // recálculo de countdowns en modo follow
	Workers      int           // goroutines para construir timelines (0 = NumCPU)
	Once         bool          // un solo ciclo y salir
}

// DefaultConfig devuelve la configuración por defecto.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		Tick:         time.Second,
	}
}

// batchFetcher lo implementan los providers que pueden pedir varios mercados a la vez.
type batchFetcher interface {
	FetchMarketsByID(ctx context.Context, conditionIDs []string) ([]domain.Market, error)
}

// Watcher sigue los mercados en resolución y emite sus timelines.
type Watcher struct {
	cfg      Config
	markets  ports.MarketProvider
	cache    ports.MarketCache     // opcional
	storage  ports.TimelineStorage // opcional
	notifier ports.Notifier
	now      func() time.Time

	previous map[string]domain.Step // paso de cada mercado en el ciclo anterior
}

// New crea un Watcher con todas las dependencias inyectadas.
// cache y storage pueden ser nil.
func New(
	cfg Config,
	markets ports.MarketProvider,
	cache ports.MarketCache,
	storage ports.TimelineStorage,
	notifier ports.Notifier,
) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	return &Watcher{
		cfg:      cfg,
		markets:  markets,
		cache:    cache,
		storage:  storage,
		notifier: notifier,
		now:      time.Now,
		previous: make(map[string]domain.Step),
	}
}

// SetClock reemplaza el reloj (tests).
func (w *Watcher) SetClock(now func() time.Time) {
	w.now = now
}

// Run ejecuta el loop de polling hasta que el contexto se cancele.
// Con cfg.Once solo ejecuta un ciclo.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher starting",
		"interval", w.cfg.PollInterval,
		"once", w.cfg.Once,
		"workers", w.cfg.Workers,
	)

	if err := w.runCycle(ctx); err != nil {
		slog.Error("watch cycle failed", "err", err)
		if w.cfg.Once {
			return err
		}
	}

	if w.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return nil
		case <-ticker.C:
			if err := w.runCycle(ctx); err != nil {
				slog.Error("watch cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta un ciclo sin notificar ni persistir y devuelve los timelines.
func (w *Watcher) RunOnce(ctx context.Context) ([]domain.TimelineReport, error) {
	return w.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (w *Watcher) runCycle(ctx context.Context) error {
	start := time.Now()

	reports, err := w.cycle(ctx)
	if err != nil {
		return err
	}

	w.logTransitions(reports)

	if err := w.notifier.Notify(ctx, reports); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	persisted := w.persist(ctx, reports)

	slog.Info("watch cycle complete",
		"markets", len(reports),
		"transitions", persisted,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle hace fetch → refresco de tracked → build concurrente → rank.
func (w *Watcher) cycle(ctx context.Context) ([]domain.TimelineReport, error) {
	markets, err := w.markets.FetchResolvingMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("watcher.cycle: fetch markets: %w", err)
	}

	markets = append(markets, w.fetchStaleTracked(ctx, markets)...)

	reports := buildReportsConcurrent(ctx, markets, w.now(), w.cfg.Workers)
	return rankReports(reports), nil
}

// fetchStaleTracked recupera los mercados que storage sigue como no terminales
// pero que ya no aparecen en el listado, para registrar su paso final.
func (w *Watcher) fetchStaleTracked(ctx context.Context, listed []domain.Market) []domain.Market {
	if w.storage == nil {
		return nil
	}
	tracked, err := w.storage.GetTracked(ctx)
	if err != nil {
		slog.Warn("load tracked markets failed", "err", err)
		return nil
	}

	seen := make(map[string]bool, len(listed))
	for _, m := range listed {
		seen[m.ConditionID] = true
	}
	var missing []string
	for _, id := range tracked {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if bf, ok := w.markets.(batchFetcher); ok {
		markets, err := bf.FetchMarketsByID(ctx, missing)
		if err != nil {
			slog.Warn("refresh tracked markets failed", "err", err, "count", len(missing))
			return nil
		}
		return markets
	}

	var markets []domain.Market
	for _, id := range missing {
		m, err := w.markets.FetchMarket(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				slog.Warn("refresh tracked market failed", "condition_id", id, "err", err)
			}
			continue
		}
		markets = append(markets, m)
	}
	return markets
}

// logTransitions registra los mercados cuyo paso cambió desde el ciclo anterior.
// Las disputas nuevas usan nivel WARN para máxima visibilidad.
func (w *Watcher) logTransitions(reports []domain.TimelineReport) {
	current := make(map[string]domain.Step, len(reports))

	for _, r := range reports {
		step, ok := r.CurrentStep()
		if !ok {
			continue
		}
		cid := r.Market.ConditionID
		current[cid] = step

		prev, known := w.previous[cid]
		if known && prev == step {
			continue
		}

		attrs := []any{
			"market", domain.TruncateQuestion(r.Market.Question, cid, 60),
			"condition_id", cid,
			"step", step.String(),
		}
		if known {
			attrs = append(attrs, "from", prev.String())
		}
		if it, ok := r.Timeline.Active(); ok && it.Remaining != nil {
			attrs = append(attrs, "remaining", domain.FormatResolutionCountdown(*it.Remaining))
		}

		switch {
		case step.Type == domain.ItemDisputed:
			slog.Warn("OUTCOME DISPUTED", attrs...)
		case r.Timeline.IsTerminal():
			last, _ := r.Timeline.Last()
			slog.Info("market resolved", append(attrs, "outcome", last.Outcome.String())...)
		default:
			slog.Info("timeline step changed", attrs...)
		}
	}

	w.previous = current
}

// persist guarda cada timeline y devuelve cuántas transiciones se registraron.
func (w *Watcher) persist(ctx context.Context, reports []domain.TimelineReport) int {
	if w.storage == nil {
		return 0
	}
	n := 0
	for _, r := range reports {
		tr, err := w.storage.SaveTimeline(ctx, r)
		if err != nil {
			slog.Warn("storage error", "condition_id", r.Market.ConditionID, "err", err)
			continue
		}
		if tr != nil {
			n++
		}
	}
	return n
}
