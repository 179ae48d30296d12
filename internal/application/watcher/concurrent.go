package watcher

// concurrent.go — worker pool para evaluar timelines en paralelo.
//
// Construir un timeline es barato, pero un ciclo puede traer miles de mercados
// y refrescar los tracked; repartirlos entre workers mantiene el ciclo corto.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// buildReportsConcurrent evalúa el timeline de cada mercado en now usando un
// worker pool. Los mercados sin propuesta (timeline vacío) se descartan.
//
// Si workers <= 0 usa runtime.NumCPU().
func buildReportsConcurrent(
	ctx context.Context,
	markets []domain.Market,
	now time.Time,
	workers int,
) []domain.TimelineReport {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workCh := make(chan domain.Market, len(markets))
	resultCh := make(chan domain.TimelineReport, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				if ctx.Err() != nil {
					continue
				}
				if !domain.ShouldDisplayResolutionTimeline(m) {
					continue
				}
				resultCh <- domain.NewTimelineReport(m, now)
			}
		}()
	}

	queued := 0
	for _, m := range markets {
		if m.ConditionID == "" {
			slog.Debug("market without condition_id, skipping", "question", m.Question)
			continue
		}
		workCh <- m
		queued++
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	reports := make([]domain.TimelineReport, 0, queued)
	for r := range resultCh {
		reports = append(reports, r)
	}

	slog.Debug("concurrent timeline build complete",
		"markets_queued", queued,
		"timelines", len(reports),
		"workers", workers,
	)
	return reports
}
