package watcher

import (
	"sort"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// Prioridad de visualización: lo que tiene countdown en marcha primero.
const (
	rankCountdown = iota
	rankDisputed
	rankSettling
	rankTerminal
)

func rankOf(r domain.TimelineReport) (int, time.Duration) {
	it, ok := r.Timeline.Active()
	switch {
	case !ok:
		return rankTerminal, 0
	case it.Remaining != nil:
		return rankCountdown, *it.Remaining
	case it.Type == domain.ItemDisputed:
		return rankDisputed, 0
	default:
		return rankSettling, 0
	}
}

// rankReports ordena: countdowns activos (el que vence antes primero),
// disputas, pendientes de liquidar y por último los terminados.
func rankReports(reports []domain.TimelineReport) []domain.TimelineReport {
	sort.SliceStable(reports, func(i, j int) bool {
		ri, di := rankOf(reports[i])
		rj, dj := rankOf(reports[j])
		if ri != rj {
			return ri < rj
		}
		if di != dj {
			return di < dj
		}
		return reports[i].Market.ConditionID < reports[j].Market.ConditionID
	})
	return reports
}
