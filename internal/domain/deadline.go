package domain

import (
	"math"
	"time"
)

// maxLivenessSeconds es la mayor liveness representable como time.Duration.
const maxLivenessSeconds = math.MaxInt64 / int64(time.Second)

const (
	// Ventanas de revisión final cuando el oráculo no publica deadline explícito.
	finalReviewWindow        = time.Hour
	finalReviewWindowNegRisk = 48 * time.Hour
)

// deadlineProvider devuelve un deadline candidato para el mercado, o false si
// no puede calcularlo con los datos disponibles.
type deadlineProvider func(m Market) (time.Time, bool)

// deadlineProviders se evalúan en orden; gana el primero que devuelve deadline.
var deadlineProviders = []deadlineProvider{
	explicitDeadline,
	livenessDeadline,
	finalReviewDeadline,
}

// ResolveResolutionDeadline calcula el deadline del paso activo del oráculo:
// deadline explícito > last_update + liveness (sin flag) > ventana de revisión final (con flag).
// Devuelve false si ninguna fuente es válida.
func ResolveResolutionDeadline(m Market) (time.Time, bool) {
	if m.Condition == nil {
		return time.Time{}, false
	}
	for _, p := range deadlineProviders {
		if t, ok := p(m); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func explicitDeadline(m Market) (time.Time, bool) {
	d := m.Condition.ResolutionDeadlineAt
	return d, !d.IsZero()
}

func livenessDeadline(m Market) (time.Time, bool) {
	c := m.Condition
	if c.ResolutionFlagged || c.ResolutionLastUpdate.IsZero() || c.ResolutionLivenessSeconds < 0 {
		return time.Time{}, false
	}
	liveness := min(c.ResolutionLivenessSeconds, maxLivenessSeconds)
	return c.ResolutionLastUpdate.Add(time.Duration(liveness) * time.Second), true
}

func finalReviewDeadline(m Market) (time.Time, bool) {
	c := m.Condition
	if !c.ResolutionFlagged || c.ResolutionLastUpdate.IsZero() {
		return time.Time{}, false
	}
	window := finalReviewWindow
	if m.NegRisk {
		window = finalReviewWindowNegRisk
	}
	return c.ResolutionLastUpdate.Add(window), true
}

// remainingUntil devuelve el tiempo restante hasta deadline, nunca negativo.
// Sin deadline o sin now el countdown se considera vencido.
func remainingUntil(deadline time.Time, ok bool, now time.Time) time.Duration {
	if !ok || now.IsZero() {
		return 0
	}
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
