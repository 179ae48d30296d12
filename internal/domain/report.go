package domain

import (
	"errors"
	"time"
)

// ErrNotFound se devuelve cuando un mercado no existe en la API, cache o storage.
var ErrNotFound = errors.New("not found")

// TimelineReport es el timeline de un mercado evaluado en un instante concreto.
type TimelineReport struct {
	Market      Market
	Timeline    ResolutionTimeline
	EvaluatedAt time.Time
	Deadline    time.Time // cero si no hay deadline calculable
}

// NewTimelineReport construye el timeline del mercado en now.
func NewTimelineReport(m Market, now time.Time) TimelineReport {
	r := TimelineReport{
		Market:      m,
		Timeline:    BuildResolutionTimeline(m, now),
		EvaluatedAt: now,
	}
	if d, ok := ResolveResolutionDeadline(m); ok {
		r.Deadline = d
	}
	return r
}

// Current devuelve el paso que describe el estado actual: el activo o, si no
// hay ninguno, el último.
func (r TimelineReport) Current() (TimelineItem, bool) {
	if it, ok := r.Timeline.Active(); ok {
		return it, true
	}
	return r.Timeline.Last()
}

// Step es la posición de un mercado en su timeline (tipo + estado del paso actual).
type Step struct {
	Type  TimelineItemType
	State ItemState
}

func (s Step) String() string {
	return s.Type.String() + "/" + s.State.String()
}

// CurrentStep devuelve el Step actual, o false si el timeline está vacío.
func (r TimelineReport) CurrentStep() (Step, bool) {
	it, ok := r.Current()
	if !ok {
		return Step{}, false
	}
	return Step{Type: it.Type, State: it.State}, true
}

// Transition registra un cambio de paso en el timeline de un mercado.
type Transition struct {
	ID          string
	ConditionID string
	From        *Step // nil = primera vez que se ve el mercado
	To          Step
	Outcome     Outcome
	At          time.Time
}
