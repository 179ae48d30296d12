package domain

import (
	"fmt"
	"time"
)

// TimelineItemType identifica cada paso del timeline de resolución.
type TimelineItemType int

const (
	ItemOutcomeProposed TimelineItemType = iota
	ItemNoDispute
	ItemDisputed
	ItemFinalReview
	ItemDisputeWindow
	ItemFinalOutcome
)

func (t TimelineItemType) String() string {
	switch t {
	case ItemOutcomeProposed:
		return "outcomeProposed"
	case ItemNoDispute:
		return "noDispute"
	case ItemDisputed:
		return "disputed"
	case ItemFinalReview:
		return "finalReview"
	case ItemDisputeWindow:
		return "disputeWindow"
	case ItemFinalOutcome:
		return "finalOutcome"
	default:
		return fmt.Sprintf("TimelineItemType(%d)", int(t))
	}
}

// ParseTimelineItemType es la inversa de String. Se usa al leer de storage.
func ParseTimelineItemType(s string) (TimelineItemType, bool) {
	for t := ItemOutcomeProposed; t <= ItemFinalOutcome; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// ItemState es el estado de un paso: done (pasado), active (en curso), pending.
type ItemState int

const (
	StateDone ItemState = iota
	StateActive
	StatePending
)

func (s ItemState) String() string {
	switch s {
	case StateDone:
		return "done"
	case StateActive:
		return "active"
	case StatePending:
		return "pending"
	default:
		return fmt.Sprintf("ItemState(%d)", int(s))
	}
}

// ParseItemState es la inversa de String.
func ParseItemState(s string) (ItemState, bool) {
	for st := StateDone; st <= StatePending; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// Icon es el marcador visual de un paso.
type Icon int

const (
	IconCheck Icon = iota
	IconOpen
	IconGavel
)

func (i Icon) String() string {
	switch i {
	case IconGavel:
		return "gavel"
	case IconOpen:
		return "open"
	default:
		return "check"
	}
}

// iconFor deriva el icono del tipo y estado del paso.
func iconFor(t TimelineItemType, s ItemState) Icon {
	switch {
	case t == ItemDisputed:
		return IconGavel
	case s == StateDone:
		return IconCheck
	default:
		return IconOpen
	}
}

// TimelineItem es un paso del timeline de resolución.
type TimelineItem struct {
	ID      string
	Type    TimelineItemType
	State   ItemState
	Icon    Icon
	Outcome Outcome

	// Remaining solo está presente en pasos con countdown
	// (finalReview, disputeWindow). Nunca negativo.
	Remaining *time.Duration
}

// RemainingSeconds devuelve el countdown en segundos, o false si el paso no tiene.
func (it TimelineItem) RemainingSeconds() (float64, bool) {
	if it.Remaining == nil {
		return 0, false
	}
	return it.Remaining.Seconds(), true
}

// ResolutionTimeline es la secuencia cronológica de pasos de un mercado.
type ResolutionTimeline struct {
	Items []TimelineItem
}

// Active devuelve el paso en curso, si lo hay.
func (tl ResolutionTimeline) Active() (TimelineItem, bool) {
	for _, it := range tl.Items {
		if it.State == StateActive {
			return it, true
		}
	}
	return TimelineItem{}, false
}

// Last devuelve el último paso del timeline.
func (tl ResolutionTimeline) Last() (TimelineItem, bool) {
	if len(tl.Items) == 0 {
		return TimelineItem{}, false
	}
	return tl.Items[len(tl.Items)-1], true
}

// IsTerminal es true cuando el timeline termina en un finalOutcome cerrado.
func (tl ResolutionTimeline) IsTerminal() bool {
	last, ok := tl.Last()
	return ok && last.Type == ItemFinalOutcome && last.State == StateDone
}

// Types devuelve la secuencia de tipos, útil para comparar timelines.
func (tl ResolutionTimeline) Types() []TimelineItemType {
	types := make([]TimelineItemType, len(tl.Items))
	for i, it := range tl.Items {
		types[i] = it.Type
	}
	return types
}

// ShouldDisplayResolutionTimeline es false mientras el oráculo no tiene propuesta.
func ShouldDisplayResolutionTimeline(m Market) bool {
	return m.Condition != nil && m.Condition.ResolutionStatus != StatusPosed
}

// BuildResolutionTimeline deriva el timeline de resolución del estado del
// oráculo en el instante now. Es una función pura: mismo (m, now), mismo resultado.
func BuildResolutionTimeline(m Market, now time.Time) ResolutionTimeline {
	if !ShouldDisplayResolutionTimeline(m) {
		return ResolutionTimeline{Items: []TimelineItem{}}
	}

	c := m.Condition
	b := timelineBuilder{conditionID: m.ConditionID}
	outcome := OutcomeFromPrice(c.ResolutionPrice)
	resolved := c.Resolved || m.IsResolved || c.ResolutionStatus == StatusResolved
	disputed := c.ResolutionWasDisputed || c.ResolutionStatus == StatusChallenged

	b.add(ItemOutcomeProposed, StateDone, outcome, nil)

	if disputed && !resolved {
		b.add(ItemDisputed, StateActive, OutcomeNone, nil)
		return b.timeline()
	}

	deadline, hasDeadline := ResolveResolutionDeadline(m)
	remaining := remainingUntil(deadline, hasDeadline, now)

	b.add(ItemNoDispute, StateDone, OutcomeNone, nil)

	switch {
	case resolved && !c.ResolutionFlagged:
		b.add(ItemFinalOutcome, StateDone, outcome, nil)

	case resolved:
		if remaining > 0 {
			b.add(ItemFinalReview, StateActive, outcome, &remaining)
		} else {
			b.add(ItemFinalOutcome, StateDone, outcome, nil)
		}

	case remaining > 0:
		b.add(ItemDisputeWindow, StateActive, OutcomeNone, &remaining)

	default:
		// Ventana vencida sin disputa: a la espera de que el oráculo liquide.
		b.add(ItemFinalOutcome, StateActive, outcome, nil)
	}

	return b.timeline()
}

type timelineBuilder struct {
	conditionID string
	items       []TimelineItem
}

func (b *timelineBuilder) add(t TimelineItemType, s ItemState, o Outcome, remaining *time.Duration) {
	var r *time.Duration
	if remaining != nil {
		v := *remaining
		r = &v
	}
	b.items = append(b.items, TimelineItem{
		ID:        b.conditionID + ":" + t.String(),
		Type:      t,
		State:     s,
		Icon:      iconFor(t, s),
		Outcome:   o,
		Remaining: r,
	})
}

func (b *timelineBuilder) timeline() ResolutionTimeline {
	return ResolutionTimeline{Items: b.items}
}

// FormatResolutionCountdown formatea un countdown como "{h}h {m}m {s}s".
// Valores negativos se muestran como 0h 0m 0s.
func FormatResolutionCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
