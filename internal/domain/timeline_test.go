package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func price(p float64) *float64 { return &p }

func makeMarket(c Condition) Market {
	return Market{
		ConditionID: "0xcond",
		Question:    "Will X happen?",
		Condition:   &c,
	}
}

func itemTypes(tl ResolutionTimeline) []TimelineItemType {
	return tl.Types()
}

// --- Gate ---

func TestBuildResolutionTimeline_PosedIsEmpty(t *testing.T) {
	m := makeMarket(Condition{ResolutionStatus: StatusPosed, ResolutionLastUpdate: baseTime})

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Empty(t, tl.Items)
	assert.NotNil(t, tl.Items)
	assert.False(t, ShouldDisplayResolutionTimeline(m))
}

func TestBuildResolutionTimeline_NilConditionIsEmpty(t *testing.T) {
	m := Market{ConditionID: "0xcond"}

	assert.Empty(t, BuildResolutionTimeline(m, baseTime).Items)
	assert.False(t, ShouldDisplayResolutionTimeline(m))
}

func TestShouldDisplayResolutionTimeline_NonPosedStatuses(t *testing.T) {
	for _, st := range []ResolutionStatus{StatusProposed, StatusChallenged, StatusResolved, StatusUnknown} {
		m := makeMarket(Condition{ResolutionStatus: st})
		assert.True(t, ShouldDisplayResolutionTimeline(m), "status %s", st)
	}
}

// --- Secuencias ---

func TestBuildResolutionTimeline_ResolvedUndisputed(t *testing.T) {
	m := makeMarket(Condition{
		Resolved:             true,
		ResolutionStatus:     StatusResolved,
		ResolutionPrice:      price(1),
		ResolutionLastUpdate: baseTime.Add(-3 * time.Hour),
	})

	tl := BuildResolutionTimeline(m, baseTime)
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))

	final := tl.Items[2]
	assert.Equal(t, OutcomeYes, final.Outcome)
	assert.Equal(t, StateDone, final.State)
	assert.Equal(t, IconCheck, final.Icon)
	assert.Nil(t, final.Remaining)

	assert.True(t, tl.IsTerminal())
	_, active := tl.Active()
	assert.False(t, active, "un timeline terminal no tiene pasos activos")
}

func TestBuildResolutionTimeline_ResolvedNo(t *testing.T) {
	m := makeMarket(Condition{Resolved: true, ResolutionStatus: StatusResolved, ResolutionPrice: price(0)})

	tl := BuildResolutionTimeline(m, baseTime)
	last, ok := tl.Last()
	require.True(t, ok)
	assert.Equal(t, OutcomeNo, last.Outcome)
	assert.Equal(t, OutcomeNo, tl.Items[0].Outcome)
}

func TestBuildResolutionTimeline_MarketIsResolvedFlag(t *testing.T) {
	m := makeMarket(Condition{ResolutionStatus: StatusProposed, ResolutionPrice: price(1)})
	m.IsResolved = true

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))
}

func TestBuildResolutionTimeline_DisputedUnresolved(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:      StatusChallenged,
		ResolutionWasDisputed: true,
		ResolutionPrice:       price(0),
		ResolutionLastUpdate:  baseTime.Add(-time.Hour),
	})

	tl := BuildResolutionTimeline(m, baseTime)
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemDisputed}, itemTypes(tl))

	disputed := tl.Items[1]
	assert.Equal(t, IconGavel, disputed.Icon)
	assert.Equal(t, StateActive, disputed.State)
	assert.Nil(t, disputed.Remaining)
	assert.False(t, tl.IsTerminal())
}

func TestBuildResolutionTimeline_ChallengedStatusWithoutFlag(t *testing.T) {
	m := makeMarket(Condition{ResolutionStatus: StatusChallenged})

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemDisputed}, itemTypes(tl))
}

func TestBuildResolutionTimeline_DisputedThenResolved(t *testing.T) {
	m := makeMarket(Condition{
		Resolved:              true,
		ResolutionStatus:      StatusResolved,
		ResolutionWasDisputed: true,
		ResolutionPrice:       price(1),
	})

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))
}

func TestBuildResolutionTimeline_FlaggedFinalReviewOpen(t *testing.T) {
	deadline := baseTime.Add(time.Hour)
	m := makeMarket(Condition{
		Resolved:             true,
		ResolutionStatus:     StatusResolved,
		ResolutionFlagged:    true,
		ResolutionPrice:      price(1),
		ResolutionLastUpdate: baseTime,
		ResolutionDeadlineAt: deadline,
	})
	now := deadline.Add(-30 * time.Minute)

	tl := BuildResolutionTimeline(m, now)
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalReview}, itemTypes(tl))

	review := tl.Items[2]
	assert.Equal(t, StateActive, review.State)
	assert.Equal(t, IconOpen, review.Icon)

	secs, ok := review.RemainingSeconds()
	require.True(t, ok)
	assert.Equal(t, 1800.0, secs)
	assert.Equal(t, "0h 30m 0s", FormatResolutionCountdown(*review.Remaining))
}

func TestBuildResolutionTimeline_FlaggedFinalReviewLapsed(t *testing.T) {
	m := makeMarket(Condition{
		Resolved:             true,
		ResolutionStatus:     StatusResolved,
		ResolutionFlagged:    true,
		ResolutionPrice:      price(0.5),
		ResolutionLastUpdate: baseTime,
	})

	// sin deadline explícito: 1h de revisión, ya vencida
	tl := BuildResolutionTimeline(m, baseTime.Add(2*time.Hour))
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))
	assert.Equal(t, StateDone, tl.Items[2].State)
	assert.Equal(t, OutcomeInvalid, tl.Items[2].Outcome)
}

func TestBuildResolutionTimeline_FlaggedNegRiskUsesLongWindow(t *testing.T) {
	m := makeMarket(Condition{
		Resolved:             true,
		ResolutionStatus:     StatusResolved,
		ResolutionFlagged:    true,
		ResolutionLastUpdate: baseTime,
	})
	m.NegRisk = true

	tl := BuildResolutionTimeline(m, baseTime.Add(2*time.Hour))
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalReview}, itemTypes(tl))
	assert.Equal(t, 46*time.Hour, *tl.Items[2].Remaining)
}

func TestBuildResolutionTimeline_DisputeWindowOpen(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:          StatusProposed,
		ResolutionPrice:           price(1),
		ResolutionLastUpdate:      baseTime,
		ResolutionLivenessSeconds: 7200,
	})

	tl := BuildResolutionTimeline(m, baseTime.Add(30*time.Minute))
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemDisputeWindow}, itemTypes(tl))

	noDispute := tl.Items[1]
	assert.Equal(t, StateDone, noDispute.State)
	assert.Equal(t, IconCheck, noDispute.Icon)
	assert.Nil(t, noDispute.Remaining)

	window := tl.Items[2]
	assert.Equal(t, StateActive, window.State)
	assert.Equal(t, IconOpen, window.Icon)
	assert.Equal(t, 90*time.Minute, *window.Remaining)
	assert.Equal(t, OutcomeYes, tl.Items[0].Outcome)
}

func TestBuildResolutionTimeline_DisputeWindowElapsed(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:          StatusProposed,
		ResolutionPrice:           price(1),
		ResolutionLastUpdate:      baseTime,
		ResolutionLivenessSeconds: 7200,
	})

	tl := BuildResolutionTimeline(m, baseTime.Add(3*time.Hour))
	require.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))

	final := tl.Items[2]
	assert.Equal(t, StateActive, final.State, "a la espera de liquidación")
	assert.Equal(t, IconOpen, final.Icon)
	assert.False(t, tl.IsTerminal())
}

func TestBuildResolutionTimeline_MissingTimestampsClampToZero(t *testing.T) {
	m := makeMarket(Condition{ResolutionStatus: StatusProposed, ResolutionLivenessSeconds: 7200})

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Equal(t, []TimelineItemType{ItemOutcomeProposed, ItemNoDispute, ItemFinalOutcome}, itemTypes(tl))
	assert.Equal(t, OutcomeUnknown, tl.Items[0].Outcome)
}

func TestBuildResolutionTimeline_ZeroNowClampsCountdown(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:          StatusProposed,
		ResolutionLastUpdate:      baseTime,
		ResolutionLivenessSeconds: 7200,
	})

	tl := BuildResolutionTimeline(m, time.Time{})
	for _, it := range tl.Items {
		assert.NotEqual(t, ItemDisputeWindow, it.Type)
	}
}

func TestBuildResolutionTimeline_ItemIDs(t *testing.T) {
	m := makeMarket(Condition{ResolutionStatus: StatusChallenged})

	tl := BuildResolutionTimeline(m, baseTime)
	assert.Equal(t, "0xcond:outcomeProposed", tl.Items[0].ID)
	assert.Equal(t, "0xcond:disputed", tl.Items[1].ID)
}

// --- Propiedades ---

func TestBuildResolutionTimeline_AtMostOneActive(t *testing.T) {
	conditions := []Condition{
		{ResolutionStatus: StatusProposed, ResolutionLastUpdate: baseTime, ResolutionLivenessSeconds: 7200},
		{ResolutionStatus: StatusProposed, ResolutionLastUpdate: baseTime.Add(-5 * time.Hour), ResolutionLivenessSeconds: 7200},
		{ResolutionStatus: StatusChallenged, ResolutionWasDisputed: true},
		{Resolved: true, ResolutionStatus: StatusResolved, ResolutionFlagged: true, ResolutionLastUpdate: baseTime},
		{Resolved: true, ResolutionStatus: StatusResolved},
	}
	for i, c := range conditions {
		tl := BuildResolutionTimeline(makeMarket(c), baseTime.Add(time.Minute))
		active := 0
		for _, it := range tl.Items {
			if it.State == StateActive {
				active++
			}
		}
		if tl.IsTerminal() {
			assert.Equal(t, 0, active, "case %d", i)
		} else {
			assert.Equal(t, 1, active, "case %d", i)
		}
	}
}

func TestBuildResolutionTimeline_Deterministic(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:          StatusProposed,
		ResolutionPrice:           price(1),
		ResolutionLastUpdate:      baseTime,
		ResolutionLivenessSeconds: 7200,
	})
	now := baseTime.Add(17 * time.Minute)

	assert.Equal(t, BuildResolutionTimeline(m, now), BuildResolutionTimeline(m, now))
}

func TestBuildResolutionTimeline_CountdownMonotonic(t *testing.T) {
	m := makeMarket(Condition{
		ResolutionStatus:          StatusProposed,
		ResolutionLastUpdate:      baseTime,
		ResolutionLivenessSeconds: 600,
	})

	prev := time.Duration(-1)
	for step := 0; step <= 700; step += 7 {
		now := baseTime.Add(time.Duration(step) * time.Second)
		tl := BuildResolutionTimeline(m, now)

		remaining := time.Duration(0)
		if active, ok := tl.Active(); ok && active.Remaining != nil {
			remaining = *active.Remaining
		}
		assert.GreaterOrEqual(t, remaining, time.Duration(0))
		if prev >= 0 {
			if prev == 0 {
				assert.Equal(t, time.Duration(0), remaining)
			} else {
				assert.Less(t, remaining, prev)
			}
		}
		prev = remaining
	}
}

// --- FormatResolutionCountdown ---

func TestFormatResolutionCountdown(t *testing.T) {
	assert.Equal(t, "0h 30m 0s", FormatResolutionCountdown(1800*time.Second))
	assert.Equal(t, "0h 0m 0s", FormatResolutionCountdown(0))
	assert.Equal(t, "0h 0m 0s", FormatResolutionCountdown(-5*time.Second))
	assert.Equal(t, "48h 0m 0s", FormatResolutionCountdown(48*time.Hour))
	assert.Equal(t, "1h 1m 1s", FormatResolutionCountdown(time.Hour+time.Minute+time.Second+400*time.Millisecond))
}

// --- Parsers ---

func TestParseTimelineItemType_RoundTrip(t *testing.T) {
	for it := ItemOutcomeProposed; it <= ItemFinalOutcome; it++ {
		got, ok := ParseTimelineItemType(it.String())
		require.True(t, ok)
		assert.Equal(t, it, got)
	}
	_, ok := ParseTimelineItemType("bogus")
	assert.False(t, ok)
}
