package polymarket

import (
	"math"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// Tope de liveness aceptado de la API (~292 años); por encima no cabe en time.Duration.
const maxLivenessSeconds = float64(math.MaxInt64 / int64(time.Second))

// mapMarkets convierte los DTOs de la API a domain.Market.
func mapMarkets(raw []apiMarket) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		markets = append(markets, mapMarket(r))
	}
	return markets
}

// mapMarket convierte un apiMarket a domain.Market.
func mapMarket(r apiMarket) domain.Market {
	m := domain.Market{
		ConditionID: r.ConditionID,
		QuestionID:  r.QuestionID,
		Question:    r.Question,
		Slug:        r.Slug,
		NegRisk:     r.NegRisk,
		IsResolved:  r.IsResolved,
		Closed:      r.Closed,
	}
	if t, ok := domain.ParseResolutionTime(string(r.EndDate)); ok {
		m.EndDate = t
	}

	for i, t := range r.Tokens {
		if i >= 2 {
			break
		}
		m.Tokens[i] = domain.Token{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Price:   t.Price.Value,
		}
	}

	if r.Condition != nil {
		m.Condition = mapCondition(*r.Condition)
	}
	return m
}

// mapCondition convierte el sub-registro del oráculo. Los timestamps que no
// parsean quedan a cero y el dominio los trata como ausentes.
func mapCondition(r apiCondition) *domain.Condition {
	c := &domain.Condition{
		Resolved:              r.Resolved,
		ResolutionStatus:      domain.ParseResolutionStatus(r.ResolutionStatus),
		ResolutionFlagged:     r.ResolutionFlagged,
		ResolutionWasDisputed: r.ResolutionWasDisputed,
	}
	if r.ResolutionPrice.Valid && !math.IsNaN(r.ResolutionPrice.Value) && !math.IsInf(r.ResolutionPrice.Value, 0) {
		p := r.ResolutionPrice.Value
		c.ResolutionPrice = &p
	}
	if l := r.ResolutionLivenessSeconds; l.Valid && l.Value > 0 && !math.IsInf(l.Value, 0) {
		c.ResolutionLivenessSeconds = int64(math.Round(min(l.Value, maxLivenessSeconds)))
	}
	if t, ok := domain.ParseResolutionTime(string(r.ResolutionLastUpdate)); ok {
		c.ResolutionLastUpdate = t
	}
	if t, ok := domain.ParseResolutionTime(string(r.ResolutionDeadlineAt)); ok {
		c.ResolutionDeadlineAt = t
	}
	return c
}
