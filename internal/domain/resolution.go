package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ResolutionStatus es la etapa del ciclo de vida del oráculo.
type ResolutionStatus int

const (
	StatusUnknown    ResolutionStatus = iota
	StatusPosed                       // request creado, sin propuesta
	StatusProposed                    // hay propuesta, ventana de disputa abierta
	StatusChallenged                  // propuesta disputada
	StatusResolved                    // resultado final
)

func (s ResolutionStatus) String() string {
	switch s {
	case StatusPosed:
		return "posed"
	case StatusProposed:
		return "proposed"
	case StatusChallenged:
		return "challenged"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ParseResolutionStatus convierte el status textual del oráculo (case-insensitive).
// "disputed" se acepta como sinónimo de challenged.
func ParseResolutionStatus(s string) ResolutionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posed", "requested":
		return StatusPosed
	case "proposed":
		return StatusProposed
	case "challenged", "disputed":
		return StatusChallenged
	case "resolved", "settled":
		return StatusResolved
	default:
		return StatusUnknown
	}
}

// Condition contiene los campos de resolución del oráculo de un mercado.
// Los timestamps a cero significan "no disponible".
type Condition struct {
	Resolved                  bool
	ResolutionStatus          ResolutionStatus
	ResolutionPrice           *float64 // 1 = yes, 0 = no, 0.5 = ambiguo; nil = sin precio
	ResolutionFlagged         bool     // marcado para revisión final
	ResolutionWasDisputed     bool
	ResolutionLastUpdate      time.Time
	ResolutionLivenessSeconds int64
	ResolutionDeadlineAt      time.Time
}

// Outcome es el resultado asociado a un paso del timeline.
type Outcome int

const (
	OutcomeNone Outcome = iota // el paso no lleva resultado
	OutcomeYes
	OutcomeNo
	OutcomeInvalid
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeUnknown:
		return "unknown"
	default:
		return ""
	}
}

// ParseOutcome es la inversa de Outcome.String. Vacío → OutcomeNone.
func ParseOutcome(s string) Outcome {
	switch s {
	case "yes":
		return OutcomeYes
	case "no":
		return OutcomeNo
	case "invalid":
		return OutcomeInvalid
	case "unknown":
		return OutcomeUnknown
	default:
		return OutcomeNone
	}
}

const priceEpsilon = 1e-9

// OutcomeFromPrice traduce el precio de resolución del oráculo a un Outcome.
// Sin precio → unknown; cualquier valor que no sea 0 ni 1 → invalid.
func OutcomeFromPrice(price *float64) Outcome {
	if price == nil || math.IsNaN(*price) || math.IsInf(*price, 0) {
		return OutcomeUnknown
	}
	switch {
	case math.Abs(*price-1) < priceEpsilon:
		return OutcomeYes
	case math.Abs(*price) < priceEpsilon:
		return OutcomeNo
	default:
		return OutcomeInvalid
	}
}

// ParseResolutionTime interpreta un timestamp de la API. Acepta RFC3339,
// los formatos de fecha habituales de Postgres y epoch en segundos o milisegundos.
func ParseResolutionTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		// 1e11 segundos es el año 5138: por encima asumimos milisegundos
		if n >= 1e11 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05.999999Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
