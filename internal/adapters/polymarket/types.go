package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DTOs raw de la API de mercados. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// apiMarket es un mercado con su sub-registro de condición del oráculo.
type apiMarket struct {
	ConditionID string        `json:"condition_id"`
	QuestionID  string        `json:"question_id"`
	Question    string        `json:"question"`
	Slug        string        `json:"slug"`
	EndDate     flexString    `json:"end_date"`
	NegRisk     bool          `json:"neg_risk"`
	IsResolved  bool          `json:"is_resolved"`
	Closed      bool          `json:"closed"`
	Tokens      []apiToken    `json:"tokens"`
	Condition   *apiCondition `json:"condition"`
}

// apiToken es uno de los outcomes del mercado.
type apiToken struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
}

// apiCondition son los campos de resolución tal como los expone la API.
type apiCondition struct {
	Resolved                  bool       `json:"resolved"`
	ResolutionStatus          string     `json:"resolution_status"`
	ResolutionPrice           flexFloat  `json:"resolution_price"`
	ResolutionFlagged         bool       `json:"resolution_flagged"`
	ResolutionWasDisputed     bool       `json:"resolution_was_disputed"`
	ResolutionLastUpdate      flexString `json:"resolution_last_update"`
	ResolutionLivenessSeconds flexFloat  `json:"resolution_liveness_seconds"`
	ResolutionDeadlineAt      flexString `json:"resolution_deadline_at"`
}

// marketsPage es la respuesta paginada de GET /markets.
type marketsPage struct {
	Data       []apiMarket `json:"data"`
	NextOffset *int        `json:"next_offset"`
}

// flexFloat acepta número, string numérico o null. Valid=false si falta o no parsea.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// un valor no numérico se trata como ausente, no como error de decode
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// flexString acepta string, número (epoch) o null y lo guarda como texto.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		*s = ""
		return nil
	}
	*s = flexString(num.String())
	return nil
}
