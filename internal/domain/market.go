package domain

import "time"

// Market representa un mercado de predicción en proceso de resolución.
type Market struct {
	ConditionID string
	QuestionID  string
	Question    string
	Slug        string
	EndDate     time.Time // fecha de cierre prevista
	NegRisk     bool      // mercado neg-risk: ventana de revisión final de 48h
	IsResolved  bool
	Closed      bool
	Tokens      [2]Token

	// Condition es el estado del oráculo. nil = todavía no hay request.
	Condition *Condition
}

// Token es uno de los dos lados del mercado (YES/NO).
type Token struct {
	TokenID string
	Outcome string  // "Yes" | "No"
	Price   float64 // último precio conocido
}

// YesToken devuelve el token YES del mercado.
func (m Market) YesToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "Yes" {
			return t
		}
	}
	return m.Tokens[0]
}

// NoToken devuelve el token NO del mercado.
func (m Market) NoToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "No" {
			return t
		}
	}
	return m.Tokens[1]
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen runas.
// Si la pregunta está vacía usa los primeros caracteres del conditionID como fallback.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := []rune(question)
	if len(q) == 0 {
		q = []rune(conditionID)
		if len(q) > 20 {
			q = append(q[:20:20], []rune("...")...)
		}
	}
	if len(q) > maxLen {
		q = append(q[:maxLen-3:maxLen-3], []rune("...")...)
	}
	return string(q)
}
