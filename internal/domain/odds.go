package domain

import (
	"fmt"
	"math"
	"strings"
)

// OddsFormat es el formato en el que se muestran los precios de un outcome.
type OddsFormat int

const (
	OddsPrice      OddsFormat = iota // 65¢
	OddsPercent                      // 65%
	OddsDecimal                      // 1.54
	OddsAmerican                     // -186 / +186
	OddsFractional                   // 7/13
)

func (f OddsFormat) String() string {
	switch f {
	case OddsPercent:
		return "percent"
	case OddsDecimal:
		return "decimal"
	case OddsAmerican:
		return "american"
	case OddsFractional:
		return "fractional"
	default:
		return "price"
	}
}

// ParseOddsFormat interpreta el nombre de un formato. Desconocido → OddsPrice.
func ParseOddsFormat(s string) OddsFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percent", "%":
		return OddsPercent
	case "decimal":
		return OddsDecimal
	case "american", "moneyline":
		return OddsAmerican
	case "fractional":
		return OddsFractional
	default:
		return OddsPrice
	}
}

const (
	maxFractionDenominator = 100
	maxFractionValue       = 1e6
)

// FormatOdds convierte un precio (probabilidad implícita en (0,1)) al formato dado.
// Precios fuera de rango se muestran como "-".
func FormatOdds(price float64, f OddsFormat) string {
	if math.IsNaN(price) || price <= 0 || price >= 1 {
		return "-"
	}
	switch f {
	case OddsPercent:
		return fmt.Sprintf("%.0f%%", price*100)
	case OddsDecimal:
		return fmt.Sprintf("%.2f", 1/price)
	case OddsAmerican:
		return americanOdds(price)
	case OddsFractional:
		x := (1 - price) / price
		if x > maxFractionValue {
			// longshot extremo: la parte entera basta y no cabe en int
			return fmt.Sprintf("%.0f/1", x)
		}
		n, d := approxFraction(x, maxFractionDenominator)
		return fmt.Sprintf("%d/%d", n, d)
	default:
		return fmt.Sprintf("%.0f¢", price*100)
	}
}

// americanOdds: favorito (p > 0.5) en negativo, underdog en positivo.
func americanOdds(p float64) string {
	if p > 0.5 {
		return fmt.Sprintf("-%.0f", p/(1-p)*100)
	}
	return fmt.Sprintf("+%.0f", (1-p)/p*100)
}

// approxFraction busca la fracción n/d más cercana a x con d <= maxDen.
func approxFraction(x float64, maxDen int) (int, int) {
	bestN, bestD := int(math.Round(x)), 1
	bestErr := math.Abs(x - float64(bestN))
	for d := 2; d <= maxDen && bestErr > 1e-9; d++ {
		n := int(math.Round(x * float64(d)))
		if err := math.Abs(x - float64(n)/float64(d)); err < bestErr-1e-12 {
			bestN, bestD, bestErr = n, d, err
		}
	}
	if g := gcd(bestN, bestD); g > 1 {
		bestN, bestD = bestN/g, bestD/g
	}
	return bestN, bestD
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
