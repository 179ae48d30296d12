package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	odds  domain.OddsFormat
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool, odds domain.OddsFormat) *Console {
	return &Console{out: os.Stdout, table: table, odds: odds}
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario (tests).
func NewConsoleWriter(w io.Writer, table bool, odds domain.OddsFormat) *Console {
	return &Console{out: w, table: table, odds: odds}
}

// Notify imprime los timelines en el modo configurado.
func (c *Console) Notify(_ context.Context, reports []domain.TimelineReport) error {
	if len(reports) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets in resolution\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(reports)
	} else {
		c.printCompact(reports)
	}
	return nil
}

// printCompact imprime el resumen del ciclo en una línea.
func (c *Console) printCompact(reports []domain.TimelineReport) {
	now := reports[0].EvaluatedAt.Format("15:04:05")
	counts := countBySteps(reports)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts → window:%d review:%d disputed:%d settling:%d final:%d",
		now, len(reports),
		counts[domain.ItemDisputeWindow], counts[domain.ItemFinalReview],
		counts[domain.ItemDisputed], counts[stepSettling], counts[domain.ItemFinalOutcome])

	shown := 0
	for _, r := range reports {
		if shown >= 4 {
			break
		}
		it, ok := r.Timeline.Active()
		if !ok || it.Remaining == nil {
			continue
		}
		fmt.Fprintf(&sb, " | %s %s %s",
			compactName(r.Market.Question, 25), it.Type, domain.FormatResolutionCountdown(*it.Remaining))
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime una fila por mercado con el paso actual.
func (c *Console) printFull(reports []domain.TimelineReport) {
	now := reports[0].EvaluatedAt.Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d markets in resolution\n", now, len(reports))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Step", "State", "Outcome", "Yes", "Countdown", "Deadline")

	for i, r := range reports {
		step, state, outcome, countdown := "-", "-", "-", "-"
		if it, ok := r.Current(); ok {
			step = it.Type.String()
			state = stateIcon(it) + " " + it.State.String()
			outcome = outcomeLabel(it.Outcome)
			if it.Remaining != nil {
				countdown = domain.FormatResolutionCountdown(*it.Remaining)
			}
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			marketLabel(r.Market),
			step,
			state,
			outcome,
			domain.FormatOdds(r.Market.YesToken().Price, c.odds),
			countdown,
			deadlineLabel(r.Deadline),
		)
	}

	table.Render()
}

// PrintTimeline imprime los pasos de un mercado, uno por línea.
func (c *Console) PrintTimeline(r domain.TimelineReport) {
	fmt.Fprintf(c.out, "[%s] %s\n", r.EvaluatedAt.Format("15:04:05"), marketLabel(r.Market))

	if len(r.Timeline.Items) == 0 {
		fmt.Fprintln(c.out, "  awaiting proposal")
		return
	}

	for _, it := range r.Timeline.Items {
		line := fmt.Sprintf("  %s %-16s %-7s", stateIcon(it), it.Type, it.State)
		if it.Outcome != domain.OutcomeNone {
			line += " outcome=" + outcomeLabel(it.Outcome)
		}
		if it.Remaining != nil {
			line += " ends in " + domain.FormatResolutionCountdown(*it.Remaining)
		}
		fmt.Fprintln(c.out, strings.TrimRight(line, " "))
	}
}

// PrintTransitions imprime el historial de pasos de un mercado.
func (c *Console) PrintTransitions(conditionID string, history []domain.Transition) {
	if len(history) == 0 {
		fmt.Fprintf(c.out, "no history for %s\n", conditionID)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("At", "From", "To", "Outcome")
	for _, tr := range history {
		from := "-"
		if tr.From != nil {
			from = tr.From.String()
		}
		table.Append(
			tr.At.Format("2006-01-02 15:04:05"),
			from,
			tr.To.String(),
			outcomeLabel(tr.Outcome),
		)
	}
	table.Render()
}

// --- helpers ---

// stepSettling agrupa los finalOutcome activos (ventana vencida, sin liquidar).
const stepSettling = domain.TimelineItemType(-1)

func countBySteps(reports []domain.TimelineReport) map[domain.TimelineItemType]int {
	counts := make(map[domain.TimelineItemType]int)
	for _, r := range reports {
		it, ok := r.Current()
		if !ok {
			continue
		}
		if it.Type == domain.ItemFinalOutcome && it.State == domain.StateActive {
			counts[stepSettling]++
			continue
		}
		counts[it.Type]++
	}
	return counts
}

func stateIcon(it domain.TimelineItem) string {
	switch it.Icon {
	case domain.IconGavel:
		return "[!]"
	case domain.IconOpen:
		return "[~]"
	default:
		return "[x]"
	}
}

func outcomeLabel(o domain.Outcome) string {
	if o == domain.OutcomeNone {
		return "-"
	}
	return strings.ToUpper(o.String())
}

func marketLabel(m domain.Market) string {
	return domain.TruncateQuestion(m.Question, m.ConditionID, 38)
}

func deadlineLabel(d time.Time) string {
	if d.IsZero() {
		return "-"
	}
	return d.UTC().Format("01-02 15:04")
}

// compactName corta a maxLen runas, preferiblemente en un espacio.
func compactName(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	cut := r[:maxLen]
	for i := len(cut) - 1; i > maxLen/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return string(cut) + "…"
}
