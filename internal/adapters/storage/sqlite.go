package storage

// sqlite.go — historial de timelines de resolución.
//
// Estrategia:
//   - `timelines`: UNA fila por mercado (UPSERT) con el paso actual.
//   - `transitions`: una fila por cambio de paso. Es el historial que importa.
//   - Cache en memoria del último paso guardado: si el paso no cambió no se
//     escribe nada salvo refrescar last_seen cada touchInterval.
//   - Prune automático al arrancar: transiciones > 90d, timelines no vistos en 30d.
//
// Los timestamps se guardan como epoch en milisegundos (INTEGER).

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS timelines (
    condition_id TEXT PRIMARY KEY,
    question     TEXT,
    slug         TEXT,
    step_type    TEXT    NOT NULL,
    step_state   TEXT    NOT NULL,
    outcome      TEXT    NOT NULL DEFAULT '',
    terminal     INTEGER NOT NULL DEFAULT 0,
    deadline     INTEGER,
    first_seen   INTEGER NOT NULL,
    last_seen    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transitions (
    id           TEXT PRIMARY KEY,
    condition_id TEXT    NOT NULL,
    from_type    TEXT,
    from_state   TEXT,
    to_type      TEXT    NOT NULL,
    to_state     TEXT    NOT NULL,
    outcome      TEXT    NOT NULL DEFAULT '',
    at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_timelines_terminal ON timelines(terminal, last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_transitions_cond   ON transitions(condition_id, at);
`

const (
	retentionTransitions = 90 * 24 * time.Hour
	retentionTimelines   = 30 * 24 * time.Hour
	touchInterval        = time.Hour // refresco de last_seen sin cambio de paso
)

// cachedStep es el último paso guardado de un mercado.
type cachedStep struct {
	step    domain.Step
	savedAt time.Time
}

// SQLiteStorage implementa ports.TimelineStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[string]cachedStep // conditionID → último paso guardado
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[string]cachedStep),
	}
	s.pruneOld(context.Background(), time.Now())
	s.warmCache(context.Background())
	return s, nil
}

// SaveTimeline guarda el paso actual del mercado. Si cambió respecto al último
// guardado registra y devuelve la transición; si no, devuelve nil.
// Un timeline vacío (oráculo sin propuesta) no se persiste.
func (s *SQLiteStorage) SaveTimeline(ctx context.Context, report domain.TimelineReport) (*domain.Transition, error) {
	step, ok := report.CurrentStep()
	if !ok {
		return nil, nil
	}

	cid := report.Market.ConditionID
	at := report.EvaluatedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, known := s.cache[cid]
	if known && prev.step == step {
		if at.Sub(prev.savedAt) < touchInterval {
			return nil, nil
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE timelines SET last_seen = ? WHERE condition_id = ?`, at.UnixMilli(), cid,
		); err != nil {
			return nil, fmt.Errorf("storage.SaveTimeline: touch %s: %w", cid, err)
		}
		s.cache[cid] = cachedStep{step: step, savedAt: at}
		return nil, nil
	}

	current, _ := report.Current()
	tr := &domain.Transition{
		ID:          uuid.New().String(),
		ConditionID: cid,
		To:          step,
		Outcome:     current.Outcome,
		At:          at,
	}
	if known {
		from := prev.step
		tr.From = &from
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage.SaveTimeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	var deadline *int64
	if !report.Deadline.IsZero() {
		d := report.Deadline.UnixMilli()
		deadline = &d
	}
	terminal := 0
	if report.Timeline.IsTerminal() {
		terminal = 1
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timelines
			(condition_id, question, slug, step_type, step_state, outcome, terminal, deadline, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(condition_id) DO UPDATE SET
			question   = excluded.question,
			slug       = excluded.slug,
			step_type  = excluded.step_type,
			step_state = excluded.step_state,
			outcome    = excluded.outcome,
			terminal   = excluded.terminal,
			deadline   = excluded.deadline,
			last_seen  = excluded.last_seen
	`,
		cid,
		report.Market.Question,
		report.Market.Slug,
		step.Type.String(),
		step.State.String(),
		current.Outcome.String(),
		terminal,
		deadline,
		at.UnixMilli(), // first_seen: ignorado en ON CONFLICT
		at.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("storage.SaveTimeline: upsert %s: %w", cid, err)
	}

	var fromType, fromState *string
	if tr.From != nil {
		ft, fs := tr.From.Type.String(), tr.From.State.String()
		fromType, fromState = &ft, &fs
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transitions (id, condition_id, from_type, from_state, to_type, to_state, outcome, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, cid, fromType, fromState, step.Type.String(), step.State.String(), tr.Outcome.String(), at.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("storage.SaveTimeline: insert transition %s: %w", cid, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage.SaveTimeline: commit: %w", err)
	}

	s.cache[cid] = cachedStep{step: step, savedAt: at}
	return tr, nil
}

// GetTransitions devuelve el historial de un mercado ordenado cronológicamente.
func (s *SQLiteStorage) GetTransitions(ctx context.Context, conditionID string) ([]domain.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, condition_id, from_type, from_state, to_type, to_state, outcome, at
		FROM transitions
		WHERE condition_id = ?
		ORDER BY at ASC, rowid ASC
	`, conditionID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTransitions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var tr domain.Transition
		var fromType, fromState sql.NullString
		var toType, toState, outcome string
		var at int64

		if err := rows.Scan(&tr.ID, &tr.ConditionID, &fromType, &fromState, &toType, &toState, &outcome, &at); err != nil {
			return nil, fmt.Errorf("storage.GetTransitions: scan row: %w", err)
		}

		to, err := parseStep(toType, toState)
		if err != nil {
			return nil, fmt.Errorf("storage.GetTransitions: %s: %w", tr.ID, err)
		}
		tr.To = to
		if fromType.Valid && fromState.Valid {
			from, err := parseStep(fromType.String, fromState.String)
			if err != nil {
				return nil, fmt.Errorf("storage.GetTransitions: %s: %w", tr.ID, err)
			}
			tr.From = &from
		}
		tr.Outcome = domain.ParseOutcome(outcome)
		tr.At = time.UnixMilli(at).UTC()
		out = append(out, tr)
	}
	return out, rows.Err()
}

// GetTracked devuelve los mercados cuyo timeline aún no es terminal,
// vistos más recientemente primero.
func (s *SQLiteStorage) GetTracked(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT condition_id FROM timelines WHERE terminal = 0 ORDER BY last_seen DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTracked: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.GetTracked: scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

var errBadStep = errors.New("invalid stored step")

func parseStep(typ, state string) (domain.Step, error) {
	t, ok := domain.ParseTimelineItemType(typ)
	if !ok {
		return domain.Step{}, fmt.Errorf("%w: type %q", errBadStep, typ)
	}
	st, ok := domain.ParseItemState(state)
	if !ok {
		return domain.Step{}, fmt.Errorf("%w: state %q", errBadStep, state)
	}
	return domain.Step{Type: t, State: st}, nil
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context, now time.Time) {
	cutoffTransitions := now.Add(-retentionTransitions).UnixMilli()
	cutoffTimelines := now.Add(-retentionTimelines).UnixMilli()
	s.db.ExecContext(ctx, `DELETE FROM transitions WHERE at < ?`, cutoffTransitions)
	s.db.ExecContext(ctx, `DELETE FROM timelines WHERE last_seen < ?`, cutoffTimelines)
}

// warmCache precarga la caché desde la DB al arrancar, para que el primer
// ciclo tras un reinicio no registre transiciones falsas.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT condition_id, step_type, step_state, last_seen FROM timelines`,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var cid, typ, state string
		var lastSeen int64
		if rows.Scan(&cid, &typ, &state, &lastSeen) != nil {
			continue
		}
		step, err := parseStep(typ, state)
		if err != nil {
			continue
		}
		s.cache[cid] = cachedStep{step: step, savedAt: time.UnixMilli(lastSeen).UTC()}
	}
}
