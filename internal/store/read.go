package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const selectEvaluation = `
	SELECT id, seq, program, program_id, env_version, manifest_id, grants, step_budget, memory_budget,
	       result, result_id, halt_code, halt_message, halt_details, steps_used, memory_used
	FROM evaluations
`

// ReadEvaluation retrieves a single record by ID.
// Returns ErrNotFound if no such record exists.
func (s *Store) ReadEvaluation(ctx context.Context, id string) (Evaluation, error) {
	row := s.db.QueryRowContext(ctx, selectEvaluation+`WHERE id = ?`, id)
	ev, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, fmt.Errorf("read evaluation %s: %w", id, ErrNotFound)
	}
	return ev, err
}

// ListEvaluations returns every record in ledger order.
// Returns an empty slice (not nil) for an empty ledger.
func (s *Store) ListEvaluations(ctx context.Context) ([]Evaluation, error) {
	return s.list(ctx, selectEvaluation+`ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// ListEvaluationsForProgram returns the records of one program in ledger order.
func (s *Store) ListEvaluationsForProgram(ctx context.Context, programID string) ([]Evaluation, error) {
	return s.list(ctx, selectEvaluation+`WHERE program_id = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, programID)
}

// ListEvaluationsAfter returns the records with seq > after, in ledger order.
func (s *Store) ListEvaluationsAfter(ctx context.Context, after int64) ([]Evaluation, error) {
	return s.list(ctx, selectEvaluation+`WHERE seq > ? ORDER BY seq ASC, id COLLATE BINARY ASC`, after)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	evs := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return evs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var ev Evaluation
	var grantsJSON, detailsJSON string
	var resultID, haltCode sql.NullString

	if err := row.Scan(
		&ev.ID, &ev.Seq, &ev.Program, &ev.ProgramID, &ev.EnvVersion, &ev.ManifestID,
		&grantsJSON, &ev.StepBudget, &ev.MemoryBudget,
		&ev.Result, &resultID, &haltCode, &ev.HaltMessage, &detailsJSON,
		&ev.StepsUsed, &ev.MemoryUsed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Evaluation{}, err
		}
		return Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}
	ev.ResultID = resultID.String
	ev.HaltCode = haltCode.String

	grants, err := unmarshalGrants(grantsJSON)
	if err != nil {
		return Evaluation{}, err
	}
	ev.Grants = grants

	details, err := unmarshalDetails(detailsJSON)
	if err != nil {
		return Evaluation{}, err
	}
	ev.HaltDetails = details

	return ev, nil
}

// Summary counts the records of a ledger by outcome.
type Summary struct {
	Total   int
	Results int
	// Halts maps each halt code present in the ledger to its count.
	Halts   map[string]int
	LastSeq int64
}

// Summarize returns outcome counts for the whole ledger.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	sum := Summary{Halts: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(halt_code, ''), COUNT(*), MAX(seq)
		FROM evaluations
		GROUP BY halt_code
		ORDER BY halt_code ASC
	`)
	if err != nil {
		return sum, fmt.Errorf("summarize: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var count int
		var lastSeq int64
		if err := rows.Scan(&code, &count, &lastSeq); err != nil {
			return sum, fmt.Errorf("summarize: %w", err)
		}
		sum.Total += count
		if code == "" {
			sum.Results = count
		} else {
			sum.Halts[code] = count
		}
		if lastSeq > sum.LastSeq {
			sum.LastSeq = lastSeq
		}
	}
	if err := rows.Err(); err != nil {
		return sum, fmt.Errorf("summarize: %w", err)
	}
	return sum, nil
}
