package store

import (
	"context"
	"fmt"
)

// WriteEvaluation inserts an evaluation record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (a reused seq, both or neither of result and
// halt set, non-positive budgets) still return errors.
func (s *Store) WriteEvaluation(ctx context.Context, ev Evaluation) error {
	grantsJSON, err := marshalGrants(ev.Grants)
	if err != nil {
		return fmt.Errorf("write evaluation: %w", err)
	}

	detailsJSON, err := marshalDetails(ev.HaltDetails)
	if err != nil {
		return fmt.Errorf("write evaluation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, seq, program, program_id, env_version, manifest_id, grants, step_budget, memory_budget,
		 result, result_id, halt_code, halt_message, halt_details, steps_used, memory_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Seq,
		ev.Program,
		ev.ProgramID,
		ev.EnvVersion,
		ev.ManifestID,
		grantsJSON,
		ev.StepBudget,
		ev.MemoryBudget,
		nullBytes(ev.Result),
		nullString(ev.ResultID),
		nullString(ev.HaltCode),
		ev.HaltMessage,
		detailsJSON,
		ev.StepsUsed,
		ev.MemoryUsed,
	)
	if err != nil {
		return fmt.Errorf("write evaluation: %w", err)
	}

	return nil
}

// WriteEvaluations inserts a batch of records in one transaction. Either
// every record is written or none is.
func (s *Store) WriteEvaluations(ctx context.Context, evs []Evaluation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write evaluations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluations
		(id, seq, program, program_id, env_version, manifest_id, grants, step_budget, memory_budget,
		 result, result_id, halt_code, halt_message, halt_details, steps_used, memory_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write evaluations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		grantsJSON, err := marshalGrants(ev.Grants)
		if err != nil {
			return fmt.Errorf("write evaluations: %w", err)
		}
		detailsJSON, err := marshalDetails(ev.HaltDetails)
		if err != nil {
			return fmt.Errorf("write evaluations: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, ev.Seq, ev.Program, ev.ProgramID, ev.EnvVersion, ev.ManifestID,
			grantsJSON, ev.StepBudget, ev.MemoryBudget,
			nullBytes(ev.Result), nullString(ev.ResultID), nullString(ev.HaltCode),
			ev.HaltMessage, detailsJSON, ev.StepsUsed, ev.MemoryUsed,
		); err != nil {
			return fmt.Errorf("write evaluations: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write evaluations: commit: %w", err)
	}
	return nil
}
