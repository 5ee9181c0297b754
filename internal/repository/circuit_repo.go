package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"splitflap"
)

type CircuitSQLite struct {
	db *sql.DB
}

func NewCircuitSQLite(db *sql.DB) *CircuitSQLite {
	return &CircuitSQLite{db: db}
}

var _ CircuitRepo = (*CircuitSQLite)(nil)

const (
	upsertCircuitSQL = `
		INSERT INTO circuit_breakers
			(id, type, state, default_state, failure_count, success_count, failure_threshold,
			 last_failure_at, last_success_at, state_changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type,
			state=excluded.state,
			default_state=excluded.default_state,
			failure_count=excluded.failure_count,
			success_count=excluded.success_count,
			failure_threshold=excluded.failure_threshold,
			last_failure_at=excluded.last_failure_at,
			last_success_at=excluded.last_success_at,
			state_changed_at=excluded.state_changed_at
	`

	selectCircuitSQL = `
		SELECT id, type, state, default_state, failure_count, success_count, failure_threshold,
		       last_failure_at, last_success_at, state_changed_at
		FROM circuit_breakers WHERE id=?
	`

	selectAllCircuitsSQL = `
		SELECT id, type, state, default_state, failure_count, success_count, failure_threshold,
		       last_failure_at, last_success_at, state_changed_at
		FROM circuit_breakers ORDER BY id ASC
	`
)

// timePtrArg converts a nullable timestamp to a driver value, normalized to UTC.
func timePtrArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return u
}

// scanTimePtr converts a scanned NullTime back into a *time.Time in UTC.
func scanTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	u := nt.Time.UTC()
	return &u
}

// Save upserts the circuit row keyed by circuit id.
func (r *CircuitSQLite) Save(ctx context.Context, c splitflap.CircuitBreakerState) error {
	_, err := r.db.ExecContext(ctx, upsertCircuitSQL,
		c.CircuitID,
		string(c.CircuitType),
		string(c.State),
		string(c.DefaultState),
		c.FailureCount,
		c.SuccessCount,
		c.FailureThreshold,
		timePtrArg(c.LastFailureAt),
		timePtrArg(c.LastSuccessAt),
		timePtrArg(c.StateChangedAt),
	)
	return err
}

// Get fetches one circuit row. Returns (nil, nil) if the circuit is unknown.
func (r *CircuitSQLite) Get(ctx context.Context, circuitID string) (*splitflap.CircuitBreakerState, error) {
	row := r.db.QueryRowContext(ctx, selectCircuitSQL, circuitID)
	c, err := scanCircuit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// List returns all circuit rows ordered by id.
func (r *CircuitSQLite) List(ctx context.Context) ([]splitflap.CircuitBreakerState, error) {
	rows, err := r.db.QueryContext(ctx, selectAllCircuitsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]splitflap.CircuitBreakerState, 0, 8)
	for rows.Next() {
		c, err := scanCircuit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCircuit(row rowScanner) (*splitflap.CircuitBreakerState, error) {
	var (
		c                          splitflap.CircuitBreakerState
		circuitType, state, defSt  string
		lastFail, lastOK, stChange sql.NullTime
	)
	if err := row.Scan(
		&c.CircuitID,
		&circuitType,
		&state,
		&defSt,
		&c.FailureCount,
		&c.SuccessCount,
		&c.FailureThreshold,
		&lastFail,
		&lastOK,
		&stChange,
	); err != nil {
		return nil, err
	}
	c.CircuitType = splitflap.CircuitType(circuitType)
	c.State = splitflap.CircuitState(state)
	c.DefaultState = splitflap.CircuitState(defSt)
	c.LastFailureAt = scanTimePtr(lastFail)
	c.LastSuccessAt = scanTimePtr(lastOK)
	c.StateChangedAt = scanTimePtr(stChange)
	return &c, nil
}
