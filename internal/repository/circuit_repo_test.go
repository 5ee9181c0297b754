package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"splitflap"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockCircuitRepo(t *testing.T) (*CircuitSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewCircuitSQLite(db)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func circuitColumns() []string {
	return []string{
		"id", "type", "state", "default_state",
		"failure_count", "success_count", "failure_threshold",
		"last_failure_at", "last_success_at", "state_changed_at",
	}
}

func TestCircuitSQLite_Save(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	changed := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	c := splitflap.CircuitBreakerState{
		CircuitID:        splitflap.CircuitProviderOpenAI,
		CircuitType:      splitflap.CircuitProvider,
		State:            splitflap.StateOff,
		DefaultState:     splitflap.StateOn,
		FailureCount:     3,
		SuccessCount:     7,
		FailureThreshold: 3,
		StateChangedAt:   &changed,
	}

	mock.ExpectExec(regexp.QuoteMeta(upsertCircuitSQL)).
		WithArgs(
			splitflap.CircuitProviderOpenAI, "provider", "off", "on",
			3, 7, 3,
			nil, nil, changed,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestCircuitSQLite_SaveError(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(upsertCircuitSQL)).
		WillReturnError(errors.New("disk full"))

	if err := repo.Save(context.Background(), splitflap.CircuitBreakerState{CircuitID: "X"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestCircuitSQLite_Get(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	failedAt := time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(circuitColumns()).
		AddRow(splitflap.CircuitMaster, "manual", "off", "on", 0, 0, 0, nil, nil, failedAt)

	mock.ExpectQuery(regexp.QuoteMeta(selectCircuitSQL)).
		WithArgs(splitflap.CircuitMaster).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), splitflap.CircuitMaster)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for existing row")
	}
	if got.CircuitType != splitflap.CircuitManual || got.State != splitflap.StateOff {
		t.Errorf("row = %+v", got)
	}
	if got.LastFailureAt != nil || got.LastSuccessAt != nil {
		t.Error("NULL timestamps must scan to nil")
	}
	if got.StateChangedAt == nil || !got.StateChangedAt.Equal(failedAt) {
		t.Errorf("state_changed_at = %v, want %v", got.StateChangedAt, failedAt)
	}
}

func TestCircuitSQLite_GetUnknownReturnsNilNil(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectCircuitSQL)).
		WithArgs("NO_SUCH").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), "NO_SUCH")
	if err != nil {
		t.Fatalf("unknown circuit must not error, got %v", err)
	}
	if got != nil {
		t.Fatalf("unknown circuit must return nil, got %+v", got)
	}
}

func TestCircuitSQLite_List(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	rows := sqlmock.NewRows(circuitColumns()).
		AddRow(splitflap.CircuitMaster, "manual", "on", "on", 0, 0, 0, nil, nil, nil).
		AddRow(splitflap.CircuitProviderOpenAI, "provider", "on", "on", 1, 4, 3, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectAllCircuitsSQL)).
		WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(got))
	}
	if got[1].FailureCount != 1 || got[1].SuccessCount != 4 {
		t.Errorf("provider row = %+v", got[1])
	}
}

func TestCircuitSQLite_ListEmpty(t *testing.T) {
	repo, mock, cleanup := newMockCircuitRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectAllCircuitsSQL)).
		WillReturnRows(sqlmock.NewRows(circuitColumns()))

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("List() returned %d rows, want 0", len(got))
	}
}
