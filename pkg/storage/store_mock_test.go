package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"

	"github.com/vulntor/fpintake/pkg/component"
)

func newMockStore(t *testing.T, d Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	return NewSQLStore(db, d, zerolog.Nop()), mock
}

func TestSQLStore_InsertFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t, &PostgresDialect{})
	reg := component.Registry()

	mock.ExpectBegin()
	for i, c := range reg[:5] {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "` + c.Table + `"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "` + reg[5].Table + `"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.CreateFingerprint(context.Background(), component.NewDocument())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStore_ParentFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t, &PostgresDialect{})

	mock.ExpectBegin()
	for i, c := range component.Registry() {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "` + c.Table + `"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "fingerprints"`)).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	_, err := store.CreateFingerprint(context.Background(), component.NewDocument())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStore_CommitsOnce(t *testing.T) {
	store, mock := newMockStore(t, &PostgresDialect{})

	mock.ExpectBegin()
	for i, c := range component.Registry() {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "` + c.Table + `"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "fingerprints"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := store.CreateFingerprint(context.Background(), component.NewDocument())
	if err != nil {
		t.Fatalf("CreateFingerprint() failed: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	store, mock := newMockStore(t, &PostgresDialect{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "fingerprints" WHERE "id" = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectRollback()

	_, err := store.GetFingerprint(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStore_BeginFailure(t *testing.T) {
	store, mock := newMockStore(t, &SQLiteDialect{})

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	if _, err := store.CreateFingerprint(context.Background(), component.NewDocument()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
