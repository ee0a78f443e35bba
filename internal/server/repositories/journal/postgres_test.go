package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"arcana/internal/common"
	"arcana/internal/shared"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	readingOwnerQuery = `SELECT\s+user_id\s+FROM\s+readings\s+WHERE\s+id\s*=\s*\$1`
	entryParentQuery  = `SELECT\s+reading_id\s+FROM\s+journal_entries\s+WHERE\s+id\s*=\s*\$1`
)

func TestListUpdatedSince_JoinsThroughReadings(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	since := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "reading_id", "content", "mood", "tags",
		"photo_urls", "created_at", "updated_at", "is_deleted"}).
		AddRow("j1", "r1", "felt seen", "calm", []byte(`["morning"]`), []byte(`[]`), now, now, false)
	mock.ExpectQuery(`(?s)SELECT\s+j\.id,.*FROM\s+journal_entries\s+j\s+JOIN\s+readings\s+rd\s+ON\s+rd\.id\s*=\s*j\.reading_id`).
		WithArgs("u1", &since).
		WillReturnRows(rows)

	got, err := repo.ListUpdatedSince(context.Background(), "u1", &since)
	if err != nil {
		t.Fatalf("ListUpdatedSince error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "j1" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if len(got[0].Tags) != 1 || got[0].Tags[0] != "morning" {
		t.Fatalf("tags not decoded: %+v", got[0].Tags)
	}
	if got[0].PhotoURLs == nil || len(got[0].PhotoURLs) != 0 {
		t.Fatalf("expected empty photo urls, got %+v", got[0].PhotoURLs)
	}
}

func TestUpsert_UnknownReadingIsValidationError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(readingOwnerQuery).WithArgs("ghost-reading").WillReturnError(sql.ErrNoRows)

	rec := &common.JournalEntryRecord{ID: "j1", ReadingID: "ghost-reading", Content: "note"}
	err := repo.Upsert(context.Background(), "u1", rec)
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpsert_ForeignReadingIsDenied(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("someone-else")
	mock.ExpectQuery(readingOwnerQuery).WithArgs("r1").WillReturnRows(rows)

	rec := &common.JournalEntryRecord{ID: "j1", ReadingID: "r1", Content: "note"}
	err := repo.Upsert(context.Background(), "u1", rec)
	if !errors.Is(err, shared.ErrOwnershipDenied) {
		t.Fatalf("expected ErrOwnershipDenied, got %v", err)
	}
}

func TestUpsert_OwnReading(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	owner := sqlmock.NewRows([]string{"user_id"}).AddRow("u1")
	mock.ExpectQuery(readingOwnerQuery).WithArgs("r1").WillReturnRows(owner)
	mock.ExpectQuery(entryParentQuery).WithArgs("j1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+journal_entries\s*\(.*ON\s+CONFLICT\s*\(id\)\s+DO\s+UPDATE`).
		WithArgs("j1", "r1", "felt seen", "calm", []byte(`["morning"]`), []byte(`[]`), now, now, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &common.JournalEntryRecord{
		ID: "j1", ReadingID: "r1", Content: "felt seen", Mood: "calm",
		Tags: []string{"morning"}, PhotoURLs: []string{},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Upsert(context.Background(), "u1", rec); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_IDCollisionWithForeignEntryIsDenied(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(readingOwnerQuery).WithArgs("my-reading").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectQuery(entryParentQuery).WithArgs("victim-entry").
		WillReturnRows(sqlmock.NewRows([]string{"reading_id"}).AddRow("their-reading"))
	mock.ExpectQuery(readingOwnerQuery).WithArgs("their-reading").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))

	rec := &common.JournalEntryRecord{ID: "victim-entry", ReadingID: "my-reading", Content: "hijack"}
	err := repo.Upsert(context.Background(), "u1", rec)
	if !errors.Is(err, shared.ErrOwnershipDenied) {
		t.Fatalf("expected ErrOwnershipDenied, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSoftDelete_UnknownEntryIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+reading_id\s+FROM\s+journal_entries\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	if err := repo.SoftDelete(context.Background(), "u1", "ghost", time.Now()); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSoftDelete_ChecksOwnershipThroughParentReading(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectQuery(`SELECT\s+reading_id\s+FROM\s+journal_entries\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("j1").
		WillReturnRows(sqlmock.NewRows([]string{"reading_id"}).AddRow("r1"))
	mock.ExpectQuery(readingOwnerQuery).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`(?s)UPDATE\s+journal_entries\s+SET\s+is_deleted\s*=\s*TRUE`).
		WithArgs("j1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SoftDelete(context.Background(), "u1", "j1", at); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
}
