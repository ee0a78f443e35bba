package decks

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

const ownershipQuery = `SELECT\s+user_id\s+FROM\s+decks\s+WHERE\s+id\s*=\s*\$1`

func TestListUpdatedSince(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "description", "cover_image_url",
		"card_count", "created_at", "updated_at", "is_deleted"}).
		AddRow("d1", "u1", "deck", "", "", 3, now, now, false).
		AddRow("d2", "u1", "tombstone", "", "", 0, now, now, true)
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*name,.*FROM\s+decks\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1", nil).
		WillReturnRows(rows)

	got, err := repo.ListUpdatedSince(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("ListUpdatedSince error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d1" || !got[1].IsDeleted {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestUpsert_NewRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(ownershipQuery).WithArgs("d1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+decks\s*\(.*ON\s+CONFLICT\s*\(id\)\s+DO\s+UPDATE`).
		WithArgs("d1", "u1", "deck", "", "", 0, now, now, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &common.DeckRecord{ID: "d1", Name: "deck", CreatedAt: now, UpdatedAt: now}
	if err := repo.Upsert(context.Background(), "u1", rec); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_OwnershipDenied(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("someone-else")
	mock.ExpectQuery(ownershipQuery).WithArgs("d1").WillReturnRows(rows)

	rec := &common.DeckRecord{ID: "d1", Name: "deck"}
	err := repo.Upsert(context.Background(), "u1", rec)
	if !errors.Is(err, shared.ErrOwnershipDenied) {
		t.Fatalf("expected ErrOwnershipDenied, got %v", err)
	}
}

func TestSoftDelete_UnknownIDIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(ownershipQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	if err := repo.SoftDelete(context.Background(), "u1", "ghost", time.Now()); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSoftDelete_OwnRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("u1")
	mock.ExpectQuery(ownershipQuery).WithArgs("d1").WillReturnRows(rows)
	mock.ExpectExec(`(?s)UPDATE\s+decks\s+SET\s+is_deleted\s*=\s*TRUE`).
		WithArgs("d1", "u1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SoftDelete(context.Background(), "u1", "d1", at); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
}
