package cards

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arcana/internal/common"
	"arcana/internal/dbx"
	"arcana/internal/shared"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.CardRecord, error) {
	query :=
		`SELECT c.id, c.deck_id, c.title, c.meaning, c.keywords, c.style_template,
		        c.symbols, c.image_url, c.position, c.created_at, c.updated_at, c.is_deleted
		 FROM cards c
		 JOIN decks d ON d.id = c.deck_id
		 WHERE d.user_id = $1 AND ($2::timestamptz IS NULL OR c.updated_at > $2)
		 ORDER BY c.updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []common.CardRecord
	for rows.Next() {
		var rec common.CardRecord
		var keywords, symbols []byte
		if err := rows.Scan(&rec.ID, &rec.DeckID, &rec.Title, &rec.Meaning, &keywords,
			&rec.StyleTemplate, &symbols, &rec.ImageURL, &rec.Position,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(keywords, &rec.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
		if err := json.Unmarshal(symbols, &rec.Symbols); err != nil {
			return nil, fmt.Errorf("failed to decode symbols: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, rec *common.CardRecord) error {
	if err := r.checkDeckOwnership(ctx, userID, rec.DeckID); err != nil {
		return err
	}
	// An id collision with a card under someone else's deck must not let the
	// conflict branch rewrite that row, so the existing row's parent is
	// checked too.
	var existingDeck string
	err := r.db.QueryRowContext(ctx, `SELECT deck_id FROM cards WHERE id = $1`, rec.ID).Scan(&existingDeck)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case existingDeck != rec.DeckID:
		if err := r.checkDeckOwnership(ctx, userID, existingDeck); err != nil {
			return err
		}
	}

	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	symbols, err := json.Marshal(rec.Symbols)
	if err != nil {
		return fmt.Errorf("failed to encode symbols: %w", err)
	}

	query :=
		`INSERT INTO cards (id, deck_id, title, meaning, keywords, style_template,
		                    symbols, image_url, position, created_at, updated_at, is_deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		     title = excluded.title,
		     meaning = excluded.meaning,
		     keywords = excluded.keywords,
		     style_template = excluded.style_template,
		     symbols = excluded.symbols,
		     image_url = excluded.image_url,
		     position = excluded.position,
		     updated_at = excluded.updated_at,
		     is_deleted = excluded.is_deleted
		 WHERE cards.updated_at <= excluded.updated_at
		 `

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.DeckID, rec.Title, rec.Meaning, keywords, rec.StyleTemplate,
		symbols, rec.ImageURL, rec.Position, rec.CreatedAt, rec.UpdatedAt, rec.IsDeleted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string, id string, at time.Time) error {
	var deckID string
	err := r.db.QueryRowContext(ctx, `SELECT deck_id FROM cards WHERE id = $1`, id).Scan(&deckID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := r.checkDeckOwnership(ctx, userID, deckID); err != nil {
		return err
	}

	query :=
		`UPDATE cards SET is_deleted = TRUE, updated_at = $2
		 WHERE id = $1 AND updated_at <= $2
		 `

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) checkDeckOwnership(ctx context.Context, userID, deckID string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM decks WHERE id = $1`, deckID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: unknown deck %s", shared.ErrValidation, deckID)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if owner != userID {
		return shared.ErrOwnershipDenied
	}
	return nil
}
