package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"arcana/internal/common"
	"arcana/internal/logging"
	"arcana/internal/models"
	"arcana/internal/server/repositories/repomanager"
	"arcana/internal/shared"
)

// SyncService implements the server side of the delta protocol. Push ops are
// isolated per record: one bad op produces a failed PushResult, never a
// failed request.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *SyncService {
	return &SyncService{
		db:          db,
		repomanager: m,
		logger:      logger.With("service", "sync"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Delta applies the request's push ops, then gathers the user's changes since
// the client's watermark. ServerTimestamp is read before the pull so a record
// written concurrently with this request is never lost between watermarks.
func (s *SyncService) Delta(ctx context.Context, userID string, req common.DeltaRequest) (*common.DeltaResponse, error) {
	resp := &common.DeltaResponse{
		PushResults:     make([]common.PushResult, 0, len(req.PushOps)),
		PullChanges:     make(map[string][]json.RawMessage),
		ServerTimestamp: s.now(),
	}

	for _, op := range req.PushOps {
		result := common.PushResult{Table: op.Table, ID: op.ID, Success: true}
		if err := s.applyOp(ctx, userID, op); err != nil {
			result.Success = false
			result.Error = err.Error()
			s.logger.Warn(ctx, "push op failed",
				"table", op.Table, "op", op.Operation, "id", op.ID, "error", err)
		}
		resp.PushResults = append(resp.PushResults, result)
	}

	for _, table := range models.SyncOrder {
		records, err := s.Fetch(ctx, userID, table, req.PullSince)
		if err != nil {
			return nil, fmt.Errorf("failed to pull %s: %w", table, err)
		}
		if len(records) > 0 {
			resp.PullChanges[string(table)] = records
		}
	}

	return resp, nil
}

func (s *SyncService) applyOp(ctx context.Context, userID string, op common.PushOp) error {
	table := models.Table(op.Table)
	switch op.Operation {
	case common.OpInsert, common.OpUpdate:
		return s.Upsert(ctx, userID, table, op.Data)
	case common.OpDelete:
		return s.Delete(ctx, userID, table, op.ID)
	default:
		return fmt.Errorf("%w: unknown operation %q", shared.ErrValidation, op.Operation)
	}
}

// Fetch returns one table's records changed after since, tombstones included.
func (s *SyncService) Fetch(ctx context.Context, userID string, table models.Table, since *time.Time) ([]json.RawMessage, error) {
	switch table {
	case models.TableProfiles:
		recs, err := s.repomanager.Profiles(s.db).ListUpdatedSince(ctx, userID, since)
		return marshalAll(recs, err)
	case models.TableDecks:
		recs, err := s.repomanager.Decks(s.db).ListUpdatedSince(ctx, userID, since)
		return marshalAll(recs, err)
	case models.TableCards:
		recs, err := s.repomanager.Cards(s.db).ListUpdatedSince(ctx, userID, since)
		return marshalAll(recs, err)
	case models.TableReadings:
		recs, err := s.repomanager.Readings(s.db).ListUpdatedSince(ctx, userID, since)
		return marshalAll(recs, err)
	case models.TableJournalEntries:
		recs, err := s.repomanager.Journal(s.db).ListUpdatedSince(ctx, userID, since)
		return marshalAll(recs, err)
	default:
		return nil, shared.ErrTableNotSyncable
	}
}

// Upsert stores one pushed record under the user.
func (s *SyncService) Upsert(ctx context.Context, userID string, table models.Table, raw json.RawMessage) error {
	switch table {
	case models.TableProfiles:
		rec, err := decodeRecord[common.ProfileRecord](raw)
		if err != nil {
			return err
		}
		return s.repomanager.Profiles(s.db).Upsert(ctx, userID, rec)
	case models.TableDecks:
		rec, err := decodeRecord[common.DeckRecord](raw)
		if err != nil {
			return err
		}
		return s.repomanager.Decks(s.db).Upsert(ctx, userID, rec)
	case models.TableCards:
		rec, err := decodeRecord[common.CardRecord](raw)
		if err != nil {
			return err
		}
		return s.repomanager.Cards(s.db).Upsert(ctx, userID, rec)
	case models.TableReadings:
		rec, err := decodeRecord[common.ReadingRecord](raw)
		if err != nil {
			return err
		}
		return s.repomanager.Readings(s.db).Upsert(ctx, userID, rec)
	case models.TableJournalEntries:
		rec, err := decodeRecord[common.JournalEntryRecord](raw)
		if err != nil {
			return err
		}
		return s.repomanager.Journal(s.db).Upsert(ctx, userID, rec)
	default:
		return shared.ErrTableNotSyncable
	}
}

// Delete tombstones one record at the server clock.
func (s *SyncService) Delete(ctx context.Context, userID string, table models.Table, id string) error {
	if id == "" {
		return fmt.Errorf("%w: record id is required", shared.ErrValidation)
	}
	at := s.now()
	switch table {
	case models.TableProfiles:
		return s.repomanager.Profiles(s.db).SoftDelete(ctx, userID, id, at)
	case models.TableDecks:
		return s.repomanager.Decks(s.db).SoftDelete(ctx, userID, id, at)
	case models.TableCards:
		return s.repomanager.Cards(s.db).SoftDelete(ctx, userID, id, at)
	case models.TableReadings:
		return s.repomanager.Readings(s.db).SoftDelete(ctx, userID, id, at)
	case models.TableJournalEntries:
		return s.repomanager.Journal(s.db).SoftDelete(ctx, userID, id, at)
	default:
		return shared.ErrTableNotSyncable
	}
}

func decodeRecord[T any](raw json.RawMessage) (*T, error) {
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: malformed record: %v", shared.ErrValidation, err)
	}
	stamp, err := common.DecodeStamp(raw)
	if err != nil || stamp.ID == "" {
		return nil, fmt.Errorf("%w: record id is required", shared.ErrValidation)
	}
	return &rec, nil
}

func marshalAll[T any](recs []T, err error) ([]json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(recs))
	for i := range recs {
		b, err := json.Marshal(&recs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
