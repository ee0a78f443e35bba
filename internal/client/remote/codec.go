package remote

import (
	"encoding/json"
	"fmt"

	"arcana/internal/common"
	"arcana/internal/models"
)

// The codec converts between typed models and their wire records. Decoders
// leave SyncedAt nil; the caller decides the synced instant when applying.

func EncodeProfile(p *models.Profile) (json.RawMessage, error) {
	rec := common.ProfileRecord{
		ID:               p.ID,
		UserID:           p.UserID,
		Email:            p.Email,
		Username:         p.Username,
		AvatarURL:        p.AvatarURL,
		SubscriptionTier: string(p.Tier),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		IsDeleted:        p.IsDeleted,
	}
	return marshalRecord("profile", rec)
}

func DecodeProfile(raw json.RawMessage) (*models.Profile, error) {
	var rec common.ProfileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode profile record: %w", err)
	}
	p := &models.Profile{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Email:     rec.Email,
		Username:  rec.Username,
		AvatarURL: rec.AvatarURL,
		Tier:      models.SubscriptionTier(rec.SubscriptionTier),
	}
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt
	p.IsDeleted = rec.IsDeleted
	return p, nil
}

func EncodeDeck(d *models.Deck) (json.RawMessage, error) {
	rec := common.DeckRecord{
		ID:            d.ID,
		UserID:        d.UserID,
		Name:          d.Name,
		Description:   d.Description,
		CoverImageURL: d.CoverImageURL,
		CardCount:     d.CardCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		IsDeleted:     d.IsDeleted,
	}
	return marshalRecord("deck", rec)
}

func DecodeDeck(raw json.RawMessage) (*models.Deck, error) {
	var rec common.DeckRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode deck record: %w", err)
	}
	d := &models.Deck{
		ID:            rec.ID,
		UserID:        rec.UserID,
		Name:          rec.Name,
		Description:   rec.Description,
		CoverImageURL: rec.CoverImageURL,
		CardCount:     rec.CardCount,
	}
	d.CreatedAt = rec.CreatedAt
	d.UpdatedAt = rec.UpdatedAt
	d.IsDeleted = rec.IsDeleted
	return d, nil
}

func EncodeCard(c *models.Card) (json.RawMessage, error) {
	rec := common.CardRecord{
		ID:            c.ID,
		DeckID:        c.DeckID,
		Title:         c.Title,
		Meaning:       c.Meaning,
		Keywords:      emptyIfNil(c.Keywords),
		StyleTemplate: c.StyleTemplate,
		Symbols:       emptyIfNil(c.Symbols),
		ImageURL:      c.ImageURL,
		Position:      c.Position,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		IsDeleted:     c.IsDeleted,
	}
	return marshalRecord("card", rec)
}

func DecodeCard(raw json.RawMessage) (*models.Card, error) {
	var rec common.CardRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode card record: %w", err)
	}
	c := &models.Card{
		ID:            rec.ID,
		DeckID:        rec.DeckID,
		Title:         rec.Title,
		Meaning:       rec.Meaning,
		Keywords:      emptyIfNil(rec.Keywords),
		StyleTemplate: rec.StyleTemplate,
		Symbols:       emptyIfNil(rec.Symbols),
		ImageURL:      rec.ImageURL,
		Position:      rec.Position,
	}
	c.CreatedAt = rec.CreatedAt
	c.UpdatedAt = rec.UpdatedAt
	c.IsDeleted = rec.IsDeleted
	return c, nil
}

func EncodeReading(r *models.Reading) (json.RawMessage, error) {
	positions := make([]common.CardPositionRecord, 0, len(r.CardPositions))
	for _, cp := range r.CardPositions {
		positions = append(positions, common.CardPositionRecord{
			CardID:          cp.CardID,
			Position:        cp.Position,
			PositionMeaning: cp.PositionMeaning,
		})
	}
	rec := common.ReadingRecord{
		ID:               r.ID,
		UserID:           r.UserID,
		DeckID:           r.DeckID,
		SpreadType:       string(r.Spread),
		Intention:        r.Intention,
		CardPositions:    positions,
		AIInterpretation: r.AIInterpretation,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		IsDeleted:        r.IsDeleted,
	}
	return marshalRecord("reading", rec)
}

func DecodeReading(raw json.RawMessage) (*models.Reading, error) {
	var rec common.ReadingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode reading record: %w", err)
	}
	positions := make([]models.CardPosition, 0, len(rec.CardPositions))
	for _, cp := range rec.CardPositions {
		positions = append(positions, models.CardPosition{
			CardID:          cp.CardID,
			Position:        cp.Position,
			PositionMeaning: cp.PositionMeaning,
		})
	}
	r := &models.Reading{
		ID:               rec.ID,
		UserID:           rec.UserID,
		DeckID:           rec.DeckID,
		Spread:           models.SpreadType(rec.SpreadType),
		Intention:        rec.Intention,
		CardPositions:    positions,
		AIInterpretation: rec.AIInterpretation,
	}
	r.CreatedAt = rec.CreatedAt
	r.UpdatedAt = rec.UpdatedAt
	r.IsDeleted = rec.IsDeleted
	return r, nil
}

func EncodeJournalEntry(e *models.JournalEntry) (json.RawMessage, error) {
	rec := common.JournalEntryRecord{
		ID:        e.ID,
		ReadingID: e.ReadingID,
		Content:   e.Content,
		Mood:      e.Mood,
		Tags:      emptyIfNil(e.Tags),
		PhotoURLs: emptyIfNil(e.PhotoURLs),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		IsDeleted: e.IsDeleted,
	}
	return marshalRecord("journal entry", rec)
}

func DecodeJournalEntry(raw json.RawMessage) (*models.JournalEntry, error) {
	var rec common.JournalEntryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode journal entry record: %w", err)
	}
	e := &models.JournalEntry{
		ID:        rec.ID,
		ReadingID: rec.ReadingID,
		Content:   rec.Content,
		Mood:      rec.Mood,
		Tags:      emptyIfNil(rec.Tags),
		PhotoURLs: emptyIfNil(rec.PhotoURLs),
	}
	e.CreatedAt = rec.CreatedAt
	e.UpdatedAt = rec.UpdatedAt
	e.IsDeleted = rec.IsDeleted
	return e, nil
}

func marshalRecord(kind string, rec any) (json.RawMessage, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", kind, err)
	}
	return b, nil
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
