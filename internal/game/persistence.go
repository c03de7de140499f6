package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scribble-rush/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// PostgresRepository stores room snapshots in the rooms and participants
// tables. Each SaveRoom writes the whole snapshot in one transaction.
type PostgresRepository struct {
	conn *gorm.DB
}

func NewPostgresRepository(conn *gorm.DB) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

func (r *PostgresRepository) CreateRoom(ctx context.Context, room *Room) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := roomRecord(room)
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrRoomExists
			}
			return err
		}
		return upsertParticipants(tx, record.ID, room.Participants)
	})
}

func (r *PostgresRepository) LoadRoom(ctx context.Context, code string) (*Room, error) {
	var record db.Room
	err := r.conn.WithContext(ctx).
		Preload("Participants", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("joined_at ASC, id ASC")
		}).
		Where("code = ?", code).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return roomFromRecord(record)
}

func (r *PostgresRepository) SaveRoom(ctx context.Context, room *Room) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := roomID(tx, room.Code)
		if err != nil {
			return err
		}
		record := roomRecord(room)
		if err := tx.Model(&db.Room{}).Where("id = ?", id).Updates(roomColumns(record)).Error; err != nil {
			return err
		}
		return upsertParticipants(tx, id, room.Participants)
	})
}

func (r *PostgresRepository) DeleteRoom(ctx context.Context, code string) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := roomID(tx, code)
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&db.Event{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&db.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Room{}, id).Error
	})
}

func (r *PostgresRepository) ListRoomsByStatus(ctx context.Context, statuses ...Status) ([]*Room, error) {
	query := r.conn.WithContext(ctx).
		Preload("Participants", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("joined_at ASC, id ASC")
		}).
		Order("code ASC")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where("status IN ?", values)
	}
	var records []db.Room
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	rooms := make([]*Room, 0, len(records))
	for _, record := range records {
		room, err := roomFromRecord(record)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *PostgresRepository) RecordEvent(ctx context.Context, code string, round int, userID, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tx := r.conn.WithContext(ctx)
	id, err := roomID(tx, code)
	if err != nil {
		return err
	}
	event := db.Event{
		RoomID:  id,
		Round:   round,
		UserID:  userID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	return tx.Create(&event).Error
}

// Journal returns the recorded events of one room in insertion order.
func (r *PostgresRepository) Journal(ctx context.Context, code string) ([]JournalEntry, error) {
	var rows []struct {
		Round     int
		UserID    string
		Type      string
		Payload   datatypes.JSON
		CreatedAt time.Time
	}
	err := r.conn.WithContext(ctx).
		Table("events").
		Select("events.round, events.user_id, events.type, events.payload, events.created_at").
		Joins("JOIN rooms ON rooms.id = events.room_id").
		Where("rooms.code = ?", code).
		Order("events.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]JournalEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, JournalEntry{
			RoomCode:  code,
			Round:     row.Round,
			UserID:    row.UserID,
			Type:      row.Type,
			Payload:   json.RawMessage(row.Payload),
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

func roomID(tx *gorm.DB, code string) (uint, error) {
	var record db.Room
	err := tx.Select("id").Where("code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRoomNotFound
	}
	if err != nil {
		return 0, err
	}
	return record.ID, nil
}

func upsertParticipants(tx *gorm.DB, roomID uint, participants []Participant) error {
	if len(participants) == 0 {
		return nil
	}
	rows := make([]db.Participant, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, db.Participant{
			RoomID:              roomID,
			UserID:              p.UserID,
			DisplayName:         p.DisplayName,
			Team:                string(p.Team),
			Score:               p.Score,
			IsDrawer:            p.IsDrawer,
			HasDrawn:            p.HasDrawn,
			HasGuessedThisRound: p.HasGuessedThisRound,
			HasPaidEntry:        p.HasPaidEntry,
			IsActive:            p.IsActive,
			ConnectionID:        p.ConnectionID,
			JoinedAt:            p.JoinedAt,
		})
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "team", "score", "is_drawer", "has_drawn",
			"has_guessed_this_round", "has_paid_entry", "is_active",
			"connection_id", "updated_at",
		}),
	}).Create(&rows).Error
}

func roomRecord(room *Room) db.Room {
	record := db.Room{
		Code:              room.Code,
		OwnerID:           room.OwnerID,
		GameMode:          string(room.Mode),
		Status:            string(room.Status),
		Phase:             string(room.Phase),
		RemainingSeconds:  room.RemainingSeconds,
		CurrentRound:      room.CurrentRound,
		CurrentDrawerID:   room.CurrentDrawerID,
		CurrentWord:       room.CurrentWord,
		WordOptions:       encodeStrings(room.WordOptions),
		DrawerPointer:     room.DrawerPointer,
		DrawnUserIDs:      encodeStrings(room.DrawnUserIDs),
		TargetPoints:      room.TargetPoints,
		MaxPointsPerRound: room.MaxPointsPerRound,
		EntryPoints:       room.EntryPoints,
		DrawSeconds:       room.DrawSeconds,
		MaxPlayers:        room.MaxPlayers,
		ThemeID:           room.ThemeID,
		Language:          room.Language,
		Script:            room.Script,
		VoiceEnabled:      room.VoiceEnabled,
	}
	if !room.PhaseEndTime.IsZero() {
		end := room.PhaseEndTime.UTC()
		record.PhaseEndTime = &end
	}
	return record
}

// roomColumns lists every mutable column so zero values are written too.
func roomColumns(record db.Room) map[string]any {
	return map[string]any{
		"owner_id":             record.OwnerID,
		"game_mode":            record.GameMode,
		"status":               record.Status,
		"phase":                record.Phase,
		"phase_end_time":       record.PhaseEndTime,
		"remaining_seconds":    record.RemainingSeconds,
		"current_round":        record.CurrentRound,
		"current_drawer_id":    record.CurrentDrawerID,
		"current_word":         record.CurrentWord,
		"word_options":         record.WordOptions,
		"drawer_pointer":       record.DrawerPointer,
		"drawn_user_ids":       record.DrawnUserIDs,
		"target_points":        record.TargetPoints,
		"max_points_per_round": record.MaxPointsPerRound,
		"entry_points":         record.EntryPoints,
		"draw_seconds":         record.DrawSeconds,
		"max_players":          record.MaxPlayers,
		"theme_id":             record.ThemeID,
		"language":             record.Language,
		"script":               record.Script,
		"voice_enabled":        record.VoiceEnabled,
	}
}

func roomFromRecord(record db.Room) (*Room, error) {
	options, err := decodeStrings(record.WordOptions)
	if err != nil {
		return nil, fmt.Errorf("room %s word options: %w", record.Code, err)
	}
	drawn, err := decodeStrings(record.DrawnUserIDs)
	if err != nil {
		return nil, fmt.Errorf("room %s drawn users: %w", record.Code, err)
	}
	room := &Room{
		Code:              record.Code,
		OwnerID:           record.OwnerID,
		Mode:              GameMode(record.GameMode),
		Status:            Status(record.Status),
		Phase:             Phase(record.Phase),
		RemainingSeconds:  record.RemainingSeconds,
		CurrentRound:      record.CurrentRound,
		CurrentDrawerID:   record.CurrentDrawerID,
		CurrentWord:       record.CurrentWord,
		WordOptions:       options,
		DrawerPointer:     record.DrawerPointer,
		DrawnUserIDs:      drawn,
		TargetPoints:      record.TargetPoints,
		MaxPointsPerRound: record.MaxPointsPerRound,
		EntryPoints:       record.EntryPoints,
		DrawSeconds:       record.DrawSeconds,
		MaxPlayers:        record.MaxPlayers,
		ThemeID:           record.ThemeID,
		Language:          record.Language,
		Script:            record.Script,
		VoiceEnabled:      record.VoiceEnabled,
	}
	if record.PhaseEndTime != nil {
		room.PhaseEndTime = record.PhaseEndTime.UTC()
	}
	room.Participants = make([]Participant, 0, len(record.Participants))
	for _, p := range record.Participants {
		room.Participants = append(room.Participants, Participant{
			UserID:              p.UserID,
			DisplayName:         p.DisplayName,
			Team:                Team(p.Team),
			Score:               p.Score,
			IsDrawer:            p.IsDrawer,
			HasDrawn:            p.HasDrawn,
			HasGuessedThisRound: p.HasGuessedThisRound,
			HasPaidEntry:        p.HasPaidEntry,
			IsActive:            p.IsActive,
			ConnectionID:        p.ConnectionID,
			JoinedAt:            p.JoinedAt.UTC(),
		})
	}
	return room, nil
}

func encodeStrings(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

func decodeStrings(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// GormLedger keeps wallets and a signed entry log in Postgres. Wallet rows
// are locked for the duration of each balance change.
type GormLedger struct {
	conn    *gorm.DB
	opening int
}

func NewGormLedger(conn *gorm.DB, openingBalance int) *GormLedger {
	return &GormLedger{conn: conn, opening: openingBalance}
}

func (l *GormLedger) Debit(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	return l.apply(ctx, userID, -amount, reason)
}

func (l *GormLedger) Credit(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	return l.apply(ctx, userID, amount, reason)
}

func (l *GormLedger) Balance(ctx context.Context, userID string) (int, error) {
	var wallet db.Wallet
	err := l.conn.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return l.opening, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (l *GormLedger) apply(ctx context.Context, userID string, delta int, reason string) error {
	return l.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := db.Wallet{UserID: userID, Balance: l.opening}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var wallet db.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&wallet).Error; err != nil {
			return err
		}
		if wallet.Balance+delta < 0 {
			return ErrInsufficientFunds
		}
		if err := tx.Model(&db.Wallet{}).
			Where("user_id = ?", userID).
			Update("balance", wallet.Balance+delta).Error; err != nil {
			return err
		}
		entry := db.LedgerEntry{
			UserID:    userID,
			Amount:    delta,
			Reason:    reason,
			Reference: uuid.NewString(),
		}
		return tx.Create(&entry).Error
	})
}

// GormTranslationSource reads theme words from the theme_words and
// word_translations tables.
type GormTranslationSource struct {
	conn *gorm.DB
}

func NewGormTranslationSource(conn *gorm.DB) *GormTranslationSource {
	return &GormTranslationSource{conn: conn}
}

func (s *GormTranslationSource) Lookup(ctx context.Context, themeID uint, language, script string) (map[string]string, error) {
	var rows []struct {
		Key  string
		Text string
	}
	err := s.conn.WithContext(ctx).
		Table("word_translations").
		Select("theme_words.key AS key, word_translations.text AS text").
		Joins("JOIN theme_words ON theme_words.id = word_translations.theme_word_id").
		Where("theme_words.theme_id = ? AND word_translations.language = ? AND word_translations.script = ?", themeID, language, script).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	table := make(map[string]string, len(rows))
	for _, row := range rows {
		table[row.Key] = row.Text
	}
	return table, nil
}

type ThemeInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Words int    `json:"words"`
}

// Themes lists every theme with its word count.
func (s *GormTranslationSource) Themes(ctx context.Context) ([]ThemeInfo, error) {
	var themes []ThemeInfo
	err := s.conn.WithContext(ctx).
		Table("themes").
		Select("themes.id AS id, themes.name AS name, COUNT(theme_words.id) AS words").
		Joins("LEFT JOIN theme_words ON theme_words.theme_id = themes.id").
		Group("themes.id, themes.name").
		Order("themes.name ASC").
		Scan(&themes).Error
	if err != nil {
		return nil, err
	}
	return themes, nil
}
