package game

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"
)

// Repository persists room snapshots. Every read returns an independent copy;
// callers hand the mutated copy back through SaveRoom.
type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	LoadRoom(ctx context.Context, code string) (*Room, error)
	SaveRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, code string) error
	ListRoomsByStatus(ctx context.Context, statuses ...Status) ([]*Room, error)
	RecordEvent(ctx context.Context, code string, round int, userID, eventType string, payload EventPayload) error
}

type JournalEntry struct {
	RoomCode  string
	Round     int
	UserID    string
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store is the in-memory Repository.
type Store struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	journal []JournalEntry
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

func (s *Store) CreateRoom(_ context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return ErrRoomExists
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *Store) LoadRoom(_ context.Context, code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Store) SaveRoom(_ context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; !ok {
		return ErrRoomNotFound
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *Store) ListRoomsByStatus(_ context.Context, statuses ...Status) ([]*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0)
	for _, room := range s.rooms {
		if len(statuses) == 0 || slices.Contains(statuses, room.Status) {
			list = append(list, room.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Code < list[j].Code
	})
	return list, nil
}

func (s *Store) RecordEvent(_ context.Context, code string, round int, userID, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, JournalEntry{
		RoomCode:  code,
		Round:     round,
		UserID:    userID,
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Journal returns the recorded events of one room in order.
func (s *Store) Journal(code string) []JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JournalEntry, 0)
	for _, entry := range s.journal {
		if entry.RoomCode == code {
			out = append(out, entry)
		}
	}
	return out
}
