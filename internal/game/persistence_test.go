package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"scribble-rush/internal/config"
	"scribble-rush/internal/db"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("scribble"),
		postgres.WithUsername("scribble"),
		postgres.WithPassword("scribble"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	conn, err := db.OpenDSN(dsn, config.Default())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func TestPostgres(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := NewPostgresRepository(conn)
	joined := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("RoomRoundTrip", func(t *testing.T) {
		room := &Room{
			Code:              "PG0001",
			OwnerID:           "olivia",
			Mode:              ModeTeam,
			Status:            StatusPlaying,
			Phase:             PhaseChoosingWord,
			PhaseEndTime:      joined.Add(10*time.Second + 250*time.Millisecond),
			CurrentRound:      2,
			CurrentDrawerID:   "alice",
			WordOptions:       []string{"apple", "house", "tree"},
			DrawerPointer:     3,
			DrawnUserIDs:      []string{"bob", "alice"},
			TargetPoints:      50,
			MaxPointsPerRound: 10,
			EntryPoints:       5,
			DrawSeconds:       80,
			MaxPlayers:        12,
			ThemeID:           2,
			Language:          "hi",
			Script:            ScriptNative,
			Participants: []Participant{
				{UserID: "olivia", DisplayName: "Olivia", Team: TeamA, IsActive: true, JoinedAt: joined},
				{UserID: "alice", DisplayName: "Alice", Team: TeamB, IsActive: true, IsDrawer: true, JoinedAt: joined.Add(time.Second)},
			},
		}
		require.NoError(t, repo.CreateRoom(ctx, room))
		assert.ErrorIs(t, repo.CreateRoom(ctx, room), ErrRoomExists)

		loaded, err := repo.LoadRoom(ctx, "PG0001")
		require.NoError(t, err)
		assert.Equal(t, room, loaded)

		loaded.Phase = PhaseDrawing
		loaded.PhaseEndTime = time.Time{}
		loaded.WordOptions = nil
		loaded.CurrentWord = "tree"
		loaded.RemainingSeconds = 80
		loaded.Participants[0].Score = 7
		loaded.Participants = append(loaded.Participants, Participant{UserID: "bob", DisplayName: "Bob", Team: TeamA, IsActive: true, JoinedAt: joined.Add(2 * time.Second)})
		require.NoError(t, repo.SaveRoom(ctx, loaded))

		again, err := repo.LoadRoom(ctx, "PG0001")
		require.NoError(t, err)
		assert.Equal(t, loaded, again)

		_, err = repo.LoadRoom(ctx, "MISSING")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("ListAndJournal", func(t *testing.T) {
		require.NoError(t, repo.CreateRoom(ctx, &Room{Code: "PG0002", OwnerID: "u", Status: StatusLobby, Phase: PhaseNone}))
		playing, err := repo.ListRoomsByStatus(ctx, StatusPlaying, StatusFinished)
		require.NoError(t, err)
		require.Len(t, playing, 1)
		assert.Equal(t, "PG0001", playing[0].Code)

		all, err := repo.ListRoomsByStatus(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, repo.RecordEvent(ctx, "PG0001", 2, "bob", "correct_guess", EventPayload{Guess: "tree", Points: 9}))
		entries, err := repo.Journal(ctx, "PG0001")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		var payload EventPayload
		require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
		assert.Equal(t, EventPayload{Guess: "tree", Points: 9}, payload)

		assert.ErrorIs(t, repo.RecordEvent(ctx, "MISSING", 0, "", "x", EventPayload{}), ErrRoomNotFound)
	})

	t.Run("DeleteRoom", func(t *testing.T) {
		require.NoError(t, repo.DeleteRoom(ctx, "PG0001"))
		_, err := repo.LoadRoom(ctx, "PG0001")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		var leftovers int64
		require.NoError(t, conn.Model(&db.Participant{}).Count(&leftovers).Error)
		assert.Zero(t, leftovers)
		require.NoError(t, repo.DeleteRoom(ctx, "PG0001"))
	})

	t.Run("Ledger", func(t *testing.T) {
		ledger := NewGormLedger(conn, 100)
		require.NoError(t, ledger.Debit(ctx, "olivia", 30, reasonEntryFee))
		assert.ErrorIs(t, ledger.Debit(ctx, "olivia", 71, reasonEntryFee), ErrInsufficientFunds)
		require.NoError(t, ledger.Credit(ctx, "olivia", 90, payoutReason(1)))

		balance, err := ledger.Balance(ctx, "olivia")
		require.NoError(t, err)
		assert.Equal(t, 160, balance)
		balance, err = ledger.Balance(ctx, "stranger")
		require.NoError(t, err)
		assert.Equal(t, 100, balance)

		var entries []db.LedgerEntry
		require.NoError(t, conn.Where("user_id = ?", "olivia").Order("id").Find(&entries).Error)
		require.Len(t, entries, 2)
		assert.Equal(t, -30, entries[0].Amount)
		assert.Equal(t, "rank_1_payout", entries[1].Reason)
		assert.NotEqual(t, entries[0].Reference, entries[1].Reference)
	})

	t.Run("TranslationSource", func(t *testing.T) {
		theme := db.Theme{Name: "animals"}
		require.NoError(t, conn.Create(&theme).Error)
		word := db.ThemeWord{ThemeID: theme.ID, Key: "owl"}
		require.NoError(t, conn.Create(&word).Error)
		require.NoError(t, conn.Create(&[]db.WordTranslation{
			{ThemeWordID: word.ID, Language: "en", Script: ScriptPhonetic, Text: "owl"},
			{ThemeWordID: word.ID, Language: "hi", Script: ScriptNative, Text: "उल्लू"},
		}).Error)

		source := NewGormTranslationSource(conn)
		table, err := source.Lookup(ctx, theme.ID, "hi", ScriptNative)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"owl": "उल्लू"}, table)

		words, err := newTestGateway(source).Words(ctx, theme.ID, "hindi", "phonetic", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"उल्लू"}, words)

		themes, err := source.Themes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []ThemeInfo{{ID: theme.ID, Name: "animals", Words: 1}}, themes)
	})

	t.Run("EngineOnPostgres", func(t *testing.T) {
		h := newHarness(t, func(deps *Deps) {
			deps.Repo = repo
			deps.Ledger = NewGormLedger(conn, 100)
			deps.Logger = zerolog.Nop()
		})
		code := h.createRoom(nil, "alice", "bob")
		drawer := h.startDrawingOn(repo, code, "apple")
		assert.Equal(t, "alice", drawer)

		require.NoError(t, h.dispatch(code, "bob", Command{Type: CommandSubmitGuess, Guess: "apple"}))
		require.NoError(t, h.dispatch(code, "olivia", Command{Type: CommandSubmitGuess, Guess: "apple"}))
		room, err := repo.LoadRoom(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, PhaseReveal, room.Phase)

		h.sched.Advance(11 * time.Second)
		room, err = repo.LoadRoom(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, PhaseSelectingDrawer, room.Phase)
		assert.Equal(t, 1, room.CurrentRound)
		assert.Equal(t, "bob", room.CurrentDrawerID)
	})
}

func (h *harness) startDrawingOn(repo Repository, code, word string) string {
	h.t.Helper()
	require.NoError(h.t, h.dispatch(code, "olivia", Command{Type: CommandStartGame}))
	h.sched.Advance(h.reg.deps.Rules.SelectDrawer)
	room, err := repo.LoadRoom(h.ctx, code)
	require.NoError(h.t, err)
	require.Equal(h.t, PhaseChoosingWord, room.Phase)
	require.NoError(h.t, h.dispatch(code, room.CurrentDrawerID, Command{Type: CommandChooseWord, Word: word}))
	return room.CurrentDrawerID
}
