package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAdmin(t *testing.T, db *sqlx.DB, username string) *ladder.User {
	t.Helper()

	user := &ladder.User{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("%s@example.com", username),
		Username: username,
		Rating:   ladder.DefaultRating,
		Role:     ladder.RoleAdmin,
	}
	require.NoError(t, store.NewUserStore(db).CreateUser(context.Background(), user))
	return user
}

// seedTournament creates a tournament plus numPlayers joined users with
// descending ratings, so with ELO seeding the returned slice is already in
// seed order: players[0] is seed 1.
func seedTournament(t *testing.T, db *sqlx.DB, creator *ladder.User, numPlayers int) (*tournament.Tournament, []*ladder.User) {
	t.Helper()

	ctx := context.Background()
	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))

	tourney, err := tournamentService.Create(ctx, creator, CreateTournamentInput{
		Name:            fmt.Sprintf("Office Cup %d", numPlayers),
		StartsAt:        time.Now(),
		EndsAt:          time.Now().Add(2 * time.Hour),
		MaxParticipants: 32,
		SeedingType:     tournament.SeedingElo,
	})
	require.NoError(t, err)

	players := make([]*ladder.User, numPlayers)
	for i := 0; i < numPlayers; i++ {
		players[i] = createTestUser(t, db, fmt.Sprintf("player-%d-%d", numPlayers, i), 1500-i*50)
		require.NoError(t, tournamentService.Join(ctx, tourney.ID, players[i]))
	}
	return tourney, players
}

func bracketByPosition(matches []tournament.BracketMatch) map[[2]int]*tournament.BracketMatch {
	byPos := make(map[[2]int]*tournament.BracketMatch, len(matches))
	for i := range matches {
		byPos[[2]int{matches[i].Round, matches[i].Position}] = &matches[i]
	}
	return byPos
}

func TestGenerateBracketShape(t *testing.T) {
	testCases := []struct {
		name            string
		numPlayers      int
		expectedMatches int
		expectedRounds  int
		expectedByes    int
	}{
		{"2 players", 2, 1, 1, 0},
		{"4 players", 4, 3, 2, 0},
		{"5 players", 5, 7, 3, 3},
		{"7 players", 7, 7, 3, 1},
		{"8 players", 8, 7, 3, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			ctx := context.Background()
			admin := createTestAdmin(t, db, "admin")
			bracketService := NewBracketService(db, store.NewUserStore(db), store.NewTournamentStore(db))

			tourney, _ := seedTournament(t, db, admin, tc.numPlayers)
			matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
			require.NoError(t, err)

			assert.Len(t, matches, tc.expectedMatches)

			byes, maxRound := 0, 0
			for _, m := range matches {
				if m.Round > maxRound {
					maxRound = m.Round
				}
				if m.Round == 1 && m.Status == tournament.BracketBye {
					byes++
					assert.NotNil(t, m.WinnerID)
				}
			}
			assert.Equal(t, tc.expectedRounds, maxRound)
			assert.Equal(t, tc.expectedByes, byes)
		})
	}
}

func TestGenerateBracketEloSeedOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)

	byPos := bracketByPosition(matches)

	// Seed 1 meets seed 4, seed 2 meets seed 3.
	m0 := byPos[[2]int{1, 0}]
	require.NotNil(t, m0)
	require.NotNil(t, m0.Player1ID)
	require.NotNil(t, m0.Player2ID)
	assert.Equal(t, players[0].ID, *m0.Player1ID)
	assert.Equal(t, players[3].ID, *m0.Player2ID)

	m1 := byPos[[2]int{1, 1}]
	require.NotNil(t, m1)
	require.NotNil(t, m1.Player1ID)
	require.NotNil(t, m1.Player2ID)
	assert.Equal(t, players[1].ID, *m1.Player1ID)
	assert.Equal(t, players[2].ID, *m1.Player2ID)

	// Seeds are persisted 1-based in rating order.
	stored, err := tournamentStore.ListParticipants(ctx, tourney.ID)
	require.NoError(t, err)
	seedByUser := make(map[uuid.UUID]int)
	for _, p := range stored {
		require.NotNil(t, p.Seed)
		seedByUser[p.UserID] = *p.Seed
	}
	for i, player := range players {
		assert.Equal(t, i+1, seedByUser[player.ID])
	}
}

func TestGenerateBracketByePropagation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	bracketService := NewBracketService(db, store.NewUserStore(db), store.NewTournamentStore(db))

	// 5 players in an 8 slot bracket: seeds 1-3 get byes, seed 4 plays seed 5.
	tourney, players := seedTournament(t, db, admin, 5)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)

	byPos := bracketByPosition(matches)

	for pos := 0; pos < 3; pos++ {
		m := byPos[[2]int{1, pos}]
		require.NotNil(t, m)
		assert.Equal(t, tournament.BracketBye, m.Status)
		require.NotNil(t, m.WinnerID)
		assert.Equal(t, players[pos].ID, *m.WinnerID)
	}

	playable := byPos[[2]int{1, 3}]
	require.NotNil(t, playable)
	assert.Equal(t, tournament.BracketPending, playable.Status)
	require.NotNil(t, playable.Player1ID)
	require.NotNil(t, playable.Player2ID)
	assert.Equal(t, players[3].ID, *playable.Player1ID)
	assert.Equal(t, players[4].ID, *playable.Player2ID)

	// Bye winners are already waiting in round 2.
	r2m0 := byPos[[2]int{2, 0}]
	require.NotNil(t, r2m0)
	require.NotNil(t, r2m0.Player1ID)
	require.NotNil(t, r2m0.Player2ID)
	assert.Equal(t, players[0].ID, *r2m0.Player1ID)
	assert.Equal(t, players[1].ID, *r2m0.Player2ID)

	r2m1 := byPos[[2]int{2, 1}]
	require.NotNil(t, r2m1)
	require.NotNil(t, r2m1.Player1ID)
	assert.Equal(t, players[2].ID, *r2m1.Player1ID)
	assert.Nil(t, r2m1.Player2ID, "slot waits on the playable round 1 match")

	// The final is still empty.
	final := byPos[[2]int{3, 0}]
	require.NotNil(t, final)
	assert.Nil(t, final.Player1ID)
	assert.Nil(t, final.Player2ID)
}

func TestGenerateBracketRandomSeeding(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	bracketService := NewBracketService(db, store.NewUserStore(db), store.NewTournamentStore(db))

	tourney, players := seedTournament(t, db, admin, 5)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingRandom)
	require.NoError(t, err)

	// Whatever order the shuffle produced, every player appears exactly once
	// in round 1 and the bye count still holds.
	seen := make(map[uuid.UUID]int)
	byes := 0
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		if m.Player1ID != nil {
			seen[*m.Player1ID]++
		}
		if m.Player2ID != nil {
			seen[*m.Player2ID]++
		}
		if m.Status == tournament.BracketBye {
			byes++
		}
	}
	assert.Len(t, seen, len(players))
	for _, player := range players {
		assert.Equal(t, 1, seen[player.ID])
	}
	assert.Equal(t, 3, byes)
}

func TestGenerateBracketGates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	bracketService := NewBracketService(db, store.NewUserStore(db), store.NewTournamentStore(db))

	tourney, _ := seedTournament(t, db, admin, 4)

	outsider := createTestUser(t, db, "outsider", 1200)
	_, err := bracketService.GenerateBracket(ctx, tourney.ID, outsider, tournament.SeedingElo)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)

	_, err = bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)
}

func TestGenerateBracketNeedsTwoPlayers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	bracketService := NewBracketService(db, store.NewUserStore(db), store.NewTournamentStore(db))

	tourney, _ := seedTournament(t, db, admin, 1)
	_, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestCalcBracketSize(t *testing.T) {
	testCases := []struct {
		count    int
		expected int
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {8, 8}, {9, 16}, {17, 32},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, calcBracketSize(tc.count), "count %d", tc.count)
	}
}
