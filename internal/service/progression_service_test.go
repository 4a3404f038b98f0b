package service

import (
	"context"
	"testing"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/PindaZ/pingpong-pro-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResultPropagatesWinner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	byPos := bracketByPosition(matches)

	semi1 := byPos[[2]int{1, 0}]
	semi2 := byPos[[2]int{1, 1}]
	final := byPos[[2]int{2, 0}]

	updated, err := progression.RecordResult(ctx, admin, semi1.ID, players[0].ID, utils.Ptr(3), utils.Ptr(1))
	require.NoError(t, err)
	assert.Equal(t, tournament.BracketPlayed, updated.Status)
	require.NotNil(t, updated.WinnerID)
	assert.Equal(t, players[0].ID, *updated.WinnerID)

	finalNow, err := tournamentStore.GetBracketMatch(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, finalNow.Player1ID)
	assert.Equal(t, players[0].ID, *finalNow.Player1ID)
	assert.Nil(t, finalNow.Player2ID)

	// Seed 3 upsets seed 2 and lands in the other final slot.
	_, err = progression.RecordResult(ctx, admin, semi2.ID, players[2].ID, utils.Ptr(3), utils.Ptr(2))
	require.NoError(t, err)

	finalNow, err = tournamentStore.GetBracketMatch(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, finalNow.Player2ID)
	assert.Equal(t, players[2].ID, *finalNow.Player2ID)
}

func TestRecordResultGuards(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	semi1 := bracketByPosition(matches)[[2]int{1, 0}]

	_, err = progression.RecordResult(ctx, players[0], semi1.ID, players[0].ID, nil, nil)
	assert.ErrorIs(t, err, ErrAdminOnly)

	_, err = progression.RecordResult(ctx, admin, semi1.ID, players[1].ID, nil, nil)
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	_, err = progression.RecordResult(ctx, admin, uuid.New(), players[0].ID, nil, nil)
	assert.ErrorIs(t, err, ErrBracketMatchNotFound)

	_, err = progression.RecordResult(ctx, admin, semi1.ID, players[0].ID, nil, nil)
	require.NoError(t, err)

	_, err = progression.RecordResult(ctx, admin, semi1.ID, players[3].ID, nil, nil)
	assert.ErrorIs(t, err, ErrBracketMatchPlayed)
}

func TestResetClearsOnlyTheNextRound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	byPos := bracketByPosition(matches)

	semi1 := byPos[[2]int{1, 0}]
	semi2 := byPos[[2]int{1, 1}]
	final := byPos[[2]int{2, 0}]

	_, err = progression.RecordResult(ctx, admin, semi1.ID, players[0].ID, nil, nil)
	require.NoError(t, err)
	_, err = progression.RecordResult(ctx, admin, semi2.ID, players[1].ID, nil, nil)
	require.NoError(t, err)
	_, err = progression.RecordResult(ctx, admin, final.ID, players[0].ID, nil, nil)
	require.NoError(t, err)

	reset, err := progression.Reset(ctx, admin, semi1.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.BracketPending, reset.Status)
	assert.Nil(t, reset.WinnerID)
	assert.Nil(t, reset.Score1)

	// The final's slot is vacated but its already-recorded outcome stays;
	// correcting it is a separate admin action.
	finalNow, err := tournamentStore.GetBracketMatch(ctx, final.ID)
	require.NoError(t, err)
	assert.Nil(t, finalNow.Player1ID)
	assert.Equal(t, tournament.BracketPlayed, finalNow.Status)
	require.NotNil(t, finalNow.WinnerID)
	assert.Equal(t, players[0].ID, *finalNow.WinnerID)
}

func TestRemovePlayerTurnsMatchIntoBye(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	byPos := bracketByPosition(matches)

	semi1 := byPos[[2]int{1, 0}]
	final := byPos[[2]int{2, 0}]

	updated, err := progression.RemovePlayer(ctx, admin, semi1.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, tournament.BracketBye, updated.Status)
	assert.Nil(t, updated.Player2ID)
	require.NotNil(t, updated.WinnerID)
	assert.Equal(t, players[0].ID, *updated.WinnerID)

	finalNow, err := tournamentStore.GetBracketMatch(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, finalNow.Player1ID)
	assert.Equal(t, players[0].ID, *finalNow.Player1ID)
}

func TestReplacePlayer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 4)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	byPos := bracketByPosition(matches)

	semi1 := byPos[[2]int{1, 0}]
	final := byPos[[2]int{2, 0}]

	_, err = progression.ReplacePlayer(ctx, admin, semi1.ID, 3, utils.Ptr(players[1].ID))
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = progression.ReplacePlayer(ctx, admin, semi1.ID, 2, utils.Ptr(uuid.New()))
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	updated, err := progression.ReplacePlayer(ctx, admin, semi1.ID, 2, utils.Ptr(players[1].ID))
	require.NoError(t, err)
	require.NotNil(t, updated.Player2ID)
	assert.Equal(t, players[1].ID, *updated.Player2ID)

	// Replacement never propagates anywhere on its own.
	finalNow, err := tournamentStore.GetBracketMatch(ctx, final.ID)
	require.NoError(t, err)
	assert.Nil(t, finalNow.Player1ID)
	assert.Nil(t, finalNow.Player2ID)
}

func TestPlayerReportedResultFlow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	userStore := store.NewUserStore(db)
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, userStore, tournamentStore)
	matchService := newTestMatchService(db)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 2)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	cell := bracketByPosition(matches)[[2]int{1, 0}]

	reporter, opponent := players[0], players[1]

	match, err := progression.ReportResult(ctx, reporter, cell.ID, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, ladder.MatchPending, match.Status)
	assert.Equal(t, reporter.ID, match.Player1ID)
	assert.Equal(t, opponent.ID, match.Player2ID)
	require.NotNil(t, match.TournamentID)
	assert.Equal(t, tourney.ID, *match.TournamentID)

	cellNow, err := tournamentStore.GetBracketMatch(ctx, cell.ID)
	require.NoError(t, err)
	require.NotNil(t, cellNow.ResultMatchID)
	assert.Equal(t, match.ID, *cellNow.ResultMatchID)
	assert.Equal(t, tournament.BracketPending, cellNow.Status)

	_, err = progression.ReportResult(ctx, opponent, cell.ID, 1, 3)
	assert.ErrorIs(t, err, ErrResultAlreadyReported)

	result, err := matchService.Validate(ctx, match.ID, opponent, "confirm")
	require.NoError(t, err)
	require.NotNil(t, result.WinnerID)
	assert.Equal(t, reporter.ID, *result.WinnerID)
	assert.Nil(t, result.EloChanges, "tournament matches never move ratings")

	cellNow, err = tournamentStore.GetBracketMatch(ctx, cell.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.BracketPlayed, cellNow.Status)
	require.NotNil(t, cellNow.WinnerID)
	assert.Equal(t, reporter.ID, *cellNow.WinnerID)

	reporterNow, err := userStore.GetUser(ctx, reporter.ID)
	require.NoError(t, err)
	assert.Equal(t, reporter.Rating, reporterNow.Rating)
}

func TestPlayerReportRejectionClearsProvisionalResult(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	matchService := newTestMatchService(db)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 2)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	cell := bracketByPosition(matches)[[2]int{1, 0}]

	match, err := progression.ReportResult(ctx, players[0], cell.ID, 3, 0)
	require.NoError(t, err)

	_, err = matchService.Validate(ctx, match.ID, players[1], "reject")
	require.NoError(t, err)

	cellNow, err := tournamentStore.GetBracketMatch(ctx, cell.ID)
	require.NoError(t, err)
	assert.Nil(t, cellNow.ResultMatchID)
	assert.Nil(t, cellNow.Score1)
	assert.Nil(t, cellNow.Score2)
	assert.Equal(t, tournament.BracketPending, cellNow.Status)

	// The cell is reportable again after the dispute.
	_, err = progression.ReportResult(ctx, players[1], cell.ID, 3, 2)
	require.NoError(t, err)
}

func TestReportResultGuards(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	admin := createTestAdmin(t, db, "admin")
	tournamentStore := store.NewTournamentStore(db)
	bracketService := NewBracketService(db, store.NewUserStore(db), tournamentStore)
	progression := NewProgressionService(db, store.NewMatchStore(db), tournamentStore)

	tourney, players := seedTournament(t, db, admin, 5)
	matches, err := bracketService.GenerateBracket(ctx, tourney.ID, admin, tournament.SeedingElo)
	require.NoError(t, err)
	byPos := bracketByPosition(matches)

	playable := byPos[[2]int{1, 3}]
	halfEmpty := byPos[[2]int{2, 1}]

	outsider := createTestUser(t, db, "outsider", 1200)
	_, err = progression.ReportResult(ctx, outsider, playable.ID, 3, 1)
	assert.ErrorIs(t, err, ErrNotBracketPlayer)

	_, err = progression.ReportResult(ctx, players[3], playable.ID, -1, 3)
	assert.ErrorIs(t, err, ErrNegativeScore)

	// Seed 3 sits alone in round 2 until the playable match resolves.
	_, err = progression.ReportResult(ctx, players[2], halfEmpty.ID, 3, 0)
	assert.ErrorIs(t, err, ErrBracketMatchIncomplete)
}
