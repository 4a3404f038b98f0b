package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/PindaZ/pingpong-pro-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db          *sqlx.DB
	users       *store.UserStore
	tournaments *store.TournamentStore
}

func NewBracketService(db *sqlx.DB, users *store.UserStore, tournaments *store.TournamentStore) *BracketService {
	return &BracketService{db: db, users: users, tournaments: tournaments}
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// GenerateBracket builds the full single-elimination tree for a tournament:
// seeds are assigned per the seeding policy, round 1 is paired seed 1 vs
// seed N style, byes resolve immediately and their winners are propagated
// into round 2, and all later rounds are created empty and pending.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID uuid.UUID, actor *ladder.User, seeding tournament.SeedingType) ([]tournament.BracketMatch, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if !actor.IsAdmin() && actor.ID != t.CreatorID {
		return nil, ErrForbidden
	}
	// Checked inside the transaction: two concurrent generate calls cannot
	// both pass this gate.
	if t.BracketGenerated {
		return nil, ErrBracketAlreadyGenerated
	}

	if seeding == "" {
		seeding = t.SeedingType
	}
	if seeding != tournament.SeedingRandom && seeding != tournament.SeedingElo {
		return nil, fmt.Errorf("%w: unknown seeding type %q", ErrValidationFailed, seeding)
	}

	participants, err := s.tournaments.ListParticipantsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) < 2 {
		return nil, ErrInsufficientParticipants
	}

	ordered, err := s.orderParticipantsTx(ctx, tx, participants, seeding)
	if err != nil {
		return nil, err
	}

	// Seeds are 1-based in pairing order, persisted for display.
	for i, p := range ordered {
		if err := s.tournaments.UpdateParticipantSeedTx(ctx, tx, tournamentID, p.UserID, i+1); err != nil {
			return nil, fmt.Errorf("failed to assign seed: %w", err)
		}
	}

	matches := buildBracket(tournamentID, ordered)

	if err := s.tournaments.CreateBracketMatchesTx(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create bracket matches: %w", err)
	}
	if err := s.tournaments.SetBracketGeneratedTx(ctx, tx, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to mark bracket generated: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *BracketService) orderParticipantsTx(ctx context.Context, tx *sqlx.Tx, participants []tournament.Participant, seeding tournament.SeedingType) ([]tournament.Participant, error) {
	ordered := make([]tournament.Participant, len(participants))
	copy(ordered, participants)

	switch seeding {
	case tournament.SeedingElo:
		ratings := make(map[uuid.UUID]int, len(ordered))
		for _, p := range ordered {
			user, err := s.users.GetUserTx(ctx, tx, p.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to load participant rating: %w", err)
			}
			ratings[p.UserID] = user.Rating
		}
		sort.SliceStable(ordered, func(i, j int) bool {
			return ratings[ordered[i].UserID] > ratings[ordered[j].UserID]
		})
	case tournament.SeedingRandom:
		rand.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}
	return ordered, nil
}

// buildBracket pairs round 1 as seed 1 vs seed N, seed 2 vs seed N-1 and so
// on; indexes past the participant count are empty slots, so the byes land
// in distinct matches and no first-round match is ever empty on both sides.
// Bye winners are written into their round-2 slots before anything is
// persisted, so a bye never waits on a match that cannot be played.
func buildBracket(tournamentID uuid.UUID, ordered []tournament.Participant) []tournament.BracketMatch {
	n := len(ordered)
	bracketSize := calcBracketSize(n)
	numRounds := int(math.Log2(float64(bracketSize)))

	var matches []tournament.BracketMatch

	for round := 1; round <= numRounds; round++ {
		matchesInRound := bracketSize >> uint(round)
		for pos := 0; pos < matchesInRound; pos++ {
			m := tournament.BracketMatch{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				Round:        round,
				Position:     pos,
				Status:       tournament.BracketPending,
			}
			if round == 1 {
				p1Index := pos
				p2Index := bracketSize - 1 - pos
				if p1Index < n {
					m.Player1ID = utils.Ptr(ordered[p1Index].UserID)
				}
				if p2Index < n {
					m.Player2ID = utils.Ptr(ordered[p2Index].UserID)
				}
				if m.Player1ID != nil && m.Player2ID == nil {
					m.Status = tournament.BracketBye
					m.WinnerID = m.Player1ID
				} else if m.Player1ID == nil && m.Player2ID != nil {
					m.Status = tournament.BracketBye
					m.WinnerID = m.Player2ID
				}
			}
			matches = append(matches, m)
		}
	}

	byPosition := make(map[[2]int]*tournament.BracketMatch, len(matches))
	for i := range matches {
		byPosition[[2]int{matches[i].Round, matches[i].Position}] = &matches[i]
	}

	for i := range matches {
		m := &matches[i]
		if m.Round != 1 || m.Status != tournament.BracketBye {
			continue
		}
		nextRound, nextPos, isPlayer1 := m.NextSlot()
		next, ok := byPosition[[2]int{nextRound, nextPos}]
		if !ok {
			continue
		}
		if isPlayer1 {
			next.Player1ID = m.WinnerID
		} else {
			next.Player2ID = m.WinnerID
		}
	}

	return matches
}
