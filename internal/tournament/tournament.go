package tournament

import (
	"time"

	"github.com/google/uuid"
)

type SeedingType string

const (
	SeedingRandom SeedingType = "random"
	SeedingElo    SeedingType = "elo"
)

type Tournament struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	CreatorID        uuid.UUID   `db:"creator_id" json:"creatorId"`
	StartsAt         time.Time   `db:"starts_at" json:"startsAt"`
	EndsAt           time.Time   `db:"ends_at" json:"endsAt"`
	MaxParticipants  int         `db:"max_participants" json:"maxParticipants"`
	SeedingType      SeedingType `db:"seeding_type" json:"seedingType"`
	BracketGenerated bool        `db:"bracket_generated" json:"bracketGenerated"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
}

// Participant links a user to a tournament. Seed is assigned when the
// bracket is generated, 1-based in pairing order.
type Participant struct {
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	Seed         *int      `db:"seed" json:"seed,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type BracketStatus string

const (
	BracketPending BracketStatus = "pending"
	BracketPlayed  BracketStatus = "played"
	BracketBye     BracketStatus = "bye"
)

// BracketMatch is one cell of the single-elimination tree. The cell at
// (round, position) feeds its winner into (round+1, position/2), slot 1 on
// even positions and slot 2 on odd ones.
type BracketMatch struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	Round        int       `db:"round" json:"round"`
	Position     int       `db:"position" json:"position"`

	Player1ID *uuid.UUID `db:"player1_id" json:"player1Id,omitempty"`
	Player2ID *uuid.UUID `db:"player2_id" json:"player2Id,omitempty"`

	WinnerID *uuid.UUID    `db:"winner_id" json:"winnerId,omitempty"`
	Score1   *int          `db:"score1" json:"score1,omitempty"`
	Score2   *int          `db:"score2" json:"score2,omitempty"`
	Status   BracketStatus `db:"status" json:"status"`

	// ResultMatchID points at the provisional ladder match created by a
	// player-reported result, pending opponent validation.
	ResultMatchID *uuid.UUID `db:"result_match_id" json:"resultMatchId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (m *BracketMatch) HasPlayer(id uuid.UUID) bool {
	return (m.Player1ID != nil && *m.Player1ID == id) ||
		(m.Player2ID != nil && *m.Player2ID == id)
}

// NextSlot returns the coordinates this cell feeds into and whether the
// winner lands in the player1 slot there.
func (m *BracketMatch) NextSlot() (nextRound, nextPosition int, isPlayer1 bool) {
	return m.Round + 1, m.Position / 2, m.Position%2 == 0
}
