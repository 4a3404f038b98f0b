package ladder

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchValidated MatchStatus = "validated"
	MatchRejected  MatchStatus = "rejected"
)

type MatchKind string

const (
	// KindChallenge is a social invite with no games reported yet.
	KindChallenge MatchKind = "challenge"
	// KindResult is a reported contest carrying at least one game score.
	KindResult MatchKind = "result"
)

// Game is one set within a match, e.g. 11:7.
type Game struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// Games is the ordered list of per-game scores, stored as a JSON column.
type Games []Game

func (g Games) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (g *Games) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return fmt.Errorf("cannot scan %T into Games", src)
	}
}

// Valid reports whether every game has non-negative scores.
func (g Games) Valid() bool {
	for _, game := range g {
		if game.P1 < 0 || game.P2 < 0 {
			return false
		}
	}
	return true
}

// Match is one reported contest between two players. Player1 is always the
// creator and owns direct edits while pending; player2 is the validator.
type Match struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Player1ID    uuid.UUID   `db:"player1_id" json:"player1Id"`
	Player2ID    uuid.UUID   `db:"player2_id" json:"player2Id"`
	Kind         MatchKind   `db:"kind" json:"kind"`
	Games        Games       `db:"games" json:"games"`
	Status       MatchStatus `db:"status" json:"status"`
	WinnerID     *uuid.UUID  `db:"winner_id" json:"winnerId,omitempty"`
	TournamentID *uuid.UUID  `db:"tournament_id" json:"tournamentId,omitempty"`

	DeletionRequestedBy *uuid.UUID `db:"deletion_requested_by" json:"deletionRequestedBy,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (m *Match) HasParticipant(id uuid.UUID) bool {
	return m.Player1ID == id || m.Player2ID == id
}

// OtherParticipant returns the opponent of the given participant.
func (m *Match) OtherParticipant(id uuid.UUID) uuid.UUID {
	if m.Player1ID == id {
		return m.Player2ID
	}
	return m.Player1ID
}

// WinnerFromGames counts games taken by each player. Player1 wins the match
// only with strictly more games; every other split goes to player2.
func WinnerFromGames(player1ID, player2ID uuid.UUID, games Games) uuid.UUID {
	p1Wins, p2Wins := 0, 0
	for _, g := range games {
		if g.P1 > g.P2 {
			p1Wins++
		} else if g.P2 > g.P1 {
			p2Wins++
		}
	}
	if p1Wins > p2Wins {
		return player1ID
	}
	return player2ID
}

// AdjustmentRequest is a proposed retroactive change to a validated match,
// waiting for the other participant's approval.
type AdjustmentRequest struct {
	MatchID            uuid.UUID  `db:"match_id" json:"matchId"`
	RequestedBy        uuid.UUID  `db:"requested_by" json:"requestedBy"`
	ProposedGames      Games      `db:"proposed_games" json:"proposedGames"`
	ProposedOpponentID *uuid.UUID `db:"proposed_opponent_id" json:"proposedOpponentId,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
}

// RankingLog records one rating change caused by validating a match.
type RankingLog struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	MatchID      uuid.UUID `db:"match_id" json:"matchId"`
	RatingBefore int       `db:"rating_before" json:"ratingBefore"`
	RatingAfter  int       `db:"rating_after" json:"ratingAfter"`
	Delta        int       `db:"delta" json:"delta"`
	OrgID        *string   `db:"org_id" json:"orgId,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
