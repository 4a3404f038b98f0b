package main

import (
	"net/http"
	"time"

	"github.com/PindaZ/pingpong-pro-sub000/internal/db"
	"github.com/PindaZ/pingpong-pro-sub000/internal/httputil"
	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/middleware"
	"github.com/PindaZ/pingpong-pro-sub000/internal/service"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func newRouter(sessionManager *scs.SessionManager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(sessionManager, store.NewUserStore(db.GetDB())))

	r.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string  `json:"email"`
			Username string  `json:"username"`
			OrgID    *string `json:"orgId"`
		}
		if !httputil.DecodeJSON(w, r, &body) {
			return
		}

		userService := newUserService()
		user, err := userService.Register(r.Context(), service.RegisterInput{
			Email:    body.Email,
			Username: body.Username,
			OrgID:    body.OrgID,
		})
		if err != nil {
			httputil.ServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, user)
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if !httputil.DecodeJSON(w, r, &body) {
			return
		}

		userService := newUserService()
		user, err := userService.LoginByEmail(r.Context(), body.Email)
		if err != nil {
			httputil.ServiceError(w, err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		httputil.WriteJSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/users/rankings", func(w http.ResponseWriter, r *http.Request) {
			users, err := newUserService().Rankings(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to list rankings", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, users)
		})

		r.Get("/users/{id}/history", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			logs, err := newUserService().RatingHistory(r.Context(), userID)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, logs)
		})

		r.Post("/matches", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				OpponentID   uuid.UUID    `json:"opponentId"`
				Games        ladder.Games `json:"games"`
				TournamentID *uuid.UUID   `json:"tournamentId"`
				AutoValidate bool         `json:"autoValidate"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			match, err := newMatchService().Create(r.Context(), actor, service.CreateMatchInput{
				OpponentID:   body.OpponentID,
				Games:        body.Games,
				TournamentID: body.TournamentID,
				AutoValidate: body.AutoValidate,
			})
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, match)
		})

		r.Post("/matches/challenges", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				OpponentID uuid.UUID `json:"opponentId"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			match, err := newMatchService().CreateChallenge(r.Context(), actor, body.OpponentID)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, match)
		})

		r.Get("/matches", func(w http.ResponseWriter, r *http.Request) {
			actor := middleware.GetAuthenticatedUser(r.Context())
			matches, err := newMatchService().ListForUser(r.Context(), actor.ID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to list matches", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, matches)
		})

		r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			match, err := newMatchService().Get(r.Context(), matchID)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, match)
		})

		r.Post("/matches/{id}/validate", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				Action string `json:"action"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			result, err := newMatchService().Validate(r.Context(), matchID, actor, body.Action)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, result)
		})

		r.Put("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				Games      ladder.Games `json:"games"`
				OpponentID *uuid.UUID   `json:"opponentId"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			match, err := newMatchService().Update(r.Context(), matchID, actor, body.Games, body.OpponentID)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, match)
		})

		r.Post("/matches/{id}/adjustment", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				Action string `json:"action"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			match, err := newMatchService().ResolveAdjustment(r.Context(), matchID, actor, body.Action)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, match)
		})

		r.Delete("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			actor := middleware.GetAuthenticatedUser(r.Context())
			result, err := newMatchService().RequestDeletion(r.Context(), matchID, actor)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, result)
		})

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name            string                 `json:"name"`
				StartsAt        time.Time              `json:"startsAt"`
				EndsAt          time.Time              `json:"endsAt"`
				MaxParticipants int                    `json:"maxParticipants"`
				SeedingType     tournament.SeedingType `json:"seedingType"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			t, err := newTournamentService().Create(r.Context(), actor, service.CreateTournamentInput{
				Name:            body.Name,
				StartsAt:        body.StartsAt,
				EndsAt:          body.EndsAt,
				MaxParticipants: body.MaxParticipants,
				SeedingType:     body.SeedingType,
			})
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, t)
		})

		r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			data, err := newTournamentService().Get(r.Context(), tournamentID)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, data)
		})

		r.Post("/tournaments/{id}/join", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			actor := middleware.GetAuthenticatedUser(r.Context())
			if err := newTournamentService().Join(r.Context(), tournamentID, actor); err != nil {
				httputil.ServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Delete("/tournaments/{id}/leave", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			actor := middleware.GetAuthenticatedUser(r.Context())
			if err := newTournamentService().Leave(r.Context(), tournamentID, actor); err != nil {
				httputil.ServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			tournamentID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				SeedingType tournament.SeedingType `json:"seedingType"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			matches, err := newBracketService().GenerateBracket(r.Context(), tournamentID, actor, body.SeedingType)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, matches)
		})

		r.Post("/bracket-matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
			bracketMatchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				Score1 int `json:"score1"`
				Score2 int `json:"score2"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			match, err := newProgressionService().ReportResult(r.Context(), actor, bracketMatchID, body.Score1, body.Score2)
			if err != nil {
				httputil.ServiceError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, match)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Post("/bracket-matches/{id}/admin", func(w http.ResponseWriter, r *http.Request) {
			bracketMatchID, ok := parseUUIDParam(w, r, "id")
			if !ok {
				return
			}
			var body struct {
				Action      string     `json:"action"`
				WinnerID    *uuid.UUID `json:"winnerId"`
				Slot        int        `json:"slot"`
				NewPlayerID *uuid.UUID `json:"newPlayerId"`
				Score1      *int       `json:"score1"`
				Score2      *int       `json:"score2"`
			}
			if !httputil.DecodeJSON(w, r, &body) {
				return
			}

			actor := middleware.GetAuthenticatedUser(r.Context())
			progression := newProgressionService()

			switch body.Action {
			case "setWinner":
				if body.WinnerID == nil {
					httputil.BadRequest(w, "winnerId is required for setWinner", nil)
					return
				}
				m, err := progression.RecordResult(r.Context(), actor, bracketMatchID, *body.WinnerID, body.Score1, body.Score2)
				if err != nil {
					httputil.ServiceError(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, m)
			case "replacePlayer":
				m, err := progression.ReplacePlayer(r.Context(), actor, bracketMatchID, body.Slot, body.NewPlayerID)
				if err != nil {
					httputil.ServiceError(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, m)
			case "removePlayer":
				m, err := progression.RemovePlayer(r.Context(), actor, bracketMatchID, body.Slot)
				if err != nil {
					httputil.ServiceError(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, m)
			case "reset":
				m, err := progression.Reset(r.Context(), actor, bracketMatchID)
				if err != nil {
					httputil.ServiceError(w, err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, m)
			default:
				httputil.BadRequest(w, "Unknown admin action", nil)
			}
		})
	})

	return r
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func newUserService() *service.UserService {
	dbConn := db.GetDB()
	return service.NewUserService(dbConn, store.NewUserStore(dbConn), store.NewMatchStore(dbConn))
}

func newMatchService() *service.MatchService {
	dbConn := db.GetDB()
	return service.NewMatchService(dbConn, store.NewUserStore(dbConn), store.NewMatchStore(dbConn), newProgressionService())
}

func newTournamentService() *service.TournamentService {
	dbConn := db.GetDB()
	return service.NewTournamentService(dbConn, store.NewTournamentStore(dbConn))
}

func newBracketService() *service.BracketService {
	dbConn := db.GetDB()
	return service.NewBracketService(dbConn, store.NewUserStore(dbConn), store.NewTournamentStore(dbConn))
}

func newProgressionService() *service.ProgressionService {
	dbConn := db.GetDB()
	return service.NewProgressionService(dbConn, store.NewMatchStore(dbConn), store.NewTournamentStore(dbConn))
}
