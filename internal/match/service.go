package match

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes the match HTTP API:
//
//	POST /api/matches                      create
//	GET  /api/matches?status=live          list
//	GET  /api/matches/{id}                 snapshot
//	POST /api/matches/{id}/start           control
//	POST /api/matches/{id}/pause           control
//	POST /api/matches/{id}/resume          control
type Service struct {
	app *App
}

// NewService creates a new match HTTP service
func NewService(app *App) *Service {
	return &Service{
		app: app,
	}
}

// CreateMatchBody is the JSON body for match creation
type CreateMatchBody struct {
	HomeTeamID   string               `json:"home_team_id"`
	AwayTeamID   string               `json:"away_team_id"`
	HomeTeamName string               `json:"home_team_name"`
	AwayTeamName string               `json:"away_team_name"`
	Settings     models.MatchSettings `json:"settings"`
	ScheduledAt  *time.Time           `json:"scheduled_at,omitempty"`
}

// RegisterRoutes registers the match HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/matches", s.handleCollection)
	mux.HandleFunc("/api/matches/", s.handleMatch)
	log.Info().Msg("match routes registered")
}

func (s *Service) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateMatch(w, r)
	case http.MethodGet:
		s.handleListMatches(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMatch dispatches /api/matches/{id} and /api/matches/{id}/{action}
func (s *Service) handleMatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/matches/")
	parts := strings.Split(rest, "/")

	matchID, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "Invalid match ID format", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleGetSnapshot(w, r, matchID)
	case len(parts) == 2:
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleControl(w, r, matchID, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var body CreateMatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	homeID, err := uuid.Parse(body.HomeTeamID)
	if err != nil {
		http.Error(w, "Invalid home_team_id", http.StatusBadRequest)
		return
	}
	awayID, err := uuid.Parse(body.AwayTeamID)
	if err != nil {
		http.Error(w, "Invalid away_team_id", http.StatusBadRequest)
		return
	}

	m, err := s.app.CreateMatch(r.Context(), CreateMatchRequest{
		ID:           uuid.New(),
		HomeTeamID:   homeID,
		AwayTeamID:   awayID,
		HomeTeamName: body.HomeTeamName,
		AwayTeamName: body.AwayTeamName,
		Settings:     body.Settings,
		ScheduledAt:  body.ScheduledAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create match")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (s *Service) handleListMatches(w http.ResponseWriter, r *http.Request) {
	status := models.MatchStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.MatchStatusLive
	}

	matches, err := s.app.ListMatchesByStatus(r.Context(), status, 50)
	if err != nil {
		log.Error().Err(err).Msg("failed to list matches")
		http.Error(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}

	writeJSON(w, http.StatusOK, matches)
}

func (s *Service) handleGetSnapshot(w http.ResponseWriter, r *http.Request, matchID uuid.UUID) {
	snap, err := s.app.GetSnapshot(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to get match snapshot")
		http.Error(w, "Failed to get match", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) handleControl(w http.ResponseWriter, r *http.Request, matchID uuid.UUID, action string) {
	var (
		m   *models.Match
		err error
	)

	switch action {
	case "start":
		m, err = s.app.StartMatch(r.Context(), matchID)
	case "pause":
		m, err = s.app.PauseMatch(r.Context(), matchID, "Manual pause")
	case "resume":
		m, err = s.app.ResumeMatch(r.Context(), matchID)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Match not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Error().Err(err).
				Str("match_id", matchID.String()).
				Str("action", action).
				Msg("control action failed")
			http.Error(w, "Control action failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
