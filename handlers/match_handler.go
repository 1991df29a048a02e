package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dorofeev01/matchday-system/middleware"
	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/repositories"
	"github.com/Dorofeev01/matchday-system/services"
)

type MatchHandler struct {
	fixtureService *services.FixtureService
	resultService  *services.ResultService
}

func NewMatchHandler(fs *services.FixtureService, rs *services.ResultService) *MatchHandler {
	return &MatchHandler{
		fixtureService: fs,
		resultService:  rs,
	}
}

// GenerateFixturesHandler handles POST /tournaments/{tournamentID}/fixtures
func (h *MatchHandler) GenerateFixturesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	input := services.GenerateFixturesInput{DaysBetweenRounds: 1}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if verrs := validateStruct(input); verrs != nil {
		failedValidationResponse(w, r, verrs)
		return
	}

	matches, err := h.fixtureService.Generate(r.Context(), tournamentID, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMatchesHandler handles GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter repositories.ListMatchesFilter
	query := r.URL.Query()
	if roundStr := query.Get("round"); roundStr != "" {
		round, err := strconv.Atoi(roundStr)
		if err != nil || round <= 0 {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
		filter.Round = &round
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.MatchStatus(statusStr)
		filter.Status = &status
	}

	matches, err := h.resultService.ListMatches(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatchHandler handles GET /matches/{matchID}
func (h *MatchHandler) GetMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordResultHandler handles POST /matches/{matchID}/result
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if verrs := validateStruct(input); verrs != nil {
		failedValidationResponse(w, r, verrs)
		return
	}

	match, err := h.resultService.RecordResult(r.Context(), matchID, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /matches/{matchID}/start
func (h *MatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.resultService.StartMatch)
}

// PostponeHandler handles POST /matches/{matchID}/postpone
func (h *MatchHandler) PostponeHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.resultService.Postpone)
}

// CancelHandler handles POST /matches/{matchID}/cancel
func (h *MatchHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.resultService.CancelMatch)
}

// RescheduleHandler handles POST /matches/{matchID}/reschedule
func (h *MatchHandler) RescheduleHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input struct {
		ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if verrs := validateStruct(input); verrs != nil {
		failedValidationResponse(w, r, verrs)
		return
	}

	match, err := h.resultService.Reschedule(r.Context(), matchID, currentUserID, input.ScheduledDate)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEventsHandler handles GET /matches/{matchID}/events
func (h *MatchHandler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	events, err := h.resultService.ListEvents(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteEventHandler handles DELETE /matches/{matchID}/events/{eventID}
func (h *MatchHandler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.resultService.DeleteEvent(r.Context(), matchID, eventID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, matchID, actingUserID int) (*models.Match, error),
) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	match, err := op(r.Context(), matchID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) matchAndUser(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return 0, 0, false
	}
	return matchID, currentUserID, true
}
