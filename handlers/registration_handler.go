package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dorofeev01/matchday-system/middleware"
	"github.com/Dorofeev01/matchday-system/models"
	"github.com/Dorofeev01/matchday-system/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(rs *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// RegisterHandler handles POST /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID int `json:"team_id" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if verrs := validateStruct(input); verrs != nil {
		failedValidationResponse(w, r, verrs)
		return
	}

	registration, err := h.registrationService.Register(r.Context(), tournamentID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.RegistrationStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		s := models.RegistrationStatus(statusStr)
		switch s {
		case models.RegistrationPending, models.RegistrationApproved,
			models.RegistrationRejected, models.RegistrationWithdrawn:
			status = &s
		default:
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
	}

	registrations, err := h.registrationService.List(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveHandler handles POST /tournaments/{tournamentID}/registrations/{teamID}/approve
func (h *RegistrationHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.Approve)
}

// RejectHandler handles POST /tournaments/{tournamentID}/registrations/{teamID}/reject
func (h *RegistrationHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.Reject)
}

// WithdrawHandler handles POST /tournaments/{tournamentID}/registrations/{teamID}/withdraw
func (h *RegistrationHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrationService.Withdraw)
}

func (h *RegistrationHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, tournamentID, teamID, actingUserID int) (*models.TeamRegistration, error),
) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	registration, err := op(r.Context(), tournamentID, teamID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
