package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"skillSnapAPI/internal/types/settings"
	"skillSnapAPI/middleware"
	"skillSnapAPI/services"
)

// UserHandler exposes the settings row: profile, notification hour,
// onboarding flag, difficulty, and the progress counters.
type UserHandler struct {
	settingsService *services.SettingsService
	scheduler       *services.ReminderScheduler
}

func NewUserHandler(settingsService *services.SettingsService, scheduler *services.ReminderScheduler) *UserHandler {
	return &UserHandler{
		settingsService: settingsService,
		scheduler:       scheduler,
	}
}

func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	user, err := h.settingsService.GetByID(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	var req settings.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.settingsService.UpdateSettings(ctx, userID, &req)
	if err != nil {
		if err == services.ErrUserNotFound {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A new notification hour takes effect immediately.
	if req.NotificationHour != nil && h.scheduler != nil {
		h.scheduler.ScheduleDaily(user.ID, user.NotificationHour)
	}

	respondWithJSON(w, http.StatusOK, user)
}

// DeleteAccount wipes the settings row and every challenge. This backs
// the app's "clear all data" action.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	if err := h.settingsService.DeleteUser(ctx, userID); err != nil {
		if err == services.ErrUserNotFound {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	if h.scheduler != nil {
		h.scheduler.CancelDaily(userID)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// Helper functions

// authenticatedUserID pulls the user id the auth middleware stored in the
// context and writes the 401 itself when it is missing or malformed.
func authenticatedUserID(ctx context.Context, w http.ResponseWriter) (uuid.UUID, bool) {
	raw, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid user id in token")
		return uuid.Nil, false
	}
	return userID, true
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
