package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"skillSnapAPI/internal/types/settings"
	"skillSnapAPI/services"
	"skillSnapAPI/utils"
)

// DeviceHandler covers device registration (which issues the JWT the app
// uses from then on) and push token upkeep.
type DeviceHandler struct {
	settingsService *services.SettingsService
	pushProvider    services.PushProvider
}

func NewDeviceHandler(settingsService *services.SettingsService, pushProvider services.PushProvider) *DeviceHandler {
	return &DeviceHandler{
		settingsService: settingsService,
		pushProvider:    pushProvider,
	}
}

func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req settings.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DeviceID == "" {
		respondWithError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	user, err := h.settingsService.RegisterDevice(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	token, err := utils.GenerateDeviceToken(user.ID.String())
	if err != nil {
		log.Printf("RegisterDevice: failed to issue token: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondWithJSON(w, http.StatusOK, settings.RegisterDeviceResponse{
		Token: token,
		User:  user,
	})
}

func (h *DeviceHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	var req settings.UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PushToken == "" {
		respondWithError(w, http.StatusBadRequest, "push_token is required")
		return
	}

	if err := h.settingsService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		if err == services.ErrUserNotFound {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update push token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Push token updated"})
}

// SendTestNotification pushes a throwaway notification to the caller's
// device so the client can verify its token end to end.
func (h *DeviceHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	if h.pushProvider == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Push delivery is not configured")
		return
	}

	user, err := h.settingsService.GetByID(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.PushToken == "" {
		respondWithError(w, http.StatusBadRequest, "No push token registered for this device")
		return
	}

	err = h.pushProvider.SendPush(ctx, user.PushToken, "SkillSnap", "Test notification", map[string]string{"type": "test"})
	if err != nil {
		log.Printf("SendTestNotification: push failed for user %s: %v", userID, err)
		respondWithError(w, http.StatusBadGateway, "Push delivery failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Test notification sent"})
}
