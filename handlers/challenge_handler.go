package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"skillSnapAPI/internal/types/challenge"
	"skillSnapAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

// GenerateChallenges builds a fresh 7-day plan for the requested skill.
// The generation call can sit on the network for a while, hence the
// longer timeout; the client shows a loading state meanwhile.
func (h *ChallengeHandler) GenerateChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	var req challenge.GenerateChallengesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SkillName == "" {
		respondWithError(w, http.StatusBadRequest, "skill_name is required")
		return
	}

	challenges, err := h.challengeService.GenerateChallenges(ctx, userID, req.SkillName)
	if err != nil {
		log.Printf("GenerateChallenges: failed for user %s skill %q: %v", userID, req.SkillName, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate challenges. Please try again.")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"challenges": challenges})
}

func (h *ChallengeHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	skillName := r.URL.Query().Get("skill")
	if skillName == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'skill' is required")
		return
	}

	challenges, err := h.challengeService.GetChallengesForSkill(ctx, userID, skillName)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"challenges": challenges})
}

func (h *ChallengeHandler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	challengeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	result, err := h.challengeService.MarkComplete(ctx, userID, challengeID)
	if err != nil {
		if err == services.ErrChallengeNotFound {
			respondWithError(w, http.StatusNotFound, "Challenge not found")
			return
		}
		log.Printf("MarkComplete: failed for user %s challenge %s: %v", userID, challengeID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to mark challenge complete")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ChallengeHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	skillName := r.URL.Query().Get("skill")
	if skillName == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'skill' is required")
		return
	}

	completed, total, err := h.challengeService.GetProgress(ctx, userID, skillName)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.SkillProgress{
		SkillName:   skillName,
		Completed:   completed,
		Total:       total,
		IsCompleted: completed == total && total > 0,
	})
}

func (h *ChallengeHandler) SetActiveSkill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	var req challenge.SetActiveSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SkillName == "" {
		respondWithError(w, http.StatusBadRequest, "skill_name is required")
		return
	}

	progress, err := h.challengeService.SetActiveSkill(ctx, userID, req.SkillName)
	if err != nil {
		if err == services.ErrUserNotFound {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}

// GetNextChallenge returns the lowest-day incomplete challenge across all
// skills, the same lookup the daily reminder makes.
func (h *ChallengeHandler) GetNextChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := authenticatedUserID(ctx, w)
	if !ok {
		return
	}

	next, err := h.challengeService.GetNextIncompleteChallenge(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load next challenge")
		return
	}
	if next == nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"challenge": nil})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"challenge": next})
}
