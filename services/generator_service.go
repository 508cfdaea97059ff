package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"skillSnapAPI/internal/types/challenge"
	"skillSnapAPI/middleware"
)

// ChallengeDays is the fixed length of a skill's plan.
const ChallengeDays = 7

// TextGenerator is the outbound text-generation call. The concrete
// Gemini implementation lives in internal/gemini.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type GeneratorService struct {
	llm TextGenerator
}

// NewGeneratorService creates the challenge generator. llm may be nil,
// in which case every request is served from the fallback table.
func NewGeneratorService(llm TextGenerator) *GeneratorService {
	return &GeneratorService{llm: llm}
}

const challengePrompt = `Generate exactly 7 daily micro-challenges for learning "%s".
Each challenge should take 5-10 minutes to complete.
Return the response in this exact JSON format:
{
  "challenges": [
    {"day": 1, "challenge": "Learn 5 basic greetings"},
    {"day": 2, "challenge": "Practice numbers 1-20"},
    {"day": 3, "challenge": "Record yourself introducing in the language"},
    {"day": 4, "challenge": "Learn 10 common verbs"},
    {"day": 5, "challenge": "Write 5 simple sentences"},
    {"day": 6, "challenge": "Have a 2-minute conversation with yourself"},
    {"day": 7, "challenge": "Review and practice all learned words"}
  ]
}

Make the challenges progressive, engaging, and specific to "%s".`

// Generate returns exactly 7 ordered (day, text) pairs for the skill.
// It never fails: any transport or parse problem resolves to the static
// fallback table, which covers every skill name.
func (s *GeneratorService) Generate(ctx context.Context, skillName string) []challenge.DailyChallenge {
	if s.llm == nil {
		middleware.ChallengeGenerations.WithLabelValues("fallback").Inc()
		return FallbackChallenges(skillName)
	}

	prompt := fmt.Sprintf(challengePrompt, skillName, skillName)

	content, err := s.llm.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("Generator: model call failed for skill %q, using fallback: %v", skillName, err)
		middleware.ChallengeGenerations.WithLabelValues("fallback").Inc()
		return FallbackChallenges(skillName)
	}

	challenges, err := parseChallengeJSON(content)
	if err != nil {
		log.Printf("Generator: unusable model response for skill %q, using fallback: %v", skillName, err)
		middleware.ChallengeGenerations.WithLabelValues("fallback").Inc()
		return FallbackChallenges(skillName)
	}

	middleware.ChallengeGenerations.WithLabelValues("model").Inc()
	return challenges
}

// parseChallengeJSON extracts the challenges array from the model's text
// payload. The model tends to wrap JSON in markdown code fences, so those
// are stripped first. A list that is not exactly days 1..7 with non-empty
// text counts as a parse failure.
func parseChallengeJSON(content string) ([]challenge.DailyChallenge, error) {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var payload struct {
		Challenges []challenge.DailyChallenge `json:"challenges"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	if len(payload.Challenges) != ChallengeDays {
		return nil, fmt.Errorf("expected %d challenges, got %d", ChallengeDays, len(payload.Challenges))
	}
	for i, c := range payload.Challenges {
		if c.Day != i+1 {
			return nil, fmt.Errorf("challenge %d has day %d, expected %d", i, c.Day, i+1)
		}
		if strings.TrimSpace(c.Challenge) == "" {
			return nil, fmt.Errorf("challenge for day %d has empty text", c.Day)
		}
	}

	return payload.Challenges, nil
}

// FallbackChallenges returns the hand-authored plan for known skills,
// matched case-insensitively, or a generic 7-day template with the skill
// name interpolated. It is a total function over skill names.
func FallbackChallenges(skillName string) []challenge.DailyChallenge {
	switch strings.ToLower(skillName) {
	case "spanish":
		return []challenge.DailyChallenge{
			{Day: 1, Challenge: "Learn 5 basic Spanish greetings: Hola, Buenos días, Buenas tardes, Buenas noches, Adiós"},
			{Day: 2, Challenge: "Practice Spanish numbers 1-20 and use them in sentences"},
			{Day: 3, Challenge: "Record yourself introducing in Spanish: 'Me llamo... Tengo... años'"},
			{Day: 4, Challenge: "Learn 10 common Spanish verbs: ser, estar, tener, hacer, ir, venir, decir, poder, querer, saber"},
			{Day: 5, Challenge: "Write 5 simple sentences in Spanish about your daily routine"},
			{Day: 6, Challenge: "Have a 2-minute conversation with yourself in Spanish about your hobbies"},
			{Day: 7, Challenge: "Review all learned Spanish words and create flashcards for practice"},
		}
	case "pushups":
		return []challenge.DailyChallenge{
			{Day: 1, Challenge: "Do 5 wall push-ups to learn proper form and build initial strength"},
			{Day: 2, Challenge: "Perform 3 knee push-ups focusing on controlled movement"},
			{Day: 3, Challenge: "Attempt 1 full push-up, or hold plank position for 30 seconds"},
			{Day: 4, Challenge: "Do 5 incline push-ups using a chair or bench"},
			{Day: 5, Challenge: "Perform 2-3 full push-ups or 5 knee push-ups"},
			{Day: 6, Challenge: "Complete 5 full push-ups or 8 knee push-ups"},
			{Day: 7, Challenge: "Challenge: Do 10 push-ups (any variation) and celebrate your progress!"},
		}
	case "journaling":
		return []challenge.DailyChallenge{
			{Day: 1, Challenge: "Write 3 things you're grateful for today"},
			{Day: 2, Challenge: "Describe your perfect day in 5 sentences"},
			{Day: 3, Challenge: "Write about a challenge you overcame recently"},
			{Day: 4, Challenge: "List 5 goals you want to achieve this month"},
			{Day: 5, Challenge: "Reflect on a lesson you learned this week"},
			{Day: 6, Challenge: "Write a letter to your future self"},
			{Day: 7, Challenge: "Review your week's entries and note patterns or insights"},
		}
	default:
		return []challenge.DailyChallenge{
			{Day: 1, Challenge: fmt.Sprintf("Research the basics of %s for 10 minutes", skillName)},
			{Day: 2, Challenge: fmt.Sprintf("Practice the fundamental technique of %s", skillName)},
			{Day: 3, Challenge: fmt.Sprintf("Find and try a beginner tutorial for %s", skillName)},
			{Day: 4, Challenge: fmt.Sprintf("Practice %s for 15 minutes with focus", skillName)},
			{Day: 5, Challenge: fmt.Sprintf("Teach someone else what you've learned about %s", skillName)},
			{Day: 6, Challenge: fmt.Sprintf("Challenge yourself with a slightly harder %s exercise", skillName)},
			{Day: 7, Challenge: fmt.Sprintf("Reflect on your %s progress and plan next steps", skillName)},
		}
	}
}
