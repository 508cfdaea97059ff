package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

const validResponse = `{
  "challenges": [
    {"day": 1, "challenge": "Learn the guitar parts and how to hold it"},
    {"day": 2, "challenge": "Practice fretting the E minor chord"},
    {"day": 3, "challenge": "Strum a steady 4/4 rhythm for 5 minutes"},
    {"day": 4, "challenge": "Learn the G major chord and switch from E minor"},
    {"day": 5, "challenge": "Play a two-chord progression along to a song"},
    {"day": 6, "challenge": "Learn the C major chord and practice all three"},
    {"day": 7, "challenge": "Play a simple three-chord song start to finish"}
  ]
}`

func TestGenerateUsesModelResponse(t *testing.T) {
	svc := NewGeneratorService(&fakeLLM{text: validResponse})

	challenges := svc.Generate(context.Background(), "Guitar")

	require.Len(t, challenges, ChallengeDays)
	for i, c := range challenges {
		assert.Equal(t, i+1, c.Day)
		assert.NotEmpty(t, c.Challenge)
	}
	assert.Equal(t, "Learn the guitar parts and how to hold it", challenges[0].Challenge)
}

func TestGenerateStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	svc := NewGeneratorService(&fakeLLM{text: fenced})

	challenges := svc.Generate(context.Background(), "Guitar")

	require.Len(t, challenges, ChallengeDays)
	assert.Equal(t, "Learn the guitar parts and how to hold it", challenges[0].Challenge)
}

func TestGenerateFallsBackOnTransportError(t *testing.T) {
	svc := NewGeneratorService(&fakeLLM{err: errors.New("connection refused")})

	challenges := svc.Generate(context.Background(), "Spanish")

	require.Len(t, challenges, ChallengeDays)
	assert.True(t, strings.HasPrefix(challenges[0].Challenge, "Learn 5 basic Spanish greetings"))
}

func TestGenerateFallsBackOnInvalidJSON(t *testing.T) {
	svc := NewGeneratorService(&fakeLLM{text: "Sure! Here are your challenges: day one..."})

	challenges := svc.Generate(context.Background(), "Spanish")

	require.Len(t, challenges, ChallengeDays)
	assert.True(t, strings.HasPrefix(challenges[0].Challenge, "Learn 5 basic Spanish greetings"))
}

func TestGenerateFallsBackOnWrongCount(t *testing.T) {
	short := `{"challenges": [{"day": 1, "challenge": "Only one"}]}`
	svc := NewGeneratorService(&fakeLLM{text: short})

	challenges := svc.Generate(context.Background(), "Chess")

	require.Len(t, challenges, ChallengeDays)
	for _, c := range challenges {
		assert.Contains(t, c.Challenge, "Chess")
	}
}

func TestGenerateFallsBackOnOutOfOrderDays(t *testing.T) {
	shuffled := strings.Replace(validResponse, `"day": 2`, `"day": 5`, 1)
	svc := NewGeneratorService(&fakeLLM{text: shuffled})

	challenges := svc.Generate(context.Background(), "Chess")

	for _, c := range challenges {
		assert.Contains(t, c.Challenge, "Chess")
	}
}

func TestGenerateWithoutModelUsesFallback(t *testing.T) {
	svc := NewGeneratorService(nil)

	challenges := svc.Generate(context.Background(), "whittling")

	require.Len(t, challenges, ChallengeDays)
	for _, c := range challenges {
		assert.Contains(t, c.Challenge, "whittling")
	}
}

func TestFallbackTableIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"spanish", "Spanish", "SPANISH"} {
		challenges := FallbackChallenges(name)
		require.Len(t, challenges, ChallengeDays)
		assert.True(t, strings.HasPrefix(challenges[0].Challenge, "Learn 5 basic Spanish greetings"),
			"skill name %q should hit the Spanish table", name)
	}
}

func TestFallbackKnownSkills(t *testing.T) {
	pushups := FallbackChallenges("pushups")
	require.Len(t, pushups, ChallengeDays)
	assert.Equal(t, "Do 5 wall push-ups to learn proper form and build initial strength", pushups[0].Challenge)

	journaling := FallbackChallenges("Journaling")
	require.Len(t, journaling, ChallengeDays)
	assert.Equal(t, "Write 3 things you're grateful for today", journaling[0].Challenge)
}

func TestFallbackGenericInterpolatesSkillName(t *testing.T) {
	challenges := FallbackChallenges("beatboxing")

	require.Len(t, challenges, ChallengeDays)
	for i, c := range challenges {
		assert.Equal(t, i+1, c.Day)
		assert.Contains(t, c.Challenge, "beatboxing", "day %d should mention the skill", c.Day)
	}
}

func TestParseChallengeJSONRejectsEmptyText(t *testing.T) {
	blank := strings.Replace(validResponse, "Practice fretting the E minor chord", "  ", 1)

	_, err := parseChallengeJSON(blank)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text")
}

func TestPromptMentionsSkillAndFormat(t *testing.T) {
	prompt := fmt.Sprintf(challengePrompt, "Spanish", "Spanish")

	assert.Contains(t, prompt, `"Spanish"`)
	assert.Contains(t, prompt, "exactly 7 daily micro-challenges")
	assert.Contains(t, prompt, `"challenges"`)
}
