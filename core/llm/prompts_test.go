package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt_SupportedLanguages(t *testing.T) {
	for _, lang := range []string{"en", "ar", "es", "it", "sv"} {
		assert.NotEmpty(t, SystemPrompt(lang), "language %s", lang)
	}
	assert.NotEqual(t, SystemPrompt("en"), SystemPrompt("es"))
}

func TestSystemPrompt_UnknownFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, SystemPrompt("en"), SystemPrompt("de"))
	assert.Equal(t, SystemPrompt("en"), SystemPrompt(""))
}

func TestAnswerPrompt(t *testing.T) {
	prompt := AnswerPrompt("what is go", "go is a language")
	assert.Contains(t, prompt, "what is go")
	assert.Contains(t, prompt, "Transcript:\ngo is a language")
}

func TestSummaryPrompt_Lengths(t *testing.T) {
	short := SummaryPrompt("content", "short")
	long := SummaryPrompt("content", "long")
	assert.NotEqual(t, short, long)
	assert.Contains(t, short, "content")

	// Unknown lengths read as medium.
	assert.Equal(t, SummaryPrompt("content", "medium"), SummaryPrompt("content", "gigantic"))
}
