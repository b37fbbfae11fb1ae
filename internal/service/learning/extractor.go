package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/model/profile"
)

// Completer is the single LLM call the extractor needs. Satisfied by
// ai.Service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor mines finished chat turns for facts worth remembering about
// the user.
type Extractor struct {
	completer Completer
	log       *logger.Logger
}

func NewExtractor(completer Completer, log *logger.Logger) *Extractor {
	return &Extractor{completer: completer, log: log.With("service", "learning")}
}

const maxItemsPerExtraction = 3

const extractionPromptTemplate = `Analyze this conversation exchange and extract any new information worth remembering about the user for future conversations.

USER MESSAGE: %q

ASSISTANT RESPONSE: %q

EXISTING CONTEXT ABOUT USER: %s

Extract ONLY new, specific, and useful information. Return a JSON object with:
- topics: Array of topics the user is interested in or discussed
- preferences: Array of preferences the user mentioned (communication style, likes/dislikes)
- facts: Array of facts about the user (job, location, expertise, etc.)
- interests: Array of hobbies, interests, or passions mentioned

Rules:
- Only include NEW information not already in existing context
- Be specific and concise
- If no new information is found, return empty arrays
- Maximum 3 items per category
- Each item should be a short phrase (max 10 words)

Return ONLY valid JSON, no other text.`

// jsonObjectPattern grabs the outermost braces so models that wrap the
// JSON in prose or code fences still parse.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Extract asks the model what the exchange revealed about the user. A nil
// result with nil error means nothing new was learned or the reply was
// unusable; extraction is best-effort and never fails the chat turn.
func (e *Extractor) Extract(ctx context.Context, userMessage, assistantResponse, existingContext string) (*profile.Learned, error) {
	if existingContext == "" {
		existingContext = "None yet"
	}
	prompt := fmt.Sprintf(extractionPromptTemplate, userMessage, assistantResponse, existingContext)

	reply, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}

	learned := ParseLearnings(reply)
	if learned == nil || learned.IsEmpty() {
		return nil, nil
	}
	return learned, nil
}

// ParseLearnings pulls the JSON object out of a model reply and sanitizes
// it: blank entries dropped, each category capped at three items. Returns
// nil when no JSON object can be parsed.
func ParseLearnings(reply string) *profile.Learned {
	match := jsonObjectPattern.FindString(strings.TrimSpace(reply))
	if match == "" {
		return nil
	}

	var parsed profile.Learned
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil
	}

	return &profile.Learned{
		Topics:      sanitizeCategory(parsed.Topics),
		Preferences: sanitizeCategory(parsed.Preferences),
		Facts:       sanitizeCategory(parsed.Facts),
		Interests:   sanitizeCategory(parsed.Interests),
	}
}

func sanitizeCategory(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxItemsPerExtraction {
			break
		}
	}
	return out
}
