package ai

import (
	"fmt"
	"math"
	"strings"

	"github.com/josecalvo/rubi/backend/internal/analysis/emotion"
	"github.com/josecalvo/rubi/backend/internal/model/profile"
)

// ComposeContextPrompt builds the personalization block appended to the base
// persona: response mode, communication style, detected emotion (skipped for
// neutral), learned user background, and favorite topics, in that fixed
// order. Missing optional inputs simply omit their block.
func ComposeContextPrompt(
	responseMode string,
	communicationStyle string,
	detected emotion.Result,
	userContext string,
	favoriteTopics []string,
) string {
	var b strings.Builder
	b.WriteString("\n\n--- USER CONTEXT & PREFERENCES ---\n")

	switch responseMode {
	case profile.ModeExpert:
		b.WriteString("\nRESPONSE MODE: Expert\n- Use technical terminology when appropriate\n- Provide detailed, comprehensive explanations\n- Include relevant technical details and nuances\n- Be precise and thorough")
	case profile.ModeCasual:
		b.WriteString("\nRESPONSE MODE: Casual\n- Keep explanations simple and accessible\n- Use everyday language, avoid jargon\n- Be brief and to the point\n- Focus on practical takeaways")
	default:
		b.WriteString("\nRESPONSE MODE: Balanced\n- Adapt complexity based on the question\n- Use clear language with technical terms only when needed\n- Balance thoroughness with accessibility")
	}

	switch communicationStyle {
	case profile.StyleFormal:
		b.WriteString("\n\nCOMMUNICATION STYLE: Formal\n- Use professional, polished language\n- Be respectful and measured\n- Avoid slang and casual expressions")
	case profile.StylePlayful:
		b.WriteString("\n\nCOMMUNICATION STYLE: Playful\n- Add humor and wit where appropriate\n- Use playful language and expressions\n- Keep the mood light and fun")
	default:
		b.WriteString("\n\nCOMMUNICATION STYLE: Friendly\n- Be warm and approachable\n- Use conversational language\n- Balance professionalism with warmth")
	}

	if detected.PrimaryEmotion != emotion.Neutral {
		fmt.Fprintf(&b, "\n\nDETECTED EMOTION: %s (confidence: %d%%)\n%s",
			detected.PrimaryEmotion, int(math.Round(detected.Confidence*100)), detected.ToneAdjustment)
	}

	if userContext != "" {
		b.WriteString("\n\nUSER BACKGROUND:\n")
		b.WriteString(userContext)
	}

	if len(favoriteTopics) > 0 {
		fmt.Fprintf(&b, "\n\nUSER'S FAVORITE TOPICS: %s\n- Reference these interests when relevant\n- Look for connections to topics they enjoy",
			strings.Join(favoriteTopics, ", "))
	}

	b.WriteString("\n--- END USER CONTEXT ---\n")
	return b.String()
}
