package emotion

import "regexp"

// Emotion is the primary label detected in a user message.
type Emotion string

const (
	Happy      Emotion = "happy"
	Sad        Emotion = "sad"
	Angry      Emotion = "angry"
	Excited    Emotion = "excited"
	Anxious    Emotion = "anxious"
	Curious    Emotion = "curious"
	Frustrated Emotion = "frustrated"
	Neutral    Emotion = "neutral"
)

// Mood is the avatar mood suggested to the client.
type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodThinking  Mood = "thinking"
	MoodExcited   Mood = "excited"
	MoodCalm      Mood = "calm"
	MoodSurprised Mood = "surprised"
)

// Result is the outcome of classifying one message. It is never persisted
// beyond the user's lastMood field.
type Result struct {
	PrimaryEmotion Emotion `json:"primaryEmotion"`
	Confidence     float64 `json:"confidence"`
	SuggestedMood  Mood    `json:"suggestedMood"`
	ToneAdjustment string  `json:"toneAdjustment"`
}

// Keyword patterns per emotion, bilingual (EN/ES) plus punctuation
// heuristics. Scoring counts every match of every pattern.
var emotionPatterns = map[Emotion][]*regexp.Regexp{
	Happy: {
		regexp.MustCompile(`(?i)\b(happy|glad|great|awesome|amazing|wonderful|love|excited|fantastic|brilliant|excellent|perfect|incredible)\b`),
		regexp.MustCompile(`(?i)\b(thank|thanks|gracias|genial|increible|maravilloso|excelente)\b`),
		regexp.MustCompile(`(?i)\b(joy|joyful|delighted|pleased|cheerful|content|satisfied)\b`),
	},
	Sad: {
		regexp.MustCompile(`(?i)\b(sad|upset|depressed|down|crying|disappointed|unhappy|miserable|heartbroken|devastated)\b`),
		regexp.MustCompile(`(?i)\b(triste|mal|llorar|desanimado|deprimido)\b`),
		regexp.MustCompile(`(?i)\b(hopeless|despair|grief|sorrow|melancholy|gloomy)\b`),
	},
	Angry: {
		regexp.MustCompile(`(?i)\b(angry|mad|furious|annoyed|irritated|hate|enraged|outraged|livid)\b`),
		regexp.MustCompile(`(?i)\b(enfadado|molesto|odio|furioso|rabioso)\b`),
		regexp.MustCompile(`(?i)\b(disgusted|fed up|sick of|tired of)\b`),
	},
	Excited: {
		regexp.MustCompile(`(?i)\b(excited|thrilled|can't wait|pumped|stoked|eager|anticipating|hyped)\b`),
		regexp.MustCompile(`(?i)\b(emocionado|entusiasmado|ansioso|ilusionado)\b`),
		regexp.MustCompile(`!{2,}`), // multiple exclamation marks signal excitement
	},
	Anxious: {
		regexp.MustCompile(`(?i)\b(worried|anxious|nervous|stressed|scared|afraid|concerned|overwhelmed|panicking)\b`),
		regexp.MustCompile(`(?i)\b(preocupado|nervioso|estresado|asustado|agobiado)\b`),
		regexp.MustCompile(`(?i)\b(terrified|frightened|uneasy|restless|tense)\b`),
	},
	Curious: {
		regexp.MustCompile(`(?i)\b(curious|wondering|interested|want to know|how|why|what|explain)\b`),
		regexp.MustCompile(`(?i)\b(curioso|interesado|pregunto|como|porque|que)\b`),
		regexp.MustCompile(`\?{1,}`), // questions signal curiosity
	},
	Frustrated: {
		regexp.MustCompile(`(?i)\b(stuck|confused|don't understand|help|struggling|difficult|hard|impossible|lost)\b`),
		regexp.MustCompile(`(?i)\b(no entiendo|dificil|atascado|confundido|perdido)\b`),
		regexp.MustCompile(`(?i)\b(complicated|overwhelming|giving up|hopeless|broken)\b`),
	},
	Neutral: {},
}

var emotionToMood = map[Emotion]Mood{
	Happy:      MoodHappy,
	Sad:        MoodCalm,
	Angry:      MoodCalm,
	Excited:    MoodExcited,
	Anxious:    MoodThinking,
	Curious:    MoodThinking,
	Frustrated: MoodThinking,
	Neutral:    MoodHappy,
}

var emotionToneAdjustments = map[Emotion]string{
	Happy:      "Match the user's positive energy. Be enthusiastic and celebratory.",
	Sad:        "Be extra gentle, supportive, and empathetic. Offer comfort and understanding.",
	Angry:      "Stay calm and patient. Acknowledge their frustration and help find solutions.",
	Excited:    "Share their excitement! Use energetic language and encourage their enthusiasm.",
	Anxious:    "Be reassuring and calm. Break things down into manageable steps. Offer support.",
	Curious:    "Engage their curiosity with interesting details and encourage exploration.",
	Frustrated: "Be patient and helpful. Offer clear, step-by-step guidance. Validate their struggle.",
	Neutral:    "Be friendly and engaging. Look for opportunities to add value to the conversation.",
}

// Detect classifies the given text. Pure and deterministic: the category with
// the strictly highest summed match count wins, ties and all-zero scores fall
// back to neutral, and confidence is the winner's share of the total score.
func Detect(text string) Result {
	scores := make(map[Emotion]int, len(emotionPatterns))

	for emo, patterns := range emotionPatterns {
		for _, pattern := range patterns {
			scores[emo] += len(pattern.FindAllStringIndex(text, -1))
		}
	}

	primary := Neutral
	maxScore := 0
	winners := 0
	total := 0
	for _, emo := range []Emotion{Happy, Sad, Angry, Excited, Anxious, Curious, Frustrated} {
		score := scores[emo]
		total += score
		switch {
		case score > maxScore:
			maxScore = score
			primary = emo
			winners = 1
		case score == maxScore && score > 0:
			winners++
		}
	}

	// Only a strictly highest score wins; ties fall back to neutral.
	confidence := 0.0
	if winners == 1 && total > 0 {
		confidence = float64(maxScore) / float64(total)
	} else {
		primary = Neutral
	}

	return Result{
		PrimaryEmotion: primary,
		Confidence:     confidence,
		SuggestedMood:  emotionToMood[primary],
		ToneAdjustment: emotionToneAdjustments[primary],
	}
}
