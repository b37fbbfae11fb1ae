package games

import (
	"fmt"
	"math/rand"
	"strings"
)

// TriviaQuestion is one multiple-choice question; CorrectIndex is 0-based.
type TriviaQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Category     string   `json:"category"`
}

// Riddle allows repeated guesses; hints are revealed one per wrong answer.
type Riddle struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Hints    []string `json:"hints"`
}

/// WordGame is a scramble: the player must name the original word exactly.
type WordGame struct {
	Word      string `json:"word"`
	Scrambled string `json:"scrambled"`
	Hint      string `json:"hint"`
	Category  string `json:"category"`
}

var triviaQuestions = []TriviaQuestion{
	{Question: "What is the capital of Japan?", Options: []string{"Seoul", "Tokyo", "Beijing", "Bangkok"}, CorrectIndex: 1, Category: "Geography"},
	{Question: "Who painted the Mona Lisa?", Options: []string{"Van Gogh", "Picasso", "Leonardo da Vinci", "Michelangelo"}, CorrectIndex: 2, Category: "Art"},
	{Question: "What is the largest planet in our solar system?", Options: []string{"Saturn", "Jupiter", "Neptune", "Uranus"}, CorrectIndex: 1, Category: "Science"},
	{Question: "In what year did World War II end?", Options: []string{"1943", "1944", "1945", "1946"}, CorrectIndex: 2, Category: "History"},
	{Question: "What is the chemical symbol for gold?", Options: []string{"Go", "Gd", "Au", "Ag"}, CorrectIndex: 2, Category: "Science"},
	{Question: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Mercury"}, CorrectIndex: 1, Category: "Science"},
	{Question: "What is the smallest country in the world?", Options: []string{"Monaco", "Vatican City", "San Marino", "Liechtenstein"}, CorrectIndex: 1, Category: "Geography"},
	{Question: "Who wrote 'Romeo and Juliet'?", Options: []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"}, CorrectIndex: 1, Category: "Literature"},
	{Question: "What is the hardest natural substance on Earth?", Options: []string{"Gold", "Iron", "Diamond", "Platinum"}, CorrectIndex: 2, Category: "Science"},
	{Question: "Which ocean is the largest?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3, Category: "Geography"},
	{Question: "What year was the first iPhone released?", Options: []string{"2005", "2006", "2007", "2008"}, CorrectIndex: 2, Category: "Technology"},
	{Question: "What is the main ingredient in guacamole?", Options: []string{"Tomato", "Avocado", "Lime", "Onion"}, CorrectIndex: 1, Category: "Food"},
	{Question: "Who discovered penicillin?", Options: []string{"Marie Curie", "Louis Pasteur", "Alexander Fleming", "Isaac Newton"}, CorrectIndex: 2, Category: "Science"},
	{Question: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, CorrectIndex: 2, Category: "Geography"},
	{Question: "How many bones are in the adult human body?", Options: []string{"196", "206", "216", "226"}, CorrectIndex: 1, Category: "Science"},
}

var riddles = []Riddle{
	{Question: "I have hands but can't clap. What am I?", Answer: "clock", Hints: []string{"I hang on walls", "I tell time"}},
	{Question: "The more you take, the more you leave behind. What am I?", Answer: "footsteps", Hints: []string{"Walking creates me", "I'm on the ground"}},
	{Question: "I speak without a mouth and hear without ears. What am I?", Answer: "echo", Hints: []string{"You hear me in mountains", "I repeat what you say"}},
	{Question: "I have cities, but no houses. Mountains, but no trees. Water, but no fish. What am I?", Answer: "map", Hints: []string{"You can fold me", "I help you navigate"}},
	{Question: "What has keys but no locks?", Answer: "keyboard", Hints: []string{"You type on me", "I'm used with computers"}},
	{Question: "I'm tall when I'm young and short when I'm old. What am I?", Answer: "candle", Hints: []string{"I give light", "I'm made of wax"}},
	{Question: "What can travel around the world while staying in a corner?", Answer: "stamp", Hints: []string{"I go on mail", "I'm usually paper"}},
	{Question: "What has a head and a tail but no body?", Answer: "coin", Hints: []string{"I'm metal", "You flip me"}},
	{Question: "What gets wetter the more it dries?", Answer: "towel", Hints: []string{"It's in your bathroom", "You use it after a shower"}},
	{Question: "What has many teeth but can't bite?", Answer: "comb", Hints: []string{"It's for your hair", "It's usually plastic"}},
}

var wordGames = []WordGame{
	{Word: "COMPUTER", Scrambled: "OMUPRECT", Hint: "Electronic device", Category: "Technology"},
	{Word: "ELEPHANT", Scrambled: "TEPHANEL", Hint: "Large animal with trunk", Category: "Animals"},
	{Word: "RAINBOW", Scrambled: "WONIBAR", Hint: "Colorful arc in sky", Category: "Nature"},
	{Word: "MOUNTAIN", Scrambled: "NIATOMUN", Hint: "Very tall landform", Category: "Geography"},
	{Word: "GUITAR", Scrambled: "RATIGU", Hint: "String instrument", Category: "Music"},
	{Word: "CHOCOLATE", Scrambled: "CAHOTOLEC", Hint: "Sweet treat from cacao", Category: "Food"},
	{Word: "BUTTERFLY", Scrambled: "TYLBUFRET", Hint: "Colorful flying insect", Category: "Animals"},
	{Word: "ADVENTURE", Scrambled: "EDNUAVRET", Hint: "Exciting experience", Category: "Words"},
}

func randomTrivia() TriviaQuestion { return triviaQuestions[rand.Intn(len(triviaQuestions))] }
func randomRiddle() Riddle         { return riddles[rand.Intn(len(riddles))] }
func randomWordGame() WordGame     { return wordGames[rand.Intn(len(wordGames))] }

// FormatTrivia renders the question with lettered options.
func FormatTrivia(q TriviaQuestion) string {
	options := make([]string, len(q.Options))
	for i, opt := range q.Options {
		options[i] = fmt.Sprintf("%c) %s", 'A'+i, opt)
	}
	return fmt.Sprintf("**Trivia Time!** (%s)\n\n%s\n\n%s\n\nReply with just the letter (A, B, C, or D)!",
		q.Category, q.Question, strings.Join(options, "\n"))
}

// FormatRiddle renders the riddle prompt.
func FormatRiddle(r Riddle) string {
	return fmt.Sprintf("**Riddle Time!**\n\n%s\n\nThink carefully and reply with your answer!", r.Question)
}

// FormatWordGame renders the scramble prompt.
func FormatWordGame(w WordGame) string {
	return fmt.Sprintf("**Word Scramble!** (%s)\n\nUnscramble this word: **%s**\n\nHint: %s\n\nReply with the correct word!",
		w.Category, w.Scrambled, w.Hint)
}

// CheckTriviaAnswer compares the first character against the option letter
// (A=0, B=1, ...), case-insensitive.
func CheckTriviaAnswer(answer string, correctIndex int) bool {
	trimmed := strings.TrimSpace(strings.ToUpper(answer))
	if trimmed == "" {
		return false
	}
	return int(trimmed[0]-'A') == correctIndex
}

// CheckRiddleAnswer accepts any guess containing the expected answer.
func CheckRiddleAnswer(answer, expected string) bool {
	return strings.Contains(strings.TrimSpace(strings.ToLower(answer)), strings.ToLower(expected))
}

// CheckWordAnswer requires exact case-insensitive equality.
func CheckWordAnswer(answer, word string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), word)
}
