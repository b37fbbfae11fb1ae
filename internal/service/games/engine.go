package games

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ResultKind classifies the outcome of an answer attempt.
type ResultKind string

const (
	ResultCorrect   ResultKind = "correct"
	ResultIncorrect ResultKind = "incorrect"
	// ResultHint means the guess was wrong but the riddle stays active.
	ResultHint ResultKind = "hint"
)

// Outcome is what the chat pipeline needs to reply and award points.
type Outcome struct {
	Game    Kind
	Result  ResultKind
	Message string
	Points  int
}

// Engine resolves mini-game commands and answers against the per-user
// active-game slot. Answer attempts for one user are serialized, so two
// simultaneous answers cannot both resolve the same game.
type Engine struct {
	store StateStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store StateStore) *Engine {
	return &Engine{store: store, locks: make(map[string]*sync.Mutex)}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

var startTriggers = []string{
	"play trivia",
	"play a game",
	"riddle",
	"word game",
	"juguemos",
	"trivia",
}

// IsStartCommand reports whether the message asks to start a game.
func (e *Engine) IsStartCommand(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, trigger := range startTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// ClassifyStart picks the game kind a start command refers to. Trivia is the
// default for generic requests like "play a game".
func (e *Engine) ClassifyStart(text string) Kind {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "riddle") || strings.Contains(lower, "acertijo"):
		return KindRiddle
	case strings.Contains(lower, "word") || strings.Contains(lower, "palabra"):
		return KindWord
	default:
		return KindTrivia
	}
}

// ActiveState returns the user's current game state, or nil.
func (e *Engine) ActiveState(ctx context.Context, userID string) (*State, error) {
	return e.store.Get(ctx, userID)
}

// Start picks a random question for the kind, stores it as the user's
// active game (replacing any previous slot), and returns the prompt text.
func (e *Engine) Start(ctx context.Context, userID string, kind Kind) (string, error) {
	var state State
	var content string

	switch kind {
	case KindRiddle:
		riddle := randomRiddle()
		state = State{Kind: KindRiddle, Riddle: &riddle}
		content = FormatRiddle(riddle)
	case KindWord:
		word := randomWordGame()
		state = State{Kind: KindWord, Word: &word}
		content = FormatWordGame(word)
	case KindTrivia:
		trivia := randomTrivia()
		state = State{Kind: KindTrivia, Trivia: &trivia}
		content = FormatTrivia(trivia)
	default:
		return "", fmt.Errorf("unknown game kind %q", kind)
	}

	if err := e.store.Set(ctx, userID, &state); err != nil {
		return "", err
	}
	return content, nil
}

// SubmitAnswer consumes the user's active game and resolves the message as
// its answer. Returns nil when no game is active. Trivia and word games end
// on any attempt; a wrong riddle guess re-arms the slot with the hint cursor
// advanced (the last hint repeats once the list is exhausted).
func (e *Engine) SubmitAnswer(ctx context.Context, userID, answer string) (*Outcome, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.Take(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	switch state.Kind {
	case KindTrivia:
		outcome := resolveTrivia(state.Trivia, answer)
		return &outcome, nil

	case KindRiddle:
		if CheckRiddleAnswer(answer, state.Riddle.Answer) {
			return &Outcome{
				Game:   KindRiddle,
				Result: ResultCorrect,
				Points: 20,
				Message: fmt.Sprintf("**Brilliant!** You got it! The answer is %q. You earned 20 points!\n\n"+
					"Want another challenge? Say \"riddle\" or \"play trivia\"!", state.Riddle.Answer),
			}, nil
		}

		hint := state.Riddle.Hints[min(state.HintIndex, len(state.Riddle.Hints)-1)]
		next := *state
		next.HintIndex++
		if err := e.store.Set(ctx, userID, &next); err != nil {
			return nil, err
		}
		return &Outcome{
			Game:   KindRiddle,
			Result: ResultHint,
			Message: fmt.Sprintf("**Hmm, not quite!** Here's a hint: %s\n\n"+
				"Try again or say \"skip\" to see the answer!", hint),
		}, nil

	case KindWord:
		outcome := resolveWord(state.Word, answer)
		return &outcome, nil

	default:
		return nil, fmt.Errorf("unknown game kind %q", state.Kind)
	}
}

// Clear removes the user's active game, if any.
func (e *Engine) Clear(ctx context.Context, userID string) error {
	return e.store.Clear(ctx, userID)
}

func resolveTrivia(q *TriviaQuestion, answer string) Outcome {
	correctLetter := rune('A' + q.CorrectIndex)
	correctAnswer := q.Options[q.CorrectIndex]

	if CheckTriviaAnswer(answer, q.CorrectIndex) {
		return Outcome{
			Game:   KindTrivia,
			Result: ResultCorrect,
			Points: 15,
			Message: fmt.Sprintf("**Correct!** The answer is %c) %s. You earned 15 points!\n\n"+
				"Want to play another game? Just say \"play trivia\", \"riddle\", or \"word game\"!",
				correctLetter, correctAnswer),
		}
	}

	return Outcome{
		Game:   KindTrivia,
		Result: ResultIncorrect,
		Message: fmt.Sprintf("**Not quite!** The correct answer was %c) %s.\n\n"+
			"Don't give up! Say \"play trivia\" to try again!", correctLetter, correctAnswer),
	}
}

func resolveWord(w *WordGame, answer string) Outcome {
	if CheckWordAnswer(answer, w.Word) {
		return Outcome{
			Game:   KindWord,
			Result: ResultCorrect,
			Points: 15,
			Message: fmt.Sprintf("**Excellent!** The word is %q. You earned 15 points!\n\n"+
				"Ready for more? Say \"word game\" or \"play trivia\"!", w.Word),
		}
	}

	return Outcome{
		Game:   KindWord,
		Result: ResultIncorrect,
		Message: fmt.Sprintf("**Not quite!** The word was %q.\n\n"+
			"Don't worry, try another game! Say \"word game\" or \"riddle\"!", w.Word),
	}
}
