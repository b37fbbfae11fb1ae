package games

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(NewMemoryStateStore())
}

func TestIsStartCommand(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		text string
		want bool
	}{
		{"play trivia", true},
		{"Let's PLAY A GAME", true},
		{"give me a riddle", true},
		{"word game please", true},
		{"juguemos a algo", true},
		{"some trivia would be fun", true},
		{"what's on my calendar today", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := engine.IsStartCommand(tc.text); got != tc.want {
			t.Errorf("IsStartCommand(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClassifyStart(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		text string
		want Kind
	}{
		{"riddle", KindRiddle},
		{"un acertijo", KindRiddle},
		{"word game", KindWord},
		{"juego de palabras", KindWord},
		{"play trivia", KindTrivia},
		{"play a game", KindTrivia},
	}

	for _, tc := range cases {
		if got := engine.ClassifyStart(tc.text); got != tc.want {
			t.Errorf("ClassifyStart(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestStartStoresSingleSlot(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	if _, err := engine.Start(ctx, "u1", KindTrivia); err != nil {
		t.Fatalf("start trivia: %v", err)
	}
	// A second start replaces the slot rather than stacking.
	if _, err := engine.Start(ctx, "u1", KindRiddle); err != nil {
		t.Fatalf("start riddle: %v", err)
	}

	state, err := engine.ActiveState(ctx, "u1")
	if err != nil {
		t.Fatalf("active state: %v", err)
	}
	if state == nil || state.Kind != KindRiddle {
		t.Fatalf("expected riddle slot, got %+v", state)
	}
	if state.Riddle == nil || state.Trivia != nil {
		t.Fatalf("slot payload mismatch: %+v", state)
	}
}

func TestTriviaFormatAndAnswers(t *testing.T) {
	q := triviaQuestions[0] // capital of Japan, correct index 1

	content := FormatTrivia(q)
	if !strings.Contains(content, "**Trivia Time!**") {
		t.Fatalf("missing header: %q", content)
	}
	for _, letter := range []string{"A)", "B)", "C)", "D)"} {
		if !strings.Contains(content, letter) {
			t.Fatalf("missing option %s in %q", letter, content)
		}
	}

	if !CheckTriviaAnswer("B", 1) || !CheckTriviaAnswer(" b) Tokyo", 1) {
		t.Fatal("expected letter B to match index 1")
	}
	if CheckTriviaAnswer("A", 1) || CheckTriviaAnswer("", 1) {
		t.Fatal("unexpected trivia match")
	}
}

func TestTriviaClearsStateOnAnyAnswer(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	for _, answer := range []string{"A", "B", "C", "D", "no idea"} {
		if _, err := engine.Start(ctx, "u1", KindTrivia); err != nil {
			t.Fatalf("start: %v", err)
		}

		outcome, err := engine.SubmitAnswer(ctx, "u1", answer)
		if err != nil {
			t.Fatalf("submit %q: %v", answer, err)
		}
		if outcome == nil {
			t.Fatalf("submit %q resolved no game", answer)
		}
		if outcome.Result == ResultCorrect && outcome.Points != 15 {
			t.Fatalf("correct trivia should award 15 points, got %d", outcome.Points)
		}
		if outcome.Result != ResultCorrect && outcome.Points != 0 {
			t.Fatalf("wrong trivia should award 0 points, got %d", outcome.Points)
		}

		after, _ := engine.ActiveState(ctx, "u1")
		if after != nil {
			t.Fatalf("trivia state should clear after answer %q", answer)
		}
	}
}

func TestRiddleKeepsStateAndAdvancesHints(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	riddle := riddles[0] // clock, two hints
	state := &State{Kind: KindRiddle, Riddle: &riddle}
	if err := engine.store.Set(ctx, "u1", state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	// First wrong guess: first hint, state stays.
	outcome, err := engine.SubmitAnswer(ctx, "u1", "a chair")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome == nil || outcome.Result != ResultHint || outcome.Points != 0 {
		t.Fatalf("expected hint outcome, got %+v", outcome)
	}
	if !strings.Contains(outcome.Message, riddle.Hints[0]) {
		t.Fatalf("expected first hint in %q", outcome.Message)
	}

	if state, _ := engine.ActiveState(ctx, "u1"); state == nil {
		t.Fatal("riddle state cleared after wrong guess")
	}

	// Second wrong guess: next hint, not a repeat.
	outcome, err = engine.SubmitAnswer(ctx, "u1", "still wrong")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(outcome.Message, riddle.Hints[1]) {
		t.Fatalf("expected second hint in %q", outcome.Message)
	}

	// Hints exhausted: the last hint repeats.
	outcome, err = engine.SubmitAnswer(ctx, "u1", "wrong again")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(outcome.Message, riddle.Hints[len(riddle.Hints)-1]) {
		t.Fatalf("expected last hint repeated in %q", outcome.Message)
	}

	// Correct guess clears the slot and awards 20 points. The check is a
	// substring match, so a sentence containing the answer counts.
	outcome, err = engine.SubmitAnswer(ctx, "u1", "is it a clock?")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Result != ResultCorrect || outcome.Points != 20 {
		t.Fatalf("expected correct riddle outcome, got %+v", outcome)
	}

	after, _ := engine.ActiveState(ctx, "u1")
	if after != nil {
		t.Fatal("riddle state should clear after correct answer")
	}
}

func TestWordGameClearsStateEitherWay(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	word := wordGames[0] // COMPUTER
	state := &State{Kind: KindWord, Word: &word}
	_ = engine.store.Set(ctx, "u1", state)

	outcome, err := engine.SubmitAnswer(ctx, "u1", "computer")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome == nil || outcome.Result != ResultCorrect || outcome.Points != 15 {
		t.Fatalf("expected correct word outcome, got %+v", outcome)
	}
	if after, _ := engine.ActiveState(ctx, "u1"); after != nil {
		t.Fatal("word state should clear on correct answer")
	}

	_ = engine.store.Set(ctx, "u1", state)
	outcome, err = engine.SubmitAnswer(ctx, "u1", "computers")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Result != ResultIncorrect {
		t.Fatalf("near-miss must not match exactly: %+v", outcome)
	}
	if after, _ := engine.ActiveState(ctx, "u1"); after != nil {
		t.Fatal("word state should clear on wrong answer too")
	}
}

func TestSubmitAnswerWithoutActiveGame(t *testing.T) {
	engine := newTestEngine()

	outcome, err := engine.SubmitAnswer(context.Background(), "u1", "B")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome != nil {
		t.Fatalf("expected no outcome, got %+v", outcome)
	}
}

func TestConcurrentAnswersResolveGameOnce(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	trivia := triviaQuestions[0]
	if err := engine.store.Set(ctx, "u1", &State{Kind: KindTrivia, Trivia: &trivia}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	correct := string(rune('A' + trivia.CorrectIndex))

	outcomes := make([]*Outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := engine.SubmitAnswer(ctx, "u1", correct)
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	resolved := 0
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		resolved++
		if outcome.Result != ResultCorrect {
			t.Fatalf("outcome = %+v", outcome)
		}
	}
	// Two tabs answering at once must not both win the same game.
	if resolved != 1 {
		t.Fatalf("game resolved %d times, want once", resolved)
	}
}

func TestConcurrentWrongGuessesAdvanceHintCursor(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	riddle := Riddle{
		Question: "What gets wetter the more it dries?",
		Answer:   "towel",
		Hints:    []string{"find it in the bathroom", "you use it after a shower", "it hangs on a rail"},
	}
	if err := engine.store.Set(ctx, "u1", &State{Kind: KindRiddle, Riddle: &riddle}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	messages := make([]string, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := engine.SubmitAnswer(ctx, "u1", "a sponge")
			if err != nil || outcome == nil {
				t.Errorf("submit: %+v, %v", outcome, err)
				return
			}
			messages[i] = outcome.Message
		}(i)
	}
	wg.Wait()

	state, err := engine.ActiveState(ctx, "u1")
	if err != nil {
		t.Fatalf("active state: %v", err)
	}
	if state == nil || state.HintIndex != 2 {
		t.Fatalf("state = %+v, want hint cursor at 2", state)
	}
	// Each serialized guess reveals a different hint.
	first := strings.Contains(messages[0], riddle.Hints[0])
	second := strings.Contains(messages[1], riddle.Hints[0])
	if first == second {
		t.Fatalf("guesses saw the same hint: %q / %q", messages[0], messages[1])
	}
}

func TestMemoryStateStoreTake(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	if state, err := store.Take(ctx, "u1"); err != nil || state != nil {
		t.Fatalf("empty take = %+v, %v", state, err)
	}

	trivia := triviaQuestions[1]
	if err := store.Set(ctx, "u1", &State{Kind: KindTrivia, Trivia: &trivia}); err != nil {
		t.Fatalf("set: %v", err)
	}

	taken, err := store.Take(ctx, "u1")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if taken == nil || taken.Kind != KindTrivia {
		t.Fatalf("taken = %+v", taken)
	}
	if again, _ := store.Take(ctx, "u1"); again != nil {
		t.Fatalf("second take should be empty, got %+v", again)
	}
}

func TestMemoryStateStoreIsolation(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	riddle := riddles[1]
	state := &State{Kind: KindRiddle, Riddle: &riddle}
	if err := store.Set(ctx, "u1", state); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	state.HintIndex = 99
	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HintIndex != 0 {
		t.Fatalf("store aliased caller state: %+v", got)
	}

	if other, _ := store.Get(ctx, "u2"); other != nil {
		t.Fatalf("unexpected state for other user: %+v", other)
	}
}
