package profile

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/josecalvo/rubi/backend/internal/db"
	profilemodel "github.com/josecalvo/rubi/backend/internal/model/profile"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})
	return NewService(gdb)
}

func strptr(s string) *string { return &s }

func TestGetCreatesDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	prefs, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.ResponseMode != profilemodel.ModeBalanced {
		t.Fatalf("response mode = %q", prefs.ResponseMode)
	}
	if prefs.CommunicationStyle != profilemodel.StyleFriendly {
		t.Fatalf("communication style = %q", prefs.CommunicationStyle)
	}
	if prefs.TotalInteractions != 0 {
		t.Fatalf("total interactions = %d", prefs.TotalInteractions)
	}

	// A second read returns the same row, not a new one.
	again, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.ID != prefs.ID {
		t.Fatal("second get created a new row")
	}
}

func TestUpdateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "u1", strptr("galactic"), nil, nil); !errors.Is(err, ErrInvalidPreference) {
		t.Fatalf("bad mode should be rejected, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", nil, strptr("sarcastic"), nil); !errors.Is(err, ErrInvalidPreference) {
		t.Fatalf("bad style should be rejected, got %v", err)
	}

	prefs, err := svc.Update(ctx, "u1", strptr(profilemodel.ModeExpert), strptr(profilemodel.StylePlayful), []string{"go", "space"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if prefs.ResponseMode != profilemodel.ModeExpert || prefs.CommunicationStyle != profilemodel.StylePlayful {
		t.Fatalf("updates not applied: %+v", prefs)
	}
	if got := FavoriteTopics(prefs); !reflect.DeepEqual(got, []string{"go", "space"}) {
		t.Fatalf("favorite topics = %v", got)
	}

	// Partial update leaves the other fields alone.
	prefs, err = svc.Update(ctx, "u1", strptr(profilemodel.ModeCasual), nil, nil)
	if err != nil {
		t.Fatalf("partial update: %v", err)
	}
	if prefs.ResponseMode != profilemodel.ModeCasual || prefs.CommunicationStyle != profilemodel.StylePlayful {
		t.Fatalf("partial update clobbered fields: %+v", prefs)
	}
}

func TestIncrementInteractionsAndMood(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.IncrementInteractions(ctx, "u1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := svc.SetLastMood(ctx, "u1", "excited"); err != nil {
		t.Fatalf("set mood: %v", err)
	}

	prefs, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.TotalInteractions != 3 {
		t.Fatalf("total interactions = %d, want 3", prefs.TotalInteractions)
	}
	if prefs.LastMood != "excited" {
		t.Fatalf("last mood = %q", prefs.LastMood)
	}
}

func TestMergeContextRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	incoming := profilemodel.Learned{
		Topics: []string{"golang", "music"},
		Facts:  []string{"lives in Madrid"},
	}
	if err := svc.MergeContext(ctx, "u1", incoming); err != nil {
		t.Fatalf("merge: %v", err)
	}
	// Merging the same learnings again must not duplicate anything.
	if err := svc.MergeContext(ctx, "u1", incoming); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	learned, err := svc.LearnedContext(ctx, "u1")
	if err != nil {
		t.Fatalf("learned context: %v", err)
	}
	if !reflect.DeepEqual(learned.Topics, []string{"golang", "music"}) {
		t.Fatalf("topics = %v", learned.Topics)
	}
	if !reflect.DeepEqual(learned.Facts, []string{"lives in Madrid"}) {
		t.Fatalf("facts = %v", learned.Facts)
	}

	if got := learned.Render(); got != "Topics: golang, music\nFacts: lives in Madrid" {
		t.Fatalf("render = %q", got)
	}

	// An empty batch is a no-op.
	if err := svc.MergeContext(ctx, "u1", profilemodel.Learned{}); err != nil {
		t.Fatalf("empty merge: %v", err)
	}
}

func TestMergeContextConcurrentBatches(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Shared-cache sqlite rejects concurrent writers, so funnel the
	// interleaved transactions through one connection.
	sqlDB, err := svc.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := svc.Get(ctx, "u1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	batches := []profilemodel.Learned{
		{Topics: []string{"astronomy"}, Facts: []string{"has a telescope"}},
		{Topics: []string{"cooking"}},
	}
	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func(b profilemodel.Learned) {
			defer wg.Done()
			if err := svc.MergeContext(ctx, "u1", b); err != nil {
				t.Errorf("merge: %v", err)
			}
		}(batch)
	}
	wg.Wait()

	learned, err := svc.LearnedContext(ctx, "u1")
	if err != nil {
		t.Fatalf("learned context: %v", err)
	}
	if len(learned.Topics) != 2 {
		t.Fatalf("topics = %v, a concurrent batch was lost", learned.Topics)
	}
	if len(learned.Facts) != 1 {
		t.Fatalf("facts = %v", learned.Facts)
	}
}
