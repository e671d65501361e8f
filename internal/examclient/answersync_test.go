package examclient

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestAnswerSyncerBlocksConcurrentSaveForSameQuestion(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	var startedOnce sync.Once
	api := &fakeAPI{
		saveFn: func(ctx context.Context, examSerial string, questionID, optionID int64) error {
			startedOnce.Do(func() { close(started) })
			<-release
			return nil
		},
	}
	syncer := NewAnswerSyncer(api, "EXAM-1")

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- syncer.Save(context.Background(), 7, 70)
	}()
	<-started

	if !syncer.Saving(7) {
		t.Fatal("Saving(7) = false while save in flight")
	}

	// Second save for the same question is rejected without hitting the API.
	if err := syncer.Save(context.Background(), 7, 71); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("concurrent save error = %v, want ErrSaveInFlight", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	if syncer.Saving(7) {
		t.Fatal("Saving(7) = true after save settled")
	}

	// The guard clears, so a retry goes through.
	if err := syncer.Save(context.Background(), 7, 71); err != nil {
		t.Fatalf("retry after settle failed: %v", err)
	}
}

func TestAnswerSyncerDifferentQuestionsIndependent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	api := &fakeAPI{
		saveFn: func(ctx context.Context, examSerial string, questionID, optionID int64) error {
			if questionID == 1 {
				close(started)
				<-release
			}
			return nil
		},
	}
	syncer := NewAnswerSyncer(api, "EXAM-1")

	go syncer.Save(context.Background(), 1, 10) //nolint:errcheck
	<-started

	if err := syncer.Save(context.Background(), 2, 20); err != nil {
		t.Fatalf("save for other question blocked: %v", err)
	}
	close(release)
}

func TestAnswerSyncerRemembersLastSelection(t *testing.T) {
	syncer := NewAnswerSyncer(&fakeAPI{}, "EXAM-1")

	if _, ok := syncer.Selection(5); ok {
		t.Fatal("Selection(5) present before any save")
	}

	if err := syncer.Save(context.Background(), 5, 50); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got, ok := syncer.Selection(5); !ok || got != 50 {
		t.Fatalf("Selection(5) = %d, %v; want 50, true", got, ok)
	}

	// Overwrite keeps only the newest selection.
	if err := syncer.Save(context.Background(), 5, 51); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got, _ := syncer.Selection(5); got != 51 {
		t.Fatalf("Selection(5) = %d, want 51", got)
	}

	syncer.RecordSelection(9, 90)
	if got, _ := syncer.Selection(9); got != 90 {
		t.Fatalf("Selection(9) = %d, want 90", got)
	}
}

func TestAnswerSyncerGuardClearsOnFailure(t *testing.T) {
	boom := errors.New("network down")
	api := &fakeAPI{
		saveFn: func(ctx context.Context, examSerial string, questionID, optionID int64) error {
			return boom
		},
	}
	syncer := NewAnswerSyncer(api, "EXAM-1")

	if err := syncer.Save(context.Background(), 3, 30); !errors.Is(err, boom) {
		t.Fatalf("save error = %v, want %v", err, boom)
	}
	if syncer.Saving(3) {
		t.Fatal("guard stuck after failed save")
	}
	if _, ok := syncer.Selection(3); ok {
		t.Fatal("failed save recorded a selection")
	}
}
