package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestExpiryWorkerSweepUsesWorkerClock(t *testing.T) {
	repo := new(mockCampaignRepository)
	worker := NewExpiryWorker(repo, time.Minute)
	asOf := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	worker.WithNow(func() time.Time { return asOf })

	repo.On("DeactivateExpired", mock.Anything, asOf).Return(int64(2), nil).Once()

	worker.sweep(context.Background())

	repo.AssertExpectations(t)
}

func TestExpiryWorkerSweepSurvivesRepositoryError(t *testing.T) {
	repo := new(mockCampaignRepository)
	worker := NewExpiryWorker(repo, time.Minute)

	repo.On("DeactivateExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()

	// Must not panic; the next tick retries
	worker.sweep(context.Background())

	repo.AssertExpectations(t)
}

func TestExpiryWorkerRunStopsOnContextCancel(t *testing.T) {
	repo := new(mockCampaignRepository)
	worker := NewExpiryWorker(repo, 10*time.Millisecond)
	repo.On("DeactivateExpired", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestNewExpiryWorkerDefaultsInterval(t *testing.T) {
	worker := NewExpiryWorker(new(mockCampaignRepository), 0)
	assert.Equal(t, time.Hour, worker.interval)
}
