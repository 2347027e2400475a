package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"karyasiddhi-ai/config"
	"karyasiddhi-ai/models"
	"karyasiddhi-ai/services"

	"go.uber.org/zap"
)

type countingTrainer struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	cancel context.CancelFunc
	stopAt int
}

func (c *countingTrainer) Train(context.Context) (models.TrainingRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.stopAt > 0 && c.calls >= c.stopAt {
		c.cancel()
	}
	if c.failOn[c.calls] {
		return models.TrainingRun{ID: "r", Status: models.TrainingFailed}, errors.New("artifact dir read-only")
	}
	return models.TrainingRun{ID: "r", Status: models.TrainingSuccess}, nil
}

func TestRunLoopSingleCycle(t *testing.T) {
	tests := []struct {
		name       string
		failOn     map[int]bool
		wantFailed int
	}{
		{"success", nil, 0},
		{"failure", map[int]bool{1: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &countingTrainer{failOn: tt.failOn}
			failed := runLoop(context.Background(), tr, 0, zap.NewNop())
			if tr.calls != 1 {
				t.Errorf("calls = %d, want 1", tr.calls)
			}
			if failed != tt.wantFailed {
				t.Errorf("failed = %d, want %d", failed, tt.wantFailed)
			}
		})
	}
}

func TestRunLoopRepeatsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &countingTrainer{cancel: cancel, stopAt: 3, failOn: map[int]bool{2: true}}

	done := make(chan int)
	go func() { done <- runLoop(ctx, tr, time.Millisecond, zap.NewNop()) }()

	select {
	case failed := <-done:
		if failed != 1 {
			t.Errorf("failed = %d, want 1", failed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not stop after cancellation")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.calls < 3 {
		t.Errorf("calls = %d, want at least 3", tr.calls)
	}
}

func TestRunCycle(t *testing.T) {
	if !runCycle(context.Background(), &countingTrainer{}, zap.NewNop()) {
		t.Error("runCycle should report success")
	}
	if runCycle(context.Background(), &countingTrainer{failOn: map[int]bool{1: true}}, zap.NewNop()) {
		t.Error("runCycle should report failure")
	}
}

func TestIssueAdminToken(t *testing.T) {
	if _, err := issueAdminToken(config.JWTConfig{}, "ops"); err == nil {
		t.Error("expected error without a secret")
	}

	cfg := config.JWTConfig{Secret: "ops-secret", ExpiryHours: 1}
	token, err := issueAdminToken(cfg, "ops")
	if err != nil {
		t.Fatalf("issueAdminToken failed: %v", err)
	}
	claims, err := services.NewAuthService(cfg).ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "ops" || claims.Role != services.RoleAdmin {
		t.Errorf("claims = %+v, want ops/admin", claims)
	}
}
