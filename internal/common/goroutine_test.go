package common

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBackgroundReturnsError(t *testing.T) {
	want := errors.New("info endpoint down")
	err := <-Background(context.Background(), nil, "info", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Background() error = %v, want %v", err, want)
	}
}

func TestBackgroundRecoversPanic(t *testing.T) {
	err := <-Background(context.Background(), nil, "info", func(ctx context.Context) error {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "info panicked: boom") {
		t.Errorf("Background() error = %v, want recovered panic", err)
	}
}

func TestBackgroundSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := <-Background(ctx, nil, "info", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Background() error = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("fn ran after its context was cancelled")
	}
}
