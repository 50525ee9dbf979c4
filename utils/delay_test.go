package utils

import (
	"context"
	"testing"
	"time"
)

func TestSleep(t *testing.T) {
	t.Run("Elapses", func(t *testing.T) {
		start := time.Now()
		if !Sleep(context.Background(), 20*time.Millisecond) {
			t.Fatal("Sleep() = false; want true")
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("Sleep returned after %s; want at least 20ms", elapsed)
		}
	})

	t.Run("Zero Duration", func(t *testing.T) {
		if !Sleep(context.Background(), 0) {
			t.Error("Sleep(0) = false; want true")
		}
	})

	t.Run("Zero Duration Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if Sleep(ctx, 0) {
			t.Error("Sleep(0) on cancelled context = true; want false")
		}
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		if Sleep(ctx, time.Hour) {
			t.Fatal("Sleep() = true; want false")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Sleep waited %s on a cancelled context", elapsed)
		}
	})

	t.Run("Cancelled While Waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		if Sleep(ctx, time.Hour) {
			t.Fatal("Sleep() = true; want false")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("Sleep did not return promptly after cancel: %s", elapsed)
		}
	})
}
