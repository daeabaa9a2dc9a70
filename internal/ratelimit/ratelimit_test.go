package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiter_BurstThenDeny(t *testing.T) {
	rl := NewMemoryLimiter(5, 60*time.Second)
	defer rl.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := rl.Allow(ctx, "203.0.113.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.OK {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}

	res, err := rl.Allow(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK {
		t.Fatal("6th call in the window should be denied")
	}
	if res.RetryAfter < 1 || res.RetryAfter > 12 {
		t.Errorf("unexpected retry hint: %d", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewMemoryLimiter(1, time.Minute)
	defer rl.Close()
	ctx := context.Background()

	if res, _ := rl.Allow(ctx, "a"); !res.OK {
		t.Fatal("first call for key a should pass")
	}
	if res, _ := rl.Allow(ctx, "a"); res.OK {
		t.Fatal("second call for key a should be denied")
	}
	if res, _ := rl.Allow(ctx, "b"); !res.OK {
		t.Fatal("key b must not be affected by key a's bucket")
	}
}

func TestMemoryLimiter_RefillsAfterWindow(t *testing.T) {
	rl := NewMemoryLimiter(2, 100*time.Millisecond)
	defer rl.Close()
	ctx := context.Background()

	rl.Allow(ctx, "ip")
	rl.Allow(ctx, "ip")
	if res, _ := rl.Allow(ctx, "ip"); res.OK {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(120 * time.Millisecond)

	if res, _ := rl.Allow(ctx, "ip"); !res.OK {
		t.Fatal("bucket should refill after the window elapses")
	}
}

func TestMemoryLimiter_ConcurrentConsumeDoesNotOverAdmit(t *testing.T) {
	const burst = 10
	rl := NewMemoryLimiter(burst, time.Hour)
	defer rl.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rl.Allow(ctx, "shared")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if res.OK {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != burst {
		t.Fatalf("expected exactly %d admissions, got %d", burst, admitted)
	}
}

func TestMemoryLimiter_DefensiveConstruction(t *testing.T) {
	rl := NewMemoryLimiter(0, 0)
	defer rl.Close()

	if rl.burst != 1 {
		t.Errorf("expected minimum burst 1, got %d", rl.burst)
	}
	if rl.window != time.Minute {
		t.Errorf("expected fallback window, got %s", rl.window)
	}
}
