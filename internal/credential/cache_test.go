package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"
)

func TestTokenCache_ConcurrentMissesMintOnce(t *testing.T) {
	clk := testingclock.NewFakePassiveClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cache := NewTokenCache(clk, 5*time.Minute)

	var mints atomic.Int32
	release := make(chan struct{})
	mint := func(context.Context) (accessToken, error) {
		mints.Add(1)
		<-release
		return accessToken{token: "ghs_one", expiresAt: clk.Now().Add(time.Hour)}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := cache.get(context.Background(), 42, mint)
			results[i], errs[i] = tok.token, err
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := mints.Load(); got != 1 {
		t.Fatalf("mints = %d, want 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "ghs_one" {
			t.Errorf("caller %d token = %q", i, results[i])
		}
	}
}

func TestTokenCache_RefreshMargin(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := testingclock.NewFakePassiveClock(start)
	cache := NewTokenCache(clk, 5*time.Minute)

	var mints int
	mint := func(context.Context) (accessToken, error) {
		mints++
		return accessToken{token: "ghs", expiresAt: clk.Now().Add(time.Hour)}, nil
	}

	tests := []struct {
		name      string
		at        time.Duration
		wantMints int
	}{
		{"first call mints", 0, 1},
		{"reused well before expiry", 30 * time.Minute, 1},
		{"reused just outside margin", 54*time.Minute + 59*time.Second, 1},
		{"replaced inside margin", 55 * time.Minute, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.SetTime(start.Add(tt.at))
			if _, err := cache.get(context.Background(), 7, mint); err != nil {
				t.Fatalf("get: %v", err)
			}
			if mints != tt.wantMints {
				t.Errorf("mints = %d, want %d", mints, tt.wantMints)
			}
		})
	}
}

func TestTokenCache_KeysAreIndependent(t *testing.T) {
	clk := testingclock.NewFakePassiveClock(time.Now())
	cache := NewTokenCache(clk, time.Minute)

	mint := func(tok string) mintFunc {
		return func(context.Context) (accessToken, error) {
			return accessToken{token: tok, expiresAt: clk.Now().Add(time.Hour)}, nil
		}
	}

	a, _ := cache.get(context.Background(), 1, mint("a"))
	b, _ := cache.get(context.Background(), 2, mint("b"))
	if a.token != "a" || b.token != "b" {
		t.Fatalf("got %q and %q", a.token, b.token)
	}
}

func TestTokenCache_InvalidateAndErrors(t *testing.T) {
	clk := testingclock.NewFakePassiveClock(time.Now())
	cache := NewTokenCache(clk, time.Minute)

	boom := errors.New("boom")
	if _, err := cache.get(context.Background(), 3, func(context.Context) (accessToken, error) {
		return accessToken{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var mints int
	mint := func(context.Context) (accessToken, error) {
		mints++
		return accessToken{token: "ok", expiresAt: clk.Now().Add(time.Hour)}, nil
	}
	if _, err := cache.get(context.Background(), 3, mint); err != nil {
		t.Fatalf("failed mint must not be cached: %v", err)
	}
	cache.Invalidate(3)
	if _, err := cache.get(context.Background(), 3, mint); err != nil {
		t.Fatal(err)
	}
	if mints != 2 {
		t.Errorf("mints = %d, want 2 after invalidate", mints)
	}
}

func TestTokenCache_CanceledCallerDoesNotFailMint(t *testing.T) {
	cache := NewTokenCache(testingclock.NewFakePassiveClock(time.Now()), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := cache.get(ctx, 9, func(ctx context.Context) (accessToken, error) {
		if err := ctx.Err(); err != nil {
			return accessToken{}, err
		}
		return accessToken{token: "t", expiresAt: time.Now().Add(time.Hour)}, nil
	})
	if err != nil || tok.token != "t" {
		t.Fatalf("get = %q, %v", tok.token, err)
	}
}
