package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		val, err := c.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(val) != "v1" {
			t.Errorf("got %q, want v1", val)
		}
	})

	t.Run("MissReturnsNilNil", func(t *testing.T) {
		val, err := c.Get(ctx, "missing")
		if err != nil || val != nil {
			t.Errorf("miss = (%v, %v), want (nil, nil)", val, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set(ctx, "k2", []byte("v2"), time.Minute)
		if err := c.Delete(ctx, "k2"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		val, _ := c.Get(ctx, "k2")
		if val != nil {
			t.Error("deleted key still present")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		c.Set(ctx, "k3", []byte("old"), time.Minute)
		c.Set(ctx, "k3", []byte("new"), time.Minute)
		val, _ := c.Get(ctx, "k3")
		if string(val) != "new" {
			t.Errorf("got %q, want new", val)
		}
	})
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != nil {
		t.Error("expired entry still served")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	// Touch k0 so k1 becomes the oldest
	c.Get(ctx, "k0")

	// Adding a fourth key evicts the least recently used
	c.Set(ctx, "k3", []byte("v"), time.Minute)

	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("expected k1 to be evicted")
	}
	if val, _ := c.Get(ctx, "k0"); val == nil {
		t.Error("recently used k0 must survive eviction")
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("stats = (%d, %d), want (3, 3)", size, capacity)
	}
}

func TestLRUQuoteRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	quote := &domain.Quote{
		ID: "quote-001",
		Profile: domain.Profile{
			Age:           32,
			RiskTolerance: domain.RiskMedium,
		},
		Recommendations: []domain.Recommendation{
			{Policy: domain.PolicyRecord{ID: "TRM-001"}, Score: 0.8},
		},
		Metadata: domain.QuoteMetadata{PoliciesEligible: 5},
	}

	if err := c.SetQuote(ctx, "fp-abc", quote, time.Minute); err != nil {
		t.Fatalf("set quote failed: %v", err)
	}

	got, err := c.GetQuote(ctx, "fp-abc")
	if err != nil {
		t.Fatalf("get quote failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached quote")
	}
	if got.ID != "quote-001" || len(got.Recommendations) != 1 || got.Recommendations[0].Policy.ID != "TRM-001" {
		t.Errorf("quote fields lost: %+v", got)
	}

	miss, err := c.GetQuote(ctx, "fp-other")
	if err != nil || miss != nil {
		t.Errorf("quote miss = (%v, %v), want (nil, nil)", miss, err)
	}
}

func TestLRUCounter(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "quotes", time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if got != want {
			t.Errorf("counter = %d, want %d", got, want)
		}
	}

	t.Run("WindowReset", func(t *testing.T) {
		if _, err := c.IncrementCounter(ctx, "burst", 10*time.Millisecond); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
		got, err := c.IncrementCounter(ctx, "burst", 10*time.Millisecond)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if got != 1 {
			t.Errorf("counter after window = %d, want 1", got)
		}
	})
}

func TestNewFactory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer c.Close()
		if _, ok := c.(*LRUCache); !ok {
			t.Errorf("expected *LRUCache, got %T", c)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported cache type")
		}
	})
}
