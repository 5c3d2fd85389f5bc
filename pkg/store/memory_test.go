package store

import (
	"context"
	"errors"
	"testing"

	applogger "MarketPulse/pkg/logger"
)

type doc struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SetJSON(ctx, "state", doc{Name: "BTC-USD", Value: 42}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got doc
	if err := s.GetJSON(ctx, "state", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "BTC-USD" || got.Value != 42 {
		t.Fatalf("unexpected doc: %+v", got)
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	s := NewMemoryStore()
	var got doc
	err := s.GetJSON(context.Background(), "missing", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	in := doc{Name: "a", Value: 1}
	if err := s.SetJSON(ctx, "k", in); err != nil {
		t.Fatalf("set: %v", err)
	}
	in.Value = 99

	var got doc
	if err := s.GetJSON(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != 1 {
		t.Fatalf("stored value mutated: %+v", got)
	}
}

func TestOpenWithoutRedisFallsBack(t *testing.T) {
	s := Open(Options{}, applogger.Nop())
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
}
