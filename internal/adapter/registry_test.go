package adapter

import (
	"errors"
	"testing"
)

func TestNewUnknownType(t *testing.T) {
	_, err := New(Config{Type: "oracle"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}

	var unknownErr *UnknownAdapterError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownAdapterError, got %T", err)
	}
	if unknownErr.Type != "oracle" {
		t.Errorf("expected type oracle, got %s", unknownErr.Type)
	}
}

func TestNewEmptyType(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty adapter type")
	}
}

func TestRegisteredAdapters(t *testing.T) {
	for _, name := range []string{"sqlite", "duckdb", "postgres"} {
		if !IsRegistered(name) {
			t.Errorf("adapter %s should be registered", name)
		}
	}

	names := ListAdapters()
	if len(names) < 3 {
		t.Errorf("expected at least 3 registered adapters, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("adapter names not sorted: %v", names)
		}
	}
}

func TestNewReturnsMatchingDialect(t *testing.T) {
	a, err := New(Config{Type: "sqlite"}, nil)
	if err != nil {
		t.Fatalf("failed to create sqlite adapter: %v", err)
	}
	if a.DialectName() != "sqlite" {
		t.Errorf("expected dialect sqlite, got %s", a.DialectName())
	}
}
