package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Has(ctx, FieldAssetID)
	if err != nil || ok {
		t.Fatalf("has on empty store: %v %v", ok, err)
	}
	if _, err := store.Get(ctx, FieldAssetID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSetMany(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx,
		Entry{Field: FieldTotalAssets, Value: "10"},
		Entry{Field: FieldTotalSupply, Value: "7"},
	); err != nil {
		t.Fatalf("set: %v", err)
	}

	want := map[Field]string{FieldTotalAssets: "10", FieldTotalSupply: "7"}
	if got := store.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot mismatch: %+v != %+v", got, want)
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, Entry{Field: FieldTotalAssets, Value: "1"}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("canceled set must not write")
	}
}

func TestMemoryStoreUpdateIfAbsent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	create := func(value string) error {
		return store.Update(ctx, func(Fields) ([]Entry, error) {
			return []Entry{
				{Field: FieldAssetID, Value: value, IfAbsent: true},
				{Field: FieldTotalAssets, Value: "0"},
			}, nil
		})
	}
	if err := create("a"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.Set(ctx, Entry{Field: FieldTotalAssets, Value: "9"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := create("b"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	want := map[Field]string{FieldAssetID: "a", FieldTotalAssets: "9"}
	if got := store.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("colliding update must not write: %+v", got)
	}
}

func TestMemoryStoreUpdateAbort(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(current Fields) ([]Entry, error) {
		current[FieldTotalAssets] = "leak"
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("aborted update must not write")
	}
}
