// Copyright 2025 Certen Protocol

package kvdb

import (
	"bytes"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
)

func newTestAdapter(t *testing.T) *KVAdapter {
	t.Helper()
	db, err := dbm.NewDB("test", dbm.MemDBBackend, t.TempDir())
	if err != nil {
		t.Fatalf("open memdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKVAdapter(db)
}

func TestKVAdapterGetSetRoundTrip(t *testing.T) {
	a := newTestAdapter(t)

	if err := a.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := a.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("expected v1, got %s", got)
	}
}

func TestKVAdapterGetMissingKeyReturnsNil(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %v", got)
	}
}

func TestKVAdapterIteratePrefix(t *testing.T) {
	a := newTestAdapter(t)

	entries := map[string]string{
		"chain:stake:aaa": "1000",
		"chain:stake:bbb": "2000",
		"chain:job:ccc":   "job-data",
	}
	for k, v := range entries {
		if err := a.Set([]byte(k), []byte(v)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	var seen []string
	err := a.Iterate([]byte("chain:stake:"), func(key, value []byte) (bool, error) {
		seen = append(seen, string(key))
		return true, nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 keys under chain:stake:, got %d (%v)", len(seen), seen)
	}
}

func TestKVAdapterIterateStopsEarly(t *testing.T) {
	a := newTestAdapter(t)
	for _, k := range []string{"p:1", "p:2", "p:3"} {
		if err := a.Set([]byte(k), []byte("v")); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	count := 0
	err := a.Iterate([]byte("p:"), func(key, value []byte) (bool, error) {
		count++
		return false, nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected iteration to stop after 1 entry, got %d", count)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	cases := []struct {
		prefix string
		want   []byte
	}{
		{"ab", []byte("ac")},
		{"a\xff", []byte("b")},
		{"\xff\xff", nil},
		{"", nil},
	}
	for _, c := range cases {
		got := prefixUpperBound([]byte(c.prefix))
		if !bytes.Equal(got, c.want) {
			t.Errorf("prefixUpperBound(%q) = %v, want %v", c.prefix, got, c.want)
		}
	}
}
