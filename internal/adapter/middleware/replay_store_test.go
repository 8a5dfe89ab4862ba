package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func Test_hashBody(t *testing.T) {
	data := []byte("hello world")
	sum := sha256.Sum256(data)
	if got, want := hashBody(data), hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("hashBody mismatch: got %s want %s", got, want)
	}
}

func Test_replayKey(t *testing.T) {
	k := replayKey("POST", "/api/v1/loans", "u-1", strings.Repeat("A", 32))
	want := "loanflow:idemp:post:/api/v1/loans:u-1:" + strings.Repeat("a", 32)
	if k != want {
		t.Fatalf("replayKey = %q, want %q", k, want)
	}
}

func Test_replayStore_ClaimAndLoad(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	store := replayStore{rdb: rdb, lockTTL: claimTTL}
	ctx := context.Background()

	key := replayKey("POST", "/loans", "u-1", strings.Repeat("a", 32))
	entry := replayEntry{
		InProgress:  true,
		BodySHA256:  hashBody([]byte(`{"a":1}`)),
		RequestID:   strings.Repeat("a", 32),
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}

	ok, err := store.claim(ctx, key, entry)
	if err != nil || !ok {
		t.Fatalf("claim 1: ok=%v err=%v", ok, err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > claimTTL {
		t.Fatalf("claim TTL not set correctly: %v", ttl)
	}

	ok, err = store.claim(ctx, key, entry)
	if err != nil {
		t.Fatalf("claim 2 err: %v", err)
	}
	if ok {
		t.Fatal("second claim must fail while the first is held")
	}

	got, err := store.load(ctx, key)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if !got.InProgress || got.RequestID != entry.RequestID || got.BodySHA256 != entry.BodySHA256 || got.replayable() {
		t.Fatalf("loaded entry mismatch: %+v vs %+v", got, entry)
	}
}

func Test_replayStore_SaveAndLoad(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	store := replayStore{rdb: rdb, lockTTL: claimTTL}
	ctx := context.Background()

	key := replayKey("PUT", "/loans/:id/review", "u-1", strings.Repeat("b", 32))
	final := replayEntry{
		Code:       201,
		Body:       []byte(`{"ok":true}`),
		BodySHA256: hashBody([]byte(`{"ok":true}`)),
		RequestID:  strings.Repeat("b", 32),
		CreatedAt:  time.Now().UTC(),
	}

	ttlWant := 5 * time.Second
	if err := store.save(ctx, key, final, ttlWant); err != nil {
		t.Fatalf("save err: %v", err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > ttlWant {
		t.Fatalf("final TTL out of range: got %v want <= %v", ttl, ttlWant)
	}

	got, err := store.load(ctx, key)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if got.Code != 201 || string(got.Body) != `{"ok":true}` || !got.replayable() {
		t.Fatalf("final entry mismatch: %+v", got)
	}
}

func Test_replayStore_LoadCorrupt(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	store := replayStore{rdb: rdb, lockTTL: claimTTL}
	ctx := context.Background()

	if err := rdb.Set(ctx, "k", "{not json", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.load(ctx, "k"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := store.load(ctx, "missing"); err == nil {
		t.Fatal("expected error for a missing key")
	}
}
