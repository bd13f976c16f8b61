package store

import (
	"context"
	"os"
	"testing"
)

func TestRedisStore_Key(t *testing.T) {
	s := NewRedisStore(nil, "clinic:")
	if got := s.key(Queue); got != "clinic:queue" {
		t.Errorf("expected clinic:queue, got %s", got)
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("CLINIC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLINIC_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	s := NewRedisStore(client, "clinic-test:")
	defer client.Del(ctx, s.key("roundtrip"))

	data, err := s.Load(ctx, "roundtrip")
	if err != nil || data != nil {
		t.Fatalf("expected empty collection, got %s, %v", data, err)
	}
	if err := s.Save(ctx, "roundtrip", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err = s.Load(ctx, "roundtrip")
	if err != nil || string(data) != `[{"id":"1"}]` {
		t.Fatalf("unexpected load result %s, %v", data, err)
	}
}
