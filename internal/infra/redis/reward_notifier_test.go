package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-battle-service/internal/domain"
)

func TestRewardNotifierAppendsToStream(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	notifier := NewRewardNotifier(client)

	ctx := context.Background()
	reward := domain.Reward{ParticipantID: "u1", Subject: "dsa", Score: 42, CorrectCount: 5, Win: true}
	if err := notifier.Notify(ctx, reward); err != nil {
		t.Fatalf("notify: %v", err)
	}

	entries, err := client.XRange(ctx, RewardStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one stream entry, got %d", len(entries))
	}
	values := entries[0].Values
	if values["participantId"] != "u1" || values["subject"] != "dsa" || values["score"] != "42" || values["win"] != "true" {
		t.Fatalf("unexpected stream values: %+v", values)
	}
}
