package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"examgate/internal/config"
	"examgate/internal/exam"
	"examgate/internal/queue"
	"examgate/internal/store"
)

type submissionEvent struct {
	TestID int64   `json:"test_id"`
	Score  float64 `json:"score"`
}

// Worker consumes submission events and keeps per-test score aggregates in
// redis so the API can answer stats queries without scanning results.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "examgate:submissions")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for submission events...")
	for msg := range messages {
		if msg.Type != "submission" {
			continue
		}

		var evt submissionEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad submission event: %v", err)
			continue
		}

		key := exam.StatsKey(evt.TestID)
		if err := redisClient.Client.HIncrBy(ctx, key, "count", 1).Err(); err != nil {
			log.Printf("stats update failed for test %d: %v", evt.TestID, err)
			continue
		}
		if err := redisClient.Client.HIncrByFloat(ctx, key, "sum", evt.Score).Err(); err != nil {
			log.Printf("stats update failed for test %d: %v", evt.TestID, err)
			continue
		}
		log.Printf("recorded score %.1f for test %d", evt.Score, evt.TestID)
	}

	log.Println("worker stopped")
}
