//go:build ignore

// Публикует RouteComputeEvent в stream:route:compute и ждёт ответа воркера.
//
//	go run scripts/test_publish.go -redis localhost:6379 -hubs 2507507,2504009 -satellites 2513703
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/route-composer/internal/domain"
)

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	hubs := flag.String("hubs", "2507507,2504009", "comma-separated hub codes")
	satellites := flag.String("satellites", "2513703,2503209", "comma-separated satellite codes")
	speed := flag.Float64("speed", 0, "cruise speed override, km/h (0 - default)")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := domain.RouteComputeEvent{
		RequestID:      uuid.New(),
		Caller:         "test-publish",
		HubCodes:       splitCodes(*hubs),
		SatelliteCodes: splitCodes(*satellites),
	}
	if *speed > 0 {
		event.Configuration = map[string]interface{}{"cruise_speed_kmh": *speed}
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Запоминаем хвост done-стрима, чтобы не читать старые ответы
	lastID := "$"
	if tail, err := client.XRevRangeN(ctx, domain.StreamRouteDone, "+", "-", 1).Result(); err == nil && len(tail) > 0 {
		lastID = tail[0].ID
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamRouteCompute,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamRouteCompute)
	fmt.Printf("   Message ID: %s\n", id)
	fmt.Printf("   Request ID: %s\n", event.RequestID)
	fmt.Printf("\nWaiting for response in %s...\n", domain.StreamRouteDone)

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		results, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{domain.StreamRouteDone, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			log.Fatalf("Failed to read responses: %v", err)
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}

				var response map[string]interface{}
				if err := json.Unmarshal([]byte(raw), &response); err != nil {
					continue
				}
				if response["request_id"] != event.RequestID.String() {
					continue
				}

				pretty, _ := json.MarshalIndent(response, "", "  ")
				fmt.Printf("\nResponse received:\n%s\n", pretty)
				return
			}
		}
	}

	fmt.Println("Timeout waiting for response")
}
