package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/halcyon/model-bridge-api/internal/store/model"
	"github.com/halcyon/model-bridge-api/internal/store/sqlite"
)

// Seeds the audit store with a week of synthetic traffic so the daily
// stats queries have something to chew on during development.
func main() {
	repo, err := sqlite.NewSQLiteStorage("bridge.db")
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()

	backends := []struct {
		public   string
		backend  string
		source   string
		thinking bool
	}{
		{"gpt-4", "meta/llama-3.1-405b-instruct", "fallback", false},
		{"deepseek", "deepseek-ai/deepseek-r1", "alias", true},
		{"meta/llama-3.1-8b-instruct", "meta/llama-3.1-8b-instruct", "probe", false},
	}

	for _, b := range backends {
		err := repo.Resolutions().Log(ctx, &model.ResolutionLog{
			ID:          uuid.New().String(),
			PublicName:  b.public,
			BackendName: b.backend,
			Source:      b.source,
			Thinking:    b.thinking,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			log.Fatalf("seed resolution: %v", err)
		}
	}

	finishReasons := []string{"stop", "stop", "stop", "length"}
	total := 0
	for day := 0; day < 7; day++ {
		count := 20 + rand.Intn(40)
		for i := 0; i < count; i++ {
			b := backends[rand.Intn(len(backends))]
			in := 50 + rand.Intn(500)
			out := 20 + rand.Intn(800)
			err := repo.Requests().Log(ctx, &model.RequestLog{
				ID:             uuid.New().String(),
				RequestedModel: b.public,
				ResolvedModel:  b.backend,
				Thinking:       b.thinking,
				Stream:         rand.Intn(2) == 0,
				FinishReason:   finishReasons[rand.Intn(len(finishReasons))],
				StatusCode:     200,
				LatencyMS:      int64(200 + rand.Intn(4000)),
				InputTokens:    in,
				OutputTokens:   out,
				CreatedAt:      time.Now().UTC().AddDate(0, 0, -day),
			})
			if err != nil {
				log.Fatalf("seed request: %v", err)
			}
			total++
		}
	}

	stats, err := repo.Requests().GetDailyStats(ctx, 7)
	if err != nil {
		log.Fatalf("daily stats: %v", err)
	}

	fmt.Printf("seeded %d requests across %d days\n", total, len(stats))
	for _, s := range stats {
		fmt.Printf("  %s  %4d requests  %7d in  %7d out\n", s.Day, s.Requests, s.InputTokens, s.OutputTokens)
	}
}
