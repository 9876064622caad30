// Command simulate is a peripheral batch harness around the tournament
// engine: it parses flags, builds a small set of example bidding
// strategies, runs one or more independent tournaments with deterministic
// per-run seeds, and writes a JSON export of the results. None of this is
// imported by core; it is a caller, same as any front-end described in
// spec §1.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/tokentourney/core"
)

func defaultConfig() core.TournamentConfig {
	return core.TournamentConfig{
		StartingBudget: decimal.NewFromInt(10000),
		Stages: []core.StageConfig{
			{
				BaseSupply:      decimal.NewFromInt(900),
				PointsPerToken:  decimal.NewFromFloat(1.0),
				Floor:           decimal.NewFromFloat(10.00),
				Periods:         9,
				MaxBidsPerAgent: 1,
				Mechanism:       core.MechanismSecondPriceSingleWinner,
			},
			{
				BaseSupply:      decimal.NewFromInt(600),
				PointsPerToken:  decimal.NewFromFloat(1.5),
				Floor:           decimal.NewFromFloat(10.50),
				Periods:         9,
				MaxBidsPerAgent: 1,
				Mechanism:       core.MechanismSecondPriceSingleWinner,
			},
			{
				BaseSupply:      decimal.NewFromInt(300),
				PointsPerToken:  decimal.NewFromFloat(2.5),
				Floor:           decimal.NewFromFloat(11.03),
				Periods:         9,
				MaxBidsPerAgent: 1,
				Mechanism:       core.MechanismSecondPriceSingleWinner,
			},
		},
		SPVector:       []decimal.Decimal{decimal.NewFromInt(3), decimal.NewFromInt(2), decimal.NewFromInt(1)},
		OverallBonusSP: decimal.NewFromInt(1),
	}
}

func buildAgents(runSeed int64) []core.Agent {
	return []core.Agent{
		NewFixedMarkupAgent("fixed-high", decimal.NewFromInt(2), false),
		NewJitterAgent("jitter", runSeed, decimal.NewFromInt(3)),
	}
}

type runOutcome struct {
	Seed   int64                  `json:"seed"`
	Result *core.TournamentResult `json:"result"`
}

func main() {
	var (
		seed        = flag.Int64("seed", 1, "master seed for the batch run")
		runs        = flag.Int("runs", 1, "number of independent tournaments to run")
		concurrency = flag.Int("concurrency", 4, "maximum tournaments running at once")
		output      = flag.String("output", "", "path to write a JSON export of all results (stdout if empty)")
	)
	flag.Parse()

	if err := run(*seed, *runs, *concurrency, *output); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run(seed int64, runs, concurrency int, output string) error {
	outcomes := make([]*runOutcome, runs)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)

	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			runSeed := seed*1000003 + int64(i)
			cfg := defaultConfig()
			agents := buildAgents(runSeed)

			result, err := core.RunTournament(cfg, agents)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, runSeed, err)
			}
			log.Printf("INFO: run %d complete, winner=%q", i, result.Winner)
			outcomes[i] = &runOutcome{Seed: runSeed, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if output == "" {
		fmt.Println(string(encoded))
		return nil
	}
	if err := os.WriteFile(output, encoded, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
