// Command local plays a full AI-versus-AI game in one process and
// prints the outcome. Useful for watching the rules in motion without
// a server, MongoDB, or Redis.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/ai"
	"github.com/maslul/backend/internal/game/local"
)

func main() {
	var (
		players = flag.Int("players", 4, "number of AI players (2-4)")
		seed    = flag.Int64("seed", 0, "random seed, 0 for time-based")
		delays  = flag.Bool("delays", false, "apply AI thinking delays")
		turns   = flag.Int("max-turns", 2000, "safety cap on played turns")
		verbose = flag.Bool("verbose", false, "log every engine step")
	)
	flag.Parse()

	if *players < 2 || *players > 4 {
		fmt.Fprintln(os.Stderr, "players must be between 2 and 4")
		os.Exit(1)
	}

	var zl *zap.Logger
	var err error
	if *verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	runner, err := local.NewRunner(local.Options{
		Players:     ai.Personalities()[:*players],
		Seed:        *seed,
		ApplyDelays: *delays,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to set up game: %v", err)
	}

	winner, err := runner.Run(*turns)
	if err != nil {
		logger.Fatalf("Game aborted: %v", err)
	}

	g := runner.Game()
	if winner == nil {
		fmt.Printf("No winner after %d rounds\n", g.Round)
		return
	}

	fmt.Printf("Winner: %s (%s) by %s after %d rounds\n",
		winner.Name, winner.ID, g.WinReason, g.Round)
	for _, p := range g.Players {
		fmt.Printf("  %-10s balance=%-5d properties=%d\n", p.Name, p.Balance, len(p.Properties))
	}
	for _, p := range g.Players {
		for _, rec := range runner.Tracker().Records(p.ID) {
			if rec.Unlocked {
				fmt.Printf("  %s unlocked %s\n", p.Name, rec.DefID)
			}
		}
	}
}
