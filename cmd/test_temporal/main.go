package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ai-context-engine/pkg/rag/temporal"

	"github.com/fatih/color"
)

// Prints how relative time phrases resolve in a given zone, against both the
// real clock and a DST-transition week. Useful when a "last week" query
// returns the wrong calendar slice. Usage:
//
//	go run ./cmd/test_temporal [timezone] ["custom phrase"]
func main() {
	timezone := "Asia/Jakarta"
	if len(os.Args) > 1 {
		timezone = os.Args[1]
	}

	phrases := []string{
		"what did I do today",
		"yesterday's standup",
		"meetings tomorrow",
		"what happened this week",
		"last week's retro",
		"next week plans",
		"summarize this month",
		"last month's invoices",
		"call with Sam next friday",
		"last monday notes",
		"no time expression here",
	}
	if len(os.Args) > 2 {
		phrases = []string{strings.Join(os.Args[2:], " ")}
	}

	color.Cyan("🕐 Temporal Resolution Diagnostic (%s)\n", timezone)

	resolver := temporal.NewResolver()
	printTable(resolver, phrases, timezone)

	// Re-run with the clock pinned inside the US DST spring-forward week;
	// day arithmetic must stay on wall-clock midnights.
	loc, err := time.LoadLocation("America/New_York")
	if err == nil {
		color.Cyan("\n🕐 Same phrases pinned to 2025-03-10 (DST week, America/New_York)\n")
		pinned := temporal.NewResolver()
		pinned.Now = func() time.Time {
			return time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
		}
		printTable(pinned, phrases, "America/New_York")
	}
}

func printTable(r *temporal.Resolver, phrases []string, timezone string) {
	for _, phrase := range phrases {
		rng := r.Resolve(phrase, timezone)
		if rng == nil {
			fmt.Printf("%-32q → ", phrase)
			color.Yellow("no match")
			continue
		}
		fmt.Printf("%-32q → ", phrase)
		color.Green("%-12s %s → %s", rng.Label,
			rng.Start.Format("Mon 2006-01-02 15:04 MST"),
			rng.End.Format("Mon 2006-01-02 15:04 MST"))
	}
}
