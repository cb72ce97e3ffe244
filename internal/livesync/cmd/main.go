// Command liveviewer follows one match from the terminal: it fetches the
// initial snapshot, subscribes to the push channel, and prints the merged
// commentary feed as the match progresses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/clients/matchapi"
	"github.com/jimmy058910/realmrivalry-live/internal/livesync"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var (
		apiURL       = flag.String("api", envOr("MATCH_API_URL", "http://localhost:8080"), "match API base URL")
		pushURL      = flag.String("push", envOr("MATCH_PUSH_URL", "ws://localhost:8080/ws/match"), "push channel WebSocket URL")
		matchIDStr   = flag.String("match", "", "match ID to follow (required)")
		pollInterval = flag.Duration("poll", 0, "optional polling fallback interval, e.g. 10s")
	)
	flag.Parse()

	matchID, err := uuid.Parse(*matchIDStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "a valid -match UUID is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := matchapi.NewClient(*apiURL)

	done := make(chan struct{})
	config := livesync.DefaultViewerConfig()
	config.Subscriber.URL = *pushURL
	config.PollInterval = *pollInterval
	config.OnChange = printView
	config.OnComplete = func(final models.MatchSnapshot) {
		fmt.Printf("\nFull time: %d - %d\n", final.HomeScore, final.AwayScore)
		close(done)
	}

	viewer := livesync.NewViewer(matchID, client, client, config)
	defer viewer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = viewer.Open(fetchCtx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open match %s: %v\n", matchID, err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-done:
	}
}

var (
	lastFrame string
	lastEvent string
)

// printView renders the scoreboard and the newest commentary line, skipping
// repeats of the same frame.
func printView(view livesync.View) {
	if view.Snapshot == nil {
		return
	}
	snap := view.Snapshot

	frame := fmt.Sprintf("[%s] %s  %d - %d  %s",
		view.ConnectionStatus, formatClock(snap.GameTimeSec), snap.HomeScore, snap.AwayScore, snap.Status)
	if frame != lastFrame {
		fmt.Println(frame)
		lastFrame = frame
	}

	if n := len(view.DisplayedEvents); n > 0 {
		latest := view.DisplayedEvents[n-1]
		line := fmt.Sprintf("  %s  %s", formatClock(latest.TimeSec), latest.Description)
		if line != lastEvent {
			fmt.Println(line)
			lastEvent = line
		}
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
