// Command voice-live runs a duplex live voice conversation from the
// terminal: microphone audio streams up, model speech plays back, and both
// sides' transcripts print as they arrive.
//
// Usage:
//
//	go run cmd/voice-live/main.go
//
// Environment variables (a .env file in the working directory is honored):
//
//	GENSTUDIO_API_KEY           - Required (GEMINI_API_KEY also works)
//	GENSTUDIO_LIVE_MODEL        - Optional model override
//	GENSTUDIO_VOICE             - Optional voice, default Puck
//	GENSTUDIO_SYSTEM_INSTRUCTION- Optional conversation steering
//	GENSTUDIO_METRICS_ADDR      - Optional Prometheus endpoint address
//
// Press q or ESC to quit.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/genstudio-go/genstudio/pkg/config"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/core/live"
	"github.com/genstudio-go/genstudio/pkg/metrics"
	genstudio "github.com/genstudio-go/genstudio/sdk"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "GENSTUDIO_API_KEY required")
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	mtr := metrics.New("genstudio")
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mtr.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	opts := []genstudio.ClientOption{
		genstudio.WithAPIKey(cfg.APIKey),
		genstudio.WithLogger(logger),
		genstudio.WithMetrics(mtr),
	}
	if cfg.LiveModel != "" {
		models := genservice.DefaultModels()
		models.Live = cfg.LiveModel
		opts = append(opts, genstudio.WithModels(models))
	}
	client, err := genstudio.NewClient(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Println("Starting live session... speak when ready. Press q or ESC to quit.")

	session, err := client.Live.StartSession(ctx, genstudio.LiveSessionOptions{
		SystemInstruction: cfg.SystemInstruction,
		Voice:             cfg.Voice,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}
	defer session.Stop()

	go func() {
		<-ctx.Done()
		session.Stop()
	}()

	// Raw mode so single keypresses arrive without Enter.
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, oldState)
			go func() {
				buf := make([]byte, 1)
				for {
					n, err := os.Stdin.Read(buf)
					if err != nil || n == 0 {
						return
					}
					if buf[0] == 'q' || buf[0] == 0x1b {
						cancel()
						session.Stop()
						return
					}
				}
			}()
		}
	}

	for event := range session.Events() {
		switch e := event.(type) {
		case *live.UserTranscriptEvent:
			fmt.Printf("\r\n[you] %s", e.Text)
		case *live.ModelTranscriptEvent:
			fmt.Printf("\r\n[model] %s", e.Text)
		case *live.TurnCompletedEvent:
			fmt.Printf("\r\n--- turn complete (%d turns) ---\r\n", len(session.History()))
		case *live.InterruptedEvent:
			fmt.Print("\r\n[interrupted]\r\n")
		case *live.ErrorEvent:
			fmt.Fprintf(os.Stderr, "\r\nsession error: %v\r\n", e.Err)
		case *live.SessionEndedEvent:
			fmt.Printf("\r\nSession ended: %s\r\n", e.Reason)
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
