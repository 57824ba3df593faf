// Command videogen submits an async video generation job and waits for the
// result, printing rotating progress messages while the job is pending.
//
// Usage:
//
//	go run cmd/videogen/main.go -prompt "a red kite over the sea"
//	go run cmd/videogen/main.go -prompt "make it fly" -image kite.jpg
//
// Environment variables (a .env file in the working directory is honored):
//
//	GENSTUDIO_API_KEY       - Required (GEMINI_API_KEY also works)
//	GENSTUDIO_VIDEO_MODEL   - Optional model override
//	GENSTUDIO_POLL_INTERVAL - Optional poll interval, default 10s
//	GENSTUDIO_OUTPUT_DIR    - Where the .mp4 lands, default "."
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/genstudio-go/genstudio/pkg/config"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	genstudio "github.com/genstudio-go/genstudio/sdk"
)

func main() {
	prompt := flag.String("prompt", "", "text prompt for the video (required)")
	aspect := flag.String("aspect", "16:9", "aspect ratio")
	resolution := flag.String("resolution", "720p", "output resolution")
	imagePath := flag.String("image", "", "optional starting image for image-to-video")
	out := flag.String("out", "", "output file name, default generated")
	flag.Parse()

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "-prompt is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "GENSTUDIO_API_KEY required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := []genstudio.ClientOption{
		genstudio.WithAPIKey(cfg.APIKey),
		genstudio.WithLogger(logger),
		genstudio.WithPollInterval(cfg.PollInterval),
		genstudio.WithProgressInterval(cfg.ProgressInterval),
	}
	if cfg.VideoModel != "" {
		models := genservice.DefaultModels()
		models.Video = cfg.VideoModel
		opts = append(opts, genstudio.WithModels(models))
	}
	client, err := genstudio.NewClient(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	req := genservice.VideoJobRequest{
		Prompt:      *prompt,
		AspectRatio: *aspect,
		Resolution:  *resolution,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read image: %v\n", err)
			os.Exit(1)
		}
		req.StartImage = data
		req.StartImageMIME = mime.TypeByExtension(filepath.Ext(*imagePath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling...")
		cancel()
	}()

	job, err := client.Videos.Generate(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Job submitted: %s\n", job.Handle())

	go func() {
		for msg := range job.Progress() {
			fmt.Printf("  %s\n", msg)
		}
	}()

	result, err := job.Wait(ctx)
	if err != nil {
		job.Cancel()
		fmt.Fprintf(os.Stderr, "job failed: %v\n", err)
		os.Exit(1)
	}

	name := *out
	if name == "" {
		name = fmt.Sprintf("video_%d.mp4", time.Now().Unix())
	}
	path := filepath.Join(cfg.OutputDir, name)

	if len(result.VideoBytes) > 0 {
		if err := os.WriteFile(path, result.VideoBytes, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s (%d bytes)\n", path, len(result.VideoBytes))
		return
	}
	fmt.Printf("Video ready at %s (no inline bytes returned)\n", result.URI)
}
