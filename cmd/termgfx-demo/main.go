// Command termgfx-demo streams synthetic terminal output through a
// headless engine and prints the resulting stats document. It exercises
// the whole pipeline without a GPU: scrollback, shaping, atlas packing,
// batching, caching, and the scheduler.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/font/gofont/gomono"

	"github.com/gogpu/termgfx"
	"github.com/gogpu/termgfx/batch"
	"github.com/gogpu/termgfx/termbuf"
)

// discardSubmitter accepts every batch; the demo only cares about the
// counters the engine accumulates along the way.
type discardSubmitter struct{}

func (discardSubmitter) Submit(*batch.Batch) error { return nil }

func main() {
	var (
		lines      = flag.Int("lines", 5000, "number of lines to stream")
		frames     = flag.Int("frames", 120, "number of frames to run")
		configPath = flag.String("config", "", "optional JSON settings file")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		termgfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var settings []byte
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("read config: %v", err)
		}
		settings = data
	}
	cfg, err := termgfx.ParseConfig(settings)
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	cfg.Font = gomono.TTF

	engine, err := termgfx.New(discardSubmitter{}, cfg)
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}
	defer engine.Close()

	errStyle := termbuf.Style{Foreground: termbuf.RGB(255, 85, 85), Bold: true}
	warnStyle := termbuf.Style{Foreground: termbuf.RGB(255, 204, 0)}

	now := time.Unix(0, 0)
	perFrame := *lines / *frames
	if perFrame < 1 {
		perFrame = 1
	}
	streamed := 0
	for f := 0; f < *frames; f++ {
		for i := 0; i < perFrame && streamed < *lines; i++ {
			streamed++
			switch streamed % 50 {
			case 0:
				line := fmt.Sprintf("error: worker %d failed after %d retries", streamed%8, streamed%5)
				engine.AddLine(line, termbuf.Span{Start: 0, End: 6, Style: errStyle})
			case 25:
				line := fmt.Sprintf("warn: queue depth %d exceeds threshold", streamed%1000)
				engine.AddLine(line, termbuf.Span{Start: 0, End: 5, Style: warnStyle})
			default:
				engine.AddLine(fmt.Sprintf("request %06d handled in %dms", streamed, streamed%40))
			}
		}
		if err := engine.Frame(now); err != nil {
			log.Fatalf("frame %d: %v", f, err)
		}
		now = now.Add(16 * time.Millisecond)
	}

	if hits := engine.Search("error"); len(hits) > 0 {
		fmt.Fprintf(os.Stderr, "search: %d retained lines mention \"error\"\n", len(hits))
	}

	doc, err := engine.StatsJSON()
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Println(string(doc))
}
