// Command reportd serves transcription, report generation and PDF creation
// over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/medreport/config"
	"github.com/wudi/medreport/observability"
	"github.com/wudi/medreport/report"
	"github.com/wudi/medreport/service"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args, os.Stderr, os.Getenv, nil); err != nil {
		fmt.Fprintln(os.Stderr, "reportd:", err)
		os.Exit(1)
	}
}

// run starts the server and blocks until ctx is cancelled. When ready is
// non-nil it receives the bound listener address.
func run(ctx context.Context, args []string, stderr io.Writer, getenv func(string) string, ready chan<- string) error {
	fs := flag.NewFlagSet("reportd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "YAML config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *version {
		fmt.Fprintf(stderr, "reportd %s\n", Version)
		return nil
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	base, err := newSlog(cfg, stderr)
	if err != nil {
		return err
	}
	logger := observability.NewSlog(base)

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		base.Debug(fmt.Sprintf(format, args...))
	}))

	timeout, _ := cfg.RequestTimeout()
	tracer := observability.NewLogTracer(logger.With(observability.String("component", "trace")))
	assembler := report.New(append(cfg.ReportOptions(),
		report.WithLogger(logger.With(observability.String("component", "report"))),
		report.WithTracer(tracer),
	)...)

	var transcriber service.Transcriber
	if cfg.Deepgram.APIKey != "" {
		transcriber = service.NewDeepgram(cfg.Deepgram.APIKey,
			service.WithDeepgramBaseURL(cfg.Deepgram.BaseURL),
			service.WithDeepgramModel(cfg.Deepgram.Model),
		)
	} else {
		logger.Warn("DEEPGRAM_API_KEY not set; /api/transcribe disabled")
	}
	var generator service.Generator
	if cfg.Gemini.APIKey != "" {
		g, err := service.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		generator = g
	} else {
		logger.Warn("GEMINI_API_KEY not set; /api/generate-report disabled")
	}

	srv := service.NewServer(assembler, transcriber, generator,
		service.WithLogger(logger.With(observability.String("component", "http"))),
		service.WithTracer(tracer),
		service.WithRequestTimeout(timeout),
		service.WithMaxUpload(int64(cfg.Server.MaxUploadMB)<<20),
	)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", observability.String("addr", ln.Addr().String()), observability.String("version", Version))
		if ready != nil {
			ready <- ln.Addr().String()
		}
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSlog(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
