package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanReportBuild)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := NewSlog(base).With(String("component", "report"))

	log.Debug("hidden")
	log.Warn("report truncated", Int("dropped", 3), Bool("truncated", true), Error("err", errors.New("overflow")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %s", out)
	}
	for _, want := range []string{"level=WARN", "component=report", "dropped=3", "truncated=true", "err=overflow"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l = l.With(String("k", "v"))
	l.Info("ignored", Int64("n", 1))
	if _, ok := l.(NopLogger); !ok {
		t.Fatalf("With on NopLogger should return NopLogger")
	}
}

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tracer := NewLogTracer(NewSlog(base))

	_, span := tracer.StartSpan(context.Background(), SpanReportBuild)
	span.SetTag(MetricPageCount, 2)
	span.Finish()
	span.Finish()

	_, failed := tracer.StartSpan(context.Background(), SpanTranscribe)
	failed.SetError(errors.New("upstream 502"))
	failed.Finish()

	out := buf.String()
	if n := strings.Count(out, "span=report.build"); n != 1 {
		t.Fatalf("finished span logged %d times: %s", n, out)
	}
	for _, want := range []string{"level=DEBUG", "report.pages.count=2", "level=WARN", "span=service.transcribe", `error="upstream 502"`} {
		if !strings.Contains(out, want) {
			t.Errorf("trace output missing %q: %s", want, out)
		}
	}
}
