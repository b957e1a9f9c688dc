package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/medreport/observability"
	"github.com/wudi/medreport/report"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l observability.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer for collaborator calls.
func WithTracer(t observability.Tracer) ServerOption {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithRequestTimeout bounds the time spent on one request.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithMaxUpload limits the accepted audio upload size in bytes.
func WithMaxUpload(n int64) ServerOption {
	return func(s *Server) {
		s.maxUpload = n
	}
}

// Server exposes transcription, report generation and PDF creation over HTTP.
type Server struct {
	assembler   *report.Assembler
	transcriber Transcriber
	generator   Generator
	logger      observability.Logger
	tracer      observability.Tracer
	timeout     time.Duration
	maxUpload   int64
	mux         *http.ServeMux
}

// NewServer wires the handlers. A nil transcriber or generator makes the
// matching endpoint answer 503.
func NewServer(a *report.Assembler, t Transcriber, g Generator, opts ...ServerOption) *Server {
	s := &Server{
		assembler:   a,
		transcriber: t,
		generator:   g,
		logger:      observability.NopLogger{},
		tracer:      observability.NopTracer(),
		timeout:     60 * time.Second,
		maxUpload:   25 << 20,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("POST /api/generate-report", s.handleGenerateReport)
	s.mux.HandleFunc("POST /api/create-pdf", s.handleCreatePDF)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the root handler with request IDs, timeouts and logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := r.Context()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.Info("request",
			observability.String("request_id", id),
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Int("status", rec.status),
			observability.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "Transcription not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "No audio file")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file")
		return
	}
	defer file.Close()

	ctx, span := s.tracer.StartSpan(r.Context(), observability.SpanTranscribe)
	defer span.Finish()
	transcript, err := s.transcriber.Transcribe(ctx, file, header.Header.Get("Content-Type"))
	if err != nil {
		span.SetError(err)
		s.logger.Error("transcription failed", observability.Error("error", err))
		writeError(w, http.StatusInternalServerError, "Transcription failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

type generateRequest struct {
	Transcript *string `json:"transcript"`
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "Report generation not configured")
		return
	}
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil || req.Transcript == nil {
		writeError(w, http.StatusBadRequest, "Missing transcript")
		return
	}

	ctx, span := s.tracer.StartSpan(r.Context(), observability.SpanGenerate)
	defer span.Finish()
	text, err := s.generator.Generate(ctx, *req.Transcript)
	if err != nil {
		span.SetError(err)
		if errors.Is(err, ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "Missing transcript")
			return
		}
		s.logger.Error("report generation failed", observability.Error("error", err))
		writeError(w, http.StatusInternalServerError, "Report generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": text})
}

type createPDFRequest struct {
	Report *string `json:"report"`
}

func (s *Server) handleCreatePDF(w http.ResponseWriter, r *http.Request) {
	var req createPDFRequest
	if err := decodeJSON(r, &req); err != nil || req.Report == nil {
		writeError(w, http.StatusBadRequest, "Missing report")
		return
	}
	out, err := s.assembler.Build(r.Context(), *req.Report)
	if err != nil {
		if errors.Is(err, report.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid report text")
			return
		}
		s.logger.Error("PDF creation failed", observability.Error("error", err))
		writeError(w, http.StatusInternalServerError, "PDF creation failed")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(out.PDF)))
	h.Set("X-Report-Pages", strconv.Itoa(out.Pages))
	h.Set("X-Report-Truncated", strconv.FormatBool(out.Truncated))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.PDF)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
