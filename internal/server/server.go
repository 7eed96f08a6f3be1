package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/visionrelay/visionrelay/internal/common"
	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/llm"
	"github.com/visionrelay/visionrelay/internal/relay"
)

// Service carries the dependencies of the HTTP layer.
type Service struct {
	Log   *slog.Logger
	Cfg   *config.Config
	Relay *relay.Service
}

// NewHTTPServer builds the http.Server with routes and middleware.
func NewHTTPServer(svc *Service) *http.Server {
	return &http.Server{
		Addr:         svc.Cfg.Server.Addr,
		Handler:      svc.Handler(),
		ReadTimeout:  svc.Cfg.Server.ReadTimeout,
		WriteTimeout: svc.Cfg.Server.WriteTimeout,
		IdleTimeout:  svc.Cfg.Server.IdleTimeout,
	}
}

// Handler returns the routed and middleware-wrapped handler tree.
func (svc *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+common.PathHealthz, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc(http.MethodGet+" "+common.PathRoot+"{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "vision relay is running"})
	})
	mux.HandleFunc(http.MethodPost+" "+common.PathOCR, svc.withCommon(svc.handleOCR))
	mux.HandleFunc(http.MethodOptions+" "+common.PathOCR, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := corsMiddleware(mux, svc.Cfg.Server.AllowedOrigins)
	handler = loggingMiddleware(handler, svc.Log)
	handler = requestIDMiddleware(handler)
	return recoveryMiddleware(handler)
}

func (svc *Service) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Enforce API key if configured
		if key := strings.TrimSpace(svc.Cfg.Server.APIKey); key != "" {
			if r.Header.Get(common.HeaderAPIKey) != key {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		// Enforce max body size
		if max := safeInt64(svc.Cfg.Server.MaxUploadSize); max > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, max)
		}
		next.ServeHTTP(w, r)
	}
}

// ocrResponse mirrors the contract the frontend consumes: full text, the
// annotated image when one was produced, and a terminal done flag.
type ocrResponse struct {
	Text           string  `json:"text"`
	ProcessedImage *string `json:"processed_image"`
	Done           bool    `json:"done"`
}

func (svc *Service) handleOCR(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(safeInt64(svc.Cfg.Server.MaxUploadSize)); err != nil {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File[common.FormFieldFile]
	if len(fileHeaders) == 0 {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	src, err := fileHeaders[0].Open()
	if err != nil {
		http.Error(w, "open upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = src.Close() }()

	imageData, err := io.ReadAll(src)
	if err != nil {
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(imageData) == 0 {
		http.Error(w, "file is empty", http.StatusBadRequest)
		return
	}
	prompt := r.FormValue(common.FormFieldPrompt)

	res, err := svc.Relay.Process(r.Context(), imageData, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			svc.logFor(r).Error("inference backend unavailable", "err", err)
			http.Error(w, "upstream unavailable: "+err.Error(), http.StatusBadGateway)
			return
		}
		svc.logFor(r).Error("ocr processing failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := ocrResponse{Text: res.Text, Done: true}
	if res.Annotated != nil {
		encoded := base64.StdEncoding.EncodeToString(res.Annotated)
		out.ProcessedImage = &encoded
	}
	writeJSON(w, http.StatusOK, out)
}

func (svc *Service) logFor(r *http.Request) *slog.Logger {
	log := svc.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if id := r.Header.Get(common.HeaderRequestID); id != "" {
		log = log.With("request_id", id)
	}
	return log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", common.ContentTypeJSON)
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

func safeInt64(u config.ByteSize) int64 {
	if u > config.ByteSize(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(u) // #nosec G115 - safe cast after explicit upper-bound check
}

// requestIDMiddleware tags each request with an ID that flows into logs and
// the response headers.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(common.HeaderRequestID, id)
		}
		w.Header().Set(common.HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, origins []string) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	// Fallback to a discard logger if none provided to avoid nil deref in tests or minimal setups.
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &writeWrap{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(ww, r)
		log.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.code,
			"duration", time.Since(start).String(),
			"request_id", r.Header.Get(common.HeaderRequestID),
			"remote", r.RemoteAddr)
	})
}

type writeWrap struct {
	http.ResponseWriter
	code int
}

func (w *writeWrap) WriteHeader(statusCode int) {
	w.code = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *writeWrap) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
