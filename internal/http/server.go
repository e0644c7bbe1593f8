// Package http exposes the bot over HTTP: the gateway webhook, a browser
// test endpoint and the scheduler hook for daily reminders.
package http

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"contabot/internal/log"
)

// MessageHandler processes one inbound message and returns the reply text.
type MessageHandler interface {
	Handle(ctx context.Context, phone, text string) string
}

// ReminderRunner triggers the daily bill reminders.
type ReminderRunner interface {
	DailyReminders(ctx context.Context) error
}

type Server struct {
	http.Server
	handler     MessageHandler
	reminders   ReminderRunner
	cronSecret  string
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server. The
// cron endpoint is only mounted when both a runner and a secret are given.
func NewServer(addr string, handler MessageHandler, reminders ReminderRunner, cronSecret string, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: log.Middleware(logger.WithComponent(log.ComponentHTTP))(mux),
		},
		handler:     handler,
		reminders:   reminders,
		cronSecret:  cronSecret,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("POST /webhook", s.withSecurityHeaders(s.handleWebhook))
	mux.HandleFunc("GET /teste/{numero}/{msg}", s.withSecurityHeaders(s.handleTest))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	if reminders != nil && cronSecret != "" {
		mux.HandleFunc("POST /cron/reminders", s.withSecurityHeaders(s.handleCronReminders))
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type webhookRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

type webhookResponse struct {
	Success  bool   `json:"success"`
	Resposta string `json:"resposta"`
}

// handleWebhook answers one gateway message synchronously. The reply goes
// back in the response body; the gateway relays it to the sender.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Number == "" || req.Message == "" {
		http.Error(w, "number and message are required", http.StatusBadRequest)
		return
	}

	reply := s.handler.Handle(r.Context(), req.Number, sanitizeMessage(req.Message))
	writeJSON(w, http.StatusOK, webhookResponse{Success: true, Resposta: reply})
}

// handleTest lets a browser exercise the bot without the gateway:
// GET /teste/5511999999999/saldo
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("numero")
	msg, err := url.PathUnescape(r.PathValue("msg"))
	if err != nil {
		http.Error(w, "invalid message encoding", http.StatusBadRequest)
		return
	}

	reply := s.handler.Handle(r.Context(), number, sanitizeMessage(msg))
	writeJSON(w, http.StatusOK, webhookResponse{Success: true, Resposta: reply})
}

// handleCronReminders is called by the scheduler. Guarded by a shared secret
// so only the scheduler can fan out messages.
func (s *Server) handleCronReminders(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cronSecret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := s.reminders.DailyReminders(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Reminder run failed",
			log.FieldError, err.Error())
		http.Error(w, "reminder run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		logger := log.FromContext(r.Context())

		logger.InfoContext(r.Context(), "Request started",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(r.Context(), "Request completed",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
