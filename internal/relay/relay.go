// Package relay implements the demo-request endpoint: it validates the
// form, mails the request to the sales inbox and persists it.
package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"

	"zoneguard/internal/metrics"
	"zoneguard/internal/store"
)

// Mailer sends a demo request somewhere a human reads it.
type Mailer interface {
	SendDemoRequest(email, phone string) error
}

// SMTPConfig configures the outgoing mail account.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// To defaults to Username, matching the single-inbox setup.
	To string
}

// SMTPMailer sends demo requests over plain SMTP with auth.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns a mailer for the given account.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.To == "" {
		cfg.To = cfg.Username
	}
	return &SMTPMailer{cfg: cfg}
}

// SendDemoRequest mails the request to the configured inbox.
func (m *SMTPMailer) SendDemoRequest(email, phone string) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: New Demo Request\r\n\r\n"+
		"New demo request received:\r\n\r\nEmail: %s\r\nPhone: %s\r\n",
		m.cfg.Username, m.cfg.To, email, phone)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.Username, []string{m.cfg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Handler serves POST /api/request-demo.
type Handler struct {
	mailer  Mailer
	store   *store.Store
	metrics *metrics.Metrics
}

// NewHandler wires the endpoint. store and metrics are optional.
func NewHandler(mailer Mailer, st *store.Store, m *metrics.Metrics) *Handler {
	return &Handler{mailer: mailer, store: st, metrics: m}
}

type demoRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ServeHTTP validates the form, sends the mail and persists the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, messageResponse{Message: "Method not allowed."})
		return
	}

	var req demoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Email and phone are required."})
		return
	}

	if err := h.mailer.SendDemoRequest(req.Email, req.Phone); err != nil {
		log.Printf("[Relay] email sending failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to send email."})
		return
	}

	if h.store != nil {
		if err := h.store.SaveDemoRequest(&store.DemoRequest{Email: req.Email, Phone: req.Phone}); err != nil {
			// The mail went out; a failed insert is logged, not surfaced.
			log.Printf("[Relay] persist demo request: %v", err)
		}
	}
	if h.metrics != nil {
		h.metrics.DemoRequests.Add(1)
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Demo request sent!"})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
