// Package handlers implements every HTTP route. A single Handler carries
// the constructed dependencies (database, mailer, AI client, config) so
// nothing request-scoped lives in package globals.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/igen-labs/cxo-survey/ai"
	"github.com/igen-labs/cxo-survey/config"
	"gorm.io/gorm"
)

// MailSender is the outbound-mail surface the handlers need. The SMTP
// implementation lives in the mailer package; tests substitute a fake.
type MailSender interface {
	SignupLink(token string) string
	SendOTP(to, code, otpType string) error
	SendCEOInvite(to, token, orgName string) error
	SendUserInvite(to, token, orgName, departmentName string) error
	SendSurveyNotification(to, surveyTitle string, dueDate *time.Time) error
}

type Handler struct {
	DB     *gorm.DB
	Mailer MailSender
	AI     *ai.Client
	Cfg    *config.Config

	otpLimiter *otpLimiter
}

func New(db *gorm.DB, m MailSender, aiClient *ai.Client, cfg *config.Config) *Handler {
	return &Handler{
		DB:         db,
		Mailer:     m,
		AI:         aiClient,
		Cfg:        cfg,
		otpLimiter: newSendOTPLimiter(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}

// round1 rounds to one decimal place, the precision used everywhere a
// percentage leaves the API.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// completionRate is completed/total as a whole percentage.
func completionRate(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(float64(completed)/float64(total)*100 + 0.5)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
