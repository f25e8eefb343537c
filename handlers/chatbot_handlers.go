package handlers

import (
	"net/http"
	"time"

	"github.com/igen-labs/cxo-survey/ai"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
)

const chatbotSystemPrompt = `You are a helpful support assistant for the CXO Survey platform,
a survey administration tool where organizations run leadership assessments.
Answer questions about using the platform: logging in with email OTP,
accepting invitations, filling and submitting surveys, saving drafts,
managing departments and employees, assigning surveys and raising support
tickets. Keep answers short and practical. If a question needs account
specific help you cannot provide, suggest opening a support ticket.
Never reveal or speculate about survey scores, marks or assessment results.`

// maxChatHistory bounds how many prior turns are forwarded per request.
const maxChatHistory = 5

// Chat proxies a help question to the AI backend with trimmed history.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.AI.Configured() {
		writeError(w, http.StatusServiceUnavailable, "Chatbot is not available right now")
		return
	}

	var req struct {
		Message string    `json:"message"`
		History []ai.Turn `json:"history"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	history := req.History
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	reply, err := h.AI.Reply(r.Context(), chatbotSystemPrompt, history, req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Chatbot request failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":     reply,
		"timestamp": time.Now().UTC(),
	})
}

// QuickReplies returns the canned starter questions shown in the chat
// widget, varying slightly by role.
func (h *Handler) QuickReplies(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())

	replies := []string{
		"How do I log in with an OTP?",
		"My invitation link expired, what do I do?",
		"How do I open a support ticket?",
	}
	switch emp.Role {
	case models.RoleCEO:
		replies = append(replies,
			"How do I invite employees to a department?",
			"How do I assign a survey to a department?",
		)
	case models.RoleUser:
		replies = append(replies,
			"How do I save a survey draft?",
			"Can I change my answers after submitting?",
		)
	default:
		replies = append(replies,
			"How do I create an organization?",
			"How do I build a survey template?",
		)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"quickReplies": replies})
}
