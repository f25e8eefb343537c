package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
	"gorm.io/gorm"
)

var ticketCategories = map[string]bool{
	"technical": true,
	"billing":   true,
	"account":   true,
	"survey":    true,
	"other":     true,
}

var ticketPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
	"urgent": true,
}

// CreateTicket opens a support ticket with its first message. The ticket
// number comes from a count inside the transaction; a duplicate under
// concurrency trips the unique index and the whole transaction retries.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	var req struct {
		Subject  string `json:"subject"`
		Category string `json:"category"`
		Priority string `json:"priority"`
		Message  string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subject == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Subject and message are required")
		return
	}
	if req.Category == "" {
		req.Category = "other"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !ticketCategories[req.Category] || !ticketPriorities[req.Priority] {
		writeError(w, http.StatusBadRequest, "Unknown category or priority")
		return
	}

	var orgID *uint
	if emp.Role != models.RoleAdmin {
		orgID = emp.OrgID
	}

	var ticket models.SupportTicket
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.SupportTicket{}).Count(&count).Error; err != nil {
				return err
			}
			ticket = models.SupportTicket{
				TicketNumber:  fmt.Sprintf("TKT-%06d", count+1),
				Subject:       req.Subject,
				Category:      req.Category,
				Priority:      req.Priority,
				Status:        models.TicketOpen,
				CreatedByID:   emp.ID,
				CreatedByRole: emp.Role,
				OrgID:         orgID,
			}
			if err := tx.Create(&ticket).Error; err != nil {
				return err
			}
			msg := models.TicketMessage{
				TicketID:   ticket.ID,
				SenderID:   emp.ID,
				SenderRole: emp.Role,
				Message:    req.Message,
			}
			return tx.Create(&msg).Error
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"ticket": ticket})
}

// isUniqueViolation matches the duplicate-key errors raised by the
// postgres and sqlite drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// ListTickets returns the caller's tickets; admins see all of them.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())

	query := h.DB.Model(&models.SupportTicket{}).Order("created_at DESC")
	if emp.Role != models.RoleAdmin {
		query = query.Where("created_by_id = ?", emp.ID)
	}
	var tickets []models.SupportTicket
	if err := query.Find(&tickets).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

// loadTicket fetches a ticket the caller may access: its creator or any
// admin. Everyone else gets 403.
func (h *Handler) loadTicket(w http.ResponseWriter, r *http.Request, emp *models.Employee) (*models.SupportTicket, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return nil, false
	}
	var ticket models.SupportTicket
	if err := h.DB.First(&ticket, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return nil, false
	}
	if emp.Role != models.RoleAdmin && ticket.CreatedByID != emp.ID {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return &ticket, true
}

// GetTicket returns one ticket with its full message thread.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	ticket, ok := h.loadTicket(w, r, emp)
	if !ok {
		return
	}

	var messages []models.TicketMessage
	h.DB.Where("ticket_id = ?", ticket.ID).Order("created_at ASC").Find(&messages)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticket":   ticket,
		"messages": messages,
	})
}

// AddMessage appends to a ticket thread. The first admin reply moves an
// open ticket to in-progress.
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	ticket, ok := h.loadTicket(w, r, emp)
	if !ok {
		return
	}
	if ticket.Status == models.TicketClosed {
		writeError(w, http.StatusBadRequest, "Ticket is closed")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	msg := models.TicketMessage{
		TicketID:   ticket.ID,
		SenderID:   emp.ID,
		SenderRole: emp.Role,
		Message:    req.Message,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if emp.Role == models.RoleAdmin && ticket.Status == models.TicketOpen {
			ticket.Status = models.TicketInProgress
			return tx.Save(ticket).Error
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": msg,
		"status":  ticket.Status,
	})
}

// AdminListTickets is the support console: optional status and priority
// filters plus counts by status, category and priority.
func (h *Handler) AdminListTickets(w http.ResponseWriter, r *http.Request) {
	query := h.DB.Model(&models.SupportTicket{}).Order("created_at DESC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	var tickets []models.SupportTicket
	if err := query.Find(&tickets).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byStatus := map[string]int64{}
	for _, s := range []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed} {
		var count int64
		h.DB.Model(&models.SupportTicket{}).Where("status = ?", s).Count(&count)
		byStatus[s] = count
	}
	byCategory := map[string]int64{}
	for category := range ticketCategories {
		var count int64
		h.DB.Model(&models.SupportTicket{}).Where("category = ?", category).Count(&count)
		byCategory[category] = count
	}
	byPriority := map[string]int64{}
	for priority := range ticketPriorities {
		var count int64
		h.DB.Model(&models.SupportTicket{}).Where("priority = ?", priority).Count(&count)
		byPriority[priority] = count
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"stats": map[string]interface{}{
			"byStatus":   byStatus,
			"byCategory": byCategory,
			"byPriority": byPriority,
		},
	})
}

// AdminUpdateTicket changes status, priority or assignment. Moving to
// resolved or closed stamps the resolution time.
func (h *Handler) AdminUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}
	var ticket models.SupportTicket
	if err := h.DB.First(&ticket, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	var req struct {
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		AssignedTo *uint   `json:"assignedTo"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Status != nil {
		switch *req.Status {
		case models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed:
		default:
			writeError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		ticket.Status = *req.Status
		if *req.Status == models.TicketResolved || *req.Status == models.TicketClosed {
			now := time.Now()
			ticket.ResolvedAt = &now
		} else {
			ticket.ResolvedAt = nil
		}
	}
	if req.Priority != nil {
		if !ticketPriorities[*req.Priority] {
			writeError(w, http.StatusBadRequest, "Unknown priority")
			return
		}
		ticket.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		ticket.AssignedToID = req.AssignedTo
	}

	if err := h.DB.Save(&ticket).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ticket": ticket})
}
