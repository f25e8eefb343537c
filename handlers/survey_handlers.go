package handlers

import (
	"net/http"
	"time"

	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
)

// BrowseTemplates is the shared template listing available to any
// authenticated caller. Option marks stay in the payload for admin and
// CEO roles only; users get the stripped question view.
func (h *Handler) BrowseTemplates(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())

	var templates []models.Survey
	if err := h.DB.Where("is_template = ?", true).
		Order("created_at DESC").Find(&templates).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if emp.Role == models.RoleUser {
		out := make([]map[string]interface{}, 0, len(templates))
		for _, t := range templates {
			out = append(out, map[string]interface{}{
				"id":          t.ID,
				"title":       t.Title,
				"description": t.Description,
				"questions":   viewQuestions(t.Questions),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"templates": out})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

// CloneTemplate copies a template into the caller's organization. Only
// admins and CEOs may clone; the check lives here because the route is
// mounted on the shared survey router.
func (h *Handler) CloneTemplate(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	if emp.Role != models.RoleAdmin && emp.Role != models.RoleCEO {
		writeError(w, http.StatusForbidden, "Only admins and CEOs can clone templates")
		return
	}

	templateID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}
	var template models.Survey
	if err := h.DB.Where("id = ? AND is_template = ?", templateID, true).
		First(&template).Error; err != nil {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}

	var req struct {
		Title   string     `json:"title"`
		OrgID   *uint      `json:"orgId"`
		DueDate *time.Time `json:"dueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	// CEOs always clone into their own organization; admins may target any.
	orgID := emp.OrgID
	if emp.Role == models.RoleAdmin && req.OrgID != nil {
		orgID = req.OrgID
	}
	if orgID == nil {
		writeError(w, http.StatusBadRequest, "Target organization is required")
		return
	}

	title := req.Title
	if title == "" {
		title = template.Title
	}
	survey := models.Survey{
		Title:       title,
		Description: template.Description,
		OrgID:       orgID,
		CreatedBy:   emp.ID,
		Questions:   template.Questions,
		DueDate:     req.DueDate,
		Status:      models.SurveyDraft,
	}
	if err := h.DB.Create(&survey).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"survey": survey})
}
