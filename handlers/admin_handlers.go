package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
	"github.com/igen-labs/cxo-survey/scoring"
	"gorm.io/gorm"
)

func pathID(r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// CreateOrganization registers a new organization and invites its CEO.
// Mail delivery is best effort; the invite link is returned either way so
// the admin can share it manually.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	admin := auth.EmployeeFromContext(r.Context())
	var req struct {
		Name     string `json:"name"`
		CEOEmail string `json:"ceoEmail"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.CEOEmail)
	if req.Name == "" || email == "" {
		writeError(w, http.StatusBadRequest, "Organization name and CEO email are required")
		return
	}
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	var accepted int64
	h.DB.Model(&models.Employee{}).
		Where("email = ? AND invite_status = ?", email, models.InviteAccepted).
		Count(&accepted)
	if accepted > 0 {
		writeError(w, http.StatusBadRequest, "An account with this email already exists")
		return
	}

	token := uuid.NewString()
	var org models.Organization

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		// A re-invite supersedes any prior pending chain for this email:
		// old invite links die, placeholder accounts and never-activated
		// orgs are removed. Accepted history stays for audit.
		if err := tx.Model(&models.InviteLog{}).
			Where("email = ? AND status IN ?", email,
				[]string{models.InviteLogSent, models.InviteLogClicked}).
			Update("status", models.InviteLogExpired).Error; err != nil {
			return err
		}

		var pending models.Employee
		if err := tx.Where("email = ? AND invite_status = ?", email, models.InvitePending).
			First(&pending).Error; err == nil {
			if pending.OrgID != nil {
				tx.Where("id = ? AND status = ?", *pending.OrgID, models.OrgStatusPending).
					Delete(&models.Organization{})
			}
			if err := tx.Unscoped().Delete(&pending).Error; err != nil {
				return err
			}
		}

		org = models.Organization{
			Name:        req.Name,
			CEOEmail:    email,
			InviteToken: token,
			Status:      models.OrgStatusPending,
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		placeholder := models.Employee{
			Name:         "CEO",
			Email:        email,
			Role:         models.RoleCEO,
			OrgID:        &org.ID,
			InviteToken:  token,
			InviteStatus: models.InvitePending,
		}
		if err := tx.Create(&placeholder).Error; err != nil {
			return err
		}

		invite := models.InviteLog{
			Email:     email,
			OrgID:     &org.ID,
			InvitedBy: admin.ID,
			Role:      models.RoleCEO,
			Token:     token,
			Status:    models.InviteLogSent,
			SentAt:    time.Now(),
			ExpiresAt: time.Now().Add(models.InviteLogTTL),
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	emailSent := true
	message := "Organization created and invitation sent"
	if err := h.Mailer.SendCEOInvite(email, token, org.Name); err != nil {
		log.Printf("CEO invite mail to %s: %v", email, err)
		emailSent = false
		message = "Organization created but the invitation email could not be sent. Share the signup link manually."
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"organization": org,
		"inviteToken":  token,
		"emailSent":    emailSent,
		"signupLink":   h.Mailer.SignupLink(token),
		"message":      message,
	})
}

// ResendCEOInvite rotates the invite token for a still-pending organization
// and mails the CEO again.
func (h *Handler) ResendCEOInvite(w http.ResponseWriter, r *http.Request) {
	admin := auth.EmployeeFromContext(r.Context())
	orgID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	var org models.Organization
	if err := h.DB.First(&org, orgID).Error; err != nil {
		writeError(w, http.StatusNotFound, "Organization not found")
		return
	}
	if org.Status != models.OrgStatusPending {
		writeError(w, http.StatusBadRequest, "Organization is already active")
		return
	}

	token := uuid.NewString()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.InviteLog{}).
			Where("email = ? AND status IN ?", org.CEOEmail,
				[]string{models.InviteLogSent, models.InviteLogClicked}).
			Update("status", models.InviteLogExpired).Error; err != nil {
			return err
		}
		if err := tx.Model(&org).Update("invite_token", token).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Employee{}).
			Where("email = ? AND invite_status = ?", org.CEOEmail, models.InvitePending).
			Update("invite_token", token).Error; err != nil {
			return err
		}
		invite := models.InviteLog{
			Email:     org.CEOEmail,
			OrgID:     &org.ID,
			InvitedBy: admin.ID,
			Role:      models.RoleCEO,
			Token:     token,
			Status:    models.InviteLogSent,
			SentAt:    time.Now(),
			ExpiresAt: time.Now().Add(models.InviteLogTTL),
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	emailSent := true
	if err := h.Mailer.SendCEOInvite(org.CEOEmail, token, org.Name); err != nil {
		log.Printf("CEO invite mail to %s: %v", org.CEOEmail, err)
		emailSent = false
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Invitation resent",
		"inviteToken": token,
		"emailSent":   emailSent,
		"signupLink":  h.Mailer.SignupLink(token),
	})
}

type orgStats struct {
	Employees      int64 `json:"employees"`
	Departments    int64 `json:"departments"`
	Surveys        int64 `json:"surveys"`
	CompletionRate int   `json:"completionRate"`
}

func (h *Handler) statsForOrg(orgID uint) orgStats {
	var s orgStats
	h.DB.Model(&models.Employee{}).
		Where("org_id = ? AND role = ?", orgID, models.RoleUser).
		Count(&s.Employees)
	h.DB.Model(&models.Department{}).Where("org_id = ?", orgID).Count(&s.Departments)
	h.DB.Model(&models.Survey{}).Where("org_id = ?", orgID).Count(&s.Surveys)

	var total, completed int64
	h.DB.Model(&models.SurveyAssignment{}).Where("org_id = ?", orgID).Count(&total)
	h.DB.Model(&models.SurveyAssignment{}).
		Where("org_id = ? AND status = ?", orgID, models.AssignmentCompleted).
		Count(&completed)
	s.CompletionRate = completionRate(completed, total)
	return s
}

// ListOrganizations returns every organization with headline stats.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	var orgs []models.Organization
	if err := h.DB.Order("created_at DESC").Find(&orgs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(orgs))
	for i := range orgs {
		out = append(out, map[string]interface{}{
			"organization": orgs[i],
			"stats":        h.statsForOrg(orgs[i].ID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"organizations": out})
}

// GetOrganization is the admin drill-down: departments, employees and
// surveys for one organization.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	var org models.Organization
	if err := h.DB.First(&org, orgID).Error; err != nil {
		writeError(w, http.StatusNotFound, "Organization not found")
		return
	}

	var departments []models.Department
	h.DB.Where("org_id = ?", orgID).Find(&departments)
	var employees []models.Employee
	h.DB.Where("org_id = ?", orgID).Order("created_at DESC").Find(&employees)
	var surveys []models.Survey
	h.DB.Where("org_id = ?", orgID).Order("created_at DESC").Find(&surveys)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": org,
		"departments":  departments,
		"employees":    employees,
		"surveys":      surveys,
		"stats":        h.statsForOrg(orgID),
	})
}

// assignQuestionIDs stamps a stable identity on every question that lacks
// one so answers can reference questions across template clones.
func assignQuestionIDs(questions models.QuestionList) models.QuestionList {
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	return questions
}

// CreateTemplate stores an admin-authored survey template. Templates have
// no organization; CEOs clone them into their own.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	admin := auth.EmployeeFromContext(r.Context())
	var req struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Questions   models.QuestionList `json:"questions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "Title and at least one question are required")
		return
	}

	template := models.Survey{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   admin.ID,
		Questions:   assignQuestionIDs(req.Questions),
		IsTemplate:  true,
		Status:      models.SurveyDraft,
	}
	if err := h.DB.Create(&template).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"template": template})
}

// ListTemplates returns every template for the admin console.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []models.Survey
	if err := h.DB.Where("is_template = ?", true).
		Order("created_at DESC").Find(&templates).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}
	var template models.Survey
	if err := h.DB.Where("id = ? AND is_template = ?", id, true).
		First(&template).Error; err != nil {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"template": template})
}

// UpdateTemplate replaces the editable fields of a template. Existing
// question IDs are preserved; new questions get fresh ones.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}
	var template models.Survey
	if err := h.DB.Where("id = ? AND is_template = ?", id, true).
		First(&template).Error; err != nil {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}

	var req struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		Questions   *models.QuestionList `json:"questions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title != nil {
		template.Title = *req.Title
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Questions != nil {
		template.Questions = assignQuestionIDs(*req.Questions)
	}
	if err := h.DB.Save(&template).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"template": template})
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid template id")
		return
	}
	res := h.DB.Where("id = ? AND is_template = ?", id, true).Delete(&models.Survey{})
	if res.Error != nil {
		writeError(w, http.StatusInternalServerError, res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Template deleted"})
}

// ListInvites is the platform-wide invitation audit trail.
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	query := h.DB.Model(&models.InviteLog{}).Order("created_at DESC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var invites []models.InviteLog
	if err := query.Find(&invites).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

// AdminDashboard aggregates platform-wide counts plus recent submissions.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	var orgs, activeOrgs, employees, surveys, responses int64
	h.DB.Model(&models.Organization{}).Count(&orgs)
	h.DB.Model(&models.Organization{}).
		Where("status = ?", models.OrgStatusActive).Count(&activeOrgs)
	h.DB.Model(&models.Employee{}).Where("role = ?", models.RoleUser).Count(&employees)
	h.DB.Model(&models.Survey{}).Where("is_template = ?", false).Count(&surveys)
	h.DB.Model(&models.SurveyResponse{}).Where("is_draft = ?", false).Count(&responses)

	var total, completed int64
	h.DB.Model(&models.SurveyAssignment{}).Count(&total)
	h.DB.Model(&models.SurveyAssignment{}).
		Where("status = ?", models.AssignmentCompleted).Count(&completed)

	var recent []models.SurveyResponse
	h.DB.Where("is_draft = ?", false).
		Order("submitted_at DESC").Limit(10).Find(&recent)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organizations":       orgs,
		"activeOrganizations": activeOrgs,
		"employees":           employees,
		"surveys":             surveys,
		"responses":           responses,
		"completionRate":      completionRate(completed, total),
		"recentResponses":     recent,
	})
}

// responseScores is the admin-facing view of one submission with every
// score dimension exposed.
type responseScores struct {
	ResponseID   uint       `json:"responseId"`
	SurveyID     uint       `json:"surveyId"`
	SurveyTitle  string     `json:"surveyTitle"`
	EmployeeID   uint       `json:"employeeId"`
	EmployeeName string     `json:"employeeName"`
	SubmittedAt  *time.Time `json:"submittedAt"`
	MaxScore     int        `json:"maxScore"`

	Present scoring.AspectScore `json:"present"`
	Future  scoring.AspectScore `json:"future"`
}

func (h *Handler) scoresFor(resp *models.SurveyResponse) responseScores {
	var survey models.Survey
	h.DB.First(&survey, resp.SurveyID)
	var emp models.Employee
	h.DB.First(&emp, resp.EmployeeID)

	return responseScores{
		ResponseID:   resp.ID,
		SurveyID:     resp.SurveyID,
		SurveyTitle:  survey.Title,
		EmployeeID:   resp.EmployeeID,
		EmployeeName: emp.Name,
		SubmittedAt:  resp.SubmittedAt,
		MaxScore:     scoring.MaxScore(len(survey.Questions)),
		Present: scoring.AspectScore{
			CreativityTotal:      resp.PresentCreativityTotal,
			MoralityTotal:        resp.PresentMoralityTotal,
			CreativityPercentage: resp.PresentCreativityPercentage,
			MoralityPercentage:   resp.PresentMoralityPercentage,
			CreativityBand:       resp.PresentCreativityBand,
			MoralityBand:         resp.PresentMoralityBand,
			Quadrant:             scoring.Quadrant(resp.PresentCreativityPercentage, resp.PresentMoralityPercentage),
		},
		Future: scoring.AspectScore{
			CreativityTotal:      resp.FutureCreativityTotal,
			MoralityTotal:        resp.FutureMoralityTotal,
			CreativityPercentage: resp.FutureCreativityPercentage,
			MoralityPercentage:   resp.FutureMoralityPercentage,
			CreativityBand:       resp.FutureCreativityBand,
			MoralityBand:         resp.FutureMoralityBand,
			Quadrant:             scoring.Quadrant(resp.FutureCreativityPercentage, resp.FutureMoralityPercentage),
		},
	}
}

// OrgUserMarks lists scored submissions for every user in an organization.
// Marks are an admin-only view.
func (h *Handler) OrgUserMarks(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization id")
		return
	}

	var responses []models.SurveyResponse
	if err := h.DB.Where("org_id = ? AND is_draft = ?", orgID, false).
		Order("submitted_at DESC").Find(&responses).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]responseScores, 0, len(responses))
	for i := range responses {
		out = append(out, h.scoresFor(&responses[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"responses": out})
}

// GetResponse returns one submission with full marks and answers.
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid response id")
		return
	}
	var resp models.SurveyResponse
	if err := h.DB.First(&resp, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Response not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scores":  h.scoresFor(&resp),
		"answers": resp.Answers,
	})
}

// GetUserDetail is the per-employee admin view: every scored submission
// plus averaged percentages across them.
func (h *Handler) GetUserDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid employee id")
		return
	}

	var emp models.Employee
	if err := h.DB.First(&emp, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Employee not found")
		return
	}

	var responses []models.SurveyResponse
	h.DB.Where("employee_id = ? AND is_draft = ?", emp.ID, false).
		Order("submitted_at DESC").Find(&responses)

	scored := make([]responseScores, 0, len(responses))
	var sumPC, sumPM, sumFC, sumFM float64
	for i := range responses {
		scored = append(scored, h.scoresFor(&responses[i]))
		sumPC += responses[i].PresentCreativityPercentage
		sumPM += responses[i].PresentMoralityPercentage
		sumFC += responses[i].FutureCreativityPercentage
		sumFM += responses[i].FutureMoralityPercentage
	}

	summary := map[string]interface{}{"surveysCompleted": len(scored)}
	if n := float64(len(scored)); n > 0 {
		summary["avgPresentCreativity"] = round1(sumPC / n)
		summary["avgPresentMorality"] = round1(sumPM / n)
		summary["avgFutureCreativity"] = round1(sumFC / n)
		summary["avgFutureMorality"] = round1(sumFM / n)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"employee":  toUserPayload(&emp),
		"responses": scored,
		"summary":   summary,
	})
}
