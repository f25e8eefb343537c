package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
	"gorm.io/gorm"
)

// orgScoped returns the caller's organization id or writes a 400 when the
// account has none (a misprovisioned CEO).
func orgScoped(w http.ResponseWriter, r *http.Request) (*models.Employee, uint, bool) {
	emp := auth.EmployeeFromContext(r.Context())
	if emp.OrgID == nil {
		writeError(w, http.StatusBadRequest, "Account is not attached to an organization")
		return nil, 0, false
	}
	return emp, *emp.OrgID, true
}

// CEODashboard summarizes the caller's organization: team counts, per
// department completion and the latest surveys.
func (h *Handler) CEODashboard(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}

	var departments []models.Department
	h.DB.Where("org_id = ?", orgID).Find(&departments)

	deptStats := make([]map[string]interface{}, 0, len(departments))
	for _, dept := range departments {
		var members, accepted int64
		h.DB.Model(&models.Employee{}).
			Where("department_id = ? AND role = ?", dept.ID, models.RoleUser).
			Count(&members)
		h.DB.Model(&models.Employee{}).
			Where("department_id = ? AND role = ? AND invite_status = ?",
				dept.ID, models.RoleUser, models.InviteAccepted).
			Count(&accepted)

		var assigned, completed int64
		h.DB.Model(&models.SurveyAssignment{}).
			Where("department_id = ?", dept.ID).Count(&assigned)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("department_id = ? AND status = ?", dept.ID, models.AssignmentCompleted).
			Count(&completed)

		deptStats = append(deptStats, map[string]interface{}{
			"department":     dept,
			"employees":      members,
			"accepted":       accepted,
			"assigned":       assigned,
			"completed":      completed,
			"completionRate": completionRate(completed, assigned),
		})
	}

	var employees, surveys int64
	h.DB.Model(&models.Employee{}).
		Where("org_id = ? AND role = ?", orgID, models.RoleUser).Count(&employees)
	h.DB.Model(&models.Survey{}).Where("org_id = ?", orgID).Count(&surveys)

	var totalAssigned, totalCompleted int64
	h.DB.Model(&models.SurveyAssignment{}).Where("org_id = ?", orgID).Count(&totalAssigned)
	h.DB.Model(&models.SurveyAssignment{}).
		Where("org_id = ? AND status = ?", orgID, models.AssignmentCompleted).
		Count(&totalCompleted)

	var recentSurveys []models.Survey
	h.DB.Where("org_id = ?", orgID).Order("created_at DESC").Limit(5).Find(&recentSurveys)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"employees":      employees,
		"departments":    len(departments),
		"surveys":        surveys,
		"completionRate": completionRate(totalCompleted, totalAssigned),
		"byDepartment":   deptStats,
		"recentSurveys":  recentSurveys,
	})
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Department name is required")
		return
	}

	var dup int64
	h.DB.Model(&models.Department{}).
		Where("org_id = ? AND name = ?", orgID, req.Name).Count(&dup)
	if dup > 0 {
		writeError(w, http.StatusBadRequest, "A department with this name already exists")
		return
	}

	dept := models.Department{Name: req.Name, OrgID: orgID}
	if err := h.DB.Create(&dept).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"department": dept})
}

// ListDepartments returns each department with member counts broken down
// by invite status.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}

	var departments []models.Department
	if err := h.DB.Where("org_id = ?", orgID).
		Order("created_at ASC").Find(&departments).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(departments))
	for _, dept := range departments {
		var total, active, pending int64
		h.DB.Model(&models.Employee{}).
			Where("department_id = ? AND role = ?", dept.ID, models.RoleUser).
			Count(&total)
		h.DB.Model(&models.Employee{}).
			Where("department_id = ? AND role = ? AND invite_status = ?",
				dept.ID, models.RoleUser, models.InviteAccepted).
			Count(&active)
		pending = total - active

		out = append(out, map[string]interface{}{
			"department": dept,
			"total":      total,
			"active":     active,
			"pending":    pending,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departments": out})
}

// DepartmentEmployees lists the members of one department in the caller's
// organization.
func (h *Handler) DepartmentEmployees(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	deptID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid department id")
		return
	}

	var dept models.Department
	if err := h.DB.Where("id = ? AND org_id = ?", deptID, orgID).
		First(&dept).Error; err != nil {
		writeError(w, http.StatusNotFound, "Department not found")
		return
	}

	var employees []models.Employee
	h.DB.Where("department_id = ? AND role = ?", deptID, models.RoleUser).
		Order("created_at DESC").Find(&employees)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"department": dept,
		"employees":  employees,
	})
}

type inviteRequest struct {
	Email        string `json:"email"`
	DepartmentID uint   `json:"departmentId"`
}

// inviteOne performs a single employee invitation: validation, invite log,
// best-effort mail. The invited role, org and department are fixed by the
// caller's scope, never by the request body.
func (h *Handler) inviteOne(ceo *models.Employee, orgID uint, req inviteRequest) (map[string]interface{}, int, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !validEmail(email) {
		return nil, http.StatusBadRequest, errInvalid("Invalid email address")
	}

	var dept models.Department
	if err := h.DB.Where("id = ? AND org_id = ?", req.DepartmentID, orgID).
		First(&dept).Error; err != nil {
		return nil, http.StatusBadRequest, errInvalid("Department not found")
	}

	var accepted int64
	h.DB.Model(&models.Employee{}).
		Where("email = ? AND invite_status = ?", email, models.InviteAccepted).
		Count(&accepted)
	if accepted > 0 {
		return nil, http.StatusBadRequest, errInvalid("An account with this email already exists")
	}

	var live int64
	h.DB.Model(&models.InviteLog{}).
		Where("email = ? AND status IN ? AND expires_at > ?", email,
			[]string{models.InviteLogSent, models.InviteLogClicked}, time.Now()).
		Count(&live)
	if live > 0 {
		return nil, http.StatusBadRequest, errInvalid("An invitation for this email is already pending")
	}

	token := uuid.NewString()
	invite := models.InviteLog{
		Email:        email,
		OrgID:        &orgID,
		DepartmentID: &dept.ID,
		InvitedBy:    ceo.ID,
		Role:         models.RoleUser,
		Token:        token,
		Status:       models.InviteLogSent,
		SentAt:       time.Now(),
		ExpiresAt:    time.Now().Add(models.InviteLogTTL),
	}
	if err := h.DB.Create(&invite).Error; err != nil {
		return nil, http.StatusInternalServerError, err
	}

	var org models.Organization
	h.DB.First(&org, orgID)

	emailSent := true
	if err := h.Mailer.SendUserInvite(email, token, org.Name, dept.Name); err != nil {
		log.Printf("user invite mail to %s: %v", email, err)
		emailSent = false
	}

	return map[string]interface{}{
		"email":       email,
		"department":  dept.Name,
		"inviteToken": token,
		"emailSent":   emailSent,
		"signupLink":  h.Mailer.SignupLink(token),
	}, http.StatusCreated, nil
}

type invalidErr string

func (e invalidErr) Error() string { return string(e) }

func errInvalid(msg string) error { return invalidErr(msg) }

// InviteEmployee invites one employee into a department.
func (h *Handler) InviteEmployee(w http.ResponseWriter, r *http.Request) {
	ceo, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, status, err := h.inviteOne(ceo, orgID, req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, status, map[string]interface{}{
		"message": "Invitation sent",
		"invite":  result,
	})
}

// BatchInvite processes a list of invitations sequentially and reports a
// per-item outcome instead of failing the whole batch.
func (h *Handler) BatchInvite(w http.ResponseWriter, r *http.Request) {
	ceo, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var req struct {
		Invites []inviteRequest `json:"invites"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Invites) == 0 {
		writeError(w, http.StatusBadRequest, "No invitations provided")
		return
	}

	results := make([]map[string]interface{}, 0, len(req.Invites))
	var invited, skipped, failed int
	for _, item := range req.Invites {
		res, _, err := h.inviteOne(ceo, orgID, item)
		switch {
		case err == nil:
			invited++
			res["status"] = "invited"
			results = append(results, res)
		case isInvalid(err):
			skipped++
			results = append(results, map[string]interface{}{
				"email":  normalizeEmail(item.Email),
				"status": "skipped",
				"reason": err.Error(),
			})
		default:
			failed++
			results = append(results, map[string]interface{}{
				"email":  normalizeEmail(item.Email),
				"status": "failed",
				"reason": err.Error(),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"summary": map[string]int{
			"invited": invited,
			"skipped": skipped,
			"failed":  failed,
		},
	})
}

func isInvalid(err error) bool {
	_, ok := err.(invalidErr)
	return ok
}

// ResendInvite rotates a pending employee invitation token and resends the
// mail with a fresh expiry.
func (h *Handler) ResendInvite(w http.ResponseWriter, r *http.Request) {
	ceo, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	var invite models.InviteLog
	if err := h.DB.Where("email = ? AND org_id = ? AND status IN ?", email, orgID,
		[]string{models.InviteLogSent, models.InviteLogClicked, models.InviteLogExpired}).
		Order("created_at DESC").First(&invite).Error; err != nil {
		writeError(w, http.StatusNotFound, "No invitation found for this email")
		return
	}

	var acceptedCount int64
	h.DB.Model(&models.Employee{}).
		Where("email = ? AND invite_status = ?", email, models.InviteAccepted).
		Count(&acceptedCount)
	if acceptedCount > 0 {
		writeError(w, http.StatusBadRequest, "This employee has already joined")
		return
	}

	token := uuid.NewString()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.InviteLog{}).
			Where("email = ? AND status IN ?", email,
				[]string{models.InviteLogSent, models.InviteLogClicked}).
			Update("status", models.InviteLogExpired).Error; err != nil {
			return err
		}
		fresh := models.InviteLog{
			Email:        email,
			OrgID:        invite.OrgID,
			DepartmentID: invite.DepartmentID,
			InvitedBy:    ceo.ID,
			Role:         invite.Role,
			Token:        token,
			Status:       models.InviteLogSent,
			SentAt:       time.Now(),
			ExpiresAt:    time.Now().Add(models.InviteLogTTL),
		}
		return tx.Create(&fresh).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var org models.Organization
	h.DB.First(&org, orgID)
	deptName := ""
	if invite.DepartmentID != nil {
		var dept models.Department
		if err := h.DB.First(&dept, *invite.DepartmentID).Error; err == nil {
			deptName = dept.Name
		}
	}

	emailSent := true
	if err := h.Mailer.SendUserInvite(email, token, org.Name, deptName); err != nil {
		log.Printf("user invite mail to %s: %v", email, err)
		emailSent = false
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Invitation resent",
		"inviteToken": token,
		"emailSent":   emailSent,
		"signupLink":  h.Mailer.SignupLink(token),
	})
}

// ListEmployees returns every user-role employee in the organization.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var employees []models.Employee
	if err := h.DB.Where("org_id = ? AND role = ?", orgID, models.RoleUser).
		Order("created_at DESC").Find(&employees).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"employees": employees})
}

// DeleteEmployee removes an employee and everything keyed to them.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	empID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid employee id")
		return
	}

	var emp models.Employee
	if err := h.DB.Where("id = ? AND org_id = ? AND role = ?",
		empID, orgID, models.RoleUser).First(&emp).Error; err != nil {
		writeError(w, http.StatusNotFound, "Employee not found")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", emp.ID).
			Delete(&models.SurveyAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("employee_id = ?", emp.ID).
			Delete(&models.SurveyResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email = ?", emp.Email).
			Delete(&models.InviteLog{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&emp).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Employee removed"})
}

// CEOListTemplates lets a CEO browse the admin template library.
func (h *Handler) CEOListTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []models.Survey
	if err := h.DB.Where("is_template = ?", true).
		Order("created_at DESC").Find(&templates).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

// CreateFromTemplate clones a template into the caller's organization as a
// draft survey with its own question identities preserved.
func (h *Handler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	ceo, orgID, ok := orgScoped(w, r)
	if !ok {
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
		DueDate *time.Time `json:"dueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	title := req.Title
	if title == "" {
		title = template.Title
	}

	survey := models.Survey{
		Title:       title,
		Description: template.Description,
		OrgID:       &orgID,
		CreatedBy:   ceo.ID,
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

// CreateSurvey stores a CEO-authored survey for the caller's organization.
func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	ceo, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Questions   models.QuestionList `json:"questions"`
		DueDate     *time.Time          `json:"dueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "Title and at least one question are required")
		return
	}

	survey := models.Survey{
		Title:       req.Title,
		Description: req.Description,
		OrgID:       &orgID,
		CreatedBy:   ceo.ID,
		Questions:   assignQuestionIDs(req.Questions),
		DueDate:     req.DueDate,
		Status:      models.SurveyDraft,
	}
	if err := h.DB.Create(&survey).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"survey": survey})
}

// ListSurveys returns the organization's surveys with assignment progress
// and the departments each one reaches.
func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	var surveys []models.Survey
	if err := h.DB.Where("org_id = ?", orgID).
		Order("created_at DESC").Find(&surveys).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(surveys))
	for _, survey := range surveys {
		var assigned, completed int64
		h.DB.Model(&models.SurveyAssignment{}).
			Where("survey_id = ?", survey.ID).Count(&assigned)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("survey_id = ? AND status = ?", survey.ID, models.AssignmentCompleted).
			Count(&completed)

		var deptIDs []uint
		h.DB.Model(&models.SurveyAssignment{}).
			Where("survey_id = ? AND department_id IS NOT NULL", survey.ID).
			Distinct("department_id").Pluck("department_id", &deptIDs)
		var departments []models.Department
		if len(deptIDs) > 0 {
			h.DB.Where("id IN ?", deptIDs).Find(&departments)
		}

		out = append(out, map[string]interface{}{
			"survey":              survey,
			"totalAssigned":       assigned,
			"completedCount":      completed,
			"assignedDepartments": departments,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"surveys": out})
}

// DeleteSurvey removes a survey and its assignments and responses.
func (h *Handler) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}

	var survey models.Survey
	if err := h.DB.Where("id = ? AND org_id = ?", surveyID, orgID).
		First(&survey).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("survey_id = ?", survey.ID).
			Delete(&models.SurveyAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", survey.ID).
			Delete(&models.SurveyResponse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&survey).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Survey deleted"})
}

// fanOutAssignments creates assignments for every user-role employee in
// the given departments, skipping pairs that already exist. It returns
// the accepted employees so callers can notify them.
func fanOutAssignments(tx *gorm.DB, survey *models.Survey, orgID uint, deptIDs []uint) (created int, notifiable []models.Employee, err error) {
	var employees []models.Employee
	if err := tx.Where("org_id = ? AND department_id IN ? AND role = ?",
		orgID, deptIDs, models.RoleUser).Find(&employees).Error; err != nil {
		return 0, nil, err
	}

	for i := range employees {
		emp := &employees[i]
		var count int64
		if err := tx.Model(&models.SurveyAssignment{}).
			Where("survey_id = ? AND employee_id = ?", survey.ID, emp.ID).
			Count(&count).Error; err != nil {
			return created, notifiable, err
		}
		if count > 0 {
			continue
		}
		assignment := models.SurveyAssignment{
			SurveyID:     survey.ID,
			OrgID:        orgID,
			DepartmentID: emp.DepartmentID,
			EmployeeID:   emp.ID,
			DueDate:      survey.DueDate,
			AssignedAt:   time.Now(),
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return created, notifiable, err
		}
		created++
		if emp.InviteStatus == models.InviteAccepted {
			notifiable = append(notifiable, *emp)
		}
	}
	return created, notifiable, nil
}

// AssignSurvey fans a survey out to whole departments. Every member gets
// an assignment, including invitees who have not signed up yet; only
// accepted members are emailed. Assigning activates a draft survey.
func (h *Handler) AssignSurvey(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}
	var req struct {
		DepartmentIDs []uint     `json:"departmentIds"`
		DueDate       *time.Time `json:"dueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.DepartmentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one department is required")
		return
	}

	var survey models.Survey
	if err := h.DB.Where("id = ? AND org_id = ?", surveyID, orgID).
		First(&survey).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}

	var deptCount int64
	h.DB.Model(&models.Department{}).
		Where("id IN ? AND org_id = ?", req.DepartmentIDs, orgID).Count(&deptCount)
	if deptCount != int64(len(req.DepartmentIDs)) {
		writeError(w, http.StatusBadRequest, "One or more departments do not belong to your organization")
		return
	}

	if req.DueDate != nil {
		survey.DueDate = req.DueDate
	}

	var created int
	var notifiable []models.Employee
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		created, notifiable, err = fanOutAssignments(tx, &survey, orgID, req.DepartmentIDs)
		if err != nil {
			return err
		}
		survey.Status = models.SurveyActive
		return tx.Save(&survey).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, emp := range notifiable {
		if err := h.Mailer.SendSurveyNotification(emp.Email, survey.Title, survey.DueDate); err != nil {
			log.Printf("survey notification to %s: %v", emp.Email, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Survey assigned",
		"assigned": created,
		"notified": len(notifiable),
	})
}

// SyncAssignments re-runs the fan-out for every active survey in the
// organization so members who joined a department after assignment get
// their missing rows. Draft and closed surveys are left alone.
func (h *Handler) SyncAssignments(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}

	var surveys []models.Survey
	if err := h.DB.Where("org_id = ? AND status = ?", orgID, models.SurveyActive).
		Find(&surveys).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var created, synced int
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for i := range surveys {
			survey := &surveys[i]
			var deptIDs []uint
			if err := tx.Model(&models.SurveyAssignment{}).
				Where("survey_id = ? AND department_id IS NOT NULL", survey.ID).
				Distinct("department_id").Pluck("department_id", &deptIDs).Error; err != nil {
				return err
			}
			if len(deptIDs) == 0 {
				continue
			}
			n, _, err := fanOutAssignments(tx, survey, orgID, deptIDs)
			if err != nil {
				return err
			}
			created += n
			synced++
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Assignments synced",
		"surveys": synced,
		"created": created,
	})
}

// SurveyAnalytics is the CEO view of one survey's progress. Bands,
// percentages and marks are withheld; CEOs see participation only.
func (h *Handler) SurveyAnalytics(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}

	var survey models.Survey
	if err := h.DB.Where("id = ? AND org_id = ?", surveyID, orgID).
		First(&survey).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}

	var assignments []models.SurveyAssignment
	h.DB.Where("survey_id = ?", survey.ID).Find(&assignments)

	byDept := make(map[uint]*struct{ assigned, completed int64 })
	var total, completed int64
	for _, a := range assignments {
		total++
		if a.Status == models.AssignmentCompleted {
			completed++
		}
		if a.DepartmentID != nil {
			entry, ok := byDept[*a.DepartmentID]
			if !ok {
				entry = &struct{ assigned, completed int64 }{}
				byDept[*a.DepartmentID] = entry
			}
			entry.assigned++
			if a.Status == models.AssignmentCompleted {
				entry.completed++
			}
		}
	}

	deptBreakdown := make([]map[string]interface{}, 0, len(byDept))
	for deptID, entry := range byDept {
		var dept models.Department
		h.DB.First(&dept, deptID)
		deptBreakdown = append(deptBreakdown, map[string]interface{}{
			"departmentId":   deptID,
			"departmentName": dept.Name,
			"assigned":       entry.assigned,
			"completed":      entry.completed,
			"completionRate": completionRate(entry.completed, entry.assigned),
		})
	}

	employees := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		var emp models.Employee
		if err := h.DB.First(&emp, a.EmployeeID).Error; err != nil {
			continue
		}
		employees = append(employees, map[string]interface{}{
			"employeeId":  emp.ID,
			"name":        emp.Name,
			"email":       emp.Email,
			"status":      a.Status,
			"completedAt": a.CompletedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"survey": map[string]interface{}{
			"id":      survey.ID,
			"title":   survey.Title,
			"status":  survey.Status,
			"dueDate": survey.DueDate,
		},
		"totalAssigned":  total,
		"completedCount": completed,
		"completionRate": completionRate(completed, total),
		"byDepartment":   deptBreakdown,
		"employees":      employees,
	})
}
