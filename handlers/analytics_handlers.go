package handlers

import (
	"net/http"
	"time"

	"github.com/igen-labs/cxo-survey/models"
)

// GlobalAnalytics is the admin platform view: totals plus a per
// organization breakdown.
func (h *Handler) GlobalAnalytics(w http.ResponseWriter, r *http.Request) {
	var orgs []models.Organization
	if err := h.DB.Find(&orgs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byOrg := make([]map[string]interface{}, 0, len(orgs))
	var totalEmployees, totalSurveys, totalAssigned, totalCompleted int64
	for _, org := range orgs {
		var employees, surveys, assigned, completed int64
		h.DB.Model(&models.Employee{}).
			Where("org_id = ? AND role = ?", org.ID, models.RoleUser).Count(&employees)
		h.DB.Model(&models.Survey{}).Where("org_id = ?", org.ID).Count(&surveys)
		h.DB.Model(&models.SurveyAssignment{}).Where("org_id = ?", org.ID).Count(&assigned)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("org_id = ? AND status = ?", org.ID, models.AssignmentCompleted).
			Count(&completed)

		totalEmployees += employees
		totalSurveys += surveys
		totalAssigned += assigned
		totalCompleted += completed

		byOrg = append(byOrg, map[string]interface{}{
			"organizationId":   org.ID,
			"organizationName": org.Name,
			"status":           org.Status,
			"employees":        employees,
			"surveys":          surveys,
			"assigned":         assigned,
			"completed":        completed,
			"completionRate":   completionRate(completed, assigned),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organizations":  len(orgs),
		"employees":      totalEmployees,
		"surveys":        totalSurveys,
		"assigned":       totalAssigned,
		"completed":      totalCompleted,
		"completionRate": completionRate(totalCompleted, totalAssigned),
		"byOrganization": byOrg,
	})
}

// OrgAnalytics is the CEO view of their organization: department and
// survey level stats plus a 7-day completion trend. No marks appear here.
func (h *Handler) OrgAnalytics(w http.ResponseWriter, r *http.Request) {
	_, orgID, ok := orgScoped(w, r)
	if !ok {
		return
	}

	var departments []models.Department
	h.DB.Where("org_id = ?", orgID).Find(&departments)

	deptStats := make([]map[string]interface{}, 0, len(departments))
	for _, dept := range departments {
		var members, assigned, completed int64
		h.DB.Model(&models.Employee{}).
			Where("department_id = ? AND role = ?", dept.ID, models.RoleUser).
			Count(&members)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("department_id = ?", dept.ID).Count(&assigned)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("department_id = ? AND status = ?", dept.ID, models.AssignmentCompleted).
			Count(&completed)
		deptStats = append(deptStats, map[string]interface{}{
			"departmentId":   dept.ID,
			"departmentName": dept.Name,
			"employees":      members,
			"assigned":       assigned,
			"completed":      completed,
			"completionRate": completionRate(completed, assigned),
		})
	}

	var surveys []models.Survey
	h.DB.Where("org_id = ?", orgID).Order("created_at DESC").Find(&surveys)
	surveyStats := make([]map[string]interface{}, 0, len(surveys))
	for _, survey := range surveys {
		var assigned, completed int64
		h.DB.Model(&models.SurveyAssignment{}).
			Where("survey_id = ?", survey.ID).Count(&assigned)
		h.DB.Model(&models.SurveyAssignment{}).
			Where("survey_id = ? AND status = ?", survey.ID, models.AssignmentCompleted).
			Count(&completed)
		surveyStats = append(surveyStats, map[string]interface{}{
			"surveyId":       survey.ID,
			"title":          survey.Title,
			"status":         survey.Status,
			"assigned":       assigned,
			"completed":      completed,
			"completionRate": completionRate(completed, assigned),
		})
	}

	// Submissions bucketed per day for the last week, oldest first.
	trend := make([]map[string]interface{}, 0, 7)
	now := time.Now()
	for i := 6; i >= 0; i-- {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)
		var count int64
		h.DB.Model(&models.SurveyResponse{}).
			Where("org_id = ? AND is_draft = ? AND submitted_at >= ? AND submitted_at < ?",
				orgID, false, dayStart, dayEnd).
			Count(&count)
		trend = append(trend, map[string]interface{}{
			"date":        dayStart.Format("2006-01-02"),
			"submissions": count,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deptStats":       deptStats,
		"surveyStats":     surveyStats,
		"completionTrend": trend,
	})
}
