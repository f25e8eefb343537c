package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/igen-labs/cxo-survey/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignSurveyFansOutToWholeDepartment(t *testing.T) {
	h, mail := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")

	// Three accepted members plus one who has not signed up yet.
	for i := 0; i < 3; i++ {
		seedEmployee(t, h.DB, org, dept, models.RoleUser,
			fmt.Sprintf("member%d@acme.com", i))
	}
	pending := &models.Employee{
		Email:        "pending@acme.com",
		Role:         models.RoleUser,
		OrgID:        &org.ID,
		DepartmentID: &dept.ID,
		InviteStatus: models.InvitePending,
		IsActive:     true,
	}
	require.NoError(t, h.DB.Create(pending).Error)

	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)
	survey.Status = models.SurveyDraft
	require.NoError(t, h.DB.Save(survey).Error)

	rec := doJSON(t, h.AssignSurvey, http.MethodPost,
		fmt.Sprintf("/api/ceo/surveys/%d/assign", survey.ID),
		map[string]interface{}{"departmentIds": []uint{dept.ID}},
		ceo, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)

	// Everyone gets a row, only accepted members get mail.
	assert.Equal(t, float64(4), body["assigned"])
	assert.Equal(t, float64(3), body["notified"])
	assert.Len(t, mail.notices, 3)

	var count int64
	h.DB.Model(&models.SurveyAssignment{}).
		Where("survey_id = ?", survey.ID).Count(&count)
	assert.Equal(t, int64(4), count)

	// Assigning activates the draft survey.
	var stored models.Survey
	require.NoError(t, h.DB.First(&stored, survey.ID).Error)
	assert.Equal(t, models.SurveyActive, stored.Status)
}

func TestAssignSurveySkipsExistingAssignments(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	member := seedEmployee(t, h.DB, org, dept, models.RoleUser, "member@acme.com")

	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)
	seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.AssignSurvey, http.MethodPost,
		fmt.Sprintf("/api/ceo/surveys/%d/assign", survey.ID),
		map[string]interface{}{"departmentIds": []uint{dept.ID}},
		ceo, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeJSON(t, rec)["assigned"])

	var count int64
	h.DB.Model(&models.SurveyAssignment{}).
		Where("survey_id = ? AND employee_id = ?", survey.ID, member.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAssignSurveyRejectsForeignDepartment(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	other := seedOrg(t, h.DB, "rival")
	foreignDept := seedDepartment(t, h.DB, other.ID, "Sales")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)

	rec := doJSON(t, h.AssignSurvey, http.MethodPost,
		fmt.Sprintf("/api/ceo/surveys/%d/assign", survey.ID),
		map[string]interface{}{"departmentIds": []uint{foreignDept.ID}},
		ceo, map[string]string{"id": fmt.Sprint(survey.ID)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAssignmentsPicksUpNewMembersAcrossSurveys(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	first := seedEmployee(t, h.DB, org, dept, models.RoleUser, "first@acme.com")

	surveyA := seedSurvey(t, h.DB, org.ID, ceo.ID)
	surveyB := seedSurvey(t, h.DB, org.ID, ceo.ID)
	seedAssignment(t, h.DB, surveyA, first)
	seedAssignment(t, h.DB, surveyB, first)

	// A member joins the department after both assignments; one sync call
	// covers every active survey in the organization.
	late := seedEmployee(t, h.DB, org, dept, models.RoleUser, "late@acme.com")

	rec := doJSON(t, h.SyncAssignments, http.MethodPost,
		"/api/ceo/surveys/sync-assignments", nil, ceo, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(2), body["created"])
	assert.Equal(t, float64(2), body["surveys"])

	var count int64
	h.DB.Model(&models.SurveyAssignment{}).
		Where("employee_id = ?", late.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSyncAssignmentsSkipsInactiveSurveys(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	first := seedEmployee(t, h.DB, org, dept, models.RoleUser, "first@acme.com")

	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)
	seedAssignment(t, h.DB, survey, first)
	require.NoError(t, h.DB.Model(survey).
		Update("status", models.SurveyClosed).Error)

	seedEmployee(t, h.DB, org, dept, models.RoleUser, "late@acme.com")

	rec := doJSON(t, h.SyncAssignments, http.MethodPost,
		"/api/ceo/surveys/sync-assignments", nil, ceo, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(0), body["created"])
	assert.Equal(t, float64(0), body["surveys"])
}

func TestInviteEmployeeRejectsDuplicates(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")

	body := map[string]interface{}{"email": "new@acme.com", "departmentId": dept.ID}
	rec := doJSON(t, h.InviteEmployee, http.MethodPost, "/api/ceo/employees/invite",
		body, ceo, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second invite while the first is live is rejected.
	rec = doJSON(t, h.InviteEmployee, http.MethodPost, "/api/ceo/employees/invite",
		body, ceo, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// So is inviting an existing accepted member.
	rec = doJSON(t, h.InviteEmployee, http.MethodPost, "/api/ceo/employees/invite",
		map[string]interface{}{"email": "ceo@acme.com", "departmentId": dept.ID}, ceo, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchInviteReportsPerItemOutcome(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	seedEmployee(t, h.DB, org, dept, models.RoleUser, "existing@acme.com")

	rec := doJSON(t, h.BatchInvite, http.MethodPost, "/api/ceo/employees/invite/batch",
		map[string]interface{}{
			"invites": []map[string]interface{}{
				{"email": "ok1@acme.com", "departmentId": dept.ID},
				{"email": "existing@acme.com", "departmentId": dept.ID},
				{"email": "not-an-email", "departmentId": dept.ID},
			},
		}, ceo, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["invited"])
	assert.Equal(t, float64(2), summary["skipped"])
	assert.Equal(t, float64(0), summary["failed"])
}

func TestDeleteEmployeeCascades(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	member := seedEmployee(t, h.DB, org, dept, models.RoleUser, "member@acme.com")

	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)
	seedAssignment(t, h.DB, survey, member)
	resp := models.SurveyResponse{
		SurveyID:   survey.ID,
		EmployeeID: member.ID,
		OrgID:      org.ID,
		IsDraft:    true,
	}
	require.NoError(t, h.DB.Create(&resp).Error)

	rec := doJSON(t, h.DeleteEmployee, http.MethodDelete,
		fmt.Sprintf("/api/ceo/employees/%d", member.ID),
		nil, ceo, map[string]string{"id": fmt.Sprint(member.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	var assignments, responses int64
	h.DB.Model(&models.SurveyAssignment{}).
		Where("employee_id = ?", member.ID).Count(&assignments)
	h.DB.Model(&models.SurveyResponse{}).
		Where("employee_id = ?", member.ID).Count(&responses)
	assert.Zero(t, assignments)
	assert.Zero(t, responses)
}

func TestSurveyAnalyticsExposesNoMarks(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	member := seedEmployee(t, h.DB, org, dept, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, ceo.ID)
	seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.SurveyAnalytics, http.MethodGet,
		fmt.Sprintf("/api/ceo/surveys/%d/analytics", survey.ID),
		nil, ceo, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Body.String()
	assert.NotContains(t, raw, "creativity")
	assert.NotContains(t, raw, "morality")
	assert.NotContains(t, raw, "Marks")
}

func TestCreateDepartmentRejectsDuplicateName(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")

	rec := doJSON(t, h.CreateDepartment, http.MethodPost, "/api/ceo/departments",
		map[string]string{"name": "Engineering"}, ceo, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h.CreateDepartment, http.MethodPost, "/api/ceo/departments",
		map[string]string{"name": "Engineering"}, ceo, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFromTemplateCopiesQuestions(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	ceo := seedEmployee(t, h.DB, org, nil, models.RoleCEO, "ceo@acme.com")
	admin := seedAdmin(t, h.DB)

	rec := doJSON(t, h.CreateTemplate, http.MethodPost, "/api/admin/templates",
		map[string]interface{}{
			"title": "Quarterly Pulse",
			"questions": []map[string]interface{}{
				{
					"questionNumber": "1",
					"text":           "How are things?",
					"presentOptions": []map[string]interface{}{{"text": "Fine", "creativityMarks": 3, "moralityMarks": 3}},
					"futureOptions":  []map[string]interface{}{{"text": "Fine", "creativityMarks": 3, "moralityMarks": 3}},
				},
			},
		}, admin, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var template models.Survey
	require.NoError(t, h.DB.Where("is_template = ?", true).First(&template).Error)
	require.Len(t, template.Questions, 1)
	assert.NotEmpty(t, template.Questions[0].ID)

	rec = doJSON(t, h.CreateFromTemplate, http.MethodPost,
		fmt.Sprintf("/api/ceo/templates/%d/use", template.ID),
		map[string]string{"title": "Q3 Pulse"},
		ceo, map[string]string{"id": fmt.Sprint(template.ID)})
	require.Equal(t, http.StatusCreated, rec.Code)

	var survey models.Survey
	require.NoError(t, h.DB.Where("is_template = ? AND org_id = ?", false, org.ID).
		First(&survey).Error)
	assert.Equal(t, "Q3 Pulse", survey.Title)
	require.Len(t, survey.Questions, 1)
	assert.Equal(t, template.Questions[0].ID, survey.Questions[0].ID)
	assert.Equal(t, models.SurveyDraft, survey.Status)
}
