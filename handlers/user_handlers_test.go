package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/igen-labs/cxo-survey/models"
	"github.com/igen-labs/cxo-survey/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyAnswers(survey *models.Survey) models.AnswerList {
	answers := make(models.AnswerList, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		answers = append(answers, models.Answer{
			QuestionID:         q.ID,
			PresentOptionIndex: intPtr(0),
			FutureOptionIndex:  intPtr(0),
		})
	}
	return answers
}

func TestGetSurveyToFillStripsMarks(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	dept := seedDepartment(t, h.DB, org.ID, "Engineering")
	member := seedEmployee(t, h.DB, org, dept, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.GetSurveyToFill, http.MethodGet,
		fmt.Sprintf("/api/user/surveys/%d", survey.ID),
		nil, member, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Body.String()
	assert.NotContains(t, raw, "creativityMarks")
	assert.NotContains(t, raw, "moralityMarks")
	assert.Contains(t, raw, "presentOptions")
}

func TestGetSurveyToFillRequiresAssignment(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)

	rec := doJSON(t, h.GetSurveyToFill, http.MethodGet,
		fmt.Sprintf("/api/user/surveys/%d", survey.ID),
		nil, member, map[string]string{"id": fmt.Sprint(survey.ID)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSaveDraftMovesAssignmentInProgress(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	assignment := seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.SaveDraft, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/draft", survey.ID),
		map[string]interface{}{"answers": surveyAnswers(survey)[:1]},
		member, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.SurveyAssignment
	require.NoError(t, h.DB.First(&stored, assignment.ID).Error)
	assert.Equal(t, models.AssignmentInProgress, stored.Status)

	var draft models.SurveyResponse
	require.NoError(t, h.DB.Where("survey_id = ? AND employee_id = ?",
		survey.ID, member.ID).First(&draft).Error)
	assert.True(t, draft.IsDraft)
	assert.Nil(t, draft.SubmittedAt)
}

func TestSubmitSurveyScoresAndCompletes(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	assignment := seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.SubmitSurvey, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/submit", survey.ID),
		map[string]interface{}{"answers": surveyAnswers(survey)},
		member, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	// The reply carries no scores at all.
	raw := rec.Body.String()
	assert.NotContains(t, raw, "creativity")
	assert.NotContains(t, raw, "band")
	assert.NotContains(t, raw, "percentage")

	var stored models.SurveyAssignment
	require.NoError(t, h.DB.First(&stored, assignment.ID).Error)
	assert.Equal(t, models.AssignmentCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	// Stored scores match a fresh computation. Both seeded questions at
	// option 0: creativity 5+2, morality 3+5 present.
	var resp models.SurveyResponse
	require.NoError(t, h.DB.Where("survey_id = ? AND employee_id = ?",
		survey.ID, member.ID).First(&resp).Error)
	assert.False(t, resp.IsDraft)
	assert.NotNil(t, resp.SubmittedAt)
	assert.Equal(t, 7, resp.PresentCreativityTotal)
	assert.Equal(t, 8, resp.PresentMoralityTotal)
	assert.Equal(t, scoring.Percentage(7, 10), resp.PresentCreativityPercentage)
	assert.Equal(t, scoring.Band(resp.PresentMoralityPercentage), resp.PresentMoralityBand)
}

func TestResubmitOverwritesResponse(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	seedAssignment(t, h.DB, survey, member)

	vars := map[string]string{"id": fmt.Sprint(survey.ID)}
	target := fmt.Sprintf("/api/user/surveys/%d/submit", survey.ID)

	rec := doJSON(t, h.SubmitSurvey, http.MethodPost, target,
		map[string]interface{}{"answers": surveyAnswers(survey)}, member, vars)
	require.Equal(t, http.StatusOK, rec.Code)

	// Resubmitting with different selections replaces the stored scores.
	changed := make(models.AnswerList, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		changed = append(changed, models.Answer{
			QuestionID:         q.ID,
			PresentOptionIndex: intPtr(1),
			FutureOptionIndex:  intPtr(1),
		})
	}
	rec = doJSON(t, h.SubmitSurvey, http.MethodPost, target,
		map[string]interface{}{"answers": changed}, member, vars)
	require.Equal(t, http.StatusOK, rec.Code)

	// Option 1 on both questions: creativity 1+1, morality 2+0 present.
	var resp models.SurveyResponse
	require.NoError(t, h.DB.Where("survey_id = ? AND employee_id = ?",
		survey.ID, member.ID).First(&resp).Error)
	assert.Equal(t, 2, resp.PresentCreativityTotal)
	assert.Equal(t, 2, resp.PresentMoralityTotal)
	assert.False(t, resp.IsDraft)

	// Still exactly one response and one completed assignment.
	var responses, completed int64
	h.DB.Model(&models.SurveyResponse{}).
		Where("survey_id = ? AND employee_id = ?", survey.ID, member.ID).
		Count(&responses)
	h.DB.Model(&models.SurveyAssignment{}).
		Where("survey_id = ? AND employee_id = ? AND status = ?",
			survey.ID, member.ID, models.AssignmentCompleted).
		Count(&completed)
	assert.Equal(t, int64(1), responses)
	assert.Equal(t, int64(1), completed)
}

func TestSubmitRequiresRequiredAnswers(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	seedAssignment(t, h.DB, survey, member)

	// Only the optional second question answered.
	answers := surveyAnswers(survey)[1:]
	rec := doJSON(t, h.SubmitSurvey, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/submit", survey.ID),
		map[string]interface{}{"answers": answers},
		member, map[string]string{"id": fmt.Sprint(survey.ID)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftThenSubmitSharesOneRow(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	seedAssignment(t, h.DB, survey, member)
	vars := map[string]string{"id": fmt.Sprint(survey.ID)}

	rec := doJSON(t, h.SaveDraft, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/draft", survey.ID),
		map[string]interface{}{"answers": surveyAnswers(survey)[:1]}, member, vars)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.SubmitSurvey, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/submit", survey.ID),
		map[string]interface{}{"answers": surveyAnswers(survey)}, member, vars)
	require.Equal(t, http.StatusOK, rec.Code)

	var responses int64
	h.DB.Model(&models.SurveyResponse{}).
		Where("survey_id = ? AND employee_id = ?", survey.ID, member.ID).
		Count(&responses)
	assert.Equal(t, int64(1), responses)
}

func TestHistoryOmitsMarks(t *testing.T) {
	h, _ := newTestHandler(t)
	org := seedOrg(t, h.DB, "acme")
	member := seedEmployee(t, h.DB, org, nil, models.RoleUser, "member@acme.com")
	survey := seedSurvey(t, h.DB, org.ID, 1)
	seedAssignment(t, h.DB, survey, member)

	rec := doJSON(t, h.SubmitSurvey, http.MethodPost,
		fmt.Sprintf("/api/user/surveys/%d/submit", survey.ID),
		map[string]interface{}{"answers": surveyAnswers(survey)},
		member, map[string]string{"id": fmt.Sprint(survey.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.History, http.MethodGet, "/api/user/history", nil, member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()
	assert.Contains(t, raw, "Leadership Assessment")
	assert.NotContains(t, raw, "creativity")
	assert.NotContains(t, raw, "Total")
}
