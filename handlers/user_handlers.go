package handlers

import (
	"net/http"
	"time"

	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
	"github.com/igen-labs/cxo-survey/scoring"
	"gorm.io/gorm"
)

// daysLeft is nil when a survey carries no deadline; negative values mean
// overdue.
func daysLeft(due *time.Time) *int {
	if due == nil {
		return nil
	}
	d := int(time.Until(*due).Hours() / 24)
	return &d
}

// UserDashboard lists the caller's pending and completed surveys. No marks
// appear anywhere on user-facing routes.
func (h *Handler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())

	var assignments []models.SurveyAssignment
	if err := h.DB.Where("employee_id = ?", emp.ID).
		Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pending := make([]map[string]interface{}, 0)
	completed := make([]map[string]interface{}, 0)
	for _, a := range assignments {
		var survey models.Survey
		if err := h.DB.First(&survey, a.SurveyID).Error; err != nil {
			continue
		}
		if survey.Status != models.SurveyActive && a.Status != models.AssignmentCompleted {
			continue
		}
		item := map[string]interface{}{
			"surveyId":    survey.ID,
			"title":       survey.Title,
			"description": survey.Description,
			"questions":   len(survey.Questions),
			"dueDate":     a.DueDate,
			"status":      a.Status,
		}
		if a.Status == models.AssignmentCompleted {
			item["completedAt"] = a.CompletedAt
			completed = append(completed, item)
		} else {
			item["daysLeft"] = daysLeft(a.DueDate)
			pending = append(pending, item)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending":   pending,
		"completed": completed,
		"stats": map[string]int{
			"total":          len(pending) + len(completed),
			"pending":        len(pending),
			"completed":      len(completed),
			"completionRate": completionRate(int64(len(completed)), int64(len(pending)+len(completed))),
		},
	})
}

// assignmentFor loads the caller's assignment for a survey; access to
// surveys one was never assigned is a 403.
func (h *Handler) assignmentFor(w http.ResponseWriter, emp *models.Employee, surveyID uint) (*models.SurveyAssignment, bool) {
	var assignment models.SurveyAssignment
	err := h.DB.Where("survey_id = ? AND employee_id = ?", surveyID, emp.ID).
		First(&assignment).Error
	if err != nil {
		writeError(w, http.StatusForbidden, "This survey is not assigned to you")
		return nil, false
	}
	return &assignment, true
}

// GetSurveyToFill returns the survey questions plus any saved draft. The
// question payload includes option text but never the marks behind it.
type optionView struct {
	Text string `json:"text"`
}

type questionView struct {
	ID             string       `json:"id"`
	QuestionNumber string       `json:"questionNumber"`
	Text           string       `json:"text"`
	PresentOptions []optionView `json:"presentOptions"`
	FutureOptions  []optionView `json:"futureOptions"`
	Required       bool         `json:"required"`
}

func viewOptions(options []models.Option) []optionView {
	out := make([]optionView, len(options))
	for i, o := range options {
		out[i] = optionView{Text: o.Text}
	}
	return out
}

func viewQuestions(questions models.QuestionList) []questionView {
	out := make([]questionView, len(questions))
	for i, q := range questions {
		out[i] = questionView{
			ID:             q.ID,
			QuestionNumber: q.QuestionNumber,
			Text:           q.Text,
			PresentOptions: viewOptions(q.PresentOptions),
			FutureOptions:  viewOptions(q.FutureOptions),
			Required:       q.Required,
		}
	}
	return out
}

// draftAnswerView strips resolved marks from saved draft answers before
// they go back to the client.
type draftAnswerView struct {
	QuestionID         string `json:"questionId"`
	PresentOptionIndex *int   `json:"presentOptionIndex"`
	FutureOptionIndex  *int   `json:"futureOptionIndex"`
}

func viewDraftAnswers(answers models.AnswerList) []draftAnswerView {
	out := make([]draftAnswerView, len(answers))
	for i, a := range answers {
		out[i] = draftAnswerView{
			QuestionID:         a.QuestionID,
			PresentOptionIndex: a.PresentOptionIndex,
			FutureOptionIndex:  a.FutureOptionIndex,
		}
	}
	return out
}

func (h *Handler) GetSurveyToFill(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}
	assignment, ok := h.assignmentFor(w, emp, surveyID)
	if !ok {
		return
	}

	var survey models.Survey
	if err := h.DB.First(&survey, surveyID).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}

	resp := map[string]interface{}{
		"survey": map[string]interface{}{
			"id":          survey.ID,
			"title":       survey.Title,
			"description": survey.Description,
			"dueDate":     assignment.DueDate,
			"questions":   viewQuestions(survey.Questions),
		},
		"assignmentStatus": assignment.Status,
	}

	var draft models.SurveyResponse
	err := h.DB.Where("survey_id = ? AND employee_id = ? AND is_draft = ?",
		surveyID, emp.ID, true).First(&draft).Error
	if err == nil {
		resp["draft"] = viewDraftAnswers(draft.Answers)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SaveDraft upserts an in-progress response and moves the assignment to
// in_progress. Drafts carry raw selections only; no scoring happens here.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}
	assignment, ok := h.assignmentFor(w, emp, surveyID)
	if !ok {
		return
	}
	if assignment.Status == models.AssignmentCompleted {
		writeError(w, http.StatusBadRequest, "Survey already submitted")
		return
	}

	var req struct {
		Answers models.AnswerList `json:"answers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var resp models.SurveyResponse
		err := tx.Where("survey_id = ? AND employee_id = ?", surveyID, emp.ID).
			First(&resp).Error
		if err == gorm.ErrRecordNotFound {
			resp = models.SurveyResponse{
				SurveyID:     surveyID,
				EmployeeID:   emp.ID,
				OrgID:        assignment.OrgID,
				DepartmentID: emp.DepartmentID,
			}
		} else if err != nil {
			return err
		}
		resp.Answers = req.Answers
		resp.IsDraft = true
		if err := tx.Save(&resp).Error; err != nil {
			return err
		}

		if assignment.Status == models.AssignmentPending {
			assignment.Status = models.AssignmentInProgress
			if err := tx.Save(assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Draft saved"})
}

// SubmitSurvey scores the answers and finalizes the response. Submission
// is an idempotent overwrite: resubmitting replaces the stored response
// and rescores it, still against the same single assignment row. The
// reply deliberately excludes every score; users never see their marks.
func (h *Handler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}
	assignment, ok := h.assignmentFor(w, emp, surveyID)
	if !ok {
		return
	}

	var survey models.Survey
	if err := h.DB.First(&survey, surveyID).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}

	var req struct {
		Answers models.AnswerList `json:"answers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	answered := make(map[string]models.Answer, len(req.Answers))
	for _, a := range req.Answers {
		answered[a.QuestionID] = a
	}
	for _, q := range survey.Questions {
		if !q.Required {
			continue
		}
		a, ok := answered[q.ID]
		if !ok || a.PresentOptionIndex == nil || a.FutureOptionIndex == nil {
			writeError(w, http.StatusBadRequest, "All required questions must be answered")
			return
		}
	}

	result := scoring.Score(survey.Questions, req.Answers)
	now := time.Now()

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var resp models.SurveyResponse
		err := tx.Where("survey_id = ? AND employee_id = ?", surveyID, emp.ID).
			First(&resp).Error
		if err == gorm.ErrRecordNotFound {
			resp = models.SurveyResponse{
				SurveyID:     surveyID,
				EmployeeID:   emp.ID,
				OrgID:        assignment.OrgID,
				DepartmentID: emp.DepartmentID,
			}
		} else if err != nil {
			return err
		}

		resp.Answers = result.Answers
		resp.PresentCreativityTotal = result.Present.CreativityTotal
		resp.PresentMoralityTotal = result.Present.MoralityTotal
		resp.PresentCreativityPercentage = result.Present.CreativityPercentage
		resp.PresentMoralityPercentage = result.Present.MoralityPercentage
		resp.PresentCreativityBand = result.Present.CreativityBand
		resp.PresentMoralityBand = result.Present.MoralityBand
		resp.FutureCreativityTotal = result.Future.CreativityTotal
		resp.FutureMoralityTotal = result.Future.MoralityTotal
		resp.FutureCreativityPercentage = result.Future.CreativityPercentage
		resp.FutureMoralityPercentage = result.Future.MoralityPercentage
		resp.FutureCreativityBand = result.Future.CreativityBand
		resp.FutureMoralityBand = result.Future.MoralityBand
		resp.IsDraft = false
		resp.SubmittedAt = &now
		if err := tx.Save(&resp).Error; err != nil {
			return err
		}

		assignment.Status = models.AssignmentCompleted
		assignment.CompletedAt = &now
		return tx.Save(assignment).Error
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Survey submitted successfully. Thank you for your responses!",
	})
}

// History lists the caller's submitted surveys. Titles and dates only.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())

	var responses []models.SurveyResponse
	if err := h.DB.Where("employee_id = ? AND is_draft = ?", emp.ID, false).
		Order("submitted_at DESC").Find(&responses).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(responses))
	for _, resp := range responses {
		var survey models.Survey
		if err := h.DB.First(&survey, resp.SurveyID).Error; err != nil {
			continue
		}
		out = append(out, map[string]interface{}{
			"surveyId":    survey.ID,
			"title":       survey.Title,
			"description": survey.Description,
			"submittedAt": resp.SubmittedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": out})
}
