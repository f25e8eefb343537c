package handlers

import (
	"net/http"

	"github.com/igen-labs/cxo-survey/models"
	"github.com/igen-labs/cxo-survey/scoring"
)

// surveyReport recomputes scores for every submission of one survey from
// the stored per-answer marks and aggregates them.
func (h *Handler) surveyReport(survey *models.Survey) map[string]interface{} {
	var responses []models.SurveyResponse
	h.DB.Where("survey_id = ? AND is_draft = ?", survey.ID, false).
		Order("submitted_at DESC").Find(&responses)

	type scored struct {
		EmployeeID   uint           `json:"employeeId"`
		EmployeeName string         `json:"employeeName"`
		Result       scoring.Result `json:"scores"`
	}

	scoredResponses := make([]scored, 0, len(responses))
	quadrants := map[string]int{
		scoring.QuadrantHopeInAction:     0,
		scoring.QuadrantUnboundedPower:   0,
		scoring.QuadrantSafeStagnation:   0,
		scoring.QuadrantExtractionEngine: 0,
	}
	var sumPC, sumPM, sumFC, sumFM float64
	var sumPCt, sumPMt, sumFCt, sumFMt int

	for i := range responses {
		resp := &responses[i]
		result := scoring.ScoreStored(len(survey.Questions), resp.Answers)

		var emp models.Employee
		h.DB.First(&emp, resp.EmployeeID)
		scoredResponses = append(scoredResponses, scored{
			EmployeeID:   resp.EmployeeID,
			EmployeeName: emp.Name,
			Result:       result,
		})

		quadrants[result.Present.Quadrant]++
		sumPC += result.Present.CreativityPercentage
		sumPM += result.Present.MoralityPercentage
		sumFC += result.Future.CreativityPercentage
		sumFM += result.Future.MoralityPercentage
		sumPCt += result.Present.CreativityTotal
		sumPMt += result.Present.MoralityTotal
		sumFCt += result.Future.CreativityTotal
		sumFMt += result.Future.MoralityTotal
	}

	aggregates := map[string]interface{}{"responseCount": len(scoredResponses)}
	if n := float64(len(scoredResponses)); n > 0 {
		aggregates["avgPresentCreativityPercentage"] = round1(sumPC / n)
		aggregates["avgPresentMoralityPercentage"] = round1(sumPM / n)
		aggregates["avgFutureCreativityPercentage"] = round1(sumFC / n)
		aggregates["avgFutureMoralityPercentage"] = round1(sumFM / n)
		aggregates["avgPresentCreativityTotal"] = round1(float64(sumPCt) / n)
		aggregates["avgPresentMoralityTotal"] = round1(float64(sumPMt) / n)
		aggregates["avgFutureCreativityTotal"] = round1(float64(sumFCt) / n)
		aggregates["avgFutureMoralityTotal"] = round1(float64(sumFMt) / n)
	}

	return map[string]interface{}{
		"survey": map[string]interface{}{
			"id":        survey.ID,
			"title":     survey.Title,
			"status":    survey.Status,
			"questions": len(survey.Questions),
			"maxScore":  scoring.MaxScore(len(survey.Questions)),
		},
		"responses":            scoredResponses,
		"aggregates":           aggregates,
		"quadrantDistribution": quadrants,
	}
}

// OrgReport is the admin report across one organization: every survey
// scored from stored answer marks with aggregate percentages and the
// present-aspect quadrant distribution.
func (h *Handler) OrgReport(w http.ResponseWriter, r *http.Request) {
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

	var surveys []models.Survey
	h.DB.Where("org_id = ?", orgID).Order("created_at DESC").Find(&surveys)

	reports := make([]map[string]interface{}, 0, len(surveys))
	for i := range surveys {
		reports = append(reports, h.surveyReport(&surveys[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": map[string]interface{}{
			"id":     org.ID,
			"name":   org.Name,
			"status": org.Status,
		},
		"surveys": reports,
	})
}

// SurveyReport is the admin report for a single survey.
func (h *Handler) SurveyReport(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid survey id")
		return
	}
	var survey models.Survey
	if err := h.DB.Where("id = ? AND is_template = ?", surveyID, false).
		First(&survey).Error; err != nil {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}
	writeJSON(w, http.StatusOK, h.surveyReport(&survey))
}
