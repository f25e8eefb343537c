// Package scoring computes survey marks, percentages, bands and quadrants.
// It is a pure function of the survey questions and the submitted answers;
// nothing here touches storage.
package scoring

import (
	"math"

	"github.com/igen-labs/cxo-survey/models"
)

// Performance bands.
const (
	BandEarly    = "Early"
	BandEmerging = "Emerging"
	BandLeading  = "Leading"
)

// Quadrant names for the joint creativity/morality classification.
const (
	QuadrantHopeInAction     = "Hope in Action (IGEN Zone)"
	QuadrantUnboundedPower   = "Unbounded Power"
	QuadrantSafeStagnation   = "Safe Stagnation"
	QuadrantExtractionEngine = "Extraction Engine"
)

// MarksPerQuestion is the fixed per-question cap used for the maximum
// score, independent of how many options a question has.
const MarksPerQuestion = 5

// AspectScore holds one aspect's (present or future) totals and derived
// classifications.
type AspectScore struct {
	CreativityTotal      int     `json:"creativity_total"`
	MoralityTotal        int     `json:"morality_total"`
	CreativityPercentage float64 `json:"creativity_percentage"`
	MoralityPercentage   float64 `json:"morality_percentage"`
	CreativityBand       string  `json:"creativity_band"`
	MoralityBand         string  `json:"morality_band"`
	Quadrant             string  `json:"quadrant"`
}

// Result is the full scoring output for one response.
type Result struct {
	Present  AspectScore `json:"present"`
	Future   AspectScore `json:"future"`
	MaxScore int         `json:"maxScore"`
	// Answers carries the input answers with per-option marks resolved.
	Answers models.AnswerList `json:"-"`
}

// MaxScore returns the maximum attainable total for either dimension.
func MaxScore(questionCount int) int {
	return questionCount * MarksPerQuestion
}

// Percentage converts a raw total into a percentage of maxScore, rounded
// to one decimal place. A zero maxScore yields zero.
func Percentage(total, maxScore int) float64 {
	if maxScore == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(maxScore)*1000) / 10
}

// Band classifies a percentage: below 40 Early, below 50 Emerging,
// otherwise Leading.
func Band(percentage float64) string {
	if percentage < 40 {
		return BandEarly
	}
	if percentage < 50 {
		return BandEmerging
	}
	return BandLeading
}

// Quadrant classifies a creativity/morality percentage pair. Both
// thresholds are inclusive at 50.
func Quadrant(creativityPct, moralityPct float64) string {
	switch {
	case creativityPct >= 50 && moralityPct >= 50:
		return QuadrantHopeInAction
	case creativityPct >= 50:
		return QuadrantUnboundedPower
	case moralityPct >= 50:
		return QuadrantSafeStagnation
	default:
		return QuadrantExtractionEngine
	}
}

// Score resolves each answer's chosen options against the survey questions,
// sums creativity and morality marks per aspect, and derives percentages,
// bands and quadrants. Answers referencing unknown questions or
// out-of-range option indexes contribute zero.
func Score(questions models.QuestionList, answers models.AnswerList) Result {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	resolved := make(models.AnswerList, 0, len(answers))
	var res Result
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if ok {
			a.QuestionNumber = q.QuestionNumber
			a.PresentCreativityMarks, a.PresentMoralityMarks = optionMarks(q.PresentOptions, a.PresentOptionIndex)
			a.FutureCreativityMarks, a.FutureMoralityMarks = optionMarks(q.FutureOptions, a.FutureOptionIndex)
		} else {
			a.PresentCreativityMarks, a.PresentMoralityMarks = 0, 0
			a.FutureCreativityMarks, a.FutureMoralityMarks = 0, 0
		}

		res.Present.CreativityTotal += a.PresentCreativityMarks
		res.Present.MoralityTotal += a.PresentMoralityMarks
		res.Future.CreativityTotal += a.FutureCreativityMarks
		res.Future.MoralityTotal += a.FutureMoralityMarks
		resolved = append(resolved, a)
	}

	res.MaxScore = MaxScore(len(questions))
	res.Present = finishAspect(res.Present, res.MaxScore)
	res.Future = finishAspect(res.Future, res.MaxScore)
	res.Answers = resolved
	return res
}

// ScoreStored recomputes a Result from marks already resolved on a stored
// response, used by the reporting engine so reports never depend on the
// denormalized totals persisted at submission time.
func ScoreStored(questionCount int, answers models.AnswerList) Result {
	var res Result
	for _, a := range answers {
		res.Present.CreativityTotal += a.PresentCreativityMarks
		res.Present.MoralityTotal += a.PresentMoralityMarks
		res.Future.CreativityTotal += a.FutureCreativityMarks
		res.Future.MoralityTotal += a.FutureMoralityMarks
	}
	res.MaxScore = MaxScore(questionCount)
	res.Present = finishAspect(res.Present, res.MaxScore)
	res.Future = finishAspect(res.Future, res.MaxScore)
	res.Answers = answers
	return res
}

func finishAspect(a AspectScore, maxScore int) AspectScore {
	a.CreativityPercentage = Percentage(a.CreativityTotal, maxScore)
	a.MoralityPercentage = Percentage(a.MoralityTotal, maxScore)
	a.CreativityBand = Band(a.CreativityPercentage)
	a.MoralityBand = Band(a.MoralityPercentage)
	a.Quadrant = Quadrant(a.CreativityPercentage, a.MoralityPercentage)
	return a
}

func optionMarks(options []models.Option, idx *int) (creativity, morality int) {
	if idx == nil || *idx < 0 || *idx >= len(options) {
		return 0, 0
	}
	return options[*idx].CreativityMarks, options[*idx].MoralityMarks
}
