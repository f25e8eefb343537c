package scoring

import (
	"testing"

	"github.com/igen-labs/cxo-survey/models"
	"github.com/stretchr/testify/assert"
)

func TestBandBoundaries(t *testing.T) {
	assert.Equal(t, BandEarly, Band(0))
	assert.Equal(t, BandEarly, Band(39.9))
	assert.Equal(t, BandEmerging, Band(40))
	assert.Equal(t, BandEmerging, Band(49.9))
	assert.Equal(t, BandLeading, Band(50))
	assert.Equal(t, BandLeading, Band(100))
}

func TestQuadrantBoundaries(t *testing.T) {
	assert.Equal(t, QuadrantHopeInAction, Quadrant(60, 60))
	assert.Equal(t, QuadrantUnboundedPower, Quadrant(60, 40))
	assert.Equal(t, QuadrantSafeStagnation, Quadrant(40, 60))
	assert.Equal(t, QuadrantExtractionEngine, Quadrant(40, 40))
	// 50 is inclusive on both axes.
	assert.Equal(t, QuadrantHopeInAction, Quadrant(50, 50))
	assert.Equal(t, QuadrantUnboundedPower, Quadrant(50, 49.9))
	assert.Equal(t, QuadrantSafeStagnation, Quadrant(49.9, 50))
}

func TestMaxScore(t *testing.T) {
	assert.Equal(t, 0, MaxScore(0))
	assert.Equal(t, 50, MaxScore(10))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(10, 0))
	assert.Equal(t, 100.0, Percentage(50, 50))
	assert.Equal(t, 33.3, Percentage(1, 3))
	assert.Equal(t, 66.7, Percentage(2, 3))
}

func intPtr(v int) *int { return &v }

func testQuestions() models.QuestionList {
	return models.QuestionList{
		{
			ID:             "q1",
			QuestionNumber: "1",
			Text:           "First",
			PresentOptions: []models.Option{
				{Text: "a", CreativityMarks: 5, MoralityMarks: 1},
				{Text: "b", CreativityMarks: 2, MoralityMarks: 4},
			},
			FutureOptions: []models.Option{
				{Text: "a", CreativityMarks: 3, MoralityMarks: 3},
				{Text: "b", CreativityMarks: 0, MoralityMarks: 5},
			},
			Required: true,
		},
		{
			ID:             "q2",
			QuestionNumber: "2",
			Text:           "Second",
			PresentOptions: []models.Option{
				{Text: "a", CreativityMarks: 1, MoralityMarks: 1},
			},
			FutureOptions: []models.Option{
				{Text: "a", CreativityMarks: 5, MoralityMarks: 0},
			},
		},
	}
}

func TestScoreResolvesMarksByOptionIndex(t *testing.T) {
	answers := models.AnswerList{
		{QuestionID: "q1", PresentOptionIndex: intPtr(0), FutureOptionIndex: intPtr(1)},
		{QuestionID: "q2", PresentOptionIndex: intPtr(0), FutureOptionIndex: intPtr(0)},
	}

	res := Score(testQuestions(), answers)

	assert.Equal(t, 10, res.MaxScore)
	assert.Equal(t, 6, res.Present.CreativityTotal) // 5 + 1
	assert.Equal(t, 2, res.Present.MoralityTotal)   // 1 + 1
	assert.Equal(t, 5, res.Future.CreativityTotal)  // 0 + 5
	assert.Equal(t, 5, res.Future.MoralityTotal)    // 5 + 0

	assert.Equal(t, 60.0, res.Present.CreativityPercentage)
	assert.Equal(t, 20.0, res.Present.MoralityPercentage)
	assert.Equal(t, BandLeading, res.Present.CreativityBand)
	assert.Equal(t, BandEarly, res.Present.MoralityBand)
	assert.Equal(t, QuadrantUnboundedPower, res.Present.Quadrant)
	assert.Equal(t, QuadrantHopeInAction, res.Future.Quadrant)
}

func TestScoreIgnoresUnknownQuestionsAndBadIndexes(t *testing.T) {
	answers := models.AnswerList{
		{QuestionID: "missing", PresentOptionIndex: intPtr(0), FutureOptionIndex: intPtr(0)},
		{QuestionID: "q1", PresentOptionIndex: intPtr(9), FutureOptionIndex: nil},
	}

	res := Score(testQuestions(), answers)

	assert.Equal(t, 0, res.Present.CreativityTotal)
	assert.Equal(t, 0, res.Future.MoralityTotal)
	assert.Equal(t, BandEarly, res.Present.CreativityBand)
	assert.Equal(t, QuadrantExtractionEngine, res.Present.Quadrant)
}

func TestScoreStampsResolvedMarksOnAnswers(t *testing.T) {
	answers := models.AnswerList{
		{QuestionID: "q1", PresentOptionIndex: intPtr(1), FutureOptionIndex: intPtr(0)},
	}

	res := Score(testQuestions(), answers)

	assert.Len(t, res.Answers, 1)
	assert.Equal(t, "1", res.Answers[0].QuestionNumber)
	assert.Equal(t, 2, res.Answers[0].PresentCreativityMarks)
	assert.Equal(t, 4, res.Answers[0].PresentMoralityMarks)
	assert.Equal(t, 3, res.Answers[0].FutureCreativityMarks)
	assert.Equal(t, 3, res.Answers[0].FutureMoralityMarks)
}

func TestScoreStoredMatchesScore(t *testing.T) {
	answers := models.AnswerList{
		{QuestionID: "q1", PresentOptionIndex: intPtr(0), FutureOptionIndex: intPtr(0)},
		{QuestionID: "q2", PresentOptionIndex: intPtr(0), FutureOptionIndex: intPtr(0)},
	}

	live := Score(testQuestions(), answers)
	stored := ScoreStored(len(testQuestions()), live.Answers)

	assert.Equal(t, live.Present, stored.Present)
	assert.Equal(t, live.Future, stored.Future)
	assert.Equal(t, live.MaxScore, stored.MaxScore)
}
