// Package assessment scores the GAD-7 questionnaire and drives the
// step-by-step form used to answer it.
package assessment

import (
	"errors"
	"fmt"

	"anoto/content"
	"anoto/models"
)

// MaxScore is the highest possible GAD-7 total.
const MaxScore = 21

var ErrInvalidAnswers = errors.New("assessment: invalid answers")

type Assessment struct {
	content *content.Content
}

func New(c *content.Content) *Assessment {
	return &Assessment{content: c}
}

func (a *Assessment) Questions() []content.Question {
	return a.content.Questions
}

func (a *Assessment) Options() []string {
	return a.content.AnswerOptions
}

// OptionScore returns the 0-based position of answer among the options.
func (a *Assessment) OptionScore(answer string) (int, bool) {
	for i, o := range a.content.AnswerOptions {
		if o == answer {
			return i, true
		}
	}
	return 0, false
}

// Score sums the option scores of a complete answer set.
func (a *Assessment) Score(answers models.GAD7Answers) (int, error) {
	total := 0
	for i, v := range answers.Values() {
		s, ok := a.OptionScore(v)
		if !ok {
			if v == "" {
				return 0, fmt.Errorf("%w: question %d unanswered", ErrInvalidAnswers, i+1)
			}
			return 0, fmt.Errorf("%w: question %d has unknown answer %q", ErrInvalidAnswers, i+1, v)
		}
		total += s
	}
	return total, nil
}

// Classify maps a total score to its level. The encoded label is the level's
// index, 0 for Normal through 3 for Berat.
func (a *Assessment) Classify(total int) (content.Level, int) {
	idx := 0
	for i, l := range a.content.Levels {
		if total >= l.MinScore {
			idx = i
		}
	}
	return a.content.Levels[idx], idx
}

// Predict scores answers locally. It is what the service answers with when
// the prediction API is unreachable.
func (a *Assessment) Predict(answers models.GAD7Answers) (models.Prediction, error) {
	total, err := a.Score(answers)
	if err != nil {
		return models.Prediction{}, err
	}
	level, encoded := a.Classify(total)
	return models.Prediction{
		TotalScore:          total,
		AnxietyLevel:        level.Name,
		AnxietyLabelEncoded: encoded,
		Message:             level.Message,
	}, nil
}

// MapLevelToUI converts a level name from the API to its UI key. Unknown
// names map to "normal".
func (a *Assessment) MapLevelToUI(level string) string {
	if l, ok := a.content.Level(level); ok {
		return l.UI
	}
	return a.content.Levels[0].UI
}

// FormFallback is the result shown when the form could not obtain any
// prediction.
func (a *Assessment) FormFallback() content.Level {
	l, _ := a.content.Level(a.content.FormFallbackLevel)
	return l
}

// Result is what the insight card renders.
type Result struct {
	Result      string
	Description string
	Level       content.Level
	Score       *int
}

// InsightResult builds the card for a level name and message. An unknown
// level or empty message falls back to the Normal card with score 0.
func (a *Assessment) InsightResult(level, message string, score *int) Result {
	l, ok := a.content.Level(level)
	if !ok || message == "" {
		normal := a.content.Levels[0]
		zero := 0
		return Result{Result: normal.Name, Description: normal.Message, Level: normal, Score: &zero}
	}
	return Result{Result: l.Name, Description: message, Level: l, Score: score}
}
