package assessment

import (
	"math"
	"strconv"

	"anoto/models"
)

type Action int

const (
	// Stay means the step did not change.
	Stay Action = iota
	Moved
	// Submit means Next was pressed on the last, answered question.
	Submit
)

// Wizard walks through the questionnaire one question at a time. It holds
// no server-side state: Step and Answers round-trip through the form.
type Wizard struct {
	a       *Assessment
	Step    int
	Answers map[int]string
}

func (a *Assessment) NewWizard() *Wizard {
	return &Wizard{a: a, Answers: map[int]string{}}
}

// RestoreWizard rebuilds a wizard from submitted form values. Out of range
// steps are clamped and unknown answers dropped.
func (a *Assessment) RestoreWizard(step int, answers map[int]string) *Wizard {
	w := a.NewWizard()
	n := len(a.Questions())
	switch {
	case step < 0:
		step = 0
	case step >= n:
		step = n - 1
	}
	w.Step = step
	for _, q := range a.Questions() {
		if v, ok := answers[q.ID]; ok {
			if _, valid := a.OptionScore(v); valid {
				w.Answers[q.ID] = v
			}
		}
	}
	return w
}

func (w *Wizard) Total() int {
	return len(w.a.Questions())
}

func (w *Wizard) Current() (id int, text string) {
	q := w.a.Questions()[w.Step]
	return q.ID, q.Text
}

func (w *Wizard) IsLast() bool {
	return w.Step == w.Total()-1
}

func (w *Wizard) HasCurrentAnswer() bool {
	id, _ := w.Current()
	_, ok := w.Answers[id]
	return ok
}

// Select records the answer for the current question.
func (w *Wizard) Select(answer string) bool {
	if _, ok := w.a.OptionScore(answer); !ok {
		return false
	}
	id, _ := w.Current()
	w.Answers[id] = answer
	return true
}

func (w *Wizard) Next() Action {
	if !w.HasCurrentAnswer() {
		return Stay
	}
	if w.IsLast() {
		return Submit
	}
	w.Step++
	return Moved
}

func (w *Wizard) Previous() Action {
	if w.Step == 0 {
		return Stay
	}
	w.Step--
	return Moved
}

// Progress returns the "Pertanyaan N dari M" label and the rounded
// percentage of the current position.
func (w *Wizard) Progress() (string, int) {
	pct := int(math.Round(float64(w.Step+1) / float64(w.Total()) * 100))
	return "Pertanyaan " + strconv.Itoa(w.Step+1) + " dari " + strconv.Itoa(w.Total()), pct
}

// Payload converts the answer map to the prediction API request, keyed by
// the questions' API keys.
func (w *Wizard) Payload() models.GAD7Answers {
	var out models.GAD7Answers
	for _, q := range w.a.Questions() {
		if answer, ok := w.Answers[q.ID]; ok {
			out.Set(q.Key, answer)
		}
	}
	return out
}
