// Package journal holds the journaling flow: prompt templates filtered by
// emotion and the shaping of analysis results for the insight page.
package journal

import (
	"errors"
	"sort"
	"strings"

	"anoto/content"
	"anoto/models"
	"anoto/sanitize"
)

var ErrEmptyText = errors.New("journal: text is empty")

type Journal struct {
	content *content.Content
}

func New(c *content.Content) *Journal {
	return &Journal{content: c}
}

// Emotions lists the filterable emotions in display order.
func (j *Journal) Emotions() []string {
	names := make([]string, 0, len(j.content.Emotions))
	for _, e := range j.content.Emotions {
		names = append(names, e.Name)
	}
	return names
}

// Suggestions concatenates the prompt templates of the selected emotions in
// selection order. Unknown emotions are ignored.
func (j *Journal) Suggestions(selected ...string) []string {
	var out []string
	for _, name := range selected {
		for _, e := range j.content.Emotions {
			if e.Name == name {
				out = append(out, e.Prompts...)
				break
			}
		}
	}
	return out
}

// AppendText adds a suggestion below the text already written.
func AppendText(current, text string) string {
	if current == "" {
		return text
	}
	return current + "\n" + text
}

// Clean strips markup and surrounding whitespace, failing when nothing is
// left to analyse.
func Clean(text string) (string, error) {
	text = sanitize.Text(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// DominantEmotion is an emotion with the illustration shown for it.
type DominantEmotion struct {
	Name    string
	Score   int
	SVGFile string
	Label   string
}

type Insight struct {
	DominantEmotions []DominantEmotion
	Insight          string
	Validation       string
	Saran            []string
}

// Insight orders emotions from highest to lowest score and attaches their
// illustrations. The second return value lists emotions that have no
// illustration.
func (j *Journal) Insight(r models.JournalResult) (Insight, []string) {
	sorted := append([]models.Emotion(nil), r.Emotions...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Score > sorted[b].Score })

	var unknown []string
	out := Insight{Insight: r.Insight, Validation: r.Validation, Saran: r.Saran}
	for _, e := range sorted {
		file, ok := j.content.EmotionImages[strings.ToLower(e.Name)]
		if !ok {
			unknown = append(unknown, e.Name)
		}
		out.DominantEmotions = append(out.DominantEmotions, DominantEmotion{
			Name:    e.Name,
			Score:   e.Score,
			SVGFile: file,
			Label:   ScoreText(e.Score),
		})
	}
	return out, unknown
}

// ScoreText describes an emotion score in words.
func ScoreText(score int) string {
	switch {
	case score >= 3:
		return "Tinggi"
	case score >= 2:
		return "Sedang"
	case score >= 1:
		return "Rendah"
	}
	return "-"
}
