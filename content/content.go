// Package content holds the static copy of the site: questionnaire items,
// anxiety levels, journal prompts and the payloads served when an upstream
// API is unavailable. It is kept in an embedded YAML document.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"anoto/models"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultDocument []byte

type Question struct {
	ID   int    `yaml:"id"`
	Key  string `yaml:"key"`
	Text string `yaml:"text"`
}

type Level struct {
	Name     string `yaml:"name"`
	UI       string `yaml:"ui"`
	MinScore int    `yaml:"min_score"`
	Color    string `yaml:"color"`
	Image    string `yaml:"image"`
	Message  string `yaml:"message"`
}

type EmotionPrompts struct {
	Name    string   `yaml:"name"`
	Prompts []string `yaml:"prompts"`
}

type JournalFallback struct {
	Message    string           `yaml:"message"`
	Emotions   []models.Emotion `yaml:"emotions"`
	Insight    string           `yaml:"insight"`
	Validation string           `yaml:"validation"`
	Saran      []string         `yaml:"saran"`
}

type StatisticsFallback struct {
	Message    string `yaml:"message"`
	Total      int    `yaml:"total"`
	Anxiety    int    `yaml:"anxiety"`
	Percentage int    `yaml:"percentage"`
}

type Icon struct {
	Src   string `yaml:"src" json:"src"`
	Sizes string `yaml:"sizes" json:"sizes"`
	Type  string `yaml:"type" json:"type"`
}

type Manifest struct {
	Name            string `yaml:"name" json:"name"`
	ShortName       string `yaml:"short_name" json:"short_name"`
	Description     string `yaml:"description" json:"description"`
	StartURL        string `yaml:"start_url" json:"start_url"`
	Display         string `yaml:"display" json:"display"`
	BackgroundColor string `yaml:"background_color" json:"background_color"`
	ThemeColor      string `yaml:"theme_color" json:"theme_color"`
	Icons           []Icon `yaml:"icons" json:"icons"`
}

type Content struct {
	AnswerOptions      []string           `yaml:"answer_options"`
	Questions          []Question         `yaml:"questions"`
	Levels             []Level            `yaml:"levels"`
	FormFallbackLevel  string             `yaml:"form_fallback_level"`
	Emotions           []EmotionPrompts   `yaml:"emotions"`
	EmotionImages      map[string]string  `yaml:"emotion_images"`
	JournalFallback    JournalFallback    `yaml:"journal_fallback"`
	StatisticsFallback StatisticsFallback `yaml:"statistics_fallback"`
	Manifest           Manifest           `yaml:"manifest"`
}

// Parse decodes and checks a content document. Levels are sorted by
// MinScore.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("content: decode: %w", err)
	}
	if len(c.AnswerOptions) == 0 {
		return nil, errors.New("content: no answer options")
	}
	if len(c.Questions) == 0 {
		return nil, errors.New("content: no questions")
	}
	if len(c.Levels) == 0 {
		return nil, errors.New("content: no anxiety levels")
	}
	sort.SliceStable(c.Levels, func(i, j int) bool { return c.Levels[i].MinScore < c.Levels[j].MinScore })
	if c.Levels[0].MinScore != 0 {
		return nil, fmt.Errorf("content: lowest level %q must start at 0", c.Levels[0].Name)
	}
	if _, ok := c.Level(c.FormFallbackLevel); !ok {
		return nil, fmt.Errorf("content: unknown form fallback level %q", c.FormFallbackLevel)
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultContent *Content
)

// Default returns the embedded document. It panics if the embedded YAML is
// broken, which the package tests guard against.
func Default() *Content {
	defaultOnce.Do(func() {
		c, err := Parse(defaultDocument)
		if err != nil {
			panic(err)
		}
		defaultContent = c
	})
	return defaultContent
}

// Level looks up a level by its display name.
func (c *Content) Level(name string) (Level, bool) {
	for _, l := range c.Levels {
		if l.Name == name {
			return l, true
		}
	}
	return Level{}, false
}

// LevelByUI looks up a level by its UI key.
func (c *Content) LevelByUI(ui string) (Level, bool) {
	for _, l := range c.Levels {
		if l.UI == ui {
			return l, true
		}
	}
	return Level{}, false
}

func (c *Content) JournalFallbackResult() models.JournalResult {
	f := c.JournalFallback
	return models.JournalResult{
		Emotions:   append([]models.Emotion(nil), f.Emotions...),
		Insight:    f.Insight,
		Validation: f.Validation,
		Saran:      append([]string(nil), f.Saran...),
	}
}

func (c *Content) FallbackStats() models.Stats {
	f := c.StatisticsFallback
	return models.Stats{Total: f.Total, Anxiety: f.Anxiety, Percentage: f.Percentage}
}
