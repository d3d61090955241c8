package models

import "time"

// Envelope is the response wrapper used by the backend API for journals,
// testimonials and statistics.
type Envelope[T any] struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// GAD7Answers is the payload accepted by the prediction API. Each value is
// one of the four Likert answer labels.
type GAD7Answers struct {
	Nervous       string `json:"merasa_gugup_cemas_atau_gelisah"`
	CantStop      string `json:"tidak_dapat_menghentikan_kekhawatiran"`
	WorryTooMuch  string `json:"banyak_mengkhawatirkan_berbagai_hal"`
	TroubleRelax  string `json:"sulit_merasa_santai"`
	Restless      string `json:"sangat_gelisah_sehingga_sulit_untuk_diam"`
	Irritable     string `json:"mudah_tersinggung_dan_mudah_marah"`
	AfraidOfWorst string `json:"merasa_takut_seolah_olah_sesuatu_buruk_akan_terjadi"`
}

// Values returns the answers in questionnaire order.
func (a GAD7Answers) Values() []string {
	return []string{a.Nervous, a.CantStop, a.WorryTooMuch, a.TroubleRelax, a.Restless, a.Irritable, a.AfraidOfWorst}
}

// Set assigns the answer for an API key. It reports false for unknown keys.
func (a *GAD7Answers) Set(key, value string) bool {
	switch key {
	case "merasa_gugup_cemas_atau_gelisah":
		a.Nervous = value
	case "tidak_dapat_menghentikan_kekhawatiran":
		a.CantStop = value
	case "banyak_mengkhawatirkan_berbagai_hal":
		a.WorryTooMuch = value
	case "sulit_merasa_santai":
		a.TroubleRelax = value
	case "sangat_gelisah_sehingga_sulit_untuk_diam":
		a.Restless = value
	case "mudah_tersinggung_dan_mudah_marah":
		a.Irritable = value
	case "merasa_takut_seolah_olah_sesuatu_buruk_akan_terjadi":
		a.AfraidOfWorst = value
	default:
		return false
	}
	return true
}

type Prediction struct {
	TotalScore          int    `json:"total_score"`
	AnxietyLevel        string `json:"anxiety_level"`
	AnxietyLabelEncoded int    `json:"anxiety_label_encoded"`
	Message             string `json:"message"`
	Fallback            bool   `json:"fallback,omitempty"`
}

type JournalRequest struct {
	Text string `json:"text"`
}

type Emotion struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type JournalResult struct {
	Emotions   []Emotion `json:"emotions"`
	Insight    string    `json:"insight"`
	Validation string    `json:"validation"`
	Saran      []string  `json:"saran"`
}

type JournalData struct {
	Result JournalResult `json:"result"`
}

type Testimonial struct {
	ID        int        `json:"id,omitempty"`
	Name      string     `json:"name"`
	Text      string     `json:"text"`
	Rating    int        `json:"rating"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type TestimonialList struct {
	Testimonials []Testimonial `json:"testimonials"`
}

type Stats struct {
	Total      int `json:"total"`
	Anxiety    int `json:"anxiety"`
	Percentage int `json:"percentage"`
}

type StatsData struct {
	Stats Stats `json:"stats"`
}

// Landing merges the two feeds shown on the landing page.
type Landing struct {
	Stats        Stats         `json:"stats"`
	StatsError   bool          `json:"stats_error"`
	Testimonials []Testimonial `json:"testimonials"`
}

// AssessmentRecord is a prediction kept in a session's private history.
type AssessmentRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"-"`
	TotalScore int       `json:"total_score"`
	Level      string    `json:"anxiety_level"`
	Message    string    `json:"message"`
	Fallback   bool      `json:"fallback"`
	CreatedAt  time.Time `json:"created_at"`
}

// JournalRecord is a journal entry with its analysis. Text is sealed at rest.
type JournalRecord struct {
	ID        string        `json:"id"`
	SessionID string        `json:"-"`
	Text      string        `json:"text"`
	Result    JournalResult `json:"result"`
	Fallback  bool          `json:"fallback"`
	CreatedAt time.Time     `json:"created_at"`
}

// TestimonialRecord mirrors a submitted testimonial locally.
type TestimonialRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	Forwarded bool      `json:"forwarded"`
	CreatedAt time.Time `json:"created_at"`
}
