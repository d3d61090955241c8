package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"anoto/assessment"
	"anoto/journal"
	appmw "anoto/middleware"
	"anoto/models"
	"anoto/testimonial"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"landing",
	"test_intro",
	"test_form",
	"test_insight",
	"journal_intro",
	"journal_form",
	"journal_insight",
	"testimonial_form",
}

type pageSet map[string]*template.Template

// parsePages pairs every page with the shared layout.
func parsePages() (pageSet, error) {
	set := pageSet{}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handlers: parse page %s: %w", name, err)
		}
		set[name] = t
	}
	return set, nil
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

type testimonialView struct {
	Name   string
	Text   string
	Rating int
	Stars  string
}

type landingView struct {
	Stats        models.Stats
	StatsError   bool
	Testimonials []testimonialView
}

func (h *Handler) LandingPage(w http.ResponseWriter, r *http.Request) {
	h.ensureSession(w, r)
	l := h.landing(r.Context())
	view := landingView{Stats: l.Stats, StatsError: l.StatsError}
	for _, t := range l.Testimonials {
		view.Testimonials = append(view.Testimonials, testimonialView{
			Name:   t.Name,
			Text:   t.Text,
			Rating: t.Rating,
			Stars:  testimonial.Stars(t.Rating),
		})
	}
	h.render(w, http.StatusOK, "landing", view)
}

func (h *Handler) TestIntroPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "test_intro", nil)
}

type optionView struct {
	Value   string
	Checked bool
}

type hiddenAnswer struct {
	ID    int
	Value string
}

type testFormView struct {
	Progress string
	Percent  int
	Step     int
	Question string
	Options  []optionView
	Hidden   []hiddenAnswer
	IsLast   bool
	Error    string
}

func (h *Handler) wizardView(wz *assessment.Wizard, errMsg string) testFormView {
	label, pct := wz.Progress()
	id, text := wz.Current()
	view := testFormView{
		Progress: label,
		Percent:  pct,
		Step:     wz.Step,
		Question: text,
		IsLast:   wz.IsLast(),
		Error:    errMsg,
	}
	for _, o := range h.assess.Options() {
		view.Options = append(view.Options, optionView{Value: o, Checked: wz.Answers[id] == o})
	}
	for _, q := range h.assess.Questions() {
		if v, ok := wz.Answers[q.ID]; ok && q.ID != id {
			view.Hidden = append(view.Hidden, hiddenAnswer{ID: q.ID, Value: v})
		}
	}
	return view
}

func (h *Handler) TestFormPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "test_form", h.wizardView(h.assess.NewWizard(), ""))
}

// TestFormSubmit advances the questionnaire by one step. On the last
// question it predicts and redirects to the result card.
func (h *Handler) TestFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	step, _ := strconv.Atoi(r.PostFormValue("step"))
	answers := map[int]string{}
	for _, q := range h.assess.Questions() {
		if v := r.PostFormValue("q" + strconv.Itoa(q.ID)); v != "" {
			answers[q.ID] = v
		}
	}
	wz := h.assess.RestoreWizard(step, answers)
	if a := r.PostFormValue("answer"); a != "" {
		wz.Select(a)
	}

	if r.PostFormValue("action") == "previous" {
		wz.Previous()
		h.render(w, http.StatusOK, "test_form", h.wizardView(wz, ""))
		return
	}

	switch wz.Next() {
	case assessment.Stay:
		h.render(w, http.StatusUnprocessableEntity, "test_form", h.wizardView(wz, "Pilih salah satu jawaban terlebih dahulu."))
	case assessment.Moved:
		h.render(w, http.StatusOK, "test_form", h.wizardView(wz, ""))
	case assessment.Submit:
		r = h.ensureSession(w, r)
		p := h.predict(r.Context(), wz.Payload())
		q := url.Values{}
		q.Set("anxiety_level", p.AnxietyLevel)
		q.Set("message", p.Message)
		q.Set("score", strconv.Itoa(p.TotalScore))
		http.Redirect(w, r, "/test/insight?"+q.Encode(), http.StatusSeeOther)
	}
}

type insightView struct {
	UI          string
	Title       string
	Description string
	Color       string
	Image       string
	Score       *int
	MaxScore    int
}

func (h *Handler) TestInsightPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := q.Get("anxiety_level")
	if l, ok := h.content.LevelByUI(level); ok {
		level = l.Name
	}
	var score *int
	if n, err := strconv.Atoi(q.Get("score")); err == nil && n >= 0 && n <= assessment.MaxScore {
		score = &n
	}
	res := h.assess.InsightResult(level, q.Get("message"), score)
	h.render(w, http.StatusOK, "test_insight", insightView{
		UI:          h.assess.MapLevelToUI(res.Result),
		Title:       res.Result,
		Description: res.Description,
		Color:       res.Level.Color,
		Image:       res.Level.Image,
		Score:       res.Score,
		MaxScore:    assessment.MaxScore,
	})
}

func (h *Handler) JournalIntroPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "journal_intro", nil)
}

type emotionView struct {
	Name     string
	Selected bool
}

type journalFormView struct {
	Emotions    []emotionView
	Suggestions []string
	Text        string
	Error       string
}

func (h *Handler) journalView(selected []string, text, errMsg string) journalFormView {
	chosen := map[string]bool{}
	for _, s := range selected {
		chosen[s] = true
	}
	view := journalFormView{
		Suggestions: h.journal.Suggestions(selected...),
		Text:        text,
		Error:       errMsg,
	}
	for _, e := range h.journal.Emotions() {
		view.Emotions = append(view.Emotions, emotionView{Name: e, Selected: chosen[e]})
	}
	return view
}

func (h *Handler) JournalFormPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "journal_form", h.journalView(r.URL.Query()["emotion"], "", ""))
}

// JournalFormSubmit handles the editor buttons: filtering prompts, inserting
// a prompt into the text and submitting the entry for analysis.
func (h *Handler) JournalFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	selected := r.PostForm["emotion"]
	text := r.PostFormValue("text")

	if insert := r.PostFormValue("insert"); insert != "" {
		h.render(w, http.StatusOK, "journal_form", h.journalView(selected, journal.AppendText(text, insert), ""))
		return
	}

	switch r.PostFormValue("action") {
	case "reset":
		h.render(w, http.StatusOK, "journal_form", h.journalView(nil, text, ""))
	case "submit":
		cleaned, err := journal.Clean(text)
		if err != nil {
			h.render(w, http.StatusUnprocessableEntity, "journal_form", h.journalView(selected, text, "Tuliskan jurnalmu terlebih dahulu ya."))
			return
		}
		r = h.ensureSession(w, r)
		env, fallback := h.analyzeJournal(r.Context(), cleaned)
		h.renderJournalInsight(w, env.Data.Result, fallback)
	default:
		h.render(w, http.StatusOK, "journal_form", h.journalView(selected, text, ""))
	}
}

type journalInsightView struct {
	Emotions   []journal.DominantEmotion
	Insight    string
	Validation string
	Saran      []string
	Fallback   bool
}

func (h *Handler) renderJournalInsight(w http.ResponseWriter, res models.JournalResult, fallback bool) {
	insight, unknown := h.journal.Insight(res)
	if len(unknown) > 0 {
		h.logger.Warn("emotions without illustration", zap.Strings("emotions", unknown))
	}
	h.render(w, http.StatusOK, "journal_insight", journalInsightView{
		Emotions:   insight.DominantEmotions,
		Insight:    insight.Insight,
		Validation: insight.Validation,
		Saran:      insight.Saran,
		Fallback:   fallback,
	})
}

// JournalInsightPage shows the latest journal of the session, or sends the
// visitor to the editor when there is none.
func (h *Handler) JournalInsightPage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appmw.SessionFrom(r.Context())
	if !ok || h.store == nil {
		http.Redirect(w, r, "/journal/form", http.StatusSeeOther)
		return
	}
	records, err := h.store.ListJournals(r.Context(), sessionID, 1)
	if err != nil {
		h.logger.Error("latest journal", zap.Error(err))
	}
	if len(records) == 0 {
		http.Redirect(w, r, "/journal/form", http.StatusSeeOther)
		return
	}
	h.renderJournalInsight(w, records[0].Result, records[0].Fallback)
}

type testimonialFormView struct {
	Name    string
	Text    string
	Rating  int
	Ratings []int
	Error   string
	Success string
}

func newTestimonialForm() testimonialFormView {
	v := testimonialFormView{}
	for i := 1; i <= testimonial.MaxRating; i++ {
		v.Ratings = append(v.Ratings, i)
	}
	return v
}

func (h *Handler) TestimonialFormPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "testimonial_form", newTestimonialForm())
}

func (h *Handler) TestimonialFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	t := models.Testimonial{
		Name:   r.PostFormValue("name"),
		Text:   r.PostFormValue("testimonial"),
		Rating: rating,
	}

	view := newTestimonialForm()
	_, err := h.submitTestimonial(r.Context(), &t)
	var verr *testimonial.ValidationError
	switch {
	case errors.As(err, &verr):
		view.Name, view.Text, view.Rating = t.Name, t.Text, t.Rating
		view.Error = verr.Error()
		h.render(w, http.StatusUnprocessableEntity, "testimonial_form", view)
	case err != nil:
		h.logger.Error("error submitting testimonial", zap.Error(err))
		view.Name, view.Text, view.Rating = t.Name, t.Text, t.Rating
		view.Error = "Gagal mengirim testimoni. Silakan coba lagi nanti."
		h.render(w, http.StatusBadGateway, "testimonial_form", view)
	default:
		view.Success = "Terima kasih! Testimoni kamu berhasil dikirim."
		h.render(w, http.StatusOK, "testimonial_form", view)
	}
}

// Manifest serves the web app manifest.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/manifest+json")
	json.NewEncoder(w).Encode(h.content.Manifest)
}
