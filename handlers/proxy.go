package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"anoto/journal"
	"anoto/models"
	"anoto/testimonial"
	"anoto/upstream"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	statisticsKey   = "statistics"
	testimonialsKey = "testimonials"
)

var errUpstreamRejected = errors.New("upstream reported an error")

// predict asks the prediction API and scores the answers locally when it
// cannot answer. Answers that cannot be scored get the canned form result.
func (h *Handler) predict(ctx context.Context, answers models.GAD7Answers) models.Prediction {
	p, err := h.api.Predict(ctx, answers)
	if err != nil {
		h.logger.Warn("prediction API unavailable, scoring locally",
			zap.Bool("timeout", upstream.IsTimeout(err)), zap.Error(err))
		p, err = h.assess.Predict(answers)
		if err != nil {
			h.logger.Warn("answers cannot be scored", zap.Error(err))
			p = h.formFallback()
		}
		p.Fallback = true
	}

	h.record(ctx, "assessment", func(sessionID string) error {
		return h.store.SaveAssessment(ctx, &models.AssessmentRecord{
			SessionID:  sessionID,
			TotalScore: p.TotalScore,
			Level:      p.AnxietyLevel,
			Message:    p.Message,
			Fallback:   p.Fallback,
		})
	})
	return p
}

func (h *Handler) formFallback() models.Prediction {
	l := h.assess.FormFallback()
	_, encoded := h.assess.Classify(l.MinScore)
	return models.Prediction{
		TotalScore:          l.MinScore,
		AnxietyLevel:        l.Name,
		AnxietyLabelEncoded: encoded,
		Message:             l.Message,
		Fallback:            true,
	}
}

// analyzeJournal returns the upstream analysis of text, or the canned
// result when the backend fails or reports an error.
func (h *Handler) analyzeJournal(ctx context.Context, text string) (models.Envelope[models.JournalData], bool) {
	env, err := h.api.AnalyzeJournal(ctx, text)
	if err == nil && env.Error {
		err = fmt.Errorf("%w: %s", errUpstreamRejected, env.Message)
	}
	fallback := err != nil
	if fallback {
		h.logger.Warn("journal API unavailable, serving fallback", zap.Error(err))
		env = h.journalFallback()
	}

	h.record(ctx, "journal", func(sessionID string) error {
		return h.store.SaveJournal(ctx, &models.JournalRecord{
			SessionID: sessionID,
			Text:      text,
			Result:    env.Data.Result,
			Fallback:  fallback,
		})
	})
	return env, fallback
}

func (h *Handler) journalFallback() models.Envelope[models.JournalData] {
	return models.Envelope[models.JournalData]{
		Message: h.content.JournalFallback.Message,
		Data:    models.JournalData{Result: h.content.JournalFallbackResult()},
	}
}

func (h *Handler) statistics(ctx context.Context) (models.Envelope[models.StatsData], error) {
	v, err := h.cache.Get(ctx, statisticsKey, func(ctx context.Context) (any, error) {
		env, err := h.api.Statistics(ctx)
		if err != nil {
			return nil, err
		}
		if env.Error {
			return nil, fmt.Errorf("%w: %s", errUpstreamRejected, env.Message)
		}
		return env, nil
	})
	if err != nil {
		return models.Envelope[models.StatsData]{}, err
	}
	return v.(models.Envelope[models.StatsData]), nil
}

func (h *Handler) fallbackStatistics() models.Envelope[models.StatsData] {
	return models.Envelope[models.StatsData]{
		Message: h.content.StatisticsFallback.Message,
		Data:    models.StatsData{Stats: h.content.FallbackStats()},
	}
}

func (h *Handler) testimonials(ctx context.Context) (models.Envelope[models.TestimonialList], error) {
	v, err := h.cache.Get(ctx, testimonialsKey, func(ctx context.Context) (any, error) {
		env, err := h.api.ListTestimonials(ctx)
		if err != nil {
			return nil, err
		}
		if env.Error {
			return nil, fmt.Errorf("%w: %s", errUpstreamRejected, env.Message)
		}
		return env, nil
	})
	if err != nil {
		return models.Envelope[models.TestimonialList]{}, err
	}
	return v.(models.Envelope[models.TestimonialList]), nil
}

// landing fetches statistics and testimonials in parallel. Each half falls
// back on its own: default statistics, or an empty testimonial list.
func (h *Handler) landing(ctx context.Context) models.Landing {
	var out models.Landing
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		env, err := h.statistics(ctx)
		if err != nil {
			h.logger.Warn("statistics unavailable", zap.Error(err))
			out.Stats = h.content.FallbackStats()
			out.StatsError = true
			return nil
		}
		out.Stats = env.Data.Stats
		return nil
	})
	g.Go(func() error {
		env, err := h.testimonials(ctx)
		if err != nil {
			h.logger.Warn("testimonials unavailable", zap.Error(err))
			out.Testimonials = []models.Testimonial{}
			return nil
		}
		out.Testimonials = env.Data.Testimonials
		return nil
	})

	g.Wait()
	return out
}

// submitTestimonial validates t, forwards it and mirrors it locally with the
// forwarding outcome.
func (h *Handler) submitTestimonial(ctx context.Context, t *models.Testimonial) (json.RawMessage, error) {
	if err := testimonial.Validate(t); err != nil {
		return nil, err
	}
	raw, err := h.api.SubmitTestimonial(ctx, *t)
	if err == nil {
		h.cache.Invalidate(testimonialsKey)
	}
	if h.store != nil {
		rec := &models.TestimonialRecord{Name: t.Name, Text: t.Text, Rating: t.Rating, Forwarded: err == nil}
		if serr := h.store.SaveTestimonial(ctx, rec); serr != nil {
			h.logger.Warn("could not mirror testimonial", zap.Error(serr))
		}
	}
	return raw, err
}

// Predict proxies to the prediction API and answers with a locally scored
// result, flagged as fallback, when the API fails.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var answers models.GAD7Answers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		h.logger.Warn("unreadable prediction request", zap.Error(err))
		writeJSON(w, http.StatusOK, h.formFallback())
		return
	}
	writeJSON(w, http.StatusOK, h.predict(r.Context(), answers))
}

type gad7Error struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// PredictStrict forwards the request body to the prediction API untouched,
// without any fallback. Every failure is a 500 with the failure details.
func (h *Handler) PredictStrict(w http.ResponseWriter, r *http.Request) {
	fail := func(err error, details string) {
		h.logger.Error("anxiety assessment failed",
			zap.Bool("timeout", upstream.IsTimeout(err)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, gad7Error{
			Error:   "Failed to process anxiety assessment request",
			Details: details,
		})
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(fmt.Errorf("decode request: %w", err), "invalid request body")
		return
	}
	out, err := h.api.ForwardPredict(r.Context(), body)
	if err != nil {
		fail(err, failureDetails(err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// failureDetails is the client-facing text for a strict prediction failure.
// Wrapping context stays in the logs.
func failureDetails(err error) string {
	var se *upstream.StatusError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case upstream.IsTimeout(err):
		return "prediction API timed out"
	}
	return "prediction API unavailable"
}

// Journals forwards a journal entry for emotion analysis. Backend failures
// are answered with the canned analysis.
func (h *Handler) Journals(w http.ResponseWriter, r *http.Request) {
	var req models.JournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("unreadable journal request", zap.Error(err))
		writeJSON(w, http.StatusOK, h.journalFallback())
		return
	}
	text, err := journal.Clean(req.Text)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Envelope[any]{Error: true, Message: "Journal text is required"})
		return
	}
	env, _ := h.analyzeJournal(r.Context(), text)
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	env, err := h.testimonials(r.Context())
	if err != nil {
		h.logger.Error("error fetching testimonials", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.Envelope[models.TestimonialList]{
			Error:   true,
			Message: "Failed to fetch testimonials",
			Data:    models.TestimonialList{Testimonials: []models.Testimonial{}},
		})
		return
	}
	writeJSON(w, http.StatusOK, env)
}

type testimonialRequest struct {
	Name        string `json:"name"`
	Text        string `json:"text"`
	Testimonial string `json:"testimonial"`
	Rating      int    `json:"rating"`
}

func (req testimonialRequest) model() models.Testimonial {
	t := models.Testimonial{Name: req.Name, Text: req.Text, Rating: req.Rating}
	if t.Text == "" {
		t.Text = req.Testimonial
	}
	return t
}

func (h *Handler) SubmitTestimonial(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Envelope[any]{Error: true, Message: "Invalid request body"})
		return
	}

	t := req.model()
	raw, err := h.submitTestimonial(r.Context(), &t)
	var verr *testimonial.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.Envelope[any]{Error: true, Message: verr.Error()})
	case err != nil:
		h.logger.Error("error submitting testimonial", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.Envelope[any]{
			Error:   true,
			Message: "Failed to submit testimonial. Please try again later.",
		})
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	env, err := h.statistics(r.Context())
	if err != nil {
		h.logger.Warn("statistics unavailable, serving fallback", zap.Error(err))
		env = h.fallbackStatistics()
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.landing(r.Context()))
}

type questionView struct {
	ID      int      `json:"id"`
	Key     string   `json:"key"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Questions lists the questionnaire for clients that render it themselves.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	out := make([]questionView, 0, len(h.assess.Questions()))
	for _, q := range h.assess.Questions() {
		out = append(out, questionView{ID: q.ID, Key: q.Key, Text: q.Text, Options: h.assess.Options()})
	}
	writeJSON(w, http.StatusOK, out)
}

// JournalPrompts answers the suggestion templates for the emotions given in
// repeated "emotion" query parameters.
func (h *Handler) JournalPrompts(w http.ResponseWriter, r *http.Request) {
	selected := r.URL.Query()["emotion"]
	writeJSON(w, http.StatusOK, map[string]any{
		"emotions":    h.journal.Emotions(),
		"suggestions": nonNil(h.journal.Suggestions(selected...)),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
