package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"anoto/assessment"
	"anoto/cache"
	"anoto/content"
	"anoto/journal"
	appmw "anoto/middleware"
	"anoto/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Upstream is the external API the handlers proxy to.
type Upstream interface {
	Predict(ctx context.Context, answers models.GAD7Answers) (models.Prediction, error)
	ForwardPredict(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	AnalyzeJournal(ctx context.Context, text string) (models.Envelope[models.JournalData], error)
	ListTestimonials(ctx context.Context) (models.Envelope[models.TestimonialList], error)
	SubmitTestimonial(ctx context.Context, t models.Testimonial) (json.RawMessage, error)
	Statistics(ctx context.Context) (models.Envelope[models.StatsData], error)
	Ping(ctx context.Context, base string) error
	PredictURL() string
	BackendURL() string
}

// Store keeps private session history. It is optional.
type Store interface {
	SaveAssessment(ctx context.Context, r *models.AssessmentRecord) error
	ListAssessments(ctx context.Context, sessionID string, limit int) ([]models.AssessmentRecord, error)
	SaveJournal(ctx context.Context, r *models.JournalRecord) error
	ListJournals(ctx context.Context, sessionID string, limit int) ([]models.JournalRecord, error)
	DeleteJournal(ctx context.Context, sessionID, id string) error
	SaveTestimonial(ctx context.Context, r *models.TestimonialRecord) error
	Ping(ctx context.Context) error
}

type Deps struct {
	Upstream Upstream
	Store    Store
	Cache    *cache.Cache
	Content  *content.Content
	Sessions *appmw.Sessions
	Logger   *zap.Logger
}

type Handler struct {
	api      Upstream
	store    Store
	cache    *cache.Cache
	content  *content.Content
	assess   *assessment.Assessment
	journal  *journal.Journal
	sessions *appmw.Sessions
	logger   *zap.Logger
	pages    pageSet
}

func NewHandler(d Deps) (*Handler, error) {
	if d.Upstream == nil || d.Sessions == nil {
		return nil, errors.New("handlers: upstream and sessions are required")
	}
	if d.Content == nil {
		d.Content = content.Default()
	}
	if d.Cache == nil {
		d.Cache = cache.New(time.Hour)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Handler{
		api:      d.Upstream,
		store:    d.Store,
		cache:    d.Cache,
		content:  d.Content,
		assess:   assessment.New(d.Content),
		journal:  journal.New(d.Content),
		sessions: d.Sessions,
		logger:   d.Logger,
		pages:    pages,
	}, nil
}

type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string
}

// Router wires every route onto a chi mux.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(appmw.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(appmw.SecureHeaders)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/manifest.webmanifest", h.Manifest)

	r.Route("/api", func(r chi.Router) {
		r.Use(appmw.CORS(opts.AllowedOrigins))

		r.Post("/session", h.CreateSession)
		r.Get("/statistics", h.Statistics)
		r.Get("/testimonials", h.ListTestimonials)
		r.Post("/testimonials", h.SubmitTestimonial)
		r.Get("/landing", h.Landing)
		r.Get("/questions", h.Questions)
		r.Get("/journal/prompts", h.JournalPrompts)
		r.Post("/gad7/predict", h.PredictStrict)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.OptionalSession)
			r.Post("/predict", h.Predict)
			r.Post("/journals", h.Journals)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.RequireSession)
			r.Get("/history/assessments", h.GetAssessments)
			r.Get("/history/journals", h.GetJournals)
			r.Delete("/history/journals/{id}", h.DeleteJournal)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.OptionalSession)
		r.Get("/", h.LandingPage)
		r.Get("/test", h.TestIntroPage)
		r.Get("/test/form", h.TestFormPage)
		r.Post("/test/form", h.TestFormSubmit)
		r.Get("/test/insight", h.TestInsightPage)
		r.Get("/journal", h.JournalIntroPage)
		r.Get("/journal/form", h.JournalFormPage)
		r.Post("/journal/form", h.JournalFormSubmit)
		r.Get("/journal/insight", h.JournalInsightPage)
		r.Get("/testimonials/new", h.TestimonialFormPage)
		r.Post("/testimonials/new", h.TestimonialFormSubmit)
	})

	if opts.StaticDir != "" {
		r.NotFound(http.FileServer(http.Dir(opts.StaticDir)).ServeHTTP)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// record runs save when the request carries a session and storage is
// configured. Storage failures are logged and never reach the client.
func (h *Handler) record(ctx context.Context, what string, save func(sessionID string) error) {
	if h.store == nil {
		return
	}
	id, ok := appmw.SessionFrom(ctx)
	if !ok {
		return
	}
	if err := save(id); err != nil {
		h.logger.Warn("could not record history", zap.String("kind", what), zap.Error(err))
	}
}
