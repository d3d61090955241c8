package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	appmw "anoto/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) postForm(target string, form url.Values, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: appmw.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestLandingPage(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{
		statistics:   jsonReply(`{"error":false,"message":"ok","data":{"stats":{"total":321,"anxiety":100,"percentage":31}}}`),
		testimonials: jsonReply(`{"error":false,"message":"ok","data":{"testimonials":[{"name":"Budi Santoso","text":"Sangat membantu","rating":4}]}}`),
	}, true)

	rr := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "321")
	assert.Contains(t, body, "Budi Santoso")
	assert.Contains(t, body, "★★★★☆")

	// first visit starts a session
	require.NotEmpty(t, rr.Result().Cookies())
	assert.Equal(t, appmw.CookieName, rr.Result().Cookies()[0].Name)
}

func TestStaticPages(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{}, false)

	for path, want := range map[string]string{
		"/test":             "Jawab Beberapa Pertanyaan Ringan",
		"/test/form":        "Pertanyaan 1 dari 7",
		"/journal":          "Mulai Menulis",
		"/journal/form":     "Anxiety",
		"/testimonials/new": "Beri rating untuk Anoto",
	} {
		rr := env.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), want, path)
	}
}

func TestQuestionnaireForm(t *testing.T) {
	severe := "Hampir Setiap Hari"

	t.Run("next without an answer stays", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/test/form", url.Values{"step": {"0"}, "action": {"next"}}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "Pertanyaan 1 dari 7")
		assert.Contains(t, rr.Body.String(), "Pilih salah satu jawaban")
	})

	t.Run("answer moves forward and keeps state", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/test/form", url.Values{"step": {"0"}, "answer": {severe}, "action": {"next"}}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Pertanyaan 2 dari 7")
		assert.Contains(t, body, `name="q1" value="Hampir Setiap Hari"`)
	})

	t.Run("previous restores the earlier answer", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/test/form", url.Values{"step": {"1"}, "q1": {severe}, "action": {"previous"}}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Pertanyaan 1 dari 7")
		assert.Contains(t, body, `value="Hampir Setiap Hari" checked`)
	})

	t.Run("last step submits and redirects", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, true)
		token := env.token(t)

		form := url.Values{"step": {"6"}, "answer": {severe}, "action": {"next"}}
		for i := 1; i <= 6; i++ {
			form.Set("q"+strconv.Itoa(i), severe)
		}
		rr := env.postForm("/test/form", form, token)
		require.Equal(t, http.StatusSeeOther, rr.Code)

		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/test/insight", loc.Path)
		assert.Equal(t, "Berat", loc.Query().Get("anxiety_level"))
		assert.Equal(t, "21", loc.Query().Get("score"))
		assert.NotEmpty(t, loc.Query().Get("message"))

		rr = env.do(http.MethodGet, "/api/history/assessments", "", token)
		assert.Contains(t, rr.Body.String(), `"anxiety_level":"Berat"`)
	})
}

func TestTestInsightPage(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{}, false)

	rr := env.do(http.MethodGet, "/test/insight?anxiety_level=Sedang&message=Coba+bicara&score=12", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Sedang")
	assert.Contains(t, body, "Coba bicara")
	assert.Contains(t, body, "Skor: 12/21")
	assert.Contains(t, body, "/test/sedang.svg")
	assert.Contains(t, body, `class="insight anxious_moderate"`)

	// UI keys are accepted as well
	rr = env.do(http.MethodGet, "/test/insight?anxiety_level=anxious_severe&message=Segera+konsultasi", "", "")
	assert.Contains(t, rr.Body.String(), "Berat")

	// unknown levels fall back to Normal with score 0
	rr = env.do(http.MethodGet, "/test/insight?anxiety_level=Panik&message=x", "", "")
	body = rr.Body.String()
	assert.Contains(t, body, "Normal")
	assert.Contains(t, body, "Skor: 0/21")
}

func TestJournalForm(t *testing.T) {
	t.Run("filter shows suggestions", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/journal/form", url.Values{"emotion": {"Fear"}, "action": {"filter"}}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Aku takut menghadapi situasi yang tidak pasti.")
	})

	t.Run("insert appends a suggestion", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/journal/form", url.Values{
			"text":   {"Pagi ini"},
			"insert": {"Aku gugup saat berbicara di depan umum."},
		}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Pagi ini\nAku gugup saat berbicara di depan umum.")
	})

	t.Run("empty submit is rejected", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/journal/form", url.Values{"text": {"  "}, "action": {"submit"}}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "Tuliskan jurnalmu")
	})

	t.Run("submit renders the insight ordered by score", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{
			journals: jsonReply(`{"error":false,"message":"ok","data":{"result":{"emotions":[{"name":"fear","score":1},{"name":"sadness","score":3}],"insight":"Kamu sedih","validation":"Wajar","saran":["Istirahat"]}}}`),
		}, true)
		token := env.token(t)

		rr := env.postForm("/journal/form", url.Values{"text": {"Aku sedih"}, "action": {"submit"}}, token)
		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Kamu sedih")
		assert.Contains(t, body, "Istirahat")
		assert.Less(t, strings.Index(body, "sadness: Tinggi"), strings.Index(body, "fear: Rendah"))

		// the latest entry is shown again on the insight page
		req := httptest.NewRequest(http.MethodGet, "/journal/insight", nil)
		req.AddCookie(&http.Cookie{Name: appmw.CookieName, Value: token})
		rr = httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Kamu sedih")
	})

	t.Run("insight without history redirects to the editor", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.do(http.MethodGet, "/journal/insight", "", "")
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/journal/form", rr.Header().Get("Location"))
	})
}

func TestTestimonialForm(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/testimonials/new", url.Values{"name": {"Sari"}}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "Mohon isi rating, testimoni terlebih dahulu ya ✨")
		assert.Contains(t, rr.Body.String(), `value="Sari"`)
	})

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{testimonials: jsonReply(`{"error":false,"message":"created"}`)}, false)

		rr := env.postForm("/testimonials/new", url.Values{"name": {"Sari"}, "rating": {"5"}, "testimonial": {"Mantap"}}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Testimoni kamu berhasil dikirim")
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{}, false)

		rr := env.postForm("/testimonials/new", url.Values{"name": {"Sari"}, "rating": {"5"}, "testimonial": {"Mantap"}}, "")
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Contains(t, rr.Body.String(), "Gagal mengirim testimoni")
	})
}

func TestManifest(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{}, false)

	rr := env.do(http.MethodGet, "/manifest.webmanifest", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/manifest+json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"name": "Anoto App",
		"short_name": "Anoto",
		"description": "Anoto App",
		"start_url": "/",
		"display": "standalone",
		"background_color": "#000000",
		"theme_color": "#000000",
		"icons": [
			{"src": "/favicons/icon-144.png", "sizes": "144x144", "type": "image/png"},
			{"src": "/favicons/icon-192.png", "sizes": "192x192", "type": "image/png"},
			{"src": "/favicons/icon-512.png", "sizes": "512x512", "type": "image/png"}
		]
	}`, rr.Body.String())
}
