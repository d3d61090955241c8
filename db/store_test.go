package db

import (
	"context"
	"testing"
	"time"

	"anoto/models"
	"anoto/seal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	conn, d, err := Connect(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, conn, d))
	// migrations are idempotent
	require.NoError(t, Migrate(ctx, conn, d))

	sealer, err := seal.New("test-secret")
	require.NoError(t, err)
	s := NewStore(conn, d, sealer)

	clock := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssessments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Test case 1: records are scoped to a session and newest first
	for i, level := range []string{"Normal", "Ringan", "Sedang"} {
		require.NoError(t, s.SaveAssessment(ctx, &models.AssessmentRecord{SessionID: "s1", TotalScore: i * 5, Level: level, Message: "m"}))
	}
	require.NoError(t, s.SaveAssessment(ctx, &models.AssessmentRecord{SessionID: "s2", Level: "Berat", Fallback: true}))

	got, err := s.ListAssessments(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Sedang", got[0].Level)
	assert.Equal(t, 10, got[0].TotalScore)
	assert.Equal(t, "Normal", got[2].Level)

	// Test case 2: limit applies
	got, err = s.ListAssessments(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Test case 3: other session
	got, err = s.ListAssessments(ctx, "s2", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Fallback)

	// Test case 4: unknown session yields an empty list, not nil
	got, err = s.ListAssessments(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestJournals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.JournalRecord{
		SessionID: "s1",
		Text:      "Aku gugup banget hari ini.",
		Result:    models.JournalResult{Emotions: []models.Emotion{{Name: "nervousness", Score: 3}}, Insight: "gelisah"},
	}
	require.NoError(t, s.SaveJournal(ctx, rec))
	require.NotEmpty(t, rec.ID)

	t.Run("text is sealed at rest", func(t *testing.T) {
		var sealed string
		require.NoError(t, s.conn.QueryRow("SELECT sealed_text FROM journals WHERE id = ?", rec.ID).Scan(&sealed))
		assert.NotContains(t, sealed, "gugup")
	})

	t.Run("list opens text", func(t *testing.T) {
		got, err := s.ListJournals(ctx, "s1", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Aku gugup banget hari ini.", got[0].Text)
		assert.Equal(t, "gelisah", got[0].Result.Insight)
		assert.Equal(t, 3, got[0].Result.Emotions[0].Score)
	})

	t.Run("other sessions cannot delete", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteJournal(ctx, "s2", rec.ID), ErrNotFound)
		assert.ErrorIs(t, s.DeleteJournal(ctx, "s1", "not-a-uuid"), ErrNotFound)
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, s.DeleteJournal(ctx, "s1", rec.ID))
		assert.ErrorIs(t, s.DeleteJournal(ctx, "s1", rec.ID), ErrNotFound)
		got, err := s.ListJournals(ctx, "s1", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestJournalsAfterKeyChange(t *testing.T) {
	before := newTestStore(t)
	ctx := context.Background()

	old := &models.JournalRecord{SessionID: "s1", Text: "sebelum restart"}
	require.NoError(t, before.SaveJournal(ctx, old))

	// a fresh random key, as after a restart without JOURNAL_KEY
	sealer, err := seal.New("")
	require.NoError(t, err)
	core, logs := observer.New(zap.WarnLevel)
	after := NewStore(before.conn, before.dialect, sealer, WithLogger(zap.New(core)))
	after.now = before.now

	fresh := &models.JournalRecord{SessionID: "s1", Text: "setelah restart"}
	require.NoError(t, after.SaveJournal(ctx, fresh))

	got, err := after.ListJournals(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)
	assert.Equal(t, "setelah restart", got[0].Text)

	entries := logs.FilterMessage("skipping unreadable journal").All()
	require.Len(t, entries, 1)
	assert.Equal(t, old.ID, entries[0].ContextMap()["journal_id"])
}

func TestPendingTestimonials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTestimonial(ctx, &models.TestimonialRecord{Name: "A", Text: "a", Rating: 5, Forwarded: true}))
	require.NoError(t, s.SaveTestimonial(ctx, &models.TestimonialRecord{Name: "B", Text: "b", Rating: 4}))
	require.NoError(t, s.SaveTestimonial(ctx, &models.TestimonialRecord{Name: "C", Text: "c", Rating: 3}))

	got, err := s.PendingTestimonials(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Name)
	assert.Equal(t, "C", got[1].Name)
}

func TestDialects(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1, $2", d.rebind("SELECT ?, ?"))

	d, err = DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?, ?", d.rebind("SELECT ?, ?"))

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
