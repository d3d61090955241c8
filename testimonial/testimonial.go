// Package testimonial validates testimonial submissions and renders ratings
// for display.
package testimonial

import (
	"strings"

	"anoto/models"
	"anoto/sanitize"
)

const MaxRating = 5

// ValidationError lists the missing fields in form order.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Mohon isi " + strings.Join(e.Missing, ", ") + " terlebih dahulu ya ✨"
}

// Validate cleans t in place and reports which fields are missing. A
// rating outside 1..5 counts as missing.
func Validate(t *models.Testimonial) error {
	t.Name = sanitize.Text(t.Name)
	t.Text = sanitize.Text(t.Text)

	var missing []string
	if t.Name == "" {
		missing = append(missing, "nama")
	}
	if t.Rating < 1 || t.Rating > MaxRating {
		missing = append(missing, "rating")
	}
	if t.Text == "" {
		missing = append(missing, "testimoni")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Stars renders a rating as filled and empty stars.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > MaxRating {
		rating = MaxRating
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", MaxRating-rating)
}
