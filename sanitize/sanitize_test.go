package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text is trimmed", "  Aku gugup.\nBanget.  ", "Aku gugup.\nBanget."},
		{"tags are dropped", "<b>Aku</b> <i>takut</i>", "Aku takut"},
		{"scripts are dropped", "halo<script>alert(1)</script> dunia", "halo dunia"},
		{"entities are decoded", "aku &amp; kamu", "aku & kamu"},
		{"only markup", "<br/>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
