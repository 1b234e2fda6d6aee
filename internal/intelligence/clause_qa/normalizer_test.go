package clause_qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "No answer found"},
		{"whitespace", " \t\n ", "No answer found"},
		{"markup only", "<b></b>", "No answer found"},
		{"capitalises", "delaware", "Delaware"},
		{"strips tags", "the <b>laws</b> of delaware", "The laws of delaware"},
		{"collapses whitespace", "thirty   (30)\n days", "Thirty (30) days"},
		{"punctuation spacing", "thirty ( 30 ) days , prior notice .", "Thirty ( 30 ) days, prior notice."},
		{"keeps uppercase", "New York", "New York"},
		{"leading digit", "30 days", "30 days"},
		{"non-ascii first rune", "émission", "Émission"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeAnswer(tt.in))
		})
	}
}

func TestNormalizeAnswer_Idempotent(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "delaware", "the <i>laws</i>  of , x .", "No answer found"} {
		once := NormalizeAnswer(in)
		assert.Equal(t, once, NormalizeAnswer(once), in)
		assert.NotEmpty(t, once)
	}
}

//Personal.AI order the ending
