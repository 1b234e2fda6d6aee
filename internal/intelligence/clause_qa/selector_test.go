package clause_qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const sampleAgreement = `MASTER SERVICES AGREEMENT. The parties enter into this agreement on the effective date.
GOVERNING LAW: This Agreement shall be governed by the laws of the State of Delaware.
Either party may terminate this Agreement with thirty (30) days prior written notice!
The Client shall pay each invoice within forty-five days of receipt?
All disputes shall be resolved by binding arbitration in New York.
Short one.`

func TestScoreSentences(t *testing.T) {
	t.Parallel()

	scored := ScoreSentences(sampleAgreement, keywordsFor(contract.CategoryGoverningLaw))
	require.NotEmpty(t, scored)

	top := scored[0]
	assert.Contains(t, top.Text, "governed by the laws of the State of Delaware")
	// "governing law", "governed by" and "laws of", plus the header bonus.
	assert.Equal(t, 2+2+2+3, top.Score)

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
	for _, s := range scored {
		assert.GreaterOrEqual(t, len(s.Text), minSentenceLen)
		assert.NotEqual(t, "Short one", s.Text)
	}
}

func TestScoreSentences_StableOrder(t *testing.T) {
	t.Parallel()

	text := "First sentence mentions nothing. Second sentence mentions nothing. Third one also nothing."
	scored := ScoreSentences(text, []string{"absent"})
	require.Len(t, scored, 3)
	assert.Equal(t, "First sentence mentions nothing", scored[0].Text)
	assert.Equal(t, "Second sentence mentions nothing", scored[1].Text)
	assert.Equal(t, "Third one also nothing", scored[2].Text)
}

func TestScoreSentences_HeaderBonusOnce(t *testing.T) {
	t.Parallel()

	scored := ScoreSentences("TERMINATION and RENEWAL and WARRANTY apply here", nil)
	require.Len(t, scored, 1)
	assert.Equal(t, headerScore, scored[0].Score)
}

func TestSelectContext_TopSentences(t *testing.T) {
	t.Parallel()

	got := SelectContext(sampleAgreement, contract.CategoryTermination)
	assert.True(t, strings.HasSuffix(got, "."))
	assert.Contains(t, got, "Either party may terminate this Agreement with thirty (30) days prior written notice")
	assert.NotContains(t, got, "Short one")
}

func TestSelectContext_AtMostFive(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString("This clause is governed by the laws of somewhere. ")
	}
	got := SelectContext(b.String(), contract.CategoryGoverningLaw)
	assert.Equal(t, 5, strings.Count(got, "This clause is governed"))
	assert.Equal(t, 4, strings.Count(got, ". "))
}

func TestSelectContext_FallbackFirstThousandChars(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Lorem ipsum dolor sit amet. ", 72)[:2000]
	require.Len(t, text, 2000)

	got := SelectContext(text, contract.CategoryGoverningLaw)
	assert.Equal(t, text[:1000], got)
}

func TestSelectContext_ShortAndEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", SelectContext("", contract.CategoryRenewal))
	assert.Equal(t, "Tiny.", SelectContext("Tiny.", contract.CategoryRenewal))
}

func TestSelectContext_Bound(t *testing.T) {
	t.Parallel()

	for _, c := range contract.AllCategories() {
		got := SelectContext(sampleAgreement, c)
		scored := ScoreSentences(sampleAgreement, keywordsFor(c))
		longest := 0
		for i, s := range scored {
			if i == maxSelected {
				break
			}
			longest += len(s.Text) + len(excerptSeparator)
		}
		bound := longest
		if bound < fallbackExcerpt {
			bound = fallbackExcerpt
		}
		assert.LessOrEqual(t, len(got), bound, c)
	}
}

func TestSelectContext_RuneSafeFallback(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 1500)
	got := SelectContext(text, contract.CategoryWarranty)
	assert.Equal(t, 1000, len([]rune(got)))
}

//Personal.AI order the ending
