package clause_qa

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

var (
	markupTag  = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
	punctSpace = strings.NewReplacer(" ,", ",", " .", ".")
)

// NormalizeAnswer cleans a decoded span for display. Input that is empty,
// or only markup, yields the no-answer sentinel.
func NormalizeAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return contract.NoAnswerText
	}
	answer = markupTag.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(whitespace.ReplaceAllString(answer, " "))
	if answer == "" {
		return contract.NoAnswerText
	}
	answer = punctSpace.Replace(answer)

	r, size := utf8.DecodeRuneInString(answer)
	if unicode.IsLower(r) {
		answer = string(unicode.ToUpper(r)) + answer[size:]
	}
	return answer
}

//Personal.AI order the ending
