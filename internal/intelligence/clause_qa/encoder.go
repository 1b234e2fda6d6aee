package clause_qa

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/ContractLens/pkg/errors"
)

// ---------------------------------------------------------------------------
// Encoder contract
// ---------------------------------------------------------------------------

// Encoder turns a (question, context) pair into model-ready token ids and maps
// token ids back to text.
type Encoder interface {
	Encode(question, context string, maxLength int) (*EncodedInput, error)
	Decode(ids []int64) string
}

// EncodedInput is the model-ready representation of one question/context pair.
// All slices have length L; Offsets holds {-1,-1} for special and padding
// tokens and a byte range into the segment text otherwise.
type EncodedInput struct {
	InputIDs      []int64  `json:"input_ids"`
	AttentionMask []int64  `json:"attention_mask"`
	TokenTypeIDs  []int64  `json:"token_type_ids"`
	Offsets       [][2]int `json:"offsets"`
	NumTruncated  int      `json:"num_truncated"`
}

// Len returns the sequence length L.
func (e *EncodedInput) Len() int {
	if e == nil {
		return 0
	}
	return len(e.InputIDs)
}

// minEncodeLength is the room needed for [CLS] q [SEP] ctx [SEP] with empty segments.
const minEncodeLength = 3

// ---------------------------------------------------------------------------
// Special token defaults
// ---------------------------------------------------------------------------

const (
	defaultUnknownToken = "[UNK]"
	defaultCLSToken     = "[CLS]"
	defaultSEPToken     = "[SEP]"
	defaultPADToken     = "[PAD]"
	defaultMaxWordLen   = 200
)

// ---------------------------------------------------------------------------
// WordPieceEncoder
// ---------------------------------------------------------------------------

// WordPieceEncoder implements Encoder with the WordPiece sub-word algorithm
// over a BERT-style vocabulary file.
type WordPieceEncoder struct {
	vocab        map[string]int64
	inverseVocab map[int64]string
	unknownToken string
	clsToken     string
	sepToken     string
	padToken     string
	doLowerCase  bool
	stripAccents bool
	maxWordLen   int
}

// EncoderOption is a functional option for WordPieceEncoder construction.
type EncoderOption func(*WordPieceEncoder)

// WithDoLowerCase enables or disables lower-casing before vocabulary lookup.
func WithDoLowerCase(v bool) EncoderOption {
	return func(e *WordPieceEncoder) { e.doLowerCase = v }
}

// WithStripAccents enables or disables accent stripping.
func WithStripAccents(v bool) EncoderOption {
	return func(e *WordPieceEncoder) { e.stripAccents = v }
}

// WithSpecialTokens overrides the default special tokens. Empty values keep
// the default.
func WithSpecialTokens(cls, sep, unk, pad string) EncoderOption {
	return func(e *WordPieceEncoder) {
		if cls != "" {
			e.clsToken = cls
		}
		if sep != "" {
			e.sepToken = sep
		}
		if unk != "" {
			e.unknownToken = unk
		}
		if pad != "" {
			e.padToken = pad
		}
	}
}

// NewWordPieceEncoder builds an encoder over vocab. The vocabulary must hold
// every special token.
func NewWordPieceEncoder(vocab map[string]int64, opts ...EncoderOption) (*WordPieceEncoder, error) {
	if len(vocab) == 0 {
		return nil, errors.InputError(errors.ErrCodeVocabularyInvalid, "vocabulary must not be empty")
	}

	e := &WordPieceEncoder{
		unknownToken: defaultUnknownToken,
		clsToken:     defaultCLSToken,
		sepToken:     defaultSEPToken,
		padToken:     defaultPADToken,
		doLowerCase:  true,
		stripAccents: true,
		maxWordLen:   defaultMaxWordLen,
	}
	for _, o := range opts {
		o(e)
	}

	for _, tok := range []string{e.unknownToken, e.clsToken, e.sepToken, e.padToken} {
		if _, ok := vocab[tok]; !ok {
			return nil, errors.InputError(errors.ErrCodeVocabularyInvalid, "vocabulary is missing a special token").
				WithDetail("token=" + tok)
		}
	}

	e.vocab = make(map[string]int64, len(vocab))
	e.inverseVocab = make(map[int64]string, len(vocab))
	for tok, id := range vocab {
		e.vocab[tok] = id
		e.inverseVocab[id] = tok
	}
	return e, nil
}

// NewWordPieceEncoderFromFile loads a vocab.txt file and builds an encoder.
func NewWordPieceEncoderFromFile(path string, opts ...EncoderOption) (*WordPieceEncoder, error) {
	vocab, err := LoadVocabFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewWordPieceEncoder(vocab, opts...)
}

// LoadVocabFromFile reads a vocab file with one token per line. The zero-based
// line number is the token id.
func LoadVocabFromFile(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVocabularyInvalid, "opening vocab file").WithDetail("path=" + path)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		if token == "" {
			id++
			continue
		}
		if _, dup := vocab[token]; !dup {
			vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVocabularyInvalid, "reading vocab file")
	}
	if len(vocab) == 0 {
		return nil, errors.InputError(errors.ErrCodeVocabularyInvalid, "vocab file is empty").WithDetail("path=" + path)
	}
	return vocab, nil
}

// VocabSize returns the number of tokens in the vocabulary.
func (e *WordPieceEncoder) VocabSize() int {
	return len(e.vocab)
}

// TokenID returns the id of token, or the unknown-token id.
func (e *WordPieceEncoder) TokenID(token string) int64 {
	if id, ok := e.vocab[token]; ok {
		return id
	}
	return e.vocab[e.unknownToken]
}

// ---------------------------------------------------------------------------
// Tokenize
// ---------------------------------------------------------------------------

// Tokenize splits text into WordPiece tokens with byte offsets into text.
func (e *WordPieceEncoder) Tokenize(text string) ([]string, [][2]int) {
	if text == "" {
		return nil, nil
	}

	var tokens []string
	var offsets [][2]int
	for _, sp := range pretokenize(text) {
		word := text[sp[0]:sp[1]]
		normalized := e.normalizeWord(word)
		pieces := e.wordPiece(normalized)

		// Sub-token offsets are only exact when normalization kept the byte length.
		exact := len(normalized) == len(word)
		pos := sp[0]
		for i, p := range pieces {
			if !exact || p == e.unknownToken {
				offsets = append(offsets, [2]int{sp[0], sp[1]})
				tokens = append(tokens, p)
				continue
			}
			n := len(p)
			if i > 0 && strings.HasPrefix(p, "##") {
				n -= 2
			}
			end := pos + n
			if end > sp[1] {
				end = sp[1]
			}
			offsets = append(offsets, [2]int{pos, end})
			tokens = append(tokens, p)
			pos = end
		}
	}
	return tokens, offsets
}

// ---------------------------------------------------------------------------
// Encode
// ---------------------------------------------------------------------------

// Encode lays out [CLS] question [SEP] context [SEP], truncates the longer
// segment first until the pair fits maxLength and pads to exactly maxLength.
func (e *WordPieceEncoder) Encode(question, context string, maxLength int) (*EncodedInput, error) {
	if maxLength < minEncodeLength {
		return nil, errors.InputError(errors.ErrCodeEncoderMaxLength, "max length must be at least 3").
			WithDetail(fmt.Sprintf("max_length=%d", maxLength))
	}

	tokensA, offsetsA := e.Tokenize(question)
	tokensB, offsetsB := e.Tokenize(context)

	budget := maxLength - minEncodeLength
	truncated := 0
	for len(tokensA)+len(tokensB) > budget {
		if len(tokensA) >= len(tokensB) {
			tokensA = tokensA[:len(tokensA)-1]
			offsetsA = offsetsA[:len(offsetsA)-1]
		} else {
			tokensB = tokensB[:len(tokensB)-1]
			offsetsB = offsetsB[:len(offsetsB)-1]
		}
		truncated++
	}

	ids := make([]int64, 0, maxLength)
	offsets := make([][2]int, 0, maxLength)
	none := [2]int{-1, -1}

	ids = append(ids, e.vocab[e.clsToken])
	offsets = append(offsets, none)
	for i, tok := range tokensA {
		ids = append(ids, e.TokenID(tok))
		offsets = append(offsets, offsetsA[i])
	}
	ids = append(ids, e.vocab[e.sepToken])
	offsets = append(offsets, none)
	segB := len(ids)
	for i, tok := range tokensB {
		ids = append(ids, e.TokenID(tok))
		offsets = append(offsets, offsetsB[i])
	}
	ids = append(ids, e.vocab[e.sepToken])
	offsets = append(offsets, none)

	seqLen := len(ids)
	attn := make([]int64, maxLength)
	typeIDs := make([]int64, maxLength)
	for i := 0; i < seqLen; i++ {
		attn[i] = 1
		if i >= segB {
			typeIDs[i] = 1
		}
	}

	padID := e.vocab[e.padToken]
	for len(ids) < maxLength {
		ids = append(ids, padID)
		offsets = append(offsets, none)
	}

	return &EncodedInput{
		InputIDs:      ids,
		AttentionMask: attn,
		TokenTypeIDs:  typeIDs,
		Offsets:       offsets,
		NumTruncated:  truncated,
	}, nil
}

// ---------------------------------------------------------------------------
// Decode
// ---------------------------------------------------------------------------

// Decode converts ids back to text, skipping special and padding tokens and
// merging "##" continuation pieces into the preceding word.
func (e *WordPieceEncoder) Decode(ids []int64) string {
	var b strings.Builder
	for _, id := range ids {
		tok, ok := e.inverseVocab[id]
		if !ok {
			tok = e.unknownToken
		}
		if tok == e.clsToken || tok == e.sepToken || tok == e.padToken {
			continue
		}
		if strings.HasPrefix(tok, "##") && b.Len() > 0 {
			b.WriteString(tok[2:])
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimPrefix(tok, "##"))
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Normalization and pre-tokenization
// ---------------------------------------------------------------------------

func (e *WordPieceEncoder) normalizeWord(word string) string {
	word = norm.NFC.String(word)
	if e.doLowerCase {
		word = strings.ToLower(word)
	}
	if e.stripAccents {
		word = stripAccents(word)
	}
	return word
}

func stripAccents(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// pretokenize splits on whitespace and control characters and isolates every
// punctuation rune. Spans are byte offsets into text.
func pretokenize(text string) [][2]int {
	var spans [][2]int
	pos := 0
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if isSeparator(r) {
			pos += size
			continue
		}
		if isPunctuation(r) {
			spans = append(spans, [2]int{pos, pos + size})
			pos += size
			continue
		}
		start := pos
		for pos < len(text) {
			r, size = utf8.DecodeRuneInString(text[pos:])
			if isSeparator(r) || isPunctuation(r) {
				break
			}
			pos += size
		}
		spans = append(spans, [2]int{start, pos})
	}
	return spans
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// ---------------------------------------------------------------------------
// WordPiece algorithm
// ---------------------------------------------------------------------------

func (e *WordPieceEncoder) wordPiece(word string) []string {
	if word == "" {
		return nil
	}
	runes := []rune(word)
	if len(runes) > e.maxWordLen {
		return []string{e.unknownToken}
	}

	var tokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := e.vocab[sub]; ok {
				tokens = append(tokens, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{e.unknownToken}
		}
		start = end
	}
	return tokens
}

var _ Encoder = (*WordPieceEncoder)(nil)

//Personal.AI order the ending
