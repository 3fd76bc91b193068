package lexer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

// Lexer tokenizes Pebble template source.
type Lexer struct {
	source    string
	name      string
	pos       int // current position in source
	line      int // current line (1-indexed)
	col       int // current column (0-indexed at line start)
	start     int
	startLine int
	startCol  int
	syntax    Syntax
	operators []string // longest first

	tokens       []Token
	stack        []lexerState
	brackets     []bracket
	trimNextData bool
}

type lexerState int

const (
	stateData lexerState = iota
	stateExecute
	statePrint
	stateComment
	stateString
	stateInterpolation
)

type bracket struct {
	open string
	line int
}

const punctuation = "()[]{}?:.,|="

var closingBrackets = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
}

// newlines recognised by newline trimming, longest first.
var newlines = []string{"\r\n", "\n\r", "\r", "\n", "\u0085", "\u2028", "\u2029"}

// New creates a new Lexer. operators lists the symbols of every registered
// unary and binary operator.
func New(source, name string, syntax Syntax, operators []string) *Lexer {
	ops := make([]string, len(operators))
	copy(ops, operators)
	sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })
	return &Lexer{
		source:    source,
		name:      name,
		line:      1,
		syntax:    syntax,
		operators: ops,
		stack:     []lexerState{stateData},
	}
}

// Tokenize returns all tokens of source, terminated by an EOF token.
func Tokenize(source, name string, syntax Syntax, operators []string) ([]Token, error) {
	return New(source, name, syntax, operators).All()
}

// All tokenizes the whole source.
func (l *Lexer) All() ([]Token, error) {
	for !l.atEnd() {
		var err error
		switch l.currentState() {
		case stateData:
			err = l.tokenizeData()
		case stateExecute:
			err = l.tokenizeBetween(l.syntax.ExecuteClose, TokenExecuteEnd)
		case statePrint:
			err = l.tokenizeBetween(l.syntax.PrintClose, TokenPrintEnd)
		case stateComment:
			err = l.tokenizeComment()
		case stateString:
			err = l.tokenizeString()
		case stateInterpolation:
			err = l.tokenizeInterpolation()
		}
		if err != nil {
			return nil, err
		}
	}

	l.markStart()
	l.push(TokenEOF, "")

	if len(l.brackets) > 0 {
		open := l.brackets[len(l.brackets)-1]
		return nil, l.errorAt(open.line, `Unclosed "`+open.open+`"`)
	}
	return l.tokens, nil
}

func (l *Lexer) currentState() lexerState {
	if len(l.stack) == 0 {
		return stateData
	}
	return l.stack[len(l.stack)-1]
}

func (l *Lexer) pushState(s lexerState) {
	l.stack = append(l.stack, s)
}

func (l *Lexer) popState() {
	if len(l.stack) > 0 {
		l.stack = l.stack[:len(l.stack)-1]
	}
}

// tokenizeData emits the text up to the next start delimiter and switches
// into the state that delimiter opens.
func (l *Lexer) tokenizeData() error {
	rest := l.rest()
	idx, delim := l.findStartDelimiter(rest)

	l.markStart()
	var text string
	if idx < 0 {
		text = l.advance(len(rest))
	} else {
		text = l.advance(idx)
	}
	if l.trimNextData {
		text = ltrim(text)
		l.trimNextData = false
	}
	textIdx := l.push(TokenText, text)
	if idx < 0 {
		return nil
	}

	l.markStart()
	l.advance(len(delim))
	l.checkLeadingWhitespaceTrim(textIdx)

	switch delim {
	case l.syntax.CommentOpen:
		l.pushState(stateComment)
	case l.syntax.PrintOpen:
		l.push(TokenPrintStart, l.syntax.PrintOpen)
		l.pushState(statePrint)
	case l.syntax.ExecuteOpen:
		if n, trim, ok := l.matchVerbatimStart(l.rest()); ok {
			l.advance(n)
			return l.lexVerbatim(trim)
		}
		l.push(TokenExecuteStart, l.syntax.ExecuteOpen)
		l.pushState(stateExecute)
	}
	return nil
}

func (l *Lexer) findStartDelimiter(rest string) (int, string) {
	best, delim := -1, ""
	for _, d := range []string{l.syntax.PrintOpen, l.syntax.ExecuteOpen, l.syntax.CommentOpen} {
		if i := strings.Index(rest, d); i >= 0 && (best < 0 || i < best) {
			best, delim = i, d
		}
	}
	return best, delim
}

// checkLeadingWhitespaceTrim handles "{{- " style markers: the trim
// character must be followed by whitespace, otherwise it is an operator.
func (l *Lexer) checkLeadingWhitespaceTrim(textIdx int) {
	rest := l.rest()
	trim := l.syntax.WhitespaceTrim
	if !strings.HasPrefix(rest, trim) {
		return
	}
	ws := countSpace(rest[len(trim):])
	if ws == 0 {
		return
	}
	if textIdx >= 0 {
		l.tokens[textIdx].Value = rtrim(l.tokens[textIdx].Value)
		if l.tokens[textIdx].Value == "" {
			l.tokens = append(l.tokens[:textIdx], l.tokens[textIdx+1:]...)
		}
	}
	l.advance(len(trim) + ws)
}

// checkTrailingWhitespaceTrim looks ahead for "-}}", "-%}" or "-#}".
func (l *Lexer) checkTrailingWhitespaceTrim() {
	rest := l.rest()
	rest = rest[countSpace(rest):]
	if !strings.HasPrefix(rest, l.syntax.WhitespaceTrim) {
		return
	}
	rest = rest[len(l.syntax.WhitespaceTrim):]
	if strings.HasPrefix(rest, l.syntax.PrintClose) ||
		strings.HasPrefix(rest, l.syntax.ExecuteClose) ||
		strings.HasPrefix(rest, l.syntax.CommentClose) {
		l.trimNextData = true
	}
}

// tokenizeBetween handles the inside of {{ }} and {% %}.
func (l *Lexer) tokenizeBetween(closeDelim string, endType TokenType) error {
	l.checkTrailingWhitespaceTrim()

	if len(l.brackets) == 0 {
		if n, ok := l.matchClose(l.rest(), closeDelim); ok {
			l.markStart()
			l.push(endType, closeDelim)
			l.advance(n)
			l.skipNewline()
			l.popState()
			return nil
		}
	}
	return l.tokenizeExpression()
}

// matchClose matches optional whitespace, an optional trim character and the
// close delimiter.
func (l *Lexer) matchClose(rest, closeDelim string) (int, bool) {
	n := countSpace(rest)
	if strings.HasPrefix(rest[n:], l.syntax.WhitespaceTrim) &&
		strings.HasPrefix(rest[n+len(l.syntax.WhitespaceTrim):], closeDelim) {
		n += len(l.syntax.WhitespaceTrim)
	}
	if !strings.HasPrefix(rest[n:], closeDelim) {
		return 0, false
	}
	return n + len(closeDelim), true
}

func (l *Lexer) tokenizeComment() error {
	rest := l.rest()
	idx := strings.Index(rest, l.syntax.CommentClose)
	if idx < 0 {
		return l.errorAt(l.line, "Unclosed comment.")
	}
	if strings.HasSuffix(rest[:idx], l.syntax.WhitespaceTrim) {
		l.trimNextData = true
	}
	l.advance(idx + len(l.syntax.CommentClose))
	l.skipNewline()
	l.popState()
	return nil
}

func (l *Lexer) tokenizeString() error {
	rest := l.rest()
	if strings.HasPrefix(rest, l.syntax.InterpolationOpen) {
		l.markStart()
		l.brackets = append(l.brackets, bracket{open: l.syntax.InterpolationOpen, line: l.line})
		l.push(TokenInterpolationStart, l.syntax.InterpolationOpen)
		l.advance(len(l.syntax.InterpolationOpen))
		l.pushState(stateInterpolation)
		return nil
	}

	// literal part up to the closing quote or the next interpolation
	n := 0
	for n < len(rest) {
		c := rest[n]
		if c == '\\' && n+1 < len(rest) {
			n += 2
			continue
		}
		if c == '"' || strings.HasPrefix(rest[n:], l.syntax.InterpolationOpen) {
			break
		}
		n++
	}
	if n > 0 {
		l.markStart()
		part := l.advance(n)
		l.push(TokenString, strings.ReplaceAll(part, `\"`, `"`))
		return nil
	}

	if strings.HasPrefix(rest, `"`) {
		open := l.brackets[len(l.brackets)-1]
		l.brackets = l.brackets[:len(l.brackets)-1]
		if open.open != `"` {
			return l.errorAt(l.line, `Unclosed "`+open.open+`"`)
		}
		l.advance(1)
		l.popState()
	}
	return nil
}

func (l *Lexer) tokenizeInterpolation() error {
	top := l.brackets[len(l.brackets)-1]
	rest := l.rest()
	n := countSpace(rest)
	if top.open == l.syntax.InterpolationOpen && strings.HasPrefix(rest[n:], l.syntax.InterpolationClose) {
		l.brackets = l.brackets[:len(l.brackets)-1]
		l.advance(n)
		l.markStart()
		l.push(TokenInterpolationEnd, l.syntax.InterpolationClose)
		l.advance(len(l.syntax.InterpolationClose))
		l.popState()
		return nil
	}
	return l.tokenizeExpression()
}

func (l *Lexer) tokenizeExpression() error {
	l.advance(countSpace(l.rest()))
	if l.atEnd() {
		return nil
	}
	l.markStart()
	rest := l.rest()

	if op := l.matchOperator(rest); op != "" {
		l.advance(len(op))
		l.push(TokenOperator, op)
		return nil
	}

	if n := matchIdentifier(rest); n > 0 {
		l.push(TokenName, l.advance(n))
		return nil
	}

	if n := countDigits(rest); n > 0 {
		if n < len(rest) && rest[n] == 'L' {
			digits := l.advance(n)
			l.advance(1)
			l.push(TokenLong, digits)
			return nil
		}
		if n+1 < len(rest) && rest[n] == '.' && isDigit(rest[n+1]) {
			n += 1 + countDigits(rest[n+1:])
		}
		l.push(TokenNumber, l.advance(n))
		return nil
	}

	c := rest[0]
	if strings.IndexByte(punctuation, c) >= 0 {
		ch := string(c)
		switch ch {
		case "(", "[", "{":
			l.brackets = append(l.brackets, bracket{open: ch, line: l.line})
		case ")", "]", "}":
			if len(l.brackets) == 0 {
				return l.errorAt(l.line, `Unexpected "`+ch+`"`)
			}
			open := l.brackets[len(l.brackets)-1]
			l.brackets = l.brackets[:len(l.brackets)-1]
			expected, ok := closingBrackets[open.open]
			if !ok || expected != ch {
				if !ok {
					expected = open.open
				}
				return l.errorAt(l.line, `Unclosed "`+expected+`"`)
			}
		}
		l.advance(1)
		l.push(TokenPunctuation, ch)
		return nil
	}

	if c == '\'' || c == '"' {
		n, ok := scanPlainString(rest, c, l.syntax.InterpolationOpen)
		if ok {
			literal := l.advance(n)
			l.push(TokenString, unquote(literal))
			return nil
		}
		if c == '"' {
			l.brackets = append(l.brackets, bracket{open: `"`, line: l.line})
			l.pushState(stateString)
			l.advance(1)
			return nil
		}
		return l.errorAt(l.line, `Unclosed "'"`)
	}

	r, _ := utf8.DecodeRuneInString(rest)
	return l.errorAt(l.line, "Unexpected character ["+string(r)+"]")
}

// matchOperator returns the longest registered operator at the start of
// rest. Operators ending in a letter must not run into an identifier.
func (l *Lexer) matchOperator(rest string) string {
	for _, op := range l.operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		last, _ := utf8.DecodeLastRuneInString(op)
		if unicode.IsLetter(last) && len(rest) > len(op) {
			next, _ := utf8.DecodeRuneInString(rest[len(op):])
			if next == '_' || unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		return op
	}
	return ""
}

// matchVerbatimStart matches "verbatim %}" following an execute delimiter.
// trim reports a trailing whitespace-trim marker.
func (l *Lexer) matchVerbatimStart(rest string) (n int, trim bool, ok bool) {
	n = countSpace(rest)
	if !strings.HasPrefix(rest[n:], "verbatim") {
		return 0, false, false
	}
	n += len("verbatim")
	n += countSpace(rest[n:])
	if strings.HasPrefix(rest[n:], l.syntax.WhitespaceTrim) {
		trim = true
		n += len(l.syntax.WhitespaceTrim)
	}
	if !strings.HasPrefix(rest[n:], l.syntax.ExecuteClose) {
		return 0, false, false
	}
	n += len(l.syntax.ExecuteClose)
	n += newlineLen(rest[n:], l.syntax.NewLineTrimming)
	return n, trim, true
}

// lexVerbatim emits everything up to the matching endverbatim tag as a
// single text token.
func (l *Lexer) lexVerbatim(trimStart bool) error {
	rest := l.rest()
	offset := 0
	for {
		idx := strings.Index(rest[offset:], l.syntax.ExecuteOpen)
		if idx < 0 {
			return l.errorAt(l.line, "Unclosed verbatim tag.")
		}
		tagStart := offset + idx
		n := tagStart + len(l.syntax.ExecuteOpen)
		trimBefore, trimAfter := false, false
		if strings.HasPrefix(rest[n:], l.syntax.WhitespaceTrim) {
			trimBefore = true
			n += len(l.syntax.WhitespaceTrim)
		}
		n += countSpace(rest[n:])
		if !strings.HasPrefix(rest[n:], "endverbatim") {
			offset = tagStart + len(l.syntax.ExecuteOpen)
			continue
		}
		n += len("endverbatim")
		n += countSpace(rest[n:])
		if strings.HasPrefix(rest[n:], l.syntax.WhitespaceTrim) {
			trimAfter = true
			n += len(l.syntax.WhitespaceTrim)
		}
		if !strings.HasPrefix(rest[n:], l.syntax.ExecuteClose) {
			offset = tagStart + len(l.syntax.ExecuteOpen)
			continue
		}
		n += len(l.syntax.ExecuteClose)
		n += newlineLen(rest[n:], l.syntax.NewLineTrimming)

		text := rest[:tagStart]
		if trimStart {
			text = ltrim(text)
		}
		if trimBefore {
			text = rtrim(text)
		}
		l.markStart()
		l.push(TokenText, text)
		l.advance(n)
		if trimAfter {
			l.trimNextData = true
		}
		return nil
	}
}

// push appends a token and returns its index, or -1 for dropped empty text.
func (l *Lexer) push(typ TokenType, value string) int {
	if typ == TokenText && value == "" {
		return -1
	}
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Span: l.span()})
	return len(l.tokens) - 1
}

func (l *Lexer) skipNewline() {
	l.advance(newlineLen(l.rest(), l.syntax.NewLineTrimming))
}

func newlineLen(s string, enabled bool) int {
	if !enabled {
		return 0
	}
	for _, nl := range newlines {
		if strings.HasPrefix(s, nl) {
			return len(nl)
		}
	}
	return 0
}

// Helper methods

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) rest() string {
	if l.pos >= len(l.source) {
		return ""
	}
	return l.source[l.pos:]
}

func (l *Lexer) advance(n int) string {
	if n <= 0 {
		return ""
	}
	start := l.pos
	end := l.pos + n
	if end > len(l.source) {
		end = len(l.source)
	}

	skipped := l.source[start:end]
	for _, c := range skipped {
		if c == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
	l.pos = end
	return skipped
}

func (l *Lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *Lexer) span() Span {
	return Span{
		StartLine:   l.startLine,
		StartCol:    l.startCol,
		StartOffset: l.start,
		EndLine:     l.line,
		EndCol:      l.col,
		EndOffset:   l.pos,
	}
}

func (l *Lexer) errorAt(line int, msg string) error {
	return errors.New(errors.ErrSyntax, msg).WithLine(line).WithName(l.name)
}

// scanPlainString returns the length of a quoted string starting at rest[0]
// when it contains no interpolation.
func scanPlainString(rest string, quote byte, interpolationOpen string) (int, bool) {
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == '\\':
			i++
		case c == quote:
			return i + 1, true
		case quote == '"' && strings.HasPrefix(rest[i:], interpolationOpen):
			return 0, false
		}
	}
	return 0, false
}

// unquote strips the quotes and unescapes escaped quotation marks only.
func unquote(s string) string {
	quote := s[:1]
	s = s[1 : len(s)-1]
	return strings.ReplaceAll(s, `\`+quote, quote)
}

func matchIdentifier(s string) int {
	n := 0
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			n = i + utf8.RuneLen(r)
			continue
		}
		break
	}
	return n
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

func countSpace(s string) int {
	n := 0
	for n < len(s) && isSpace(s[n]) {
		n++
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func ltrim(s string) string {
	return strings.TrimLeft(s, " \t\n\r\f\v")
}

func rtrim(s string) string {
	return strings.TrimRight(s, " \t\n\r\f\v")
}
