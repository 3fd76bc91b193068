package pebble

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/value"
)

func coreFilters() map[string]Filter {
	return map[string]Filter{
		"abbreviate":   {Func: filterAbbreviate, ArgNames: []string{"length"}},
		"abs":          {Func: filterAbs},
		"base64decode": {Func: filterBase64Decode},
		"base64encode": {Func: filterBase64Encode},
		"capitalize":   {Func: filterCapitalize},
		"date":         {Func: filterDate, ArgNames: []string{"format", "existingFormat"}, SafeOutput: true},
		"default":      {Func: filterDefault, ArgNames: []string{"default"}},
		"first":        {Func: filterFirst},
		"join":         {Func: filterJoin, ArgNames: []string{"separator"}},
		"last":         {Func: filterLast},
		"length":       {Func: filterLength},
		"lower":        {Func: filterLower},
		"merge":        {Func: filterMerge, ArgNames: []string{"items"}},
		"numberformat": {Func: filterNumberFormat, ArgNames: []string{"format"}},
		"replace":      {Func: filterReplace, ArgNames: []string{"replace_pairs"}},
		"reverse":      {Func: filterReverse},
		"rsort":        {Func: filterRsort},
		"sanitize":     {Func: filterSanitize, SafeOutput: true},
		"sha256":       {Func: filterSha256},
		"slice":        {Func: filterSlice, ArgNames: []string{"fromIndex", "toIndex"}},
		"sort":         {Func: filterSort},
		"split":        {Func: filterSplit, ArgNames: []string{"delimiter", "limit"}},
		"title":        {Func: filterTitle},
		"trim":         {Func: filterTrim},
		"upper":        {Func: filterUpper},
		"urlencode":    {Func: filterUrlencode},
	}
}

// stringFilter lifts a string transformation into a filter. Null passes
// through unchanged.
func stringFilter(input value.Value, fn func(string) string) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	return value.FromString(fn(input.String())), nil
}

func filterAbbreviate(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	n, ok := args.Value("length").AsInt()
	if !ok || n < 0 {
		return value.Undefined(), errors.New(ErrEvaluation, "The abbreviate filter needs a non-negative length")
	}
	s := input.String()
	if int64(utf8.RuneCountInString(s)) <= n {
		return value.FromString(s), nil
	}
	runes := []rune(s)
	if n <= 3 {
		return value.FromString(string(runes[:n])), nil
	}
	return value.FromString(string(runes[:n-3]) + "..."), nil
}

func filterAbs(_ *State, input value.Value, _ Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	c, err := input.Compare(value.FromInt32(0))
	if err != nil {
		return value.Undefined(), errors.New(ErrEvaluation, "The input for the 'abs' filter has to be a number.")
	}
	if c < 0 {
		return input.Neg()
	}
	return input, nil
}

func filterBase64Encode(_ *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	})
}

func filterBase64Decode(_ *State, input value.Value, _ Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	b, err := base64.StdEncoding.DecodeString(input.String())
	if err != nil {
		return value.Undefined(), errors.Wrap(ErrEvaluation, err, "The input for the 'base64decode' filter is not valid base64")
	}
	return value.FromString(string(b)), nil
}

func filterCapitalize(st *State, input value.Value, _ Args) (value.Value, error) {
	upper := cases.Upper(st.Locale())
	return stringFilter(input, func(s string) string {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return s
		}
		return upper.String(string(r)) + s[size:]
	})
}

func filterLower(st *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, cases.Lower(st.Locale()).String)
}

func filterUpper(st *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, cases.Upper(st.Locale()).String)
}

func filterTitle(st *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, cases.Title(st.Locale(), cases.NoLower).String)
}

func filterTrim(_ *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, strings.TrimSpace)
}

func filterUrlencode(_ *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, url.QueryEscape)
}

func filterSha256(_ *State, input value.Value, _ Args) (value.Value, error) {
	return stringFilter(input, func(s string) string {
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	})
}

var ugcPolicy = bluemonday.UGCPolicy()

func filterSanitize(_ *State, input value.Value, _ Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	return value.FromSafeString(ugcPolicy.Sanitize(input.String())), nil
}

// isEmpty reports null, blank strings and empty collections.
func isEmpty(v value.Value) bool {
	if v.IsNull() {
		return true
	}
	if s, ok := v.AsString(); ok {
		return strings.TrimSpace(s) == ""
	}
	if n, ok := v.Len(); ok {
		return n == 0
	}
	return false
}

func filterDefault(_ *State, input value.Value, args Args) (value.Value, error) {
	if isEmpty(input) {
		return args.Value("default"), nil
	}
	return input, nil
}

func filterFirst(_ *State, input value.Value, _ Args) (value.Value, error) {
	if s, ok := input.AsString(); ok {
		r, _ := utf8.DecodeRuneInString(s)
		if s == "" {
			return value.None(), nil
		}
		return value.FromString(string(r)), nil
	}
	items, ok := input.Iter()
	if !ok || len(items) == 0 {
		return value.None(), nil
	}
	return items[0], nil
}

func filterLast(_ *State, input value.Value, _ Args) (value.Value, error) {
	if s, ok := input.AsString(); ok {
		r, _ := utf8.DecodeLastRuneInString(s)
		if s == "" {
			return value.None(), nil
		}
		return value.FromString(string(r)), nil
	}
	items, ok := input.Iter()
	if !ok || len(items) == 0 {
		return value.None(), nil
	}
	return items[len(items)-1], nil
}

func filterLength(_ *State, input value.Value, _ Args) (value.Value, error) {
	if n, ok := input.Len(); ok {
		return value.FromInt(int64(n)), nil
	}
	return value.FromInt(0), nil
}

func filterJoin(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	items, ok := input.Iter()
	if !ok {
		return input, nil
	}
	sep := ""
	if v, ok := args.Get("separator"); ok && !v.IsNull() {
		sep = v.String()
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return value.FromString(strings.Join(parts, sep)), nil
}

func filterMerge(_ *State, input value.Value, args Args) (value.Value, error) {
	items := args.Value("items")
	switch {
	case input.IsNull() && items.IsNull():
		return value.Undefined(), errors.New(ErrEvaluation, "The two arguments to be merged are null")
	case input.IsNull():
		return items, nil
	case items.IsNull():
		return input, nil
	}

	if m, ok := input.ToMap(); ok {
		other, ok := items.ToMap()
		if !ok {
			return value.Undefined(), errors.New(ErrEvaluation, "The object being merged with a map must be a map")
		}
		out := m.Copy()
		for _, e := range other.Entries() {
			out.Set(e.Key, e.Value)
		}
		return value.FromMap(out), nil
	}

	a, ok := input.Iter()
	if !ok {
		return value.Undefined(), errors.Newf(ErrEvaluation, "The object being merged must be a list or a map, got [%s]", input.Kind())
	}
	b, ok := items.Iter()
	if !ok {
		return value.Undefined(), errors.New(ErrEvaluation, "The object being merged with a list must be a list or a map")
	}
	out := make([]value.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return value.FromSlice(out), nil
}

func filterNumberFormat(st *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	if !input.IsNumber() {
		return value.Undefined(), errors.New(ErrEvaluation, "The input for the 'NumberFormat' filter has to be a number.")
	}
	opts := []number.Option{number.MaxFractionDigits(3)}
	if f, ok := args.Get("format"); ok && !f.IsNull() {
		opts = decimalPatternOptions(f.String())
	}
	p := message.NewPrinter(st.Locale())
	return value.FromString(p.Sprint(number.Decimal(numberOperand(input), opts...))), nil
}

// numberOperand converts a number to an operand x/text/number can format.
// Decimals and big integers go through their exact string form.
func numberOperand(v value.Value) any {
	switch k, _ := v.NumberKind(); k {
	case value.NumberInt, value.NumberLong:
		n, _ := v.AsInt()
		return n
	case value.NumberFloat:
		f, _ := v.AsFloat()
		return f
	}
	d, _ := v.AsDecimal()
	f, _ := d.Float64()
	return f
}

// decimalPatternOptions reads a DecimalFormat-style pattern such as
// "#,##0.00": a comma enables grouping, zeros after the point are required
// fraction digits and hashes optional ones.
func decimalPatternOptions(pattern string) []number.Option {
	intPart, frac, _ := strings.Cut(pattern, ".")
	var minFrac, maxFrac int
	for _, r := range frac {
		switch r {
		case '0':
			minFrac++
			maxFrac++
		case '#':
			maxFrac++
		}
	}
	opts := []number.Option{number.MinFractionDigits(minFrac), number.MaxFractionDigits(maxFrac)}
	if !strings.Contains(intPart, ",") {
		opts = append(opts, number.NoSeparator())
	}
	if n := strings.Count(intPart, "0"); n > 0 {
		opts = append(opts, number.MinIntegerDigits(n))
	}
	return opts
}

func filterReplace(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	pairs, ok := args.Value("replace_pairs").ToMap()
	if !ok {
		return value.Undefined(), errors.New(ErrEvaluation, "The argument for the 'replace' filter has to be a map")
	}
	s := input.String()
	for _, e := range pairs.Entries() {
		s = strings.ReplaceAll(s, e.Key.String(), e.Value.String())
	}
	return value.FromString(s), nil
}

func filterReverse(_ *State, input value.Value, _ Args) (value.Value, error) {
	if s, ok := input.AsString(); ok {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return value.FromString(string(runes)), nil
	}
	items, ok := input.Iter()
	if !ok {
		return input, nil
	}
	out := make([]value.Value, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return value.FromSlice(out), nil
}

func sortValues(input value.Value, desc bool) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	items, ok := input.Iter()
	if !ok {
		return value.Undefined(), errors.Newf(ErrEvaluation, "Can not sort a value of kind [%s]", input.Kind())
	}
	out := append([]value.Value(nil), items...)
	var cmpErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := out[i].Compare(out[j])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	if cmpErr != nil {
		return value.Undefined(), cmpErr
	}
	return value.FromSlice(out), nil
}

func filterSort(_ *State, input value.Value, _ Args) (value.Value, error) {
	return sortValues(input, false)
}

func filterRsort(_ *State, input value.Value, _ Args) (value.Value, error) {
	return sortValues(input, true)
}

func filterSlice(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}

	var from int64
	if v, ok := args.Get("fromIndex"); ok && !v.IsNull() {
		if from, ok = v.AsInt(); !ok {
			return value.Undefined(), errors.Newf(ErrEvaluation, "Argument fromIndex must be a number. Actual type: %s", v.Kind())
		}
		if from < 0 {
			return value.Undefined(), errors.New(ErrEvaluation, "fromIndex must be greater than 0")
		}
	}

	var (
		runes  []rune
		items  []value.Value
		length int64
	)
	str, isString := input.AsString()
	if isString {
		runes = []rune(str)
		length = int64(len(runes))
	} else if input.Kind() == value.KindSeq {
		items, _ = input.Iter()
		length = int64(len(items))
	} else {
		return value.Undefined(), errors.Newf(ErrEvaluation,
			"Slice filter can only be applied to String, List and array inputs. Actual type was: %s", typeName(input))
	}

	to := length
	if v, ok := args.Get("toIndex"); ok && !v.IsNull() {
		if to, ok = v.AsInt(); !ok {
			return value.Undefined(), errors.Newf(ErrEvaluation, "Argument toIndex must be a number. Actual type: %s", v.Kind())
		}
		if to > length {
			return value.Undefined(), errors.Newf(ErrEvaluation, "toIndex must be smaller than input size: %d", length)
		}
		if from >= to {
			return value.Undefined(), errors.New(ErrEvaluation, "toIndex must be greater than fromIndex")
		}
	}
	if from > to {
		from = to
	}

	if isString {
		return value.FromString(string(runes[from:to])), nil
	}
	return value.FromSlice(append([]value.Value(nil), items[from:to]...)), nil
}

func filterSplit(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	sep := args.Value("delimiter").String()
	n := -1
	if v, ok := args.Get("limit"); ok && !v.IsNull() {
		l, ok := v.AsInt()
		if !ok {
			return value.Undefined(), errors.New(ErrEvaluation, "The limit of the 'split' filter has to be a number")
		}
		if l > 0 {
			n = int(l)
		}
	}
	parts := strings.SplitN(input.String(), sep, n)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.FromString(p)
	}
	return value.FromSlice(out), nil
}

func filterDate(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() {
		return input, nil
	}
	layout := "2006-01-02T15:04:05"
	if f, ok := args.Get("format"); ok && !f.IsNull() {
		layout = javaLayout(f.String())
	}

	var t time.Time
	switch raw := input.Raw().(type) {
	case time.Time:
		t = raw
	case *time.Time:
		t = *raw
	default:
		if existing, ok := args.Get("existingFormat"); ok && !existing.IsNull() {
			parsed, err := time.Parse(javaLayout(existing.String()), input.String())
			if err != nil {
				return value.Undefined(), errors.Wrap(ErrEvaluation, err,
					"Could not parse the string '"+input.String()+"' into a date.")
			}
			t = parsed
		} else if ms, ok := input.AsInt(); ok {
			t = time.UnixMilli(ms).UTC()
		} else {
			return value.Undefined(), errors.Newf(ErrEvaluation,
				"Unsupported argument type: %s (value: %s)", typeName(input), input.String())
		}
	}
	return value.FromSafeString(t.Format(layout)), nil
}

// javaLayouts maps date pattern letters, longest first, to Go layout
// elements.
var javaLayouts = []struct{ pattern, layout string }{
	{"yyyy", "2006"}, {"yy", "06"},
	{"MMMM", "January"}, {"MMM", "Jan"}, {"MM", "01"}, {"M", "1"},
	{"EEEE", "Monday"}, {"EEE", "Mon"}, {"E", "Mon"},
	{"dd", "02"}, {"d", "2"},
	{"HH", "15"}, {"hh", "03"}, {"h", "3"},
	{"mm", "04"}, {"m", "4"},
	{"ss", "05"}, {"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
	{"XXX", "Z07:00"}, {"Z", "-0700"}, {"z", "MST"},
}

// javaLayout converts a date pattern such as "yyyy-MM-dd HH:mm" into a Go
// time layout. Text in single quotes is copied literally.
func javaLayout(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				sb.WriteString(pattern[i+1:])
				break
			}
			sb.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, l := range javaLayouts {
			if strings.HasPrefix(pattern[i:], l.pattern) {
				sb.WriteString(l.layout)
				i += len(l.pattern)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}
