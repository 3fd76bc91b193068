package pebble

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

// ResolutionStatus is the outcome of an attribute lookup.
type ResolutionStatus int

const (
	// NotFound means the resolver has no member of that name; the next
	// resolver is tried.
	NotFound ResolutionStatus = iota
	// Found means Value holds the member.
	Found
	// Denied means the member exists but the access validator vetoed it.
	Denied
)

// Resolution is the result of AttributeResolver.Resolve.
type Resolution struct {
	Status ResolutionStatus
	Value  value.Value
}

func found(v value.Value) Resolution {
	return Resolution{Status: Found, Value: v}
}

// AttributeResolver reads the member attr of obj. args is nil unless the
// member is called with parentheses. node is the expression being
// evaluated; resolvers may cache per-node data in node.Accessors.
type AttributeResolver interface {
	Resolve(st *State, obj, attr value.Value, args []value.Value, node *parser.GetAttr) (Resolution, error)
}

// AttributeResolverFunc adapts a function to AttributeResolver.
type AttributeResolverFunc func(st *State, obj, attr value.Value, args []value.Value, node *parser.GetAttr) (Resolution, error)

func (f AttributeResolverFunc) Resolve(st *State, obj, attr value.Value, args []value.Value, node *parser.GetAttr) (Resolution, error) {
	return f(st, obj, attr, args, node)
}

// AccessValidator decides whether templates may call a method.
type AccessValidator interface {
	Allowed(t reflect.Type, m reflect.Method) bool
}

// AccessValidatorFunc adapts a function to AccessValidator.
type AccessValidatorFunc func(t reflect.Type, m reflect.Method) bool

func (f AccessValidatorFunc) Allowed(t reflect.Type, m reflect.Method) bool {
	return f(t, m)
}

// deniedPackages hold types whose methods templates must never call.
var deniedPackages = map[string]bool{
	"os":            true,
	"os/exec":       true,
	"reflect":       true,
	"runtime":       true,
	"syscall":       true,
	"unsafe":        true,
	"net/http":      true,
	"database/sql":  true,
	"io/fs":         true,
	"path/filepath": true,
}

// DefaultAccessValidator denies methods of types from packages that give
// access to the process, the file system or the network.
var DefaultAccessValidator AccessValidator = AccessValidatorFunc(func(t reflect.Type, _ reflect.Method) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return !deniedPackages[t.PkgPath()]
})

// AllowAllAccessValidator permits every exported method.
var AllowAllAccessValidator AccessValidator = AccessValidatorFunc(func(reflect.Type, reflect.Method) bool {
	return true
})

var valueType = reflect.TypeOf(value.Value{})

// memberResolver is the built-in resolution chain: keyed containers,
// sequences, methods, fields and finally macros of imported templates.
type memberResolver struct {
	greedy    bool
	validator AccessValidator
}

func (r *memberResolver) Resolve(st *State, obj, attr value.Value, args []value.Value, node *parser.GetAttr) (Resolution, error) {
	if obj.IsNull() {
		return Resolution{}, nil
	}
	if !node.Call {
		switch obj.Kind() {
		case value.KindMap:
			return resolveMap(obj, attr)
		case value.KindSeq:
			if res := resolveIndex(obj, attr); res.Status == Found {
				return res, nil
			}
		}
	}
	if imp, ok := obj.Raw().(*importedTemplate); ok {
		return imp.resolve(st, attr.String(), args, node)
	}
	if !obj.IsHost() {
		return Resolution{}, nil
	}
	return r.resolveMember(obj, attr.String(), args, node)
}

// resolveMap looks a key up in a map. Numeric keys are converted to the
// key type of a non-empty Go map.
func resolveMap(obj, attr value.Value) (Resolution, error) {
	if m, ok := obj.AsMap(); ok {
		if v, ok := m.Get(attr); ok {
			return found(v), nil
		}
		return Resolution{}, nil
	}

	rv := reflect.ValueOf(obj.Raw())
	if rv.Kind() != reflect.Map || rv.Len() == 0 {
		return Resolution{}, nil
	}
	key, ok := convertKey(attr, rv.Type().Key())
	if !ok {
		return Resolution{}, nil
	}
	v := rv.MapIndex(key)
	if !v.IsValid() {
		return Resolution{}, nil
	}
	return found(value.FromAny(v.Interface())), nil
}

func convertKey(attr value.Value, kt reflect.Type) (reflect.Value, bool) {
	switch {
	case kt == valueType:
		return reflect.ValueOf(attr), true
	case kt.Kind() == reflect.String:
		if s, ok := attr.AsString(); ok {
			return reflect.ValueOf(s).Convert(kt), true
		}
		if attr.IsNumber() {
			return reflect.ValueOf(attr.String()).Convert(kt), true
		}
		return reflect.Value{}, false
	case attr.IsNumber() && isNumericKind(kt.Kind()):
		return convertNumber(attr, kt), true
	}
	raw := attr.Raw()
	if raw == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(kt) {
		return rv, true
	}
	return reflect.Value{}, false
}

// resolveIndex reads a sequence item. The attribute may be an integer or a
// string holding one.
func resolveIndex(obj, attr value.Value) Resolution {
	idx, ok := attr.AsInt()
	if !ok {
		s, isStr := attr.AsString()
		if !isStr {
			return Resolution{}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Resolution{}
		}
		idx = int64(n)
	}
	if v, ok := obj.Index(int(idx)); ok {
		return found(v)
	}
	return Resolution{}
}

// accessorKey is the shape a member was resolved for.
type accessorKey struct {
	typ  reflect.Type
	attr string
	args string
}

// accessor is a member found by reflection. method is -1 for fields.
type accessor struct {
	method int
	field  []int
	denied bool
}

func argTypes(args []value.Value) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if raw := a.Raw(); raw != nil {
			parts[i] = reflect.TypeOf(raw).String()
		} else {
			parts[i] = "nil"
		}
	}
	return strings.Join(parts, ",")
}

// receiver returns obj as a reflect value whose method set includes the
// pointer methods.
func receiver(obj value.Value) reflect.Value {
	rv := reflect.ValueOf(obj.Raw())
	if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return ptr
	}
	return rv
}

func (r *memberResolver) resolveMember(obj value.Value, attr string, args []value.Value, node *parser.GetAttr) (Resolution, error) {
	rv := receiver(obj)
	key := accessorKey{typ: rv.Type(), attr: attr, args: argTypes(args)}

	var acc *accessor
	if cached, ok := node.Accessors.Load(key); ok {
		acc = cached.(*accessor)
	} else {
		acc = r.findMember(rv.Type(), attr, args, node.Call)
		if acc == nil {
			return Resolution{}, nil
		}
		node.Accessors.Store(key, acc)
	}

	if acc.denied {
		return Resolution{Status: Denied}, nil
	}
	if acc.method < 0 {
		f, err := rv.Elem().FieldByIndexErr(acc.field)
		if err != nil {
			return Resolution{}, nil
		}
		return found(value.FromAny(f.Interface())), nil
	}
	v, err := r.call(rv.Method(acc.method), args)
	if err != nil {
		return Resolution{}, err
	}
	return found(v), nil
}

// findMember searches the methods Get<attr>, Is<attr>, Has<attr> and
// <attr>, ignoring case, then the exported fields.
func (r *memberResolver) findMember(t reflect.Type, attr string, args []value.Value, call bool) *accessor {
	for _, name := range []string{"get" + attr, "is" + attr, "has" + attr, attr} {
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			if !strings.EqualFold(m.Name, name) || !r.compatible(m.Type, args) {
				continue
			}
			if r.validator != nil && !r.validator.Allowed(t, m) {
				return &accessor{method: i, denied: true}
			}
			return &accessor{method: i}
		}
	}

	if call || t.Elem().Kind() != reflect.Struct {
		return nil
	}
	f, ok := t.Elem().FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, attr)
	})
	if !ok || !f.IsExported() {
		return nil
	}
	return &accessor{method: -1, field: f.Index}
}

// compatible checks arity, the result signature and every argument of a
// method. The first parameter of mt is the receiver.
func (r *memberResolver) compatible(mt reflect.Type, args []value.Value) bool {
	if mt.IsVariadic() || mt.NumIn()-1 != len(args) {
		return false
	}
	switch mt.NumOut() {
	case 0, 1:
	case 2:
		if !mt.Out(1).Implements(errorType) {
			return false
		}
	default:
		return false
	}
	for i, a := range args {
		if !r.assignable(a, mt.In(i+1)) {
			return false
		}
	}
	return true
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// numericRank orders parameter kinds for widening. Unsigned kinds are only
// accepted by greedy matching.
func numericRank(k reflect.Kind) int {
	switch k {
	case reflect.Int8:
		return 1
	case reflect.Int16:
		return 2
	case reflect.Int32:
		return 3
	case reflect.Int, reflect.Int64:
		return 4
	case reflect.Float32:
		return 5
	case reflect.Float64:
		return 6
	}
	return 0
}

func argRank(v value.Value) int {
	switch k, _ := v.NumberKind(); k {
	case value.NumberInt:
		return 3
	case value.NumberLong:
		return 4
	case value.NumberFloat:
		return 6
	}
	return 7
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (r *memberResolver) assignable(a value.Value, p reflect.Type) bool {
	if p == valueType {
		return true
	}
	raw := a.Raw()
	if raw == nil {
		switch p.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	if reflect.TypeOf(raw).AssignableTo(p) {
		return true
	}
	if a.IsNumber() && isNumericKind(p.Kind()) {
		if r.greedy {
			return true
		}
		rank := numericRank(p.Kind())
		return rank > 0 && rank >= argRank(a)
	}
	return false
}

// convertNumber converts a number to a numeric Go type, truncating where
// the target is narrower.
func convertNumber(v value.Value, t reflect.Type) reflect.Value {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		f, _ := v.AsFloat()
		return reflect.ValueOf(f).Convert(t)
	}
	i, ok := v.AsInt()
	if !ok {
		switch raw := v.Raw().(type) {
		case *big.Int:
			i = raw.Int64()
		case decimal.Decimal:
			i = raw.IntPart()
		default:
			f, _ := v.AsFloat()
			i = int64(f)
		}
	}
	return reflect.ValueOf(i).Convert(t)
}

func (r *memberResolver) call(m reflect.Value, args []value.Value) (value.Value, error) {
	mt := m.Type()
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		p := mt.In(i)
		switch raw := a.Raw(); {
		case p == valueType:
			in[i] = reflect.ValueOf(a)
		case raw == nil:
			in[i] = reflect.Zero(p)
		case reflect.TypeOf(raw).AssignableTo(p):
			in[i] = reflect.ValueOf(raw)
		default:
			in[i] = convertNumber(a, p)
		}
	}
	out := m.Call(in)
	switch len(out) {
	case 0:
		return value.None(), nil
	case 2:
		if err, _ := out[1].Interface().(error); err != nil {
			return value.Undefined(), errors.Wrap(ErrEvaluation, err, err.Error())
		}
	}
	return value.FromAny(out[0].Interface()), nil
}

// typeName names the type of a value in error messages: the Go type for
// host values, the value kind otherwise.
func typeName(v value.Value) string {
	if v.IsHost() {
		return reflect.TypeOf(v.Raw()).String()
	}
	return v.Kind().String()
}
