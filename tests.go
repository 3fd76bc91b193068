package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/value"
)

func coreTests() map[string]Tester {
	return map[string]Tester{
		"defined":  {Func: TestDefined},
		"empty":    {Func: TestEmpty},
		"even":     {Func: TestEven},
		"iterable": {Func: TestIterable},
		"map":      {Func: TestMap},
		"null":     {Func: TestNull},
		"odd":      {Func: TestOdd},
	}
}

// TestDefined checks if a value is defined.
//
// A variable holding null is not defined. In strict mode a missing
// variable or attribute is treated as null instead of failing the render.
//
// Template usage:
//
//	{% if user.nickname is defined %}{{ user.nickname }}{% endif %}
func TestDefined(_ *State, input value.Value, _ Args) (bool, error) {
	return !input.IsNull(), nil
}

// TestEmpty checks if a value is null, a blank string or an empty
// collection.
//
// Template usage:
//
//	{% if items is empty %}No items.{% endif %}
func TestEmpty(_ *State, input value.Value, _ Args) (bool, error) {
	return isEmpty(input), nil
}

// TestEven checks if an integer is even.
//
// Template usage:
//
//	<tr class="{{ loop.index is even ? 'even' : 'odd' }}">
func TestEven(_ *State, input value.Value, _ Args) (bool, error) {
	n, err := integerInput("even", input)
	return n%2 == 0, err
}

// TestOdd checks if an integer is odd.
func TestOdd(_ *State, input value.Value, _ Args) (bool, error) {
	n, err := integerInput("odd", input)
	return n%2 != 0, err
}

func integerInput(test string, input value.Value) (int64, error) {
	if input.IsNull() {
		return 0, errors.Newf(ErrEvaluation, "Can not pass null value to \"%s\" test.", test)
	}
	n, ok := input.AsInt()
	if !ok {
		return 0, errors.Newf(ErrEvaluation, "Test \"%s\" can only be applied to integers, got [%s]", test, input.String())
	}
	return n, nil
}

// TestIterable checks if a value can be looped over. Strings are not
// iterable.
func TestIterable(_ *State, input value.Value, _ Args) (bool, error) {
	_, ok := input.Iter()
	return ok, nil
}

// TestMap checks if a value is a map.
func TestMap(_ *State, input value.Value, _ Args) (bool, error) {
	return input.Kind() == value.KindMap, nil
}

// TestNull checks if a value is null or undefined.
func TestNull(_ *State, input value.Value, _ Args) (bool, error) {
	return input.IsNull(), nil
}
