package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/value"
)

func coreFunctions() map[string]Function {
	return map[string]Function{
		"max":   {Func: functionMax},
		"min":   {Func: functionMin},
		"range": {Func: functionRange, ArgNames: []string{"start", "end", "increment"}},
	}
}

// extremum returns the argument for which better(candidate, current)
// holds against every other argument. Null arguments are skipped.
func extremum(args Args, better func(c int) bool) (value.Value, error) {
	var best value.Value
	for _, v := range args.Positional() {
		if v.IsNull() {
			continue
		}
		if best.IsUndefined() {
			best = v
			continue
		}
		c, err := v.Compare(best)
		if err != nil {
			return value.Undefined(), err
		}
		if better(c) {
			best = v
		}
	}
	if best.IsUndefined() {
		return value.None(), nil
	}
	return best, nil
}

func functionMax(_ *State, args Args) (value.Value, error) {
	return extremum(args, func(c int) bool { return c > 0 })
}

func functionMin(_ *State, args Args) (value.Value, error) {
	return extremum(args, func(c int) bool { return c < 0 })
}

// functionRange builds an inclusive range of numbers or characters. It is
// the function form of the ".." operator with an optional increment.
func functionRange(_ *State, args Args) (value.Value, error) {
	inc := value.FromInt(1)
	if v, ok := args.Get("increment"); ok && !v.IsNull() {
		if !v.IsNumber() {
			return value.Undefined(), errors.Newf(ErrEvaluation,
				"The increment of the range function must be a number %s", v.String())
		}
		inc = v
	}
	return value.Range(args.Value("start"), args.Value("end"), inc)
}
