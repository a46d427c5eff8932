package expr

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// builtinFunc implements one of the required builtins of spec.md §4.D.
type builtinFunc func(args []any) (any, error)

var builtins = map[string]builtinFunc{
	"len":         biLen,
	"contains":    biContains,
	"lower":       biLower,
	"upper":       biUpper,
	"str":         biStr,
	"num":         biNum,
	"bool":        biBool,
	"round":       biRound,
	"abs":         biAbs,
	"min":         biMin,
	"max":         biMax,
	"generate_id": biGenerateID,
	"timestamp":   biTimestamp,
	"now":         biNow,
}

func arity(name string, args []any, n int) error {
	if len(args) != n {
		return errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func biLen(args []any) (any, error) {
	if err := arity("len", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case nil:
		return int64(0), nil
	case string:
		return int64(len([]rune(v))), nil
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return int64(rv.Len()), nil
		}
		return nil, errorf("len: unsupported type %T", v)
	}
}

func biContains(args []any) (any, error) {
	if err := arity("contains", args, 2); err != nil {
		return nil, err
	}
	switch haystack := args[0].(type) {
	case string:
		needle := Str(args[1])
		return strings.Contains(haystack, needle), nil
	case []any:
		for _, item := range haystack {
			if equalValues(item, args[1]) {
				return true, nil
			}
		}
		return false, nil
	case nil:
		return false, nil
	default:
		return nil, errorf("contains: unsupported container type %T", args[0])
	}
}

func biLower(args []any) (any, error) {
	if err := arity("lower", args, 1); err != nil {
		return nil, err
	}
	return strings.ToLower(Str(args[0])), nil
}

func biUpper(args []any) (any, error) {
	if err := arity("upper", args, 1); err != nil {
		return nil, err
	}
	return strings.ToUpper(Str(args[0])), nil
}

func biStr(args []any) (any, error) {
	if err := arity("str", args, 1); err != nil {
		return nil, err
	}
	return Str(args[0]), nil
}

func biNum(args []any) (any, error) {
	if err := arity("num", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case int64, float64:
		return v, nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return nil, errorf("num: cannot convert %q", v)
		}
		return f, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, errorf("num: cannot convert %T", v)
	}
}

func biBool(args []any) (any, error) {
	if err := arity("bool", args, 1); err != nil {
		return nil, err
	}
	return truthy(args[0]), nil
}

func biRound(args []any) (any, error) {
	if err := arity("round", args, 1); err != nil {
		return nil, err
	}
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errorf("round: non-numeric argument")
	}
	return int64(f + 0.5*sign(f)), nil
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func biAbs(args []any) (any, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errorf("abs: non-numeric argument")
	}
	if f < 0 {
		f = -f
	}
	if isInt(args[0]) {
		return int64(f), nil
	}
	return f, nil
}

func biMin(args []any) (any, error) {
	if len(args) == 0 {
		return nil, errorf("min expects at least 1 argument")
	}
	return minmax(args, true)
}

func biMax(args []any) (any, error) {
	if len(args) == 0 {
		return nil, errorf("max expects at least 1 argument")
	}
	return minmax(args, false)
}

func minmax(args []any, wantMin bool) (any, error) {
	best := args[0]
	bestF, ok := asFloat(best)
	if !ok {
		return nil, errorf("min/max: non-numeric argument")
	}
	allInt := isInt(best)
	for _, a := range args[1:] {
		f, ok := asFloat(a)
		if !ok {
			return nil, errorf("min/max: non-numeric argument")
		}
		if !isInt(a) {
			allInt = false
		}
		if (wantMin && f < bestF) || (!wantMin && f > bestF) {
			bestF = f
			best = a
		}
	}
	if allInt {
		return int64(bestF), nil
	}
	return bestF, nil
}

func biGenerateID(args []any) (any, error) {
	if len(args) != 0 {
		return nil, errorf("generate_id expects no arguments")
	}
	return uuid.NewString(), nil
}

func biTimestamp(args []any) (any, error) {
	if len(args) != 0 {
		return nil, errorf("timestamp expects no arguments")
	}
	return time.Now().UTC().Format(time.RFC3339), nil
}

func biNow(args []any) (any, error) {
	if len(args) != 0 {
		return nil, errorf("now expects no arguments")
	}
	return time.Now().UTC().Unix(), nil
}
