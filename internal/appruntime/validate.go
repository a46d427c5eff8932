// Package appruntime implements the Simulated-App Runtime of spec.md §4.F:
// app instance lifecycle, parameter validation, action dispatch via
// internal/logic, observation queues, snapshotting, and the optional RL
// episode wrapper.
package appruntime

import (
	"fmt"
	"regexp"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// ValidateParams checks raw params against an action's declared ParamSpecs,
// applying defaults for missing optional parameters, per §4.F step 2.
func ValidateParams(specs []core.ParamSpec, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, spec := range specs {
		v, present := out[spec.Name]
		if !present {
			if spec.Required {
				return nil, fmt.Errorf("missing required parameter %q", spec.Name)
			}
			if spec.Default != nil {
				out[spec.Name] = spec.Default
			}
			continue
		}
		if err := validateOne(spec, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func validateOne(spec core.ParamSpec, v any) error {
	switch spec.Type {
	case core.ParamString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("parameter %q must be a string", spec.Name)
		}
		n := len([]rune(s))
		if spec.MinLength != nil && n < *spec.MinLength {
			return fmt.Errorf("parameter %q shorter than minimum length %d", spec.Name, *spec.MinLength)
		}
		if spec.MaxLength != nil && n > *spec.MaxLength {
			return fmt.Errorf("parameter %q longer than maximum length %d", spec.Name, *spec.MaxLength)
		}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return fmt.Errorf("parameter %q: invalid pattern %q", spec.Name, spec.Pattern)
			}
			if !re.MatchString(s) {
				return fmt.Errorf("parameter %q does not match required pattern", spec.Name)
			}
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, s) {
			return fmt.Errorf("parameter %q is not one of the allowed values", spec.Name)
		}
	case core.ParamNumber:
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("parameter %q must be a number", spec.Name)
		}
		if spec.Min != nil && f < *spec.Min {
			return fmt.Errorf("parameter %q below minimum %v", spec.Name, *spec.Min)
		}
		if spec.Max != nil && f > *spec.Max {
			return fmt.Errorf("parameter %q above maximum %v", spec.Name, *spec.Max)
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, v) {
			return fmt.Errorf("parameter %q is not one of the allowed values", spec.Name)
		}
	case core.ParamBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", spec.Name)
		}
	case core.ParamArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("parameter %q must be an array", spec.Name)
		}
	case core.ParamObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("parameter %q must be an object", spec.Name)
		}
	default:
		return fmt.Errorf("parameter %q has unknown declared type %q", spec.Name, spec.Type)
	}
	return nil
}

func enumContains(enum []any, v any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}
