package maestro

import (
	"maps"
	"slices"
)

type (
	// Vars declares the parameter schema of a method, keyed by parameter
	// name. A nil schema means the payload passes through untouched.
	Vars map[string]Var

	// Var constrains one parameter.
	Var struct {
		Required bool
		// Default fills the parameter when the payload omits it.
		Default any
		// Type is one of "string", "int", "float", "bool", "map", "list".
		// Empty means any type.
		Type string
		Desc string
	}
)

// apply validates the payload against the schema and returns a copy with
// defaults filled in. The original payload is never mutated.
func (vars Vars) apply(method string, in Map) (Map, error) {
	out := make(Map, len(in)+len(vars))
	maps.Copy(out, in)

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		cfg := vars[name]

		val, ok := out[name]
		if !ok || val == nil {
			if cfg.Default != nil {
				out[name] = cfg.Default
				continue
			}
			if cfg.Required {
				return nil, &ParamsError{Method: method, Param: name, Reason: "required"}
			}
			continue
		}
		if cfg.Type != "" && !checkType(val, cfg.Type) {
			return nil, &ParamsError{Method: method, Param: name, Reason: "expected " + cfg.Type}
		}
	}
	return out, nil
}

func checkType(val any, typ string) bool {
	switch typ {
	case "string":
		_, ok := val.(string)
		return ok
	case "int":
		switch v := val.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return true
		case float64:
			// decoded JSON numbers arrive as float64
			return v == float64(int64(v))
		}
		return false
	case "float":
		switch val.(type) {
		case float32, float64, int, int32, int64:
			return true
		}
		return false
	case "bool":
		_, ok := val.(bool)
		return ok
	case "map":
		switch val.(type) {
		case Map, map[string]any:
			return true
		}
		return false
	case "list":
		_, ok := val.([]any)
		return ok
	}
	return true
}
