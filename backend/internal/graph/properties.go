package graph

import (
	"fmt"
	"strconv"
)

// Properties is a node's property bag in canonical encoding:
// counters are int64, scores are float64, text is string.
type Properties map[string]any

// Normalize converts value to its canonical scalar type.
// Every backend applies it before a value is written.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case string, int64, float64, bool:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("graph: unsupported property type %T", value)
	}
}

// Normalized returns a copy of p with every value in canonical form
func (p Properties) Normalized() (Properties, error) {
	out := make(Properties, len(p))
	for k, v := range p {
		if err := checkIdentifier("property", k); err != nil {
			return nil, err
		}
		nv, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// Text reads key as text; numbers are formatted, a missing key yields ""
func (p Properties) Text(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int reads key as a counter. Legacy values stored as float or numeric text are coerced.
func (p Properties) Int(key string) (int64, error) {
	switch v := p[key].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("graph: property %s=%q is not an integer", key, v)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("graph: property %s has type %T, want integer", key, v)
	}
}

// Float reads key as a score. Legacy values stored as int or numeric text are coerced.
func (p Properties) Float(key string) (float64, error) {
	switch v := p[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("graph: property %s=%q is not a number", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("graph: property %s has type %T, want number", key, v)
	}
}
