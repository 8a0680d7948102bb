package preprocessors

import (
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/preprocessors/lowercase"
	"github.com/allan-project/allan-cli/internal/preprocessors/striphtml"
	"github.com/allan-project/allan-cli/internal/preprocessors/textclean"
	"github.com/allan-project/allan-cli/internal/preprocessors/tokenize"
	"github.com/allan-project/allan-cli/internal/preprocessors/truncate"
)

// RegisterDefaults registers all built-in steps with the registry.
// Call this during application initialisation to enable standard steps.
func RegisterDefaults(r *Registry) {
	r.Register("text_cleaning", func(map[string]any) (driven.Step, error) {
		return textclean.New(), nil
	})
	r.Register("remove_html", func(map[string]any) (driven.Step, error) {
		return striphtml.New(), nil
	})
	r.Register("tokenize", func(map[string]any) (driven.Step, error) {
		return tokenize.New(), nil
	})
	r.Register("lowercase", func(map[string]any) (driven.Step, error) {
		return lowercase.New(), nil
	})
	r.Register("truncate", buildTruncate)
}

// buildTruncate creates a truncation step from generic parameters.
// Supported keys:
//   - max_length (int): Runes per line (default: 512)
func buildTruncate(params map[string]any) (driven.Step, error) {
	var opts []truncate.Option
	if params != nil {
		if n := getIntFromParams(params, "max_length"); n > 0 {
			opts = append(opts, truncate.WithMaxLength(n))
		}
	}
	return truncate.New(opts...), nil
}

// getIntFromParams safely extracts an int from a generic parameter map.
// Handles int, int64, and float64 types that may come from TOML parsing.
func getIntFromParams(params map[string]any, key string) int {
	val, ok := params[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
