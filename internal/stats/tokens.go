package stats

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// DefaultMaxDepth bounds recursion when counting nested structures.
// Subtrees past the limit contribute zero tokens instead of failing.
const DefaultMaxDepth = 100

// Engine computes token counts and structure statistics over decoded
// JSON values. The zero value uses the default depth limit and logger.
type Engine struct {
	// MaxDepth overrides the recursion limit; values <= 0 use
	// DefaultMaxDepth.
	MaxDepth int

	// Logger receives truncation warnings; nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

// CountTokens counts tokens in a decoded JSON value:
//
//	string      whitespace-delimited field count
//	null/bool/number  1
//	array       sum over elements
//	object      sum over entries of 1 (key) + value count
//	anything else     1
//
// The count is deterministic and never fails; subtrees nested past the
// depth limit contribute zero and log a warning.
func (e *Engine) CountTokens(v any) int {
	return e.count(v, 0)
}

func (e *Engine) count(v any, depth int) int {
	if depth > e.maxDepth() {
		e.logger().Warn("max depth exceeded while counting tokens", "depth", depth)
		return 0
	}

	switch val := v.(type) {
	case nil:
		return 1
	case string:
		return len(strings.Fields(val))
	case bool:
		return 1
	case float64:
		return 1
	case json.Number:
		return 1
	case int, int32, int64, float32:
		return 1
	case []any:
		total := 0
		for _, item := range val {
			total += e.count(item, depth+1)
		}
		return total
	case map[string]any:
		total := 0
		for _, item := range val {
			total += 1 + e.count(item, depth+1)
		}
		return total
	default:
		return 1
	}
}

func (e *Engine) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// CountTokens counts tokens with a default engine.
func CountTokens(v any) int {
	var e Engine
	return e.CountTokens(v)
}
