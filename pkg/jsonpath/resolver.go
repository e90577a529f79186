// Package jsonpath resolves path expressions against JSON-like data
// (maps, slices and scalars as produced by encoding/json or yaml.v3).
//
// Results follow a fixed cardinality rule: no match is absent, a single match
// is returned as is, several matches are returned as an ordered []any. Map
// keys are always visited in sorted order so that "first match" is stable.
package jsonpath

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// IsExpression reports whether s looks like a path expression. The check is
// purely textual.
func IsExpression(s string) bool {
	value := strings.TrimSpace(s)
	if value == "" {
		return false
	}

	if value == "$" ||
		strings.HasPrefix(value, "$.") ||
		strings.HasPrefix(value, "$[") {
		return true
	}

	if strings.Contains(value, "[?") || strings.Contains(value, "[*]") {
		return true
	}

	if !strings.Contains(value, "$") {
		return false
	}

	return strings.Contains(value, "==") ||
		strings.Contains(value, "!=") ||
		strings.Contains(value, "<") ||
		strings.Contains(value, ">") ||
		strings.Contains(value, "..")
}

// Resolve evaluates expr against data. The boolean is false when nothing
// matched or the expression could not be parsed.
func Resolve(data any, expr string) (any, bool) {
	path, err := Parse(expr)
	if err != nil {
		return nil, false
	}

	return path.Resolve(data)
}

// ResolveAll returns a copy of template where every string leaf that looks
// like a path expression is replaced by its resolved value. Leaves that do not
// resolve, or resolve to null, keep their original text; non-string scalars
// pass through.
func ResolveAll(template any, data any) any {
	switch value := template.(type) {
	case map[string]any:
		resolved := make(map[string]any, len(value))
		for key, item := range value {
			resolved[key] = ResolveAll(item, data)
		}

		return resolved
	case []any:
		resolved := make([]any, len(value))
		for i, item := range value {
			resolved[i] = ResolveAll(item, data)
		}

		return resolved
	case []map[string]any:
		resolved := make([]any, len(value))
		for i, item := range value {
			resolved[i] = ResolveAll(item, data)
		}

		return resolved
	case string:
		if !IsExpression(value) {
			return value
		}

		if result, ok := Resolve(data, value); ok && result != nil {
			return result
		}

		return value
	default:
		return template
	}
}

// Resolve evaluates the compiled path against data using the cardinality rule.
func (p *Path) Resolve(data any) (any, bool) {
	matches := p.Matches(data)

	switch len(matches) {
	case 0:
		return nil, false
	case 1:
		return matches[0], true
	default:
		return matches, true
	}
}

// First returns the first match, which is how filter references are read.
func (p *Path) First(data any) (any, bool) {
	matches := p.Matches(data)
	if len(matches) == 0 {
		return nil, false
	}

	return matches[0], true
}

// Matches returns every match in traversal order.
func (p *Path) Matches(data any) []any {
	return evaluate(p.segments, data, data)
}

func evaluate(segments []segment, current any, root any) []any {
	nodes := []any{current}

	for _, seg := range segments {
		var (
			next      []any
			reference any
		)

		if seg.kind == segmentFilter {
			var ok bool

			reference, ok = seg.filter.operand(root)
			if !ok {
				return nil
			}
		}

		for _, node := range nodes {
			next = seg.apply(node, reference, next)
		}

		if len(next) == 0 {
			return nil
		}

		nodes = next
	}

	return nodes
}

func (s segment) apply(node any, reference any, out []any) []any {
	switch s.kind {
	case segmentChild:
		if m, ok := asMap(node); ok {
			if value, found := m[s.name]; found {
				out = append(out, value)
			}
		}
	case segmentRecursive:
		out = collect(node, s.name, out)
	case segmentIndex:
		if list, ok := asList(node); ok {
			index := s.index
			if index < 0 {
				index += len(list)
			}

			if index >= 0 && index < len(list) {
				out = append(out, list[index])
			}
		}
	case segmentWildcard:
		out = append(out, children(node)...)
	case segmentFilter:
		for _, element := range children(node) {
			if s.filter.matches(element, reference) {
				out = append(out, element)
			}
		}
	}

	return out
}

// collect appends every value stored under name at any depth, visiting a
// node's own key before its children.
func collect(node any, name string, out []any) []any {
	if m, ok := asMap(node); ok {
		if value, found := m[name]; found {
			out = append(out, value)
		}

		for _, key := range sortedKeys(m) {
			out = collect(m[key], name, out)
		}

		return out
	}

	if list, ok := asList(node); ok {
		for _, item := range list {
			out = collect(item, name, out)
		}
	}

	return out
}

func (p *predicate) operand(root any) (any, bool) {
	if p.ref == nil {
		return p.literal, true
	}

	return p.ref.First(root)
}

func (p *predicate) matches(element any, reference any) bool {
	values := evaluate(p.field, element, element)
	if len(values) == 0 {
		return false
	}

	return equal(values[0], reference) != p.negate
}

func children(node any) []any {
	if list, ok := asList(node); ok {
		return list
	}

	if m, ok := asMap(node); ok {
		values := make([]any, 0, len(m))
		for _, key := range sortedKeys(m) {
			values = append(values, m[key])
		}

		return values
	}

	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func asMap(node any) (map[string]any, bool) {
	switch m := node.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		converted := make(map[string]any, len(m))
		for key, value := range m {
			converted[key] = value
		}

		return converted, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(node)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	converted := make(map[string]any, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		converted[iter.Key().String()] = iter.Value().Interface()
	}

	return converted, true
}

func asList(node any) ([]any, bool) {
	switch list := node.(type) {
	case []any:
		return list, true
	case nil, string, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(node)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	converted := make([]any, rv.Len())
	for i := range converted {
		converted[i] = rv.Index(i).Interface()
	}

	return converted, true
}

func equal(a, b any) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}

		return false
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}
