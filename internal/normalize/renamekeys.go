package normalize

import (
	"regexp"
	"sync"
)

// RenamePattern is one entry of a rename-keys pattern list. Exactly one of
// Constant, ReplaceCharacter, or Pattern+Group should be set; the resolver
// that builds these from a declaration enforces that shape.
type RenamePattern struct {
	Constant         string // replace the whole matched key with this literal
	ReplaceCharacter string // a character (or short literal) replaced globally via regexp
	Pattern          string // a capturing regex; Group selects output group(s)
	Group            string
	ExactMatch       bool // match the whole key, not a substring
}

// RenameKeys applies an ordered list of rename patterns to every key of a
// flat map (§4.6, §8 boundary: order-sensitive, reversing the array can
// change keys). Patterns are applied as one pass
// per pattern, in order, over the current key set. A key renamed by an
// earlier pattern is eligible to match a later pattern (multiple maps
// applied in order, per spec §9 Open Question a).
func RenameKeys(data map[string]any, patterns []RenamePattern) map[string]any {
	current := data
	for _, p := range patterns {
		current = applyRenamePattern(current, p)
	}
	return current
}

func applyRenamePattern(data map[string]any, p RenamePattern) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		newKey, matched := renameKey(k, p)
		if matched {
			out[newKey] = v
		} else {
			out[k] = v
		}
	}
	return out
}

func renameKey(key string, p RenamePattern) (string, bool) {
	switch {
	case p.Constant != "":
		if p.Pattern == "" {
			return p.Constant, true
		}
		re := mustCompile(p.Pattern)
		if p.ExactMatch {
			if re.MatchString(key) && re.FindString(key) == key {
				return p.Constant, true
			}
			return key, false
		}
		if re.MatchString(key) {
			return p.Constant, true
		}
		return key, false

	case p.ReplaceCharacter != "":
		re := mustCompile(regexp.QuoteMeta(p.ReplaceCharacter))
		if !re.MatchString(key) {
			return key, false
		}
		return re.ReplaceAllString(key, p.Group), true

	case p.Pattern != "":
		re := mustCompile(p.Pattern)
		loc := re.FindStringSubmatchIndex(key)
		if loc == nil {
			return key, false
		}
		if p.ExactMatch && re.FindString(key) != key {
			return key, false
		}
		result := re.ExpandString(nil, p.Group, key, loc)
		return string(result), true
	}
	return key, false
}

var patternCache sync.Map // pattern string -> *regexp.Regexp

// mustCompile is called from concurrent poller/listener goroutines, so the
// cache uses sync.Map rather than a plain map guarded ad hoc.
func mustCompile(pattern string) *regexp.Regexp {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re := regexp.MustCompile(pattern)
	actual, _ := patternCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// RenameKeysByRegex recurses through a nested object tree, renaming any key
// matching re using replacement (a regexp.ReplaceAllString template).
func RenameKeysByRegex(data any, re *regexp.Regexp, replacement string) any {
	switch x := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			newKey := k
			if re.MatchString(k) {
				newKey = re.ReplaceAllString(k, replacement)
			}
			out[newKey] = RenameKeysByRegex(v, re, replacement)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = RenameKeysByRegex(e, re, replacement)
		}
		return out
	default:
		return x
	}
}
