package canvas

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// ResolveContext is the data placeholders are resolved against.
type ResolveContext struct {
	// KeySet maps placeholder keys to Record fields and takes precedence over direct matches.
	KeySet map[string]string
	// Record is the selected data record, usually a student, keyed by property name.
	Record map[string]interface{}
}

// Lookup returns the value for key: through the key set first, then by direct
// (case-sensitive) property match. nil values count as missing.
func (ctx ResolveContext) Lookup(key string) (string, bool) {
	if field, ok := ctx.KeySet[key]; ok {
		if v, ok := ctx.Record[field]; ok && v != nil {
			return formatValue(v), true
		}
	}
	if v, ok := ctx.Record[key]; ok && v != nil {
		return formatValue(v), true
	}
	return "", false
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Resolve replaces every {{key}} token in text with its value from ctx in a single pass.
// Tokens without a value, or whose key is not an identifier, are left as they are.
func Resolve(text string, ctx ResolveContext) string {
	if !strings.Contains(text, openDelim) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	scanTokens(text, func(literal, key, token string) {
		b.WriteString(literal)
		if token == "" {
			return
		}
		if val, ok := ctx.Lookup(key); ok {
			b.WriteString(val)
		} else {
			b.WriteString(token)
		}
	})
	return b.String()
}

// Placeholders lists the keys used in text, in order of first appearance.
func Placeholders(text string) []string {
	var keys []string
	seen := make(map[string]struct{})
	scanTokens(text, func(_, key, token string) {
		if token == "" {
			return
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	})
	return keys
}

// DocumentPlaceholders lists the keys used anywhere in doc.
func DocumentPlaceholders(doc Document) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(text string) {
		for _, key := range Placeholders(text) {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	add(doc.TemplateName)
	add(doc.InstitutionName)
	add(doc.Subtitle)
	for _, el := range doc.Elements {
		for _, text := range el.Texts() {
			add(text)
		}
	}
	return keys
}

// ResolveDocument resolves the placeholders of every text in doc.
func ResolveDocument(doc Document, ctx ResolveContext) Document {
	doc = doc.Clone()
	fn := func(s string) string { return Resolve(s, ctx) }
	doc.InstitutionName = fn(doc.InstitutionName)
	doc.Subtitle = fn(doc.Subtitle)
	for i, el := range doc.Elements {
		doc.Elements[i] = el.MapText(fn)
	}
	return doc
}

// scanTokens walks text once, calling emit with the literal run preceding each token, the
// token key and the raw token. The trailing literal is emitted with an empty token.
func scanTokens(text string, emit func(literal, key, token string)) {
	rest := text
	for {
		open := strings.Index(rest, openDelim)
		if open < 0 {
			break
		}
		end := strings.Index(rest[open+len(openDelim):], closeDelim)
		if end < 0 {
			break
		}
		keyStart := open + len(openDelim)
		key := rest[keyStart : keyStart+end]
		if !isIdentifier(key) {
			// not a token: keep the first brace and rescan from the next one
			emit(rest[:open+1], "", "")
			rest = rest[open+1:]
			continue
		}
		tokenEnd := keyStart + end + len(closeDelim)
		emit(rest[:open], key, rest[open:tokenEnd])
		rest = rest[tokenEnd:]
	}
	emit(rest, "", "")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
