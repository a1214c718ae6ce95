package steps

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Pattern is a compiled step pattern. Placeholders are written $name or
// <name> and capture any text, including newlines.
type Pattern struct {
	source     string
	regex      *regexp.Regexp
	names      []string
	literalLen int
}

// CompilePattern compiles a single pattern. Variants must be expanded first.
func CompilePattern(source string) (*Pattern, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty step pattern")
	}

	p := &Pattern{source: source}
	var re strings.Builder
	re.WriteString(`(?s)^`)

	runes := []rune(source)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '$' && i+1 < len(runes) && isNameRune(runes[i+1]):
			j := i + 1
			for j < len(runes) && isNameRune(runes[j]) {
				j++
			}
			p.names = append(p.names, string(runes[i+1:j]))
			re.WriteString(`(.*)`)
			i = j
		case r == '<':
			j := i + 1
			for j < len(runes) && isNameRune(runes[j]) {
				j++
			}
			if j > i+1 && j < len(runes) && runes[j] == '>' {
				p.names = append(p.names, string(runes[i+1:j]))
				re.WriteString(`(.*)`)
				i = j + 1
				continue
			}
			p.literalLen++
			re.WriteString(regexp.QuoteMeta(string(r)))
			i++
		case unicode.IsSpace(r):
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			re.WriteString(`\s+`)
		default:
			p.literalLen++
			re.WriteString(regexp.QuoteMeta(string(r)))
			i++
		}
	}
	re.WriteString(`$`)

	regex, err := regexp.Compile(re.String())
	if err != nil {
		return nil, fmt.Errorf("compile step pattern %q: %w", source, err)
	}
	p.regex = regex
	return p, nil
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *Pattern) String() string {
	return p.source
}

// Names returns the placeholder names in order of appearance.
func (p *Pattern) Names() []string {
	return p.names
}

// LiteralLen counts the non-space characters outside placeholders.
func (p *Pattern) LiteralLen() int {
	return p.literalLen
}

// Matches reports whether text matches the whole pattern.
func (p *Pattern) Matches(text string) bool {
	return p.regex.MatchString(text)
}

// capture is one placeholder value and its byte span within the step text.
type capture struct {
	name       string
	value      string
	start, end int
}

func (p *Pattern) captures(text string) ([]capture, bool) {
	idx := p.regex.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil, false
	}
	out := make([]capture, 0, len(p.names))
	for i, name := range p.names {
		start, end := idx[2*(i+1)], idx[2*(i+1)+1]
		if start < 0 {
			out = append(out, capture{name: name, start: -1, end: -1})
			continue
		}
		out = append(out, capture{name: name, value: text[start:end], start: start, end: end})
	}
	return out, true
}

var variantGroup = regexp.MustCompile(`\{([^{}]*\|[^{}]*)\}`)

// ExpandVariants expands every {a|b} group into separate patterns, in order.
func ExpandVariants(pattern string) []string {
	loc := variantGroup.FindStringSubmatchIndex(pattern)
	if loc == nil {
		return []string{pattern}
	}
	prefix, suffix := pattern[:loc[0]], pattern[loc[1]:]
	var out []string
	for _, option := range strings.Split(pattern[loc[2]:loc[3]], "|") {
		joined := prefix + option + suffix
		for _, expanded := range ExpandVariants(joined) {
			out = append(out, strings.Join(strings.Fields(expanded), " "))
		}
	}
	return out
}
