package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	givenStoryAnchorPattern = regexp.MustCompile(`^(.*)#\{(.*?)\}$`)
	anchorParametersPattern = regexp.MustCompile(`[:;]`)
)

// GivenStory is a reference to a story that runs before the referring story
// or scenario. The optional anchor is either a parameter map
// ("path#{key:value;other:value}") or the index of an examples row
// ("path#{1}").
type GivenStory struct {
	Text   string
	Path   string
	Anchor string
}

// ParseGivenStory splits a reference into its path and optional "#{...}" anchor.
func ParseGivenStory(text string) GivenStory {
	text = strings.TrimSpace(text)
	g := GivenStory{Text: text, Path: text}
	if m := givenStoryAnchorPattern.FindStringSubmatch(text); m != nil {
		g.Path = strings.TrimSpace(m[1])
		g.Anchor = strings.TrimSpace(m[2])
	}
	return g
}

// HasAnchor reports whether the reference carries an anchor.
func (g GivenStory) HasAnchor() bool {
	return g.Anchor != ""
}

// HasAnchorParameters reports whether the anchor binds named parameters.
func (g GivenStory) HasAnchorParameters() bool {
	return g.HasAnchor() && anchorParametersPattern.MatchString(g.Anchor)
}

// HasAnchorExamples reports whether the anchor selects an examples row.
func (g GivenStory) HasAnchorExamples() bool {
	return g.HasAnchor() && !g.HasAnchorParameters()
}

// AnchorParameters splits "k:v;k2:v2". Entries without a colon map to "".
func (g GivenStory) AnchorParameters() map[string]string {
	params := make(map[string]string)
	if !g.HasAnchorParameters() {
		return params
	}
	for _, pair := range strings.Split(g.Anchor, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, ":")
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}

// AnchorRow returns the examples row index selected by the anchor.
func (g GivenStory) AnchorRow() (int, error) {
	if !g.HasAnchorExamples() {
		return 0, fmt.Errorf("given story %q has no examples anchor", g.Text)
	}
	row, err := strconv.Atoi(g.Anchor)
	if err != nil || row < 0 {
		return 0, fmt.Errorf("given story %q: anchor %q is not a row index", g.Text, g.Anchor)
	}
	return row, nil
}

func (g GivenStory) String() string {
	return g.Text
}

// GivenStories is the list of stories to run before a story or scenario.
type GivenStories struct {
	Text    string
	Stories []GivenStory
}

// ParseGivenStories reads a comma or newline separated list of references.
func ParseGivenStories(text string) *GivenStories {
	gs := &GivenStories{Text: strings.TrimSpace(text)}
	for _, line := range strings.Split(gs.Text, "\n") {
		for _, ref := range splitGivenStoryRefs(line) {
			if ref = strings.TrimSpace(ref); ref != "" {
				gs.Stories = append(gs.Stories, ParseGivenStory(ref))
			}
		}
	}
	return gs
}

// splitGivenStoryRefs splits on commas outside of "#{...}" anchors.
func splitGivenStoryRefs(line string) []string {
	var refs []string
	depth := 0
	start := 0
	for i, r := range line {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				refs = append(refs, line[start:i])
				start = i + 1
			}
		}
	}
	return append(refs, line[start:])
}

func (g *GivenStories) IsEmpty() bool {
	return g == nil || len(g.Stories) == 0
}

// Paths returns the story paths in declaration order, anchors removed.
func (g *GivenStories) Paths() []string {
	if g == nil {
		return nil
	}
	paths := make([]string, len(g.Stories))
	for i, s := range g.Stories {
		paths[i] = s.Path
	}
	return paths
}

// RequireParameters reports whether any reference selects an examples row.
func (g *GivenStories) RequireParameters() bool {
	if g == nil {
		return false
	}
	for _, s := range g.Stories {
		if s.HasAnchorExamples() {
			return true
		}
	}
	return false
}
