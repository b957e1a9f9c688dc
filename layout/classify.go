package layout

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wudi/medreport/builder"
	"github.com/wudi/medreport/fonts"
)

// DefaultBanner is the department name that marks the title line.
const DefaultBanner = "DEPARTMENT OF RADIOLOGY"

// Role is the typographic role of a report line.
type Role int

const (
	RoleBody Role = iota
	RoleTitle
	RoleHeader
	RoleBlank
	RoleFooter
)

func (r Role) String() string {
	switch r {
	case RoleTitle:
		return "title"
	case RoleHeader:
		return "header"
	case RoleBlank:
		return "blank"
	case RoleFooter:
		return "footer"
	default:
		return "body"
	}
}

// LineStyle is the rendering style of one role.
type LineStyle struct {
	Font    string
	Size    float64
	Advance float64
	// SpaceBefore is subtracted from the cursor before the run is drawn.
	SpaceBefore float64
	Color       builder.Color
}

// StyleSheet holds the style of every line role.
type StyleSheet struct {
	Title  LineStyle
	Header LineStyle
	Blank  LineStyle
	Body   LineStyle
}

// DefaultStyleSheet returns the report template styles.
func DefaultStyleSheet() StyleSheet {
	return StyleSheet{
		Title:  LineStyle{Font: fonts.Bold, Size: 12, Advance: 16},
		Header: LineStyle{Font: fonts.Bold, Size: 10, Advance: 14, SpaceBefore: 5},
		Blank:  LineStyle{Advance: 8},
		Body:   LineStyle{Font: fonts.Mono, Size: 9, Advance: 12},
	}
}

func (s StyleSheet) forRole(r Role) LineStyle {
	switch r {
	case RoleTitle:
		return s.Title
	case RoleHeader:
		return s.Header
	case RoleBlank:
		return s.Blank
	default:
		return s.Body
	}
}

// ClassifiedLine is a report line tagged with its role and style.
type ClassifiedLine struct {
	Raw   string
	Text  string // Raw without surrounding whitespace
	Role  Role
	Style LineStyle
	Blank bool
}

// Classifier assigns roles to report lines. The zero value is not usable;
// construct one with NewClassifier. A Classifier is immutable and safe for
// concurrent use.
type Classifier struct {
	banner string
	styles StyleSheet
	lang   language.Tag
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithBanner replaces the phrase that identifies the title line.
func WithBanner(phrase string) ClassifierOption {
	return func(c *Classifier) {
		c.banner = phrase
	}
}

// WithStyleSheet replaces the styles attached to classified lines.
func WithStyleSheet(s StyleSheet) ClassifierOption {
	return func(c *Classifier) {
		c.styles = s
	}
}

// NewClassifier returns a Classifier using the default banner and styles
// unless overridden.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		banner: DefaultBanner,
		styles: DefaultStyleSheet(),
		lang:   language.Und,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = NewClassifier()

// Classify classifies line with the default banner and styles.
func Classify(line string) ClassifiedLine {
	return defaultClassifier.Classify(line)
}

// Classify applies the role rules in priority order: banner, section
// header, blank, body.
func (c *Classifier) Classify(line string) ClassifiedLine {
	text := strings.TrimSpace(line)
	role := c.role(text)
	return ClassifiedLine{
		Raw:   line,
		Text:  text,
		Role:  role,
		Style: c.styles.forRole(role),
		Blank: role == RoleBlank,
	}
}

// ClassifyAll classifies lines in order.
func (c *Classifier) ClassifyAll(lines []string) []ClassifiedLine {
	out := make([]ClassifiedLine, len(lines))
	for i, l := range lines {
		out[i] = c.Classify(l)
	}
	return out
}

func (c *Classifier) role(text string) Role {
	// Casers carry state, so each call gets its own.
	upper := cases.Upper(c.lang).String(text)
	if c.banner != "" && strings.Contains(upper, cases.Upper(c.lang).String(c.banner)) {
		return RoleTitle
	}
	if text != "" && upper == text && !strings.Contains(text, ":") {
		return RoleHeader
	}
	if text == "" {
		return RoleBlank
	}
	return RoleBody
}
