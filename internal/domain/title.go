package domain

import "strings"

var untitled = map[string]string{
	"en": "Untitled",
	"ko": "제목 없음",
}

// UntitledPlaceholder returns the placeholder for locale, falling back to
// English for unknown locales. Region suffixes ("ko-KR") are ignored.
func UntitledPlaceholder(locale string) string {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if s, ok := untitled[lang]; ok {
		return s
	}
	return untitled["en"]
}

// BlockTitle resolves a display title: the variant's title, then its
// alternate label, then the locale placeholder.
func BlockTitle(b Block, locale string) string {
	candidates := titleCandidates(b)
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return UntitledPlaceholder(locale)
}

func titleCandidates(b Block) []string {
	switch p := b.Properties.(type) {
	case JourneyProperties:
		return []string{p.Title, p.Description}
	case StepGroupProperties:
		return []string{p.Title, p.GroupLabel}
	case StepProperties:
		return []string{p.Title, p.Label}
	case PageProperties:
		return []string{p.Title.PlainText()}
	case TextProperties:
		return []string{p.Text.PlainText()}
	case ToDoProperties:
		return []string{p.Text.PlainText()}
	case CalloutProperties:
		return []string{p.Text.PlainText()}
	case CodeProperties:
		return []string{firstLine(p.Code), p.Language}
	case ImageProperties:
		return []string{p.Caption, p.Alt}
	case BookmarkProperties:
		return []string{p.Title, p.URL}
	default:
		return nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// WithTitle returns p with its title set, for variants that have a title.
func WithTitle(p Properties, title string) (Properties, bool) {
	switch v := p.(type) {
	case JourneyProperties:
		v.Title = title
		return v.cloneProperties(), true
	case StepGroupProperties:
		v.Title = title
		return v, true
	case StepProperties:
		v.Title = title
		return v.Clone(), true
	case PageProperties:
		v.Title = PlainRichText(title)
		return v, true
	case BookmarkProperties:
		v.Title = title
		return v, true
	default:
		return p, false
	}
}
