package domain

// Properties is the closed set of per-variant property records. The
// unexported method keeps implementations inside this package.
type Properties interface {
	cloneProperties() Properties
}

// Media describes an attachment on a journey's pinned problem.
type Media struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type PinnedProblem struct {
	Text  string `json:"text"`
	Media *Media `json:"media,omitempty"`
}

type JourneyProperties struct {
	Title         string         `json:"title,omitempty"`
	Description   string         `json:"description,omitempty"`
	PinnedProblem *PinnedProblem `json:"pinnedProblem,omitempty"`
}

func (p JourneyProperties) cloneProperties() Properties {
	if p.PinnedProblem != nil {
		pp := *p.PinnedProblem
		if pp.Media != nil {
			m := *pp.Media
			pp.Media = &m
		}
		p.PinnedProblem = &pp
	}
	return p
}

type StepGroupProperties struct {
	Title      string `json:"title,omitempty"`
	GroupLabel string `json:"groupLabel,omitempty"`
}

func (p StepGroupProperties) cloneProperties() Properties { return p }

type StepProperties struct {
	Title               string   `json:"title,omitempty"`
	Label               string   `json:"label,omitempty"`
	Description         string   `json:"description,omitempty"`
	Content             []string `json:"content,omitempty"`
	StepIDInGroup       int      `json:"stepIdInGroup"`
	HighlightedKeywords []string `json:"highlightedKeywords,omitempty"`
}

func (p StepProperties) cloneProperties() Properties { return p.Clone() }

// Clone returns a copy that shares no slices with p.
func (p StepProperties) Clone() StepProperties {
	if p.Content != nil {
		p.Content = append([]string(nil), p.Content...)
	}
	if p.HighlightedKeywords != nil {
		p.HighlightedKeywords = append([]string(nil), p.HighlightedKeywords...)
	}
	return p
}

type PageProperties struct {
	Title RichText `json:"title,omitempty"`
	Icon  string   `json:"icon,omitempty"`
}

func (p PageProperties) cloneProperties() Properties {
	p.Title = p.Title.clone()
	return p
}

// TextProperties backs text, headings, list items, quotes and toggles.
type TextProperties struct {
	Text RichText `json:"text,omitempty"`
}

func (p TextProperties) cloneProperties() Properties {
	p.Text = p.Text.clone()
	return p
}

type ToDoProperties struct {
	Text    RichText `json:"text,omitempty"`
	Checked bool     `json:"checked"`
}

func (p ToDoProperties) cloneProperties() Properties {
	p.Text = p.Text.clone()
	return p
}

type CalloutProperties struct {
	Text  RichText `json:"text,omitempty"`
	Icon  string   `json:"icon,omitempty"`
	Color string   `json:"color,omitempty"`
}

func (p CalloutProperties) cloneProperties() Properties {
	p.Text = p.Text.clone()
	return p
}

type CodeProperties struct {
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

func (p CodeProperties) cloneProperties() Properties { return p }

type ImageProperties struct {
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

func (p ImageProperties) cloneProperties() Properties { return p }

type BookmarkProperties struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (p BookmarkProperties) cloneProperties() Properties { return p }

type DividerProperties struct{}

func (p DividerProperties) cloneProperties() Properties { return p }

// DefaultProperties returns the empty property record for t, or nil when t is unknown.
func DefaultProperties(t BlockType) Properties {
	switch t {
	case BlockTypeJourney:
		return JourneyProperties{}
	case BlockTypeStepGroup:
		return StepGroupProperties{}
	case BlockTypeStep:
		return StepProperties{}
	case BlockTypePage:
		return PageProperties{}
	case BlockTypeText, BlockTypeHeading1, BlockTypeHeading2, BlockTypeHeading3,
		BlockTypeBulletedList, BlockTypeNumberedList, BlockTypeQuote, BlockTypeToggle:
		return TextProperties{}
	case BlockTypeToDo:
		return ToDoProperties{}
	case BlockTypeCallout:
		return CalloutProperties{}
	case BlockTypeCode:
		return CodeProperties{}
	case BlockTypeImage:
		return ImageProperties{}
	case BlockTypeBookmark:
		return BookmarkProperties{}
	case BlockTypeDivider:
		return DividerProperties{}
	default:
		return nil
	}
}

// PropertiesMatch reports whether p is the record type legal for t.
func PropertiesMatch(t BlockType, p Properties) bool {
	want := DefaultProperties(t)
	if want == nil || p == nil {
		return false
	}
	switch want.(type) {
	case JourneyProperties:
		_, ok := p.(JourneyProperties)
		return ok
	case StepGroupProperties:
		_, ok := p.(StepGroupProperties)
		return ok
	case StepProperties:
		_, ok := p.(StepProperties)
		return ok
	case PageProperties:
		_, ok := p.(PageProperties)
		return ok
	case TextProperties:
		_, ok := p.(TextProperties)
		return ok
	case ToDoProperties:
		_, ok := p.(ToDoProperties)
		return ok
	case CalloutProperties:
		_, ok := p.(CalloutProperties)
		return ok
	case CodeProperties:
		_, ok := p.(CodeProperties)
		return ok
	case ImageProperties:
		_, ok := p.(ImageProperties)
		return ok
	case BookmarkProperties:
		_, ok := p.(BookmarkProperties)
		return ok
	case DividerProperties:
		_, ok := p.(DividerProperties)
		return ok
	default:
		return false
	}
}

// CloneProperties deep-copies p. A nil p yields nil.
func CloneProperties(p Properties) Properties {
	if p == nil {
		return nil
	}
	return p.cloneProperties()
}
