package domain

// Kind groups block variants by their structural role.
type Kind int

const (
	KindEditor Kind = iota
	KindJourney
	KindStepGroup
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindJourney:
		return "journey"
	case KindStepGroup:
		return "step_group"
	case KindStep:
		return "step"
	default:
		return "editor"
	}
}

// KindOf classifies t. Callers switching on the result must cover all four
// kinds; unknown types classify as editor blocks.
func KindOf(t BlockType) Kind {
	switch t {
	case BlockTypeJourney:
		return KindJourney
	case BlockTypeStepGroup:
		return KindStepGroup
	case BlockTypeStep:
		return KindStep
	default:
		return KindEditor
	}
}

func IsJourneyBlock(b Block) bool   { return b.Type == BlockTypeJourney }
func IsStepGroupBlock(b Block) bool { return b.Type == BlockTypeStepGroup }
func IsStepBlock(b Block) bool      { return b.Type == BlockTypeStep }

// IsTextual reports whether b carries editable rich text.
func IsTextual(b Block) bool {
	switch b.Properties.(type) {
	case PageProperties, TextProperties, ToDoProperties, CalloutProperties:
		return true
	default:
		return false
	}
}

// AsJourney narrows b to its journey properties.
func AsJourney(b Block) (JourneyProperties, bool) {
	if !IsJourneyBlock(b) {
		return JourneyProperties{}, false
	}
	p, ok := b.Properties.(JourneyProperties)
	return p, ok
}

// AsStepGroup narrows b to its step group properties.
func AsStepGroup(b Block) (StepGroupProperties, bool) {
	if !IsStepGroupBlock(b) {
		return StepGroupProperties{}, false
	}
	p, ok := b.Properties.(StepGroupProperties)
	return p, ok
}

// AsStep narrows b to its step properties.
func AsStep(b Block) (StepProperties, bool) {
	if !IsStepBlock(b) {
		return StepProperties{}, false
	}
	p, ok := b.Properties.(StepProperties)
	return p, ok
}

// RichTextOf returns the editable text of b, or nil when b has none.
func RichTextOf(b Block) RichText {
	switch p := b.Properties.(type) {
	case PageProperties:
		return p.Title
	case TextProperties:
		return p.Text
	case ToDoProperties:
		return p.Text
	case CalloutProperties:
		return p.Text
	default:
		return nil
	}
}
