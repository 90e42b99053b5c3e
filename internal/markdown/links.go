package markdown

// LinkKind classifies a link found in a post body.
type LinkKind string

const (
	LinkKindInline    LinkKind = "inline"
	LinkKindImage     LinkKind = "image"
	LinkKindAuto      LinkKind = "auto"
	LinkKindReference LinkKind = "reference"
)

// Link is one link-like construct in document order. Reference
// definitions follow all inline constructs, sorted by label.
type Link struct {
	Kind        LinkKind
	Destination string
}
