package jsonapi

// Kind classifies a field violation. It is echoed as the error "code".
type Kind string

const (
	KindBlank         Kind = "blank"
	KindTooShort      Kind = "too_short"
	KindTooLong       Kind = "too_long"
	KindInvalidFormat Kind = "invalid_format"
	KindTaken         Kind = "taken"
	KindInclusion     Kind = "inclusion"
	KindInvalidValue  Kind = "invalid_value"
)

// Violation is the single internal representation of a field-level failure.
// Field is the wire name of the offending member ("data", "type",
// "attributes" or an attribute name such as "middleName").
type Violation struct {
	Field   string
	Kind    Kind
	Message string
}

// Pointer returns the JSON pointer locating field in a request document.
func Pointer(field string) string {
	switch field {
	case "data":
		return "/data"
	case "type":
		return "/data/type"
	case "attributes":
		return "/data/attributes"
	default:
		return "/data/attributes/" + field
	}
}

// Titles maps violation kinds onto human-readable titles.
type Titles map[Kind]string

const fallbackTitle = "validation error"

// DefaultTitles returns the English title table.
func DefaultTitles() Titles {
	return Titles{
		KindBlank:         "required attribute missing",
		KindTooShort:      "value too short",
		KindTooLong:       "value too long",
		KindInvalidFormat: "invalid format",
		KindTaken:         "value already taken",
		KindInclusion:     "invalid value",
	}
}

// Title returns the title for k, or "validation error" when unmapped.
func (t Titles) Title(k Kind) string {
	if s, ok := t[k]; ok && s != "" {
		return s
	}
	return fallbackTitle
}
