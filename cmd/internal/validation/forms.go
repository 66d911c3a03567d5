package validation

import (
	"context"
	"regexp"
	"time"

	"warden/cmd/identity"
	"warden/cmd/internal/jsonapi"
)

// ResourceType is the JSON:API type of every accepted document.
const ResourceType = "users"

// DateLayout is the wire format of birthDate.
const DateLayout = "2006-01-02"

const (
	UsernameMaxLen = 64
	NameMaxLen     = 64
)

// Attribute names as they appear on the wire.
const (
	AttrUsername   = "username"
	AttrPassword   = "password"
	AttrName       = "name"
	AttrMiddleName = "middleName"
	AttrLastName   = "lastName"
	AttrGender     = "gender"
	AttrBirthDate  = "birthDate"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	namePattern     = regexp.MustCompile(`^[\p{L}-]+$`)
)

// TakenFunc reports whether a normalized username is already registered.
type TakenFunc func(ctx context.Context, username string) (bool, error)

// PasswordBounds are the length bounds of a new password. Min and Max
// count runes; MaxBytes, when set, caps the encoded size for hashers
// that truncate input.
type PasswordBounds struct {
	Min      int
	Max      int
	MaxBytes int
}

// DefaultPasswordBounds returns 10..64.
func DefaultPasswordBounds() PasswordBounds { return PasswordBounds{Min: 10, Max: 64} }

func documentStages() []Stage {
	return []Stage{RequireData(), RequireType(ResourceType), RequireAttributes()}
}

// Registration validates POST /user.
func Registration(taken TakenFunc, pw PasswordBounds) *Pipeline {
	if pw.Min <= 0 && pw.Max <= 0 {
		maxBytes := pw.MaxBytes
		pw = DefaultPasswordBounds()
		pw.MaxBytes = maxBytes
	}
	username := Field{
		Name:           AttrUsername,
		Required:       true,
		Normalize:      identity.NormalizeLogin,
		MaxLen:         UsernameMaxLen,
		Pattern:        usernamePattern,
		PatternMessage: "username may contain only latin letters and digits",
		UniqueMessage:  "username already exists",
	}
	if taken != nil {
		username.Unique = taken
	}
	password := Field{
		Name:     AttrPassword,
		Required: true,
		MinLen:   pw.Min,
		MaxLen:   pw.Max,
		MaxBytes: pw.MaxBytes,
	}
	return New(append(documentStages(), Fields(username, password))...)
}

// Login validates POST /session. Only presence is checked; anything else
// would leak which usernames exist.
func Login() *Pipeline {
	return New(append(documentStages(), Fields(
		Field{Name: AttrUsername, Required: true, Normalize: identity.NormalizeLogin},
		Field{Name: AttrPassword, Required: true},
	))...)
}

// UpdateUser validates PUT /user. Blank attributes are ignored, but at
// least one must be filled.
func UpdateUser() *Pipeline {
	name := func(attr string) Field {
		return Field{
			Name:           attr,
			Normalize:      identity.NormalizeName,
			MaxLen:         NameMaxLen,
			Pattern:        namePattern,
			PatternMessage: attr + " may contain only letters and dashes",
		}
	}
	return New(append(documentStages(),
		RequireAnyField(AttrName, AttrMiddleName, AttrLastName, AttrGender, AttrBirthDate),
		Fields(
			name(AttrName),
			name(AttrMiddleName),
			name(AttrLastName),
			Field{Name: AttrGender, OneOf: []string{"male", "female"}},
			Field{
				Name:         AttrBirthDate,
				Parse:        parseDate,
				ParseKind:    jsonapi.KindInvalidFormat,
				ParseMessage: "birthDate must be in YYYY-MM-DD format",
			},
		),
	)...)
}

func parseDate(s string) error {
	_, err := time.Parse(DateLayout, s)
	return err
}
