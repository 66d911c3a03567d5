package validation

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"warden/cmd/internal/jsonapi"
)

// Field declares the checks applied to one attribute. Checks run in this
// order: presence, string shape, length (in runes, after Normalize),
// Pattern, OneOf, Parse, Unique. Unique is consulted only when the field
// has no other violation.
type Field struct {
	Name string

	// Required turns a missing or blank value into a "blank" violation.
	// Optional fields with blank values are skipped entirely.
	Required bool

	Normalize func(string) string

	MinLen int
	MaxLen int

	// MaxBytes bounds the UTF-8 encoded length. It is checked only when
	// the rune length is within MaxLen.
	MaxBytes int

	Pattern        *regexp.Regexp
	PatternMessage string

	OneOf []string

	Parse        func(string) error
	ParseKind    jsonapi.Kind
	ParseMessage string

	// Unique reports whether the normalized value is already taken.
	Unique        func(ctx context.Context, v string) (bool, error)
	UniqueMessage string
}

// Fields checks every field in declaration order; violations accumulate
// across fields.
func Fields(fields ...Field) Stage {
	return StageFunc(func(ctx context.Context, env Envelope, acc *Accumulator) error {
		for _, f := range fields {
			if err := f.check(ctx, env, acc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f Field) check(ctx context.Context, env Envelope, acc *Accumulator) error {
	raw, kind := env.Attr(f.Name)
	if kind == Absent || (kind == String && blank(raw)) {
		if f.Required {
			acc.Add(f.Name, jsonapi.KindBlank, f.Name+" can't be blank")
		}
		return nil
	}
	if kind != String {
		acc.Add(f.Name, jsonapi.KindInvalidFormat, f.Name+" must be a string")
		return nil
	}

	v := raw
	if f.Normalize != nil {
		v = f.Normalize(raw)
	}
	before := acc.Len()

	n := utf8.RuneCountInString(v)
	if f.MinLen > 0 && n < f.MinLen {
		acc.Add(f.Name, jsonapi.KindTooShort, fmt.Sprintf("%s is too short (minimum is %d characters)", f.Name, f.MinLen))
	}
	switch {
	case f.MaxLen > 0 && n > f.MaxLen:
		acc.Add(f.Name, jsonapi.KindTooLong, fmt.Sprintf("%s is too long (maximum is %d characters)", f.Name, f.MaxLen))
	case f.MaxBytes > 0 && len(v) > f.MaxBytes:
		acc.Add(f.Name, jsonapi.KindTooLong, fmt.Sprintf("%s is too long (maximum is %d bytes)", f.Name, f.MaxBytes))
	}

	if f.Pattern != nil && !f.Pattern.MatchString(v) {
		msg := f.PatternMessage
		if msg == "" {
			msg = f.Name + " has an invalid format"
		}
		acc.Add(f.Name, jsonapi.KindInvalidFormat, msg)
	}

	if len(f.OneOf) > 0 && !slices.Contains(f.OneOf, v) {
		acc.Add(f.Name, jsonapi.KindInclusion, fmt.Sprintf("%s must be one of: %s", f.Name, strings.Join(f.OneOf, ", ")))
	}

	if f.Parse != nil {
		if err := f.Parse(v); err != nil {
			kind := f.ParseKind
			if kind == "" {
				kind = jsonapi.KindInvalidValue
			}
			msg := f.ParseMessage
			if msg == "" {
				msg = f.Name + " is invalid"
			}
			acc.Add(f.Name, kind, msg)
		}
	}

	if acc.Len() > before {
		return nil
	}

	if f.Unique != nil {
		taken, err := f.Unique(ctx, v)
		if err != nil {
			return fmt.Errorf("validation: %s uniqueness: %w", f.Name, err)
		}
		if taken {
			msg := f.UniqueMessage
			if msg == "" {
				msg = f.Name + " has already been taken"
			}
			acc.Add(f.Name, jsonapi.KindTaken, msg)
			return nil
		}
	}

	acc.Set(f.Name, v)
	return nil
}
