package validation

import (
	"context"
	"fmt"
	"strings"

	"warden/cmd/internal/jsonapi"
)

// RequireData checks that data is present and is an object.
func RequireData() Stage {
	return StageFunc(func(_ context.Context, env Envelope, acc *Accumulator) error {
		switch env.Data {
		case Absent:
			acc.Add("data", jsonapi.KindBlank, "data can't be blank")
		case Object:
		default:
			acc.Add("data", jsonapi.KindInvalidFormat, "data must be an object")
		}
		return nil
	})
}

// RequireType checks that data.type is the string want.
func RequireType(want string) Stage {
	return StageFunc(func(_ context.Context, env Envelope, acc *Accumulator) error {
		switch {
		case env.Type == Absent:
			acc.Add("type", jsonapi.KindBlank, "type can't be blank")
		case env.Type != String:
			acc.Add("type", jsonapi.KindInvalidFormat, "type must be a string")
		case env.TypeValue != want:
			acc.Add("type", jsonapi.KindInclusion, fmt.Sprintf("type must be %q", want))
		}
		return nil
	})
}

// RequireAttributes checks that data.attributes is present and is an object.
func RequireAttributes() Stage {
	return StageFunc(func(_ context.Context, env Envelope, acc *Accumulator) error {
		switch env.Attributes {
		case Absent:
			acc.Add("attributes", jsonapi.KindBlank, "attributes can't be blank")
		case Object:
		default:
			acc.Add("attributes", jsonapi.KindInvalidFormat, "attributes must be an object")
		}
		return nil
	})
}

// RequireAnyField checks that at least one of names carries a value.
func RequireAnyField(names ...string) Stage {
	return StageFunc(func(_ context.Context, env Envelope, acc *Accumulator) error {
		for _, n := range names {
			if env.Filled(n) {
				return nil
			}
		}
		acc.Add("attributes", jsonapi.KindBlank, "must contain at least one field to update")
		return nil
	})
}

// blank reports whether s is empty after trimming whitespace.
func blank(s string) bool { return strings.TrimSpace(s) == "" }
