package jsonapi

import (
	"net/http"
	"strconv"
	"time"
)

// Category is the error taxonomy exposed on the wire.
type Category int

const (
	CategoryValidation Category = iota
	CategoryAuthentication
	CategoryDeactivated
	CategoryNotFound
	CategoryMalformed
	CategoryMethodNotAllowed
	CategoryRateLimited
	CategorySystem
)

// Status returns the HTTP status for c.
func (c Category) Status() int {
	switch c {
	case CategoryValidation:
		return http.StatusUnprocessableEntity
	case CategoryAuthentication:
		return http.StatusUnauthorized
	case CategoryDeactivated:
		return http.StatusGone
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryMalformed:
		return http.StatusBadRequest
	case CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CategoryRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

const (
	// AuthenticationHeader is the source.header reported for 401 responses.
	AuthenticationHeader = "Authentication"

	titleUnauthenticated    = "unauthenticated"
	titleInvalidCredentials = "invalid credentials"

	// SystemDetail is the only detail ever sent for unexpected faults.
	SystemDetail = "internal server error"
)

// Reporter turns violations and failure categories into responses.
type Reporter struct {
	titles Titles
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithTitles overrides violation titles, e.g. for localisation. Kinds
// missing from t keep their default title.
func WithTitles(t Titles) ReporterOption {
	return func(r *Reporter) {
		for k, v := range t {
			r.titles[k] = v
		}
	}
}

// NewReporter builds a Reporter with the default English titles.
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{titles: DefaultTitles()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Violations renders field violations, in order, as a 422 response.
func (r *Reporter) Violations(vs []Violation) Response {
	b := NewBuilder().Force(CategoryValidation.Status())
	status := strconv.Itoa(CategoryValidation.Status())
	for _, v := range vs {
		b.AddError(Error{
			Status: status,
			Code:   string(v.Kind),
			Title:  r.titles.Title(v.Kind),
			Detail: v.Message,
			Source: &Source{Pointer: Pointer(v.Field)},
		})
	}
	return b.Build()
}

// InvalidCredentials is the single login failure, whatever the cause.
func (r *Reporter) InvalidCredentials() Response {
	return NewBuilder().
		Add(CategoryValidation.Status(), titleInvalidCredentials, titleInvalidCredentials, &Source{Pointer: Pointer("attributes")}).
		Force(CategoryValidation.Status()).
		Build()
}

// Unauthenticated renders a header-scoped 401 with the given detail.
func (r *Reporter) Unauthenticated(detail string) Response {
	if detail == "" {
		detail = titleUnauthenticated
	}
	return NewBuilder().
		Add(CategoryAuthentication.Status(), titleUnauthenticated, detail, &Source{Header: AuthenticationHeader}).
		Force(CategoryAuthentication.Status()).
		Build()
}

// Gone renders the terminal deactivated-identity response.
func (r *Reporter) Gone() Response {
	return NewBuilder().
		Add(CategoryDeactivated.Status(), "gone", "user has been deactivated", nil).
		Build()
}

// NotFound renders a 404.
func (r *Reporter) NotFound(detail string) Response {
	if detail == "" {
		detail = "resource not found"
	}
	return NewBuilder().Add(CategoryNotFound.Status(), "not found", detail, nil).Build()
}

// Malformed renders a 400. pointer may be empty.
func (r *Reporter) Malformed(detail, pointer string) Response {
	var src *Source
	if pointer != "" {
		src = &Source{Pointer: pointer}
	}
	return NewBuilder().Add(CategoryMalformed.Status(), "malformed request", detail, src).Build()
}

// MethodNotAllowed renders a 405. The caller sets the Allow header.
func (r *Reporter) MethodNotAllowed(method string) Response {
	return NewBuilder().
		Add(CategoryMethodNotAllowed.Status(), "method not allowed", "method "+method+" is not allowed", nil).
		Build()
}

// RateLimited renders a 429. The caller sets Retry-After.
func (r *Reporter) RateLimited(retryAfter time.Duration) Response {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return NewBuilder().
		Add(CategoryRateLimited.Status(), "too many requests", "retry after "+strconv.Itoa(secs)+"s", nil).
		Build()
}

// System renders a 500 with a fixed detail. Fault details stay in the logs.
func (r *Reporter) System() Response {
	return NewBuilder().Add(CategorySystem.Status(), "internal server error", SystemDetail, nil).Build()
}
