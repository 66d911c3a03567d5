package jsonapi

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// MediaType is the JSON:API media type used for every response body.
const MediaType = "application/vnd.api+json"

// Source locates the cause of an error in the request.
type Source struct {
	Pointer string `json:"pointer,omitempty"`
	Header  string `json:"header,omitempty"`
}

// Error is one entry of an error document.
type Error struct {
	Status string  `json:"status"`
	Code   string  `json:"code,omitempty"`
	Title  string  `json:"title,omitempty"`
	Detail string  `json:"detail,omitempty"`
	Source *Source `json:"source,omitempty"`
}

// Document is the top-level error document.
type Document struct {
	Errors []Error `json:"errors"`
}

// Response pairs a document with the HTTP status it is served with.
type Response struct {
	Status   int
	Document Document
}

// Builder accumulates error entries. The response status is the first
// entry's status unless Force was called.
type Builder struct {
	errs  []Error
	force int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends an entry with the given status.
func (b *Builder) Add(status int, title, detail string, src *Source) *Builder {
	b.errs = append(b.errs, Error{
		Status: strconv.Itoa(status),
		Title:  title,
		Detail: detail,
		Source: src,
	})
	return b
}

// AddError appends a prepared entry as-is.
func (b *Builder) AddError(e Error) *Builder {
	b.errs = append(b.errs, e)
	return b
}

// Force makes every Build use status regardless of entries.
func (b *Builder) Force(status int) *Builder {
	b.force = status
	return b
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int { return len(b.errs) }

// Build returns the accumulated response. An empty builder yields 500.
func (b *Builder) Build() Response {
	doc := Document{Errors: make([]Error, len(b.errs))}
	copy(doc.Errors, b.errs)

	status := b.force
	if status == 0 && len(b.errs) > 0 {
		if n, err := strconv.Atoi(b.errs[0].Status); err == nil {
			status = n
		}
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Response{Status: status, Document: doc}
}

// Write serves v as a JSON:API body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", MediaType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteResponse serves an error response.
func WriteResponse(w http.ResponseWriter, resp Response) {
	Write(w, resp.Status, resp.Document)
}
