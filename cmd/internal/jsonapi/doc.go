// Package jsonapi builds JSON:API error documents.
//
// Every failure leaving the service is one of the Category values below and
// is rendered through a Reporter, so clients always receive the same
// {"errors":[...]} shape. Field validation failures enter as Violation
// values; everything else enters through the category constructors.
package jsonapi
