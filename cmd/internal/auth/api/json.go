package authapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"

	"warden/cmd/internal/jsonapi"
)

var (
	errUnsupportedMediaType = errors.New("content type must be application/json or application/vnd.api+json")
	errBodyTooLarge         = errors.New("request body too large")
)

var acceptedMediaTypes = []contenttype.MediaType{
	contenttype.NewMediaType("application/json"),
	contenttype.NewMediaType(jsonapi.MediaType),
}

// readDocument returns the raw request body after checking its declared
// media type. A missing Content-Type is accepted.
func readDocument(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if strings.TrimSpace(r.Header.Get("Content-Type")) != "" {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !acceptable(ctype) {
			return nil, errUnsupportedMediaType
		}
	}
	if r.Body == nil {
		return nil, nil
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

func acceptable(ctype contenttype.MediaType) bool {
	for _, mt := range acceptedMediaTypes {
		if ctype.Matches(mt) {
			return true
		}
	}
	return false
}

func writeDocument(w http.ResponseWriter, status int, v any) {
	jsonapi.Write(w, status, v)
}
