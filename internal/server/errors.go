package server

import (
	"errors"
	"net/http"

	"github.com/autodoc/cv-analyzer/internal/classify"
	"github.com/autodoc/cv-analyzer/internal/codec"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
// Model responses that cannot be interpreted map to 422: the request was
// well-formed but the document could not be processed into a valid result.
func HTTPStatus(err error) int {
	var malformed *codec.MalformedResponseError
	var extraction *classify.ExtractionError
	var apiCall *classify.APICallError

	switch {
	case errors.As(err, &malformed), errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
