package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/models"
)

var log = internal.GetLogger()

var validate = validator.New()

const OKResponse = "OK"

// APIError represents an error response.
type APIError struct {
	Message string `json:"message"`
}

// extractQueryStringValueToInt extracts a query string value and converts it to an int
// if it is not empty. If the value is empty, it returns 0.
func extractQueryStringValueToInt[T ~int | int32 | int64](
	r *http.Request,
	param string,
) (T, error) {
	bitsize := 0

	p := r.URL.Query().Get(param)
	var pInt T
	if p != "" {
		switch any(pInt).(type) {
		case int:
		case int32:
			bitsize = 32
		case int64:
			bitsize = 64
		default:
			return 0, errors.New("unsupported type")
		}

		pInt, err := strconv.ParseInt(p, 10, bitsize)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", param, err)
		}
		return T(pInt), nil
	}
	return 0, nil
}

// encodeJSON encodes data into JSON and writes it to the response writer.
func encodeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes a JSON request body into data and validates it against its
// struct tags.
func decodeJSON(r *http.Request, data interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return err
	}
	if err := validate.Struct(data); err != nil {
		return models.NewValidationError("request", err.Error())
	}
	return nil
}

// statusForError maps an error to a response status. fallback is used for
// errors with no specific mapping.
func statusForError(err error, fallback int) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}
	return fallback
}

// renderError renders an error response.
func renderError(w http.ResponseWriter, err error, status int) {
	status = statusForError(err, status)
	if status == http.StatusRequestEntityTooLarge {
		err = fmt.Errorf(
			"request body too large. if you're uploading documents, reduce the size of the document",
		)
	}

	if status != http.StatusNotFound {
		// Don't log not found errors
		log.Error(err)
	}

	http.Error(w, err.Error(), status)
}
