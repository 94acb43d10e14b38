package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/RichardKnop/mlserver"
)

var (
	errNotFound         = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errRateLimited      = errors.New("rate limit exceeded")
	errInternal         = errors.New("internal error")
)

// maxBodySize bounds request bodies, long articles for /summarize included.
const maxBodySize = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func renderJSON(w http.ResponseWriter, v any) {
	renderJSONStatus(w, http.StatusOK, v)
}

func renderJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func renderJSONError(w http.ResponseWriter, status int, err error) {
	renderJSONStatus(w, status, errorResponse{Error: err.Error()})
}

// readRequestJSON decodes the body into v without checking the content type.
// A body that is not a JSON object counts as an empty one, so validation
// reports the required fields as missing. A field of the wrong type is
// reported by name.
func readRequestJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > maxBodySize {
		return fmt.Errorf("request body too large")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field, _, _ := strings.Cut(typeErr.Field, ".")
			return fmt.Errorf("Invalid '%s' in request", field)
		}
		// Reset whatever a partial decode may have set.
		reflectZero(v)
	}
	return nil
}

func reflectZero(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
	}
}

// validationError turns the first validator failure into the client facing message.
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("Missing '%s' in request", fe.Field())
	case "gte", "lte":
		return fmt.Errorf("Invalid '%s' in request: must be between -1 and 1", fe.Field())
	default:
		return fmt.Errorf("Invalid '%s' in request", fe.Field())
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, mlserver.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
