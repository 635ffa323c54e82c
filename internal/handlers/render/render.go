// Package render writes JSON responses and binds validated JSON requests.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

// Requests are small: card numbers, amounts and notes
const maxBodySize = 64 << 10

var validate = validator.New()

func init() {
	configureValidator(validate)
}

// Messages for failed validation tags, %s is replaced with tag param
var tagMessages = map[string]string{
	"required": "This field is required",
	"min":      "Value is too short (minimum %s)",
	"max":      "Value is too long (maximum %s)",
	"gt":       "Value must be greater than %s",
	"gte":      "Value must be at least %s",
	"lte":      "Value must be at most %s",
	"len":      "Value must be exactly %s characters long",
	"numeric":  "Value must contain digits only",
	"oneof":    "Value must be one of: %s",
	"luhn":     "Card number is not valid",
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusOK)
}

func Created(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusCreated)
}

func ServiceError(w http.ResponseWriter, message string, code int) {
	jsonWithStatus(w, ErrorResponse{Error: ServiceErrorType, Message: message}, code)
}

// Render request body decoding failure
// Too large body is 413, everything else is 400
func DecodeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	var message string

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var sizeErr *http.MaxBytesError

	switch {
	case errors.As(err, &sizeErr):
		code = http.StatusRequestEntityTooLarge
		message = fmt.Sprintf("Request body must not be larger than %d bytes", sizeErr.Limit)
	case errors.Is(err, io.EOF):
		message = "Request body is empty"
	case errors.As(err, &typeErr):
		message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	case errors.As(err, &syntaxErr):
		message = fmt.Sprintf("Malformed JSON at position %d", syntaxErr.Offset)
	default:
		message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	jsonWithStatus(w, ErrorResponse{Error: DecodingErrorType, Message: message}, code)
}

func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	for _, fieldError := range errs {
		message, ok := tagMessages[fieldError.Tag()]
		switch {
		case !ok:
			message = "Invalid value"
		case fieldError.Param() != "":
			message = fmt.Sprintf(message, fieldError.Param())
		}
		response.Fields[fieldError.Field()] = message
	}

	jsonWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes exactly one JSON object from the body into T and validates its tags
// On failure the error response is already written, the caller only has to return
func BindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&value); err != nil {
		DecodeError(w, err)
		return value, err
	}
	if dec.More() {
		err := errors.New("request body must contain a single JSON object")
		jsonWithStatus(w, ErrorResponse{Error: DecodingErrorType, Message: "Request body must contain a single JSON object"}, http.StatusBadRequest)
		return value, err
	}

	if err := validate.Struct(value); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			ServiceError(w, "Request can not be validated", http.StatusInternalServerError)
			return value, err
		}
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// Encode first, so a marshaling failure still produces a clean 500
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
