package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"studiobook/internal/cart"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Kind   cart.FailureKind    `json:"kind,omitempty"`
	Issues []cart.BookingIssue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeConfirmError maps a confirmation failure onto a status code: 400 for an
// incomplete request, 409 for a taken slot, 503 while reservations are loading.
func writeConfirmError(w http.ResponseWriter, ce *cart.ConfirmError) {
	status := http.StatusBadRequest
	switch ce.Kind {
	case cart.KindConflict:
		status = http.StatusConflict
	case cart.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: ce.Error(), Kind: ce.Kind, Issues: ce.Issues})
}

func writeCartError(w http.ResponseWriter, err error) {
	if errors.Is(err, cart.ErrUnknownBooking) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"required": "{field} is required",
	"oneof":    "{field} must be one of {param}",
	"min":      "{field} must be greater than or equal to {param}",
	"max":      "{field} must be less than or equal to {param}",
	"datetime": "{field} must match {param}",
}

// validationMessage renders the first failed rule as a client-facing sentence.
func validationMessage(err error) string {
	var valErrors validator.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}
	for _, fe := range valErrors {
		if msg, ok := messages[fe.Tag()]; ok {
			msg = strings.ReplaceAll(msg, "{field}", fe.Field())
			return strings.ReplaceAll(msg, "{param}", fe.Param())
		}
	}
	return valErrors.Error()
}

// decode reads a JSON body into v and validates its struct tags. The returned
// error message is safe to show to clients.
func decode[T any](r io.Reader, v *T) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}
