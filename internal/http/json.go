package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/quizdeck/quiz-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid JSON body"))
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// errorBody is the JSON error envelope. Structured context from the AppError
// (required roles, ban details) is included when present.
type errorBody struct {
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	Field         string   `json:"field,omitempty"`
	RequiredRoles []string `json:"requiredRoles,omitempty"`
	ActualRole    string   `json:"actualRole,omitempty"`
	BanReason     string   `json:"banReason,omitempty"`
	BanExpires    string   `json:"banExpires,omitempty"`
}

// WriteError writes a JSON error response with the error's mapped status.
// The underlying cause is never serialized; only the AppError message and its
// structured context fields reach the client.
func WriteError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)

	appErr := apperrors.As(err)
	if appErr == nil {
		WriteJSON(w, status, errorBody{
			Error:   string(apperrors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}

	body := errorBody{
		Error:         string(appErr.Code),
		Message:       appErr.Message,
		Field:         appErr.Field,
		RequiredRoles: appErr.RequiredRoles,
		ActualRole:    appErr.ActualRole,
		BanReason:     appErr.BanReason,
	}
	if appErr.BanExpires != nil {
		body.BanExpires = appErr.BanExpires.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	WriteJSON(w, status, body)
}
