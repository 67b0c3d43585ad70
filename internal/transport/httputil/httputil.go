package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "kcc-issuer/pkg/domain-errors"
)

// Envelope is the response shape for every JSON endpoint that is not a
// protocol-mandated OAuth/OID4VCI body: a message plus optional data.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes any value as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore
	// encoding errors. The body may be incomplete, but headers are sent.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteData writes a 200 envelope with a message and payload.
func WriteData(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Message: message, Data: data})
}

// WriteError centralizes domain error translation to HTTP responses.
// Failures bubble unmodified from services; this is the single place that
// maps them to a status code and a flat {message} body.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), Envelope{Message: domainErr.Error()})
		return
	}
	WriteJSON(w, http.StatusBadRequest, Envelope{Message: err.Error()})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
// The default is 400: nearly every failure in this flow is a client-facing
// validation problem. Only issuer-side faults escalate.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeConfiguration, dErrors.CodeInternal:
		return http.StatusInternalServerError
	case dErrors.CodeConnection:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
