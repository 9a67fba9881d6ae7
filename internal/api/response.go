package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Result        string      `json:"result"`
	Data          interface{} `json:"data,omitempty"`
	Code          string      `json:"code,omitempty"`
	Message       string      `json:"message,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	CorrelationID string      `json:"correlationId"`
}

// SuccessResponse creates a success response.
func SuccessResponse(data interface{}) *Response {
	return &Response{
		Result:        "ok",
		Data:          data,
		CorrelationID: generateCorrelationID(),
	}
}

// ErrorResponse creates an error response.
func ErrorResponse(code, message string, details interface{}) *Response {
	return &Response{
		Result:        "error",
		Code:          code,
		Message:       message,
		Details:       details,
		CorrelationID: generateCorrelationID(),
	}
}

// WriteSuccess writes a 200 response carrying data.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusOK, SuccessResponse(data))
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	writeResponse(w, statusCode, ErrorResponse(code, message, details))
}

// WriteAPIError writes err with the status and code it maps to.
func WriteAPIError(w http.ResponseWriter, err error) {
	e := ToAPIError(err)
	WriteError(w, e.StatusCode, e.Code, e.Message, e.Details)
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("Only %s method is allowed", allowed), nil)
}

func writeResponse(w http.ResponseWriter, statusCode int, response *Response) {
	body, err := json.Marshal(response)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Internal server error: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}

func generateCorrelationID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", time.Now().Unix(), hex.EncodeToString(b[:]))
}
