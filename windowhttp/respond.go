/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package windowhttp

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/twitter/cloudhopper-commons-sub002/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// ErrorDomain is the domain of all errors returned by the router.
const ErrorDomain = "Window"

// Error codes.
const (
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
)

// Error represents an error details.
type Error struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ErrorResponseData is used for answer on requests with error.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// Does JSON marshaling with disabled HTML escaping
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// respondCodeAndJSON sends a response with the passed status code, does JSON marshaling of data
// and writes result in response's body.
func respondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}

	respJSON, err := jsonMarshal(respData)
	if err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// respondError sets HTTP status code in response and writes wrapped error in body in JSON format.
func respondError(rw http.ResponseWriter, statusCode int, code, message string, logger log.FieldLogger) {
	logger.Warn("error in response",
		log.Int("status", statusCode), log.String("error_code", code), log.String("error_message", message))
	respondCodeAndJSON(rw, statusCode, ErrorResponseData{&Error{Domain: ErrorDomain, Code: code, Message: message}}, logger)
}
