package httpresponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	errs "metasquares/internal/errors"
)

type Response[T any] struct {
	Status int `json:"Status"`
	Body   any `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

const INTERNALERRORJSON = "{\"status\": 500,\"body\":{\"error\": \"Internal server error\"}}"

const MALFORMEDJSON_errorDesc = "json unmarshalling error"

func WriteResponseWithStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	jsonByte, err := marshalStatusJson(status, body)
	if err != nil {
		WriteInternalErrorResponse(w)
		return
	}
	_, err = w.Write(jsonByte)
	if err != nil {
		WriteInternalErrorResponse(w)
		return
	}
}

func marshalStatusJson(status int, body any) ([]byte, error) {
	response := Response[any]{
		Status: status,
		Body:   body,
	}
	marshal, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return marshal, nil
}

func WriteInternalErrorResponse(w http.ResponseWriter) {
	// implementation similar to http.Error, only difference is the Content-type
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(500)
	_, _ = fmt.Fprintln(w, INTERNALERRORJSON)
}

// WriteError maps a usecase error to its HTTP status and writes it.
func WriteError(w http.ResponseWriter, err error) {
	WriteResponseWithStatus(w, StatusFromError(err), ErrorResponse{ErrorDescription: err.Error()})
}

// StatusFromError переводит доменную ошибку в HTTP-статус.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, errs.ErrIllegalMove),
		errors.Is(err, errs.ErrBadGameRecord),
		errors.Is(err, errs.ErrAlreadyInGame),
		errors.Is(err, errs.ErrNotBotGame):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrGameNotFound), errors.Is(err, errs.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNotYourTurn),
		errors.Is(err, errs.ErrGameFinished),
		errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrGameGone):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
