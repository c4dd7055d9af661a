package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/comparable-finder/internal/finder"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStatus returns the appropriate HTTP status code for a pipeline error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *finder.InsufficientResultsError:
		return http.StatusUnprocessableEntity
	case *finder.APICallError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}
