package services

import (
	"errors"
	"net/http"

	"github.com/mangatrack/mangatrack-backend/internal/usage"
)

// FailureMessage is shown for every generation or internal failure; details
// stay in the logs
const FailureMessage = "Something went wrong with the chatbot"

// Classify maps a chatbot error to the HTTP status and the message a client
// may see
func Classify(err error) (int, string) {
	var (
		validationErr *ValidationError
		quotaErr      *usage.QuotaExceededError
		upstreamErr   *UpstreamGenerationError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.As(err, &quotaErr):
		return http.StatusTooManyRequests, quotaErr.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, FailureMessage
	default:
		return http.StatusInternalServerError, FailureMessage
	}
}
