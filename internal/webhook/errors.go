package webhook

import "errors"

var (
	ErrMissingEvent     = errors.New("missing event type header")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrUnknownEvent     = errors.New("unsupported event type")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrForbiddenSource  = errors.New("source address not allowed")
)
