package fetch

import "net/http"

// Class groups upstream HTTP statuses by how the pipeline reacts to them.
type Class int

const (
	ClassOK          Class = iota // 200: payload returned
	ClassNoContent                // 204: nothing published yet for this feed/date
	ClassNotModified              // 304: unchanged since last request
	ClassClientError              // 400, 404: malformed request
	ClassAuthError                // 401, 403: credentials or subscription
	ClassTransient                // 429, 499, 500, 502, 503: retried
	ClassUnexpected               // anything else
)

// StatusClientClosedRequest is the non-standard 499 some upstream proxies
// emit when they drop a slow connection.
const StatusClientClosedRequest = 499

// Classify maps an HTTP status code onto its Class.
func Classify(code int) Class {
	switch code {
	case http.StatusOK:
		return ClassOK
	case http.StatusNoContent:
		return ClassNoContent
	case http.StatusNotModified:
		return ClassNotModified
	case http.StatusBadRequest, http.StatusNotFound:
		return ClassClientError
	case http.StatusUnauthorized, http.StatusForbidden:
		return ClassAuthError
	case http.StatusTooManyRequests,
		StatusClientClosedRequest,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return ClassTransient
	default:
		return ClassUnexpected
	}
}

// Retryable reports whether a response of this class should be retried.
func (c Class) Retryable() bool {
	return c == ClassTransient
}

// Empty reports whether the class is a steady-state outcome with no
// payload to store.
func (c Class) Empty() bool {
	return c == ClassNoContent || c == ClassNotModified
}

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassNoContent:
		return "no content"
	case ClassNotModified:
		return "not modified"
	case ClassClientError:
		return "client error"
	case ClassAuthError:
		return "auth error"
	case ClassTransient:
		return "transient upstream error"
	default:
		return "unexpected status"
	}
}
