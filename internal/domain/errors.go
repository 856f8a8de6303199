package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidCoordinate marks a lat/lon outside the valid geodetic range.
// Caller error; never retried.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ErrUpstreamTimeout marks an upstream attempt that exceeded its per-attempt
// timeout (or failed at the transport level) after the retry budget ran out.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// ErrUpstreamUnavailable is returned by the retrieval orchestrator when a
// fetch failed and no latest-known-good fallback entry exists. Fatal for the
// request, not for the process.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamHTTPError is a non-success HTTP status from the upstream after the
// retry budget ran out.
type UpstreamHTTPError struct {
	Status int
	Host   string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream %s returned HTTP %d", e.Host, e.Status)
}

// CircuitOpenError is returned without a network attempt while a host's
// circuit breaker is open.
type CircuitOpenError struct {
	Host string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for host %s", e.Host)
}

// UpstreamAPIError is a structured failure reported inside the upstream's
// own response envelope (resultCode != "00"). The HTTP exchange succeeded,
// so the fetcher does not retry it; the orchestrator still tries the
// latest-known-good fallback.
type UpstreamAPIError struct {
	Code    string
	Message string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("KMA API error %s: %s", e.Code, e.Message)
}
