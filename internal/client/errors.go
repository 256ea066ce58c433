package client

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrCityNotFound       = errors.New("city not found")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrRateLimited        = errors.New("rate limited")
	ErrNetworkUnreachable = errors.New("provider unreachable")
)

// FetchErrorKind classifies why a forecast fetch failed.
type FetchErrorKind int

const (
	// KindNetworkUnreachable: the request never produced an HTTP response.
	KindNetworkUnreachable FetchErrorKind = iota
	// KindProviderHTTP: the provider answered with a non-2xx status (other than 404)
	// or with a body that could not be decoded.
	KindProviderHTTP
	// KindCityNotFound: the provider answered 404 for the city.
	KindCityNotFound
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindProviderHTTP:
		return "provider_http_error"
	case KindCityNotFound:
		return "city_not_found"
	default:
		return "unknown"
	}
}

// FetchError is returned by GetForecast for every failure.
// Status is the provider HTTP status, 0 when no response was received.
type FetchError struct {
	Kind   FetchErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsCityNotFound reports whether err is a fetch failure caused by an unknown city.
func IsCityNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindCityNotFound
}

func networkError(err error) *FetchError {
	return &FetchError{Kind: KindNetworkUnreachable, Err: fmt.Errorf("%w: %w", ErrNetworkUnreachable, err)}
}

// statusError maps a non-2xx provider status to a FetchError. Returns nil for 2xx.
func statusError(status int) *FetchError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 404:
		return &FetchError{Kind: KindCityNotFound, Status: status, Err: ErrCityNotFound}
	case status == 401:
		return &FetchError{Kind: KindProviderHTTP, Status: status, Err: ErrInvalidAPIKey}
	case status == 429:
		return &FetchError{Kind: KindProviderHTTP, Status: status, Err: ErrRateLimited}
	default:
		return &FetchError{Kind: KindProviderHTTP, Status: status, Err: ErrUpstreamFailure}
	}
}
