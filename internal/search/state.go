// Package search is the consumer-side search flow: an immutable State with pure
// transitions, and a Session that runs fetches against it.
package search

import (
	"errors"
	"strings"

	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// GenericErrorMessage is shown when a failure carries no message of its own.
const GenericErrorMessage = "An unexpected error occurred"

type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of one search box. Weather is set only in Success, Err only in Error.
// Seq identifies the most recently issued fetch.
type State struct {
	Phase   Phase
	City    string
	Unit    forecast.Unit
	Weather *models.ForecastResponse
	Err     string
	Seq     uint64
}

// Initial is the state before any search, in Celsius.
func Initial() State {
	return State{Phase: Idle, Unit: forecast.Celsius}
}

// Submit starts a search for city. A blank city leaves s untouched and reports false.
// Any earlier result or error is cleared; an in-flight search is superseded.
func Submit(s State, city string) (State, bool) {
	city = strings.TrimSpace(city)
	if city == "" {
		return s, false
	}
	return State{
		Phase: Loading,
		City:  city,
		Unit:  s.Unit,
		Seq:   s.Seq + 1,
	}, true
}

// Succeed records data for fetch seq. Results for any other fetch are dropped.
func Succeed(s State, seq uint64, data models.ForecastResponse) State {
	if s.Phase != Loading || seq != s.Seq {
		return s
	}
	s.Phase = Success
	s.Weather = &data
	s.Err = ""
	return s
}

// Fail records err for fetch seq. Failures for any other fetch are dropped.
func Fail(s State, seq uint64, err error) State {
	if s.Phase != Loading || seq != s.Seq {
		return s
	}
	s.Phase = Error
	s.Weather = nil
	s.Err = UserMessage(err)
	return s
}

// WithUnit switches the display unit and nothing else.
func WithUnit(s State, unit forecast.Unit) State {
	s.Unit = unit
	return s
}

type userMessager interface {
	UserMessage() string
}

// UserMessage returns the message an error chooses to show the user, or GenericErrorMessage.
func UserMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}
