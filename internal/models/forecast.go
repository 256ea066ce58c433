package models

import (
	"encoding/json"
	"strings"
)

// ForecastResponse mirrors the provider's 5-day/3-hour forecast payload.
// Only the fields the service consumes are decoded. A value decoded from JSON keeps the
// original document in Raw and encodes back to it unchanged, provider-only fields included.
// Treat decoded values as read-only: edits to the typed fields are not reflected in Raw.
type ForecastResponse struct {
	City City            `json:"city"`
	List []ForecastEntry `json:"list"`

	Raw json.RawMessage `json:"-"`
}

// plainResponse has ForecastResponse's fields without its JSON methods.
type plainResponse ForecastResponse

func (r *ForecastResponse) UnmarshalJSON(data []byte) error {
	var p plainResponse
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Raw = append(json.RawMessage(nil), data...)
	*r = ForecastResponse(p)
	return nil
}

func (r ForecastResponse) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(plainResponse(r))
}

// City is the location metadata attached to a forecast.
type City struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// ForecastEntry is a single 3-hour sample. Temperatures are in °C (units=metric), wind speed in m/s.
type ForecastEntry struct {
	Dt      int64       `json:"dt"`
	DtTxt   string      `json:"dt_txt"`
	Main    Main        `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
}

type Main struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

// Date returns the calendar date portion of DtTxt: everything before the first space.
// The provider's string is used verbatim; no timezone conversion happens.
func (e ForecastEntry) Date() string {
	if i := strings.IndexByte(e.DtTxt, ' '); i >= 0 {
		return e.DtTxt[:i]
	}
	return e.DtTxt
}

// Description returns the first condition's description, or "" when the provider sent none.
func (e ForecastEntry) Description() string {
	if len(e.Weather) == 0 {
		return ""
	}
	return e.Weather[0].Description
}

// Icon returns the first condition's icon code, or "".
func (e ForecastEntry) Icon() string {
	if len(e.Weather) == 0 {
		return ""
	}
	return e.Weather[0].Icon
}
