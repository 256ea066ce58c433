package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/search"
)

// render prints a settled search state. Idle and Loading print nothing.
func render(w io.Writer, st search.State, now time.Time) {
	switch st.Phase {
	case search.Error:
		fmt.Fprintf(w, "%s: %s\n", st.City, st.Err)
	case search.Success:
		renderView(w, forecast.BuildView(*st.Weather, st.Unit, now))
	}
}

func renderView(w io.Writer, v forecast.View) {
	title := v.City
	if v.Country != "" {
		title += ", " + v.Country
	}
	fmt.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tDATE\tTEMP\tCONDITIONS\tHUMIDITY\tWIND")
	if v.Current != nil {
		writeRow(tw, "now", *v.Current)
	}
	for _, d := range v.Days {
		writeRow(tw, "", d)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func writeRow(w io.Writer, label string, e forecast.EntryView) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s km/h %s\n",
		label, e.DisplayDate, e.TemperatureText, e.Description, e.Humidity, e.WindSpeedKmh, e.WindDirection)
}
