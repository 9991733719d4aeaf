package extract

import "time"

// DateLayout is the format of generated dates.
const DateLayout = "2006-01-02"

// PlaceholderDays is how far ahead the placeholder expiry is set when a
// board publishes none.
const PlaceholderDays = 30

// PlaceholderExpiry returns now plus PlaceholderDays as a calendar date. The
// value is not scraped; records carry expiry_source=placeholder with it.
func PlaceholderExpiry(now time.Time) string {
	return now.AddDate(0, 0, PlaceholderDays).Format(DateLayout)
}
