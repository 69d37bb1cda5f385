package us

import (
	"errors"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

var errNoTradingDay = errors.New("no finished trading day in calendar")

// calendarClient is the subset of the Alpaca trading client used to look up
// market sessions.
type calendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

var _ calendarClient = (*alpaca.Client)(nil)

// LatestFinishedTradingDay returns the most recent trading day whose session
// has ended, i.e. after 20:05 ET so that extended-hours bars have settled.
// It uses the Alpaca trading calendar API.
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	return latestFinishedTradingDay(client, time.Now().In(et))
}

// latestFinishedTradingDay scans the week before now (in ET) backwards.
// The result is midnight UTC of the trading date.
func latestFinishedTradingDay(client calendarClient, now time.Time) (time.Time, error) {
	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	today := now.Format(time.DateOnly)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, now.Location())

	for i := len(calendar) - 1; i >= 0; i-- {
		day := calendar[i]
		if day.Date == today {
			if now.After(cutoff) {
				return time.Parse(time.DateOnly, day.Date)
			}
			continue
		}
		if day.Date > today {
			continue
		}
		d, err := time.Parse(time.DateOnly, day.Date)
		if err != nil {
			continue
		}
		return d, nil
	}
	return time.Time{}, errNoTradingDay
}
