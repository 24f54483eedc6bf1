package automation

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// SolarTimes holds the computed sun events for one calendar day at the
// site's location, expressed in the site timezone.
type SolarTimes struct {
	Date    string // YYYY-MM-DD
	Sunrise time.Time
	Sunset  time.Time
}

// solarTimesFor computes sunrise and sunset for the given day. At
// extreme latitudes the library returns zero times when the sun never
// rises or sets; those days simply produce no solar firings.
func solarTimesFor(day time.Time, lat, lon float64, loc *time.Location) SolarTimes {
	rise, set := sunrise.SunriseSunset(lat, lon, day.Year(), day.Month(), day.Day())
	return SolarTimes{
		Date:    day.Format("2006-01-02"),
		Sunrise: rise.In(loc),
		Sunset:  set.In(loc),
	}
}
