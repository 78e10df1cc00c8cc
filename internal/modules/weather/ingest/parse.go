// Package ingest maps the flat WSLink query parameters pushed by a weather
// console onto a types.WeatherRecord.
package ingest

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meteolink/internal/modules/weather/types"
)

const defaultWSID = "unknown"

type floatField struct {
	param string
	dst   func(*types.WeatherRecord) **float64
}

type intField struct {
	param string
	dst   func(*types.WeatherRecord) **int
}

var floatFields = []floatField{
	{"rbar", func(r *types.WeatherRecord) **float64 { return &r.RelativePressure }},
	{"abar", func(r *types.WeatherRecord) **float64 { return &r.AbsolutePressure }},
	{"intem", func(r *types.WeatherRecord) **float64 { return &r.IndoorTemp }},
	{"t1tem", func(r *types.WeatherRecord) **float64 { return &r.OutdoorTemp }},
	{"t1feels", func(r *types.WeatherRecord) **float64 { return &r.FeelsLike }},
	{"t1chill", func(r *types.WeatherRecord) **float64 { return &r.WindChill }},
	{"t1heat", func(r *types.WeatherRecord) **float64 { return &r.HeatIndex }},
	{"t1dew", func(r *types.WeatherRecord) **float64 { return &r.DewPoint }},
	{"t1ws", func(r *types.WeatherRecord) **float64 { return &r.WindSpeed }},
	{"t1ws10mav", func(r *types.WeatherRecord) **float64 { return &r.WindSpeed10MinAvg }},
	{"t1wgust", func(r *types.WeatherRecord) **float64 { return &r.WindGust }},
	{"t1rainra", func(r *types.WeatherRecord) **float64 { return &r.RainRate }},
	{"t1rainhr", func(r *types.WeatherRecord) **float64 { return &r.RainHourly }},
	{"t1raindy", func(r *types.WeatherRecord) **float64 { return &r.RainDaily }},
	{"t1rainwy", func(r *types.WeatherRecord) **float64 { return &r.RainWeekly }},
	{"t1rainmth", func(r *types.WeatherRecord) **float64 { return &r.RainMonthly }},
	{"t1rainyr", func(r *types.WeatherRecord) **float64 { return &r.RainYearly }},
	{"t1uvi", func(r *types.WeatherRecord) **float64 { return &r.UVIndex }},
	{"t1solrad", func(r *types.WeatherRecord) **float64 { return &r.SolarRadiation }},
	{"t1wbgt", func(r *types.WeatherRecord) **float64 { return &r.WBGTTemp }},
}

var intFields = []intField{
	{"inhum", func(r *types.WeatherRecord) **int { return &r.IndoorHumidity }},
	{"inbat", func(r *types.WeatherRecord) **int { return &r.ConsoleBattery }},
	{"t1hum", func(r *types.WeatherRecord) **int { return &r.OutdoorHumidity }},
	{"t1wdir", func(r *types.WeatherRecord) **int { return &r.WindDirection }},
	{"t1bat", func(r *types.WeatherRecord) **int { return &r.OutdoorBattery }},
	{"t1cn", func(r *types.WeatherRecord) **int { return &r.OutdoorConnection }},
	{"t5lst", func(r *types.WeatherRecord) **int { return &r.LightningLastStrikeTime }},
	{"t5lskm", func(r *types.WeatherRecord) **int { return &r.LightningDistanceKm }},
	{"t5lsf", func(r *types.WeatherRecord) **int { return &r.LightningStrikes1Hour }},
	{"t5ls5mtc", func(r *types.WeatherRecord) **int { return &r.LightningCount5Min }},
	{"t5ls30mtc", func(r *types.WeatherRecord) **int { return &r.LightningCount30Min }},
	{"t5ls1htc", func(r *types.WeatherRecord) **int { return &r.LightningCount1Hour }},
	{"t5ls1dtc", func(r *types.WeatherRecord) **int { return &r.LightningCount1Day }},
	{"t5lsbat", func(r *types.WeatherRecord) **int { return &r.LightningBattery }},
	{"t5lscn", func(r *types.WeatherRecord) **int { return &r.LightningConnection }},
}

// Parse builds a record from one push. It never fails: parameters that are
// missing or cannot be coerced leave their field absent, and unknown
// parameters are ignored. now is the receipt time.
func Parse(values url.Values, now time.Time) types.WeatherRecord {
	ts := types.FormatTimestamp(now)

	rec := types.WeatherRecord{
		WSID:       defaultWSID,
		DateTime:   ts,
		ReceivedAt: ts,
	}
	if values.Has("wsid") {
		rec.WSID = values.Get("wsid")
	}
	if values.Has("datetime") {
		rec.DateTime = values.Get("datetime")
	}

	for _, f := range floatFields {
		*f.dst(&rec) = parseFloat(values.Get(f.param))
	}
	for _, f := range intFields {
		*f.dst(&rec) = parseInt(values.Get(f.param))
	}

	for i := range rec.Channels {
		rec.Channels[i] = parseChannel(values, i+1)
	}
	return rec
}

// parseChannel returns nil unless the raw temperature parameter is non-empty.
// The remaining values of a present channel are coerced independently.
func parseChannel(values url.Values, n int) *types.Channel {
	prefix := "t234c" + strconv.Itoa(n)
	rawTemp := values.Get(prefix + "tem")
	if rawTemp == "" {
		return nil
	}
	return &types.Channel{
		Temp:       parseFloat(rawTemp),
		Humidity:   parseInt(values.Get(prefix + "hum")),
		Battery:    parseInt(values.Get(prefix + "bat")),
		Connection: parseInt(values.Get(prefix + "cn")),
		Type:       parseInt(values.Get(prefix + "tp")),
	}
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, strconv.IntSize)
	if err != nil {
		return nil
	}
	n := int(v)
	return &n
}
