package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ChannelCount is the number of auxiliary sensor channels a console reports.
const ChannelCount = 7

// SoilChannel is the channel whose readings are mirrored into the soil_* fields.
const SoilChannel = 2

// TimestampLayout is the ISO 8601 layout used for received_at and the
// default datetime.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Channel holds one auxiliary temperature/humidity sensor. A nil *Channel in
// WeatherRecord.Channels means the station did not report that channel.
type Channel struct {
	Temp       *float64
	Humidity   *int
	Battery    *int
	Connection *int
	Type       *int
}

// WeatherRecord is one normalized station push. Nil pointers are readings
// the station did not send (or sent in a form that could not be parsed).
type WeatherRecord struct {
	WSID       string `json:"wsid"`
	DateTime   string `json:"datetime"`
	ReceivedAt string `json:"received_at"`

	RelativePressure *float64 `json:"relative_pressure"`
	AbsolutePressure *float64 `json:"absolute_pressure"`

	IndoorTemp     *float64 `json:"indoor_temp"`
	IndoorHumidity *int     `json:"indoor_humidity"`
	ConsoleBattery *int     `json:"console_battery"`

	OutdoorTemp     *float64 `json:"outdoor_temp"`
	OutdoorHumidity *int     `json:"outdoor_humidity"`
	FeelsLike       *float64 `json:"feels_like"`
	WindChill       *float64 `json:"wind_chill"`
	HeatIndex       *float64 `json:"heat_index"`
	DewPoint        *float64 `json:"dew_point"`

	WindDirection     *int     `json:"wind_direction"`
	WindSpeed         *float64 `json:"wind_speed"`
	WindSpeed10MinAvg *float64 `json:"wind_speed_10min_avg"`
	WindGust          *float64 `json:"wind_gust"`

	RainRate    *float64 `json:"rain_rate"`
	RainHourly  *float64 `json:"rain_hourly"`
	RainDaily   *float64 `json:"rain_daily"`
	RainWeekly  *float64 `json:"rain_weekly"`
	RainMonthly *float64 `json:"rain_monthly"`
	RainYearly  *float64 `json:"rain_yearly"`

	UVIndex           *float64 `json:"uv_index"`
	SolarRadiation    *float64 `json:"solar_radiation"`
	WBGTTemp          *float64 `json:"wbgt_temp"`
	OutdoorBattery    *int     `json:"outdoor_battery"`
	OutdoorConnection *int     `json:"outdoor_connection"`

	LightningLastStrikeTime *int `json:"lightning_last_strike_time"`
	LightningDistanceKm     *int `json:"lightning_distance_km"`
	LightningStrikes1Hour   *int `json:"lightning_strikes_1hour"`
	LightningCount5Min      *int `json:"lightning_count_5min"`
	LightningCount30Min     *int `json:"lightning_count_30min"`
	LightningCount1Hour     *int `json:"lightning_count_1hour"`
	LightningCount1Day      *int `json:"lightning_count_1day"`
	LightningBattery        *int `json:"lightning_battery"`
	LightningConnection     *int `json:"lightning_connection"`

	// Channels is indexed from zero; Channels[0] is ch1.
	Channels [ChannelCount]*Channel `json:"-"`
}

// recordFields has the same fields as WeatherRecord without its JSON methods.
type recordFields WeatherRecord

// Channel returns channel n (1-based), or nil when absent or out of range.
func (r WeatherRecord) Channel(n int) *Channel {
	if n < 1 || n > ChannelCount {
		return nil
	}
	return r.Channels[n-1]
}

// Soil returns the soil sensor readings, which are channel 2's.
func (r WeatherRecord) Soil() *Channel {
	return r.Channel(SoilChannel)
}

// HasLightning reports whether a lightning sensor is connected.
func (r WeatherRecord) HasLightning() bool {
	return r.LightningConnection != nil && *r.LightningConnection == 1
}

// MarshalJSON writes the record as one flat object. Channel keys (and the
// soil keys for channel 2) are emitted only for channels that are present.
func (r WeatherRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(recordFields(r))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for i, ch := range r.Channels {
		if ch == nil {
			continue
		}
		n := i + 1
		prefix := "ch" + strconv.Itoa(n) + "_"
		if err := writeChannel(&buf, prefix, ch, true); err != nil {
			return nil, err
		}
		if n == SoilChannel {
			if err := writeChannel(&buf, "soil_", ch, false); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeChannel(buf *bytes.Buffer, prefix string, ch *Channel, withType bool) error {
	fields := []struct {
		key string
		val any
	}{
		{"temp", ch.Temp},
		{"humidity", ch.Humidity},
		{"battery", ch.Battery},
		{"connection", ch.Connection},
	}
	if withType {
		fields = append(fields, struct {
			key string
			val any
		}{"type", ch.Type})
	}
	for _, f := range fields {
		v, err := json.Marshal(f.val)
		if err != nil {
			return fmt.Errorf("marshal %s%s: %w", prefix, f.key, err)
		}
		buf.WriteString(`,"` + prefix + f.key + `":`)
		buf.Write(v)
	}
	return nil
}

// UnmarshalJSON is the inverse of MarshalJSON. A channel is present when its
// chN_temp key exists, even if the value is null. soil_* keys are ignored
// because they always mirror channel 2.
func (r *WeatherRecord) UnmarshalJSON(data []byte) error {
	var base recordFields
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for i := range base.Channels {
		prefix := "ch" + strconv.Itoa(i+1) + "_"
		if _, ok := raw[prefix+"temp"]; !ok {
			continue
		}
		ch := &Channel{}
		targets := map[string]any{
			"temp":       &ch.Temp,
			"humidity":   &ch.Humidity,
			"battery":    &ch.Battery,
			"connection": &ch.Connection,
			"type":       &ch.Type,
		}
		for key, dst := range targets {
			v, ok := raw[prefix+key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("decode %s%s: %w", prefix, key, err)
			}
		}
		base.Channels[i] = ch
	}

	*r = WeatherRecord(base)
	return nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
