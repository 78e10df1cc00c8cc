package controller

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"meteolink/internal/modules/weather/types"
)

var exportHeader = []string{
	"received_at",
	"outdoor_temp",
	"outdoor_humidity",
	"indoor_temp",
	"indoor_humidity",
	"relative_pressure",
	"absolute_pressure",
	"wind_speed",
	"wind_direction",
	"rain_rate",
	"rain_daily",
	"uv_index",
	"solar_radiation",
	"lightning_distance_km",
}

// writeCSV writes records oldest first, one row each. Absent readings are
// empty cells.
func writeCSV(w io.Writer, records []types.WeatherRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ReceivedAt,
			csvFloat(rec.OutdoorTemp),
			csvInt(rec.OutdoorHumidity),
			csvFloat(rec.IndoorTemp),
			csvInt(rec.IndoorHumidity),
			csvFloat(rec.RelativePressure),
			csvFloat(rec.AbsolutePressure),
			csvFloat(rec.WindSpeed),
			csvInt(rec.WindDirection),
			csvFloat(rec.RainRate),
			csvFloat(rec.RainDaily),
			csvFloat(rec.UVIndex),
			csvFloat(rec.SolarRadiation),
			csvInt(rec.LightningDistanceKm),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportFilename(t time.Time) string {
	return "meteodata_" + t.Format("2006-01-02") + ".csv"
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
