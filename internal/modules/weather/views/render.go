package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"

	"meteolink/internal/modules/weather/types"
)

//go:embed templates
var viewsFS embed.FS

// RefreshSeconds is how often the dashboard polls the API.
const RefreshSeconds = 30

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"float": formatFloat,
	"int":   formatInt,
}

// loadTemplatesFromFS loads dashboard templates from dir in fsys. Tests use
// it to simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates parses the embedded templates. Call during startup; a failure
// means the server must not start.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// ChannelView is one present auxiliary channel.
type ChannelView struct {
	Number     int
	Temp       *float64
	Humidity   *int
	Battery    *int
	Connection *int
}

// DashboardData is the view model for the dashboard page.
type DashboardData struct {
	HasData        bool
	Latest         types.WeatherRecord
	Channels       []ChannelView
	OutdoorOnline  bool
	IndoorOnline   bool
	HasSoil        bool
	HasLightning   bool
	RecordCount    int
	RefreshSeconds int
}

// NewDashboardData builds the view model from the latest record (ok=false
// when the history is empty) and the history length.
func NewDashboardData(latest types.WeatherRecord, ok bool, count int) *DashboardData {
	d := &DashboardData{
		HasData:        ok,
		RecordCount:    count,
		RefreshSeconds: RefreshSeconds,
	}
	if !ok {
		return d
	}
	d.Latest = latest
	d.OutdoorOnline = latest.OutdoorConnection != nil && *latest.OutdoorConnection == 1
	d.IndoorOnline = latest.IndoorTemp != nil
	d.HasSoil = latest.Soil() != nil
	d.HasLightning = latest.HasLightning()
	for i, ch := range latest.Channels {
		if ch == nil {
			continue
		}
		d.Channels = append(d.Channels, ChannelView{
			Number:     i + 1,
			Temp:       ch.Temp,
			Humidity:   ch.Humidity,
			Battery:    ch.Battery,
			Connection: ch.Connection,
		})
	}
	return d
}

// RenderDashboard writes the dashboard page. A nil data renders the empty
// state.
func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	if data == nil {
		data = NewDashboardData(types.WeatherRecord{}, false, 0)
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return "--"
	}
	return strconv.Itoa(*v)
}
