package weather

import (
	"net/http"

	"meteolink/internal/modules/weather/controller"
	"meteolink/internal/modules/weather/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service) {
	weatherController := controller.NewWeatherController(svc)
	weatherController.RegisterRoutes(mux)
}
