package weather

// Current describes the conditions right now at the configured location.
type Current struct {
	Temperature         float64 `json:"temperature"`
	ApparentTemperature float64 `json:"apparentTemperature"`
	RelativeHumidity    int     `json:"relativeHumidity"`
	WindSpeed           float64 `json:"windSpeed"`
	Precipitation       float64 `json:"precipitation"`
	WeatherCode         int     `json:"weatherCode"`
}

// ForecastDay is one day of the daily forecast.
type ForecastDay struct {
	Date                     string  `json:"date"`
	TemperatureMin           float64 `json:"temperatureMin"`
	TemperatureMax           float64 `json:"temperatureMax"`
	PrecipitationProbability int     `json:"precipitationProbability"`
	WeatherCode              int     `json:"weatherCode"`
}

// Forecast holds the daily forecast for the configured location.
type Forecast struct {
	Days []ForecastDay `json:"days"`
}

// apiResponse mirrors the subset of the Open-Meteo response we consume.
type apiResponse struct {
	Current struct {
		Temperature2m       float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity2m  int     `json:"relative_humidity_2m"`
		WindSpeed10m        float64 `json:"wind_speed_10m"`
		Precipitation       float64 `json:"precipitation"`
		WeatherCode         int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time                        []string  `json:"time"`
		Temperature2mMax            []float64 `json:"temperature_2m_max"`
		Temperature2mMin            []float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []int     `json:"precipitation_probability_max"`
		WeatherCode                 []int     `json:"weather_code"`
	} `json:"daily"`
}

func (r *apiResponse) toCurrent() *Current {
	return &Current{
		Temperature:         r.Current.Temperature2m,
		ApparentTemperature: r.Current.ApparentTemperature,
		RelativeHumidity:    r.Current.RelativeHumidity2m,
		WindSpeed:           r.Current.WindSpeed10m,
		Precipitation:       r.Current.Precipitation,
		WeatherCode:         r.Current.WeatherCode,
	}
}

func (r *apiResponse) toForecast() *Forecast {
	days := make([]ForecastDay, 0, len(r.Daily.Time))
	for i, date := range r.Daily.Time {
		day := ForecastDay{Date: date}
		if i < len(r.Daily.Temperature2mMax) {
			day.TemperatureMax = r.Daily.Temperature2mMax[i]
		}
		if i < len(r.Daily.Temperature2mMin) {
			day.TemperatureMin = r.Daily.Temperature2mMin[i]
		}
		if i < len(r.Daily.PrecipitationProbabilityMax) {
			day.PrecipitationProbability = r.Daily.PrecipitationProbabilityMax[i]
		}
		if i < len(r.Daily.WeatherCode) {
			day.WeatherCode = r.Daily.WeatherCode[i]
		}
		days = append(days, day)
	}
	return &Forecast{Days: days}
}
