package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	api "github.com/monorkin/awair-local/awair/api"
)

// Exporter keeps one gauge per measured quantity, labelled by device.
type Exporter struct {
	registry *prometheus.Registry

	score       *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	dewPoint    *prometheus.GaugeVec
	co2         *prometheus.GaugeVec
	voc         *prometheus.GaugeVec
	pm25        *prometheus.GaugeVec
	pm10        *prometheus.GaugeVec
	timestamp   *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "awair",
			Name:      name,
			Help:      help,
		},
		[]string{"device"},
	)
}

func NewExporter() *Exporter {
	exporter := &Exporter{
		registry:    prometheus.NewRegistry(),
		score:       newGauge("score", "Awair score (units: 0-100)"),
		temperature: newGauge("temperature_celsius", "Air temperature (units: degrees Celsius)"),
		humidity:    newGauge("humidity_percent", "Relative humidity (units: %)"),
		dewPoint:    newGauge("dew_point_celsius", "Dew point (units: degrees Celsius)"),
		co2:         newGauge("co2_ppm", "Carbon dioxide (units: ppm)"),
		voc:         newGauge("voc_ppb", "Total volatile organic compounds (units: ppb)"),
		pm25:        newGauge("pm25_ugm3", "PM2.5 particulate matter (units: ug/m3)"),
		pm10:        newGauge("pm10_ugm3", "Estimated PM10 particulate matter (units: ug/m3)"),
		timestamp:   newGauge("reading_timestamp_seconds", "Device clock time of the last reading (units: unix seconds)"),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "awair",
				Name:      "poll_failures_total",
				Help:      "Polls that ended in an error, by error kind",
			},
			[]string{"device", "kind"},
		),
	}

	exporter.registry.MustRegister(
		exporter.score,
		exporter.temperature,
		exporter.humidity,
		exporter.dewPoint,
		exporter.co2,
		exporter.voc,
		exporter.pm25,
		exporter.pm10,
		exporter.timestamp,
		exporter.failures,
		collectors.NewBuildInfoCollector(),
	)

	return exporter
}

// Observe updates the gauges of device. Quantities the reading lacks are
// removed so they go missing instead of reporting a stale or zero value.
func (exporter *Exporter) Observe(device string, reading *api.Reading) {
	exporter.score.WithLabelValues(device).Set(float64(reading.Score))
	exporter.timestamp.WithLabelValues(device).Set(float64(reading.Timestamp.Unix()))

	setFloat(exporter.temperature, device, reading.Temperature)
	setFloat(exporter.humidity, device, reading.Humidity)
	setFloat(exporter.dewPoint, device, reading.DewPoint)
	setInt(exporter.co2, device, reading.CO2)
	setInt(exporter.voc, device, reading.VOC)
	setInt(exporter.pm25, device, reading.PM25)
	setInt(exporter.pm10, device, reading.EstimatedPM10)
}

func (exporter *Exporter) ObserveFailure(device string, kind string) {
	exporter.failures.WithLabelValues(device, kind).Inc()
}

func (exporter *Exporter) Registry() *prometheus.Registry {
	return exporter.registry
}

func (exporter *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(
		exporter.registry,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)
}

func setFloat(gauge *prometheus.GaugeVec, device string, value *float64) {
	if value == nil {
		gauge.DeleteLabelValues(device)
		return
	}

	gauge.WithLabelValues(device).Set(*value)
}

func setInt(gauge *prometheus.GaugeVec, device string, value *int64) {
	if value == nil {
		gauge.DeleteLabelValues(device)
		return
	}

	gauge.WithLabelValues(device).Set(float64(*value))
}
