package api

import (
	"fmt"
	"strings"
)

// Endpoint is one HTTP resource serving the latest reading, together with
// the JSON keys that firmware generation uses.
type Endpoint struct {
	Name   string
	Path   string
	Fields FieldMapping
}

var (
	// EndpointLatest is served by current Element and Omni firmware.
	EndpointLatest = Endpoint{
		Name: "latest",
		Path: "/air-data/latest",
		Fields: FieldMapping{
			FieldTimestamp:            "timestamp",
			FieldScore:                "score",
			FieldTemperature:          "temp",
			FieldHumidity:             "humid",
			FieldAbsoluteHumidity:     "abs_humid",
			FieldDewPoint:             "dew_point",
			FieldCO2:                  "co2",
			FieldEstimatedCO2:         "co2_est",
			FieldEstimatedCO2Baseline: "co2_est_baseline",
			FieldVOC:                  "voc",
			FieldVOCBaseline:          "voc_baseline",
			FieldVOCH2Raw:             "voc_h2_raw",
			FieldVOCEthanolRaw:        "voc_ethanol_raw",
			FieldPM25:                 "pm25",
			FieldEstimatedPM10:        "pm10_est",
		},
	}

	// EndpointLegacy is the flat air-data resource of early local API
	// firmware, which spells out its keys and has no VOC sensor breakdown.
	EndpointLegacy = Endpoint{
		Name: "legacy",
		Path: "/air-data",
		Fields: FieldMapping{
			FieldTimestamp:   "timestamp",
			FieldScore:       "score",
			FieldTemperature: "temperature",
			FieldHumidity:    "humidity",
			FieldCO2:         "co2",
			FieldVOC:         "voc",
			FieldPM25:        "pm25",
		},
	}
)

// KnownEndpoints lists every endpoint variant, newest firmware first. Auto
// detection probes them in this order.
var KnownEndpoints = []Endpoint{
	EndpointLatest,
	EndpointLegacy,
}

// EndpointByName looks up a variant in KnownEndpoints.
func EndpointByName(name string) (Endpoint, error) {
	for _, endpoint := range KnownEndpoints {
		if strings.EqualFold(endpoint.Name, name) {
			return endpoint, nil
		}
	}

	return Endpoint{}, fmt.Errorf("unknown endpoint variant %q", name)
}

func (endpoint Endpoint) Decode(body []byte) (*Reading, error) {
	return DecodeReading(body, endpoint.Fields)
}

func (endpoint Endpoint) String() string {
	return fmt.Sprintf("%s (%s)", endpoint.Name, endpoint.Path)
}
