package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

// Reading is one decoded snapshot of a device's measurements. Fields the
// device did not report are nil, so a missing sensor is never mistaken for
// a zero value.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`

	Temperature      *float64 `json:"temperature,omitempty"`
	Humidity         *float64 `json:"humidity,omitempty"`
	AbsoluteHumidity *float64 `json:"absolute_humidity,omitempty"`
	DewPoint         *float64 `json:"dew_point,omitempty"`

	CO2                  *int64 `json:"co2,omitempty"`
	EstimatedCO2         *int64 `json:"estimated_co2,omitempty"`
	EstimatedCO2Baseline *int64 `json:"estimated_co2_baseline,omitempty"`

	VOC           *int64 `json:"voc,omitempty"`
	VOCBaseline   *int64 `json:"voc_baseline,omitempty"`
	VOCH2Raw      *int64 `json:"voc_h2_raw,omitempty"`
	VOCEthanolRaw *int64 `json:"voc_ethanol_raw,omitempty"`

	PM25          *int64 `json:"pm25,omitempty"`
	EstimatedPM10 *int64 `json:"estimated_pm10,omitempty"`
}

type Field string

const (
	FieldTimestamp            Field = "timestamp"
	FieldScore                Field = "score"
	FieldTemperature          Field = "temperature"
	FieldHumidity             Field = "humidity"
	FieldAbsoluteHumidity     Field = "absolute_humidity"
	FieldDewPoint             Field = "dew_point"
	FieldCO2                  Field = "co2"
	FieldEstimatedCO2         Field = "estimated_co2"
	FieldEstimatedCO2Baseline Field = "estimated_co2_baseline"
	FieldVOC                  Field = "voc"
	FieldVOCBaseline          Field = "voc_baseline"
	FieldVOCH2Raw             Field = "voc_h2_raw"
	FieldVOCEthanolRaw        Field = "voc_ethanol_raw"
	FieldPM25                 Field = "pm25"
	FieldEstimatedPM10        Field = "estimated_pm10"
)

// FieldMapping maps Reading fields to the JSON keys one firmware variant
// uses for them. Fields missing from the mapping are never read.
type FieldMapping map[Field]string

// Key returns the wire key for field, or the field name itself when the
// mapping has no entry for it.
func (mapping FieldMapping) Key(field Field) string {
	if key, ok := mapping[field]; ok {
		return key
	}

	return string(field)
}

// DecodeReading parses a JSON object into a Reading using the mapping of
// one endpoint variant. It has no side effects.
func DecodeReading(body []byte, mapping FieldMapping) (*Reading, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, &DecodeError{Kind: DecodeErrorMalformed, Err: err}
	}

	if data == nil {
		return nil, &DecodeError{Kind: DecodeErrorMalformed, Err: fmt.Errorf("expected a JSON object")}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, &DecodeError{Kind: DecodeErrorMalformed, Err: fmt.Errorf("unexpected data after JSON object")}
	}

	return decodeObject(data, mapping)
}

func decodeObject(data map[string]any, mapping FieldMapping) (*Reading, error) {
	d := objectDecoder{data: data, mapping: mapping}
	reading := &Reading{}

	timestamp, err := d.timestamp(FieldTimestamp)
	if err != nil {
		return nil, err
	}
	reading.Timestamp = timestamp

	score, err := d.requiredInt(FieldScore)
	if err != nil {
		return nil, err
	}
	if score < 0 || score > 100 {
		return nil, &DecodeError{
			Kind:  DecodeErrorOutOfRange,
			Field: FieldScore,
			Key:   mapping.Key(FieldScore),
			Err:   fmt.Errorf("%d is outside 0..100", score),
		}
	}
	reading.Score = int(score)

	floats := []struct {
		field  Field
		target **float64
	}{
		{FieldTemperature, &reading.Temperature},
		{FieldHumidity, &reading.Humidity},
		{FieldAbsoluteHumidity, &reading.AbsoluteHumidity},
		{FieldDewPoint, &reading.DewPoint},
	}
	for _, f := range floats {
		if *f.target, err = d.optionalFloat(f.field); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		field  Field
		target **int64
	}{
		{FieldCO2, &reading.CO2},
		{FieldEstimatedCO2, &reading.EstimatedCO2},
		{FieldEstimatedCO2Baseline, &reading.EstimatedCO2Baseline},
		{FieldVOC, &reading.VOC},
		{FieldVOCBaseline, &reading.VOCBaseline},
		{FieldVOCH2Raw, &reading.VOCH2Raw},
		{FieldVOCEthanolRaw, &reading.VOCEthanolRaw},
		{FieldPM25, &reading.PM25},
		{FieldEstimatedPM10, &reading.EstimatedPM10},
	}
	for _, f := range ints {
		if *f.target, err = d.optionalInt(f.field); err != nil {
			return nil, err
		}
	}

	return reading, nil
}

type objectDecoder struct {
	data    map[string]any
	mapping FieldMapping
}

// lookup reports the raw value for field. Fields that the mapping does not
// list are treated as absent.
func (d objectDecoder) lookup(field Field) (string, any, bool) {
	key, ok := d.mapping[field]
	if !ok {
		return string(field), nil, false
	}

	value, ok := d.data[key]
	return key, value, ok
}

func (d objectDecoder) mismatch(field Field, key string, want string, value any) error {
	return &DecodeError{
		Kind:  DecodeErrorTypeMismatch,
		Field: field,
		Key:   key,
		Err:   fmt.Errorf("expected %s, got %s", want, jsonTypeName(value)),
	}
}

func (d objectDecoder) timestamp(field Field) (time.Time, error) {
	key, value, ok := d.lookup(field)
	if !ok {
		return time.Time{}, &DecodeError{Kind: DecodeErrorMissingField, Field: field, Key: key}
	}

	switch v := value.(type) {
	case string:
		timestamp, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, &DecodeError{Kind: DecodeErrorTypeMismatch, Field: field, Key: key, Err: err}
		}
		return timestamp, nil
	case json.Number:
		seconds, err := v.Int64()
		if err != nil {
			return time.Time{}, d.mismatch(field, key, "RFC 3339 string or integer", value)
		}
		return time.Unix(seconds, 0).UTC(), nil
	default:
		return time.Time{}, d.mismatch(field, key, "RFC 3339 string or integer", value)
	}
}

func (d objectDecoder) requiredInt(field Field) (int64, error) {
	key, value, ok := d.lookup(field)
	if !ok {
		return 0, &DecodeError{Kind: DecodeErrorMissingField, Field: field, Key: key}
	}

	return d.integer(field, key, value)
}

func (d objectDecoder) optionalInt(field Field) (*int64, error) {
	key, value, ok := d.lookup(field)
	if !ok || value == nil {
		return nil, nil
	}

	n, err := d.integer(field, key, value)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func (d objectDecoder) integer(field Field, key string, value any) (int64, error) {
	number, ok := value.(json.Number)
	if !ok {
		return 0, d.mismatch(field, key, "integer", value)
	}

	n, err := number.Int64()
	if err != nil {
		return 0, d.mismatch(field, key, "integer", value)
	}

	return n, nil
}

func (d objectDecoder) optionalFloat(field Field) (*float64, error) {
	key, value, ok := d.lookup(field)
	if !ok || value == nil {
		return nil, nil
	}

	number, ok := value.(json.Number)
	if !ok {
		return nil, d.mismatch(field, key, "number", value)
	}

	f, err := number.Float64()
	if err != nil || math.IsInf(f, 0) {
		return nil, d.mismatch(field, key, "number", value)
	}

	return &f, nil
}

func jsonTypeName(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return fmt.Sprintf("number %s", v.String())
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
