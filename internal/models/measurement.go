package models

import (
	"time"

	"gorm.io/gorm"

	api "github.com/monorkin/awair-local/awair/api"
)

// Measurement is a stored reading. Nullable columns keep sensors the device
// does not have distinct from zero values.
type Measurement struct {
	gorm.Model
	DeviceID         uint
	Timestamp        time.Time `gorm:"index"`
	Score            int
	Temperature      *float64
	Humidity         *float64
	AbsoluteHumidity *float64
	DewPoint         *float64
	CO2              *int64
	VOC              *int64
	PM25             *int64
	PM10             *int64
}

func NewMeasurement(deviceID uint, reading *api.Reading) Measurement {
	return Measurement{
		DeviceID:         deviceID,
		Timestamp:        reading.Timestamp,
		Score:            reading.Score,
		Temperature:      reading.Temperature,
		Humidity:         reading.Humidity,
		AbsoluteHumidity: reading.AbsoluteHumidity,
		DewPoint:         reading.DewPoint,
		CO2:              reading.CO2,
		VOC:              reading.VOC,
		PM25:             reading.PM25,
		PM10:             reading.EstimatedPM10,
	}
}
