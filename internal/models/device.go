package models

import (
	"time"

	"gorm.io/gorm"
)

type Device struct {
	gorm.Model
	Name            string
	IPAddress       string
	DeviceType      string
	SerialNumber    string `gorm:"uniqueIndex"`
	FirmwareVersion string
	Endpoint        string
	LastSeen        time.Time
	Measurements    []Measurement
}
