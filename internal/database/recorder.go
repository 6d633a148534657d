package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	api "github.com/monorkin/awair-local/awair/api"
	"github.com/monorkin/awair-local/internal/models"
)

// Recorder stores readings polled from one device.
type Recorder struct {
	db       *gorm.DB
	deviceID uint
}

// NewRecorder creates or refreshes the device row identified by the
// device's reported ID.
func NewRecorder(db *gorm.DB, device *api.Device, config *api.DeviceConfig) (*Recorder, error) {
	var record models.Device

	err := db.Where("serial_number = ?", config.ID).First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up device %s: %w", config.ID, err)
	}

	record.Name = device.Hostname()
	record.IPAddress = device.Host()
	record.DeviceType = string(config.Type())
	record.SerialNumber = config.ID
	record.FirmwareVersion = config.FirmwareVersion
	record.LastSeen = time.Now()

	if err := db.Save(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to save device %s: %w", config.ID, err)
	}

	return &Recorder{db: db, deviceID: record.ID}, nil
}

func (recorder *Recorder) DeviceID() uint {
	return recorder.deviceID
}

// Record stores reading and bumps the device's last seen time.
func (recorder *Recorder) Record(reading *api.Reading, endpoint string) error {
	return recorder.db.Transaction(func(tx *gorm.DB) error {
		measurement := models.NewMeasurement(recorder.deviceID, reading)
		if err := tx.Create(&measurement).Error; err != nil {
			return fmt.Errorf("failed to store measurement: %w", err)
		}

		updates := map[string]any{"last_seen": time.Now()}
		if endpoint != "" {
			updates["endpoint"] = endpoint
		}

		return tx.Model(&models.Device{}).Where("id = ?", recorder.deviceID).Updates(updates).Error
	})
}

// LatestMeasurement returns the newest stored measurement of a device.
func LatestMeasurement(db *gorm.DB, deviceID uint) (*models.Measurement, error) {
	var measurement models.Measurement

	err := db.Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		First(&measurement).Error
	if err != nil {
		return nil, err
	}

	return &measurement, nil
}
