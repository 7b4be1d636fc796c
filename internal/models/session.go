package models

import "time"

// DeviceType класс устройства, с которого выполнен вход.
type DeviceType string

const (
	DeviceWeb     DeviceType = "WEB"
	DeviceMobile  DeviceType = "MOBILE"
	DeviceTablet  DeviceType = "TABLET"
	DeviceDesktop DeviceType = "DESKTOP"
)

// Session сессия входа аккаунта с конкретного устройства.
type Session struct {
	ID             string     `json:"id"`
	AccountID      int64      `json:"account_id"`
	DeviceID       string     `json:"device_id"`
	DeviceType     DeviceType `json:"device_type"`
	LoginTime      time.Time  `json:"login_time"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	Active         bool       `json:"active"`
	// Exclusive сессия создана по политике одного устройства.
	Exclusive bool `json:"exclusive"`
}
