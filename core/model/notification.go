package model

import "time"

// NotificationType identifies why an operator is being notified.
type NotificationType string

const (
	NotifyEvacuationCompleted NotificationType = "EVACUATION_COMPLETED"
	NotifyZoneEvacuated       NotificationType = "ZONE_EVACUATED"
	NotifyCriticalRisk        NotificationType = "CRITICAL_RISK"
	NotifyLowResources        NotificationType = "LOW_RESOURCES"
	NotifyTeamAssigned        NotificationType = "TEAM_ASSIGNED"
)

// Notification is an operator facing message.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	ZoneID    string           `json:"zone_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}
