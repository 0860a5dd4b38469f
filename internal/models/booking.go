package models

import "time"

// AppointmentRequest is the create-appointment payload.
type AppointmentRequest struct {
	ServiceID string    `json:"serviceId"`
	StaffID   string    `json:"staffId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	TimeZone  string    `json:"timeZone"`
	Comments  string    `json:"comments"`
}

// Appointment is owned by the backend; the client only displays it.
type Appointment struct {
	ID              string    `json:"id"`
	Service         Service   `json:"service"`
	Staff           Staff     `json:"staff"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	TimeZone        string    `json:"timeZone,omitempty"`
	Status          string    `json:"status"`
	Comments        string    `json:"comments,omitempty"`
	ZoomMeetingLink string    `json:"zoomMeetingLink,omitempty"`
}

// Booked reports whether the backend acknowledged the appointment.
func (a *Appointment) Booked() bool {
	return a != nil && a.ID != ""
}
