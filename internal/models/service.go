package models

import (
	"strings"
	"time"
)

// Service is a bookable offering from the catalog. Staff able to deliver it
// are embedded by the backend.
type Service struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	DurationMinutes   int       `json:"durationMinutes"`
	Price             float64   `json:"price"`
	Description       string    `json:"description,omitempty"`
	Address           string    `json:"address"`
	IsAvailableOnline bool      `json:"isAvailableOnline"`
	IsActive          bool      `json:"isActive"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	Staff             []Staff   `json:"staff,omitempty"`
}

// StaffByID looks up a staff member assigned to the service.
func (s Service) StaffByID(id string) (Staff, bool) {
	for _, st := range s.Staff {
		if st.ID == id {
			return st, true
		}
	}
	return Staff{}, false
}

type Staff struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s Staff) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
