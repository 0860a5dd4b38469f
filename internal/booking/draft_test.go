package booking

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"taxbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jane = models.Staff{ID: "st-1", FirstName: "Jane", LastName: "Doe"}
	john = models.Staff{ID: "st-2", FirstName: "John", LastName: "Roe"}

	consultation = models.Service{
		ID:              "svc-1",
		Name:            "Tax Consultation",
		DurationMinutes: 60,
		Address:         "1 Main St",
		Staff:           []models.Staff{jane, john},
	}
	bookkeeping = models.Service{
		ID:    "svc-2",
		Name:  "Bookkeeping",
		Staff: []models.Staff{john},
	}
)

func slotAt(hh int) models.Slot {
	start := time.Date(2024, 3, 1, hh, 0, 0, 0, time.UTC)
	return models.Slot{Start: start, End: start.Add(time.Hour)}
}

func TestDraftStore_SelectService(t *testing.T) {
	s := NewDraftStore(0)

	require.NoError(t, s.SelectService(consultation))
	firstID := s.ID()
	assert.NotEmpty(t, firstID)

	svc, ok := s.Service()
	require.True(t, ok)
	assert.Equal(t, "Tax Consultation", svc.Name)

	require.NoError(t, s.SelectService(consultation))
	assert.NotEqual(t, firstID, s.ID(), "a new selection starts a new draft")

	assert.ErrorIs(t, s.SelectService(models.Service{}), ErrInvalidService)
	assert.ErrorIs(t, s.SelectService(models.Service{ID: "svc-3"}), ErrServiceNoStaff)
}

func TestDraftStore_SelectStaffAndSlotRequiresService(t *testing.T) {
	s := NewDraftStore(0)

	err := s.SelectStaffAndSlot(jane.ID, slotAt(10), "UTC")
	assert.ErrorIs(t, err, ErrServiceRequired)

	d := s.Snapshot()
	assert.False(t, d.HasService())
	assert.False(t, d.HasSlot())
	assert.Nil(t, d.Staff)
}

func TestDraftStore_SelectStaffAndSlotIsAtomic(t *testing.T) {
	s := NewDraftStore(0)
	require.NoError(t, s.SelectService(consultation))

	tests := []struct {
		name    string
		staffID string
		slot    models.Slot
		tz      string
		wantErr error
	}{
		{"UnknownStaff", "st-9", slotAt(10), "UTC", ErrStaffNotOffered},
		{"ZeroSlot", jane.ID, models.Slot{}, "UTC", ErrInvalidSlot},
		{"InvertedSlot", jane.ID, models.Slot{Start: slotAt(10).End, End: slotAt(10).Start}, "UTC", ErrInvalidSlot},
		{"EmptyZone", jane.ID, slotAt(10), "", ErrInvalidTimeZone},
		{"BadZone", jane.ID, slotAt(10), "Mars/Olympus", ErrInvalidTimeZone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SelectStaffAndSlot(tt.staffID, tt.slot, tt.tz)
			assert.ErrorIs(t, err, tt.wantErr)

			_, hasStaff := s.Staff()
			_, hasSlot := s.Slot()
			assert.False(t, hasStaff)
			assert.False(t, hasSlot)
			assert.Empty(t, s.TimeZone())
		})
	}

	require.NoError(t, s.SelectStaffAndSlot(jane.ID, slotAt(10), "UTC"))
	staff, ok := s.Staff()
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", staff.FullName())
	slot, ok := s.Slot()
	require.True(t, ok)
	assert.Equal(t, slotAt(10), slot)
	assert.Equal(t, "UTC", s.TimeZone())
	assert.True(t, s.Snapshot().Complete())
}

func TestDraftStore_ServiceChangeResetsSelection(t *testing.T) {
	s := NewDraftStore(0)
	require.NoError(t, s.SelectService(consultation))
	require.NoError(t, s.SelectStaffAndSlot(jane.ID, slotAt(10), "UTC"))
	require.NoError(t, s.SetComments("first visit"))

	require.NoError(t, s.SelectService(bookkeeping))

	d := s.Snapshot()
	assert.Equal(t, "svc-2", d.Service.ID)
	assert.Nil(t, d.Staff)
	assert.True(t, d.Start.IsZero())
	assert.True(t, d.End.IsZero())
	assert.Empty(t, d.TimeZone)
	assert.Empty(t, d.Comments)
}

func TestDraftStore_SetComments(t *testing.T) {
	s := NewDraftStore(11)
	assert.ErrorIs(t, s.SetComments("hi"), ErrServiceRequired)

	require.NoError(t, s.SelectService(consultation))
	require.NoError(t, s.SetComments("  héllo wörld  "))
	assert.Equal(t, "héllo wörld", s.Comments(), "11 characters after trimming")

	require.NoError(t, s.SetComments(strings.Repeat("é", 11)))
	assert.Equal(t, strings.Repeat("é", 11), s.Comments())

	err := s.SetComments(strings.Repeat("é", 12))
	assert.ErrorIs(t, err, ErrCommentsTooLong)
	assert.Equal(t, strings.Repeat("é", 11), s.Comments(), "rejected text leaves comments unchanged")

	require.NoError(t, s.SetComments(""))
	assert.Empty(t, s.Comments())
}

func TestDraftStore_DefaultCommentLimit(t *testing.T) {
	s := NewDraftStore(0)
	require.NoError(t, s.SelectService(consultation))
	assert.Equal(t, models.MaxCommentLength, s.MaxComment())
	assert.NoError(t, s.SetComments(strings.Repeat("x", 500)))
	assert.ErrorIs(t, s.SetComments(strings.Repeat("x", 501)), ErrCommentsTooLong)
}

func TestDraftStore_ClearAndSnapshotIsolation(t *testing.T) {
	s := NewDraftStore(0)
	require.NoError(t, s.SelectService(consultation))
	require.NoError(t, s.SelectStaffAndSlot(jane.ID, slotAt(9), "UTC"))

	snap := s.Snapshot()
	snap.Service.Name = "mutated"
	svc, _ := s.Service()
	assert.Equal(t, "Tax Consultation", svc.Name)

	s.Clear()
	assert.Equal(t, Draft{}, s.Snapshot())
	assert.Empty(t, s.ID())
	assert.NotNil(t, snap.Staff, "snapshots outlive Clear")
}

func TestDraft_Request(t *testing.T) {
	s := NewDraftStore(0)
	require.NoError(t, s.SelectService(consultation))
	require.NoError(t, s.SelectStaffAndSlot(jane.ID, slotAt(10), "America/New_York"))
	require.NoError(t, s.SetComments("first visit"))

	d := s.Snapshot()
	req := d.Request()
	assert.Equal(t, models.AppointmentRequest{
		ServiceID: "svc-1",
		StaffID:   "st-1",
		Start:     slotAt(10).Start,
		End:       slotAt(10).End,
		TimeZone:  "America/New_York",
		Comments:  "first visit",
	}, req)
	assert.Equal(t, "America/New_York", d.Location().String())
	assert.Equal(t, time.UTC, Draft{}.Location())
}
