package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taxbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetUpcoming = "Upcoming"
	sheetPast     = "Past"
)

var exportHeaders = []string{"ID", "Service", "Staff", "Date", "Time", "Time zone", "Status", "Comments", "Meeting link"}

// exportAppointments writes the user's appointments to an xlsx file under
// dir and returns its path.
func exportAppointments(
	dir string, userID int64,
	pending, past []models.Appointment,
	loc *time.Location, now time.Time,
) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("error creating style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", sheetUpcoming); err != nil {
		return "", fmt.Errorf("error renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetPast); err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}

	for sheet, appts := range map[string][]models.Appointment{sheetUpcoming: pending, sheetPast: past} {
		if err := writeAppointmentSheet(f, sheet, appts, loc, headerStyle); err != nil {
			return "", err
		}
	}

	name := fmt.Sprintf("appointments_%d_%s.xlsx", userID, now.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func writeAppointmentSheet(f *excelize.File, sheet string, appts []models.Appointment, loc *time.Location, headerStyle int) error {
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for i, a := range appts {
		row := i + 2
		apptLoc := loc
		if a.TimeZone != "" {
			if l, err := time.LoadLocation(a.TimeZone); err == nil {
				apptLoc = l
			}
		}
		values := []any{
			a.ID,
			a.Service.Name,
			a.Staff.FullName(),
			a.Start.In(apptLoc).Format(models.DateLayout),
			models.Slot{Start: a.Start, End: a.End}.Label(apptLoc),
			apptLoc.String(),
			a.Status,
			a.Comments,
			a.ZoomMeetingLink,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "C", 25)
	_ = f.SetColWidth(sheet, "D", "G", 14)
	_ = f.SetColWidth(sheet, "H", "I", 40)
	return nil
}
