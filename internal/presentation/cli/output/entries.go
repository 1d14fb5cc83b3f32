package output

import (
	"fmt"
	"time"

	"github.com/jsuresh/ttracker/internal/domain/entry"
)

const displayTime = "2006-01-02 15:04"

// FormatDuration renders a duration as h:mm.
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// EntryRow renders one entry as table cells. The active entry is marked
// with a star and synced entries are labeled.
func EntryRow(e *entry.TimeEntry) []string {
	marker := " "
	end := "..."
	if e.IsOpen() {
		marker = "*"
	} else {
		end = e.EndTime.Format("15:04")
	}

	state := ""
	if e.IsSynced() {
		state = "(synced)"
	}

	return []string{
		marker,
		e.TaskName,
		e.ProjectID,
		e.StartTime.Format(displayTime),
		end,
		FormatDuration(e.Duration()),
		state,
		e.Notes,
	}
}

// EntryTable builds the table shown by list and details.
func EntryTable(entries []*entry.TimeEntry) TableData {
	data := TableData{
		Columns: []TableColumn{
			{Header: " "},
			{Header: "TASK"},
			{Header: "PROJECT"},
			{Header: "START"},
			{Header: "END"},
			{Header: "TIME", Align: AlignRight},
			{Header: "SYNC"},
			{Header: "NOTES"},
		},
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, EntryRow(e))
	}
	return data
}

// EntryLine renders one entry as a single line of text, used when a
// command reports the entry it just touched.
func EntryLine(e *entry.TimeEntry) string {
	if e.IsOpen() {
		return fmt.Sprintf("%s: started %s (%s so far)",
			e.TaskName, e.StartTime.Format(displayTime), FormatDuration(e.Duration()))
	}
	return fmt.Sprintf("%s: %s to %s (%s)",
		e.TaskName, e.StartTime.Format(displayTime), e.EndTime.Format("15:04"),
		FormatDuration(e.Duration()))
}
