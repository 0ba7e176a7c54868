package models

import "time"

// DateLayout is the calendar-day format used for upload and review dates
const DateLayout = "2006-01-02"

// Material represents an uploaded learning document and its metadata
type Material struct {
	ID         int64   `json:"id" db:"id"`
	UserID     int64   `json:"user_id" db:"user_id"`
	Title      string  `json:"title" db:"title"`
	Notes      string  `json:"notes" db:"notes"`
	UploadDate string  `json:"upload_date" db:"upload_date"` // YYYY-MM-DD
	FilePath   *string `json:"file_path,omitempty" db:"file_path"`
}

// FormatDate renders t as a calendar day
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar day into UTC midnight
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to midnight UTC of the same calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
