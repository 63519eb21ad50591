package repository

import "time"

// timeLayout is the canonical storage format for timestamps. All
// timestamps are written as UTC strings in this layout and parsed
// back in Go, which keeps the SQL portable between the production
// MySQL store and the SQLite database used in tests.
const timeLayout = "2006-01-02 15:04:05"

// formatTime renders t as a UTC storage string.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime converts a storage string back into a UTC time.Time. An
// empty string yields the zero time without error so that nullable
// columns scan cleanly.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
