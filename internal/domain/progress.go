package domain

import (
	"encoding/json"
	"strconv"
)

type ProgressStatus string

const (
	StatusUnanswered ProgressStatus = "unanswered"
	StatusMastered   ProgressStatus = "mastered"
	StatusConfused   ProgressStatus = "confused"
	StatusFailed     ProgressStatus = "failed"
)

func (s ProgressStatus) Valid() bool {
	switch s {
	case StatusUnanswered, StatusMastered, StatusConfused, StatusFailed:
		return true
	}
	return false
}

// Answered reports whether the status counts as an attempt.
func (s ProgressStatus) Answered() bool {
	return s == StatusMastered || s == StatusConfused || s == StatusFailed
}

// Timestamps maps a question id to a last-modified time in ms since epoch.
// Decoding never fails on a single bad entry: values that are not numbers
// (or numeric strings) decode as 0.
type Timestamps map[string]int64

func (t *Timestamps) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}

	out := make(Timestamps, len(raw))
	for key, value := range raw {
		out[key] = parseMillis(value)
	}
	*t = out
	return nil
}

// Get returns the timestamp for key, 0 when absent.
func (t Timestamps) Get(key string) int64 {
	if t == nil {
		return 0
	}
	return t[key]
}

func parseMillis(value json.RawMessage) int64 {
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		return int64(f)
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}

	return 0
}
