package repository

import (
	"encoding/json"
	"fmt"

	"github.com/insighted/schoolprofile/internal/models"
)

// The enrollment record and the history are stored as JSON documents on the
// profile row.

func encodeEnrollment(e models.Enrollment) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode enrollment: %w", err)
	}
	return string(b), nil
}

func encodeHistoryEntry(entry models.HistoryEntry) (string, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode history entry: %w", err)
	}
	return string(b), nil
}

func decodeDocuments(p *models.Profile, enrollment, history []byte) error {
	if len(enrollment) > 0 {
		if err := json.Unmarshal(enrollment, &p.Enrollment); err != nil {
			return fmt.Errorf("decode enrollment for %s: %w", p.SchoolID, err)
		}
	}
	p.History = []models.HistoryEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.History); err != nil {
			return fmt.Errorf("decode history for %s: %w", p.SchoolID, err)
		}
	}
	return nil
}

func decodeEnrollmentTotal(enrollment []byte) (int, error) {
	if len(enrollment) == 0 {
		return 0, nil
	}
	var e models.Enrollment
	if err := json.Unmarshal(enrollment, &e); err != nil {
		return 0, fmt.Errorf("decode enrollment: %w", err)
	}
	return e.Total(), nil
}

func decodeActivity(schoolID, schoolName string, raw []byte) (models.ActivityEntry, error) {
	a := models.ActivityEntry{SchoolID: schoolID, SchoolName: schoolName}
	if err := json.Unmarshal(raw, &a.Entry); err != nil {
		return a, fmt.Errorf("decode history entry for %s: %w", schoolID, err)
	}
	return a, nil
}
