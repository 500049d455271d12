package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TestRecordStatus string

const (
	TestRecordStatusPending   TestRecordStatus = "pending"
	TestRecordStatusCompleted TestRecordStatus = "completed"
	TestRecordStatusRejected  TestRecordStatus = "rejected"
)

func (s TestRecordStatus) IsTerminal() bool {
	return s == TestRecordStatusCompleted || s == TestRecordStatusRejected
}

func (s TestRecordStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a record may move from one status to another.
// Only pending records are reviewed, and only once.
func CanTransitionTo(from, to TestRecordStatus) bool {
	return from == TestRecordStatusPending && to.IsTerminal()
}

// TestRecord is a confirmed booking. Lab and analysis details are a snapshot
// taken at checkout, not re-resolved later.
type TestRecord struct {
	ID            uuid.UUID        `json:"id"`
	UserID        int64            `json:"user_id"`
	AnalysisID    *int64           `json:"analysis_id"`
	AnalysisTitle string           `json:"analysis_title"`
	LabID         *int64           `json:"lab_id"`
	LabName       string           `json:"lab_name"`
	TestDate      *time.Time       `json:"test_date"`
	Notes         string           `json:"notes"`
	Result        string           `json:"result"`
	ResultFile    string           `json:"result_file"`
	Status        TestRecordStatus `json:"status"`
	ReviewedAt    *time.Time       `json:"reviewed_at"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewBooking builds the pending record for one cart line at checkout time.
func NewBooking(userID int64, line CartLine, analysis Analysis, loc *time.Location, now time.Time) *TestRecord {
	if loc == nil {
		loc = time.UTC
	}
	analysisID := analysis.ID
	rec := &TestRecord{
		ID:            uuid.New(),
		UserID:        userID,
		AnalysisID:    &analysisID,
		AnalysisTitle: analysis.Title,
		TestDate:      CombineSchedule(line.ScheduledDate, line.ScheduledTime, loc),
		Notes:         fmt.Sprintf("Order from cart %s", now.In(loc).Format("02.01.2006 15:04")),
		Status:        TestRecordStatusPending,
		CreatedAt:     now,
	}
	if analysis.Lab != nil {
		labID := analysis.Lab.ID
		rec.LabID = &labID
		rec.LabName = analysis.Lab.Name
	}
	return rec
}

// StatusChange is the payload of a review leaving pending.
type StatusChange struct {
	To         TestRecordStatus
	Result     string
	ResultFile string
	ReviewedAt time.Time
}
