package notification

import (
	"fmt"
	"time"

	"github.com/medhelper/labcart/internal/domain"
)

const (
	subjectBooking  = "Lab test booking confirmed"
	subjectReminder = "Reminder: your lab test is tomorrow"
	subjectReady    = "Your lab test results are ready"
	subjectRejected = "Your lab test was rejected"
)

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "date to be confirmed"
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

func greeting(u domain.User) string {
	if u.FullName == "" {
		return "Hello!"
	}
	return fmt.Sprintf("Hello, %s!", u.FullName)
}

func labName(rec domain.TestRecord) string {
	if rec.LabName == "" {
		return "the laboratory"
	}
	return rec.LabName
}

func bookingBody(u domain.User, rec domain.TestRecord, loc *time.Location) string {
	return fmt.Sprintf("%s\n\nYou are booked for %q at %s on %s.\n\nThank you for choosing MedHelper!",
		greeting(u), rec.AnalysisTitle, labName(rec), formatDate(rec.TestDate, loc))
}

func reminderBody(u domain.User, rec domain.TestRecord, loc *time.Location) string {
	return fmt.Sprintf("%s\n\nThis is a reminder that you are booked for %q at %s.\nDate and time: %s.\n\nPlease arrive on time.",
		greeting(u), rec.AnalysisTitle, labName(rec), formatDate(rec.TestDate, loc))
}

func resultReadyBody(u domain.User, rec domain.TestRecord, loc *time.Location) string {
	return fmt.Sprintf("%s\n\nThe results of %q at %s are ready.\nTest date: %s.\n\nYou can view them in MedHelper.",
		greeting(u), rec.AnalysisTitle, labName(rec), formatDate(rec.TestDate, loc))
}

func rejectedBody(u domain.User, rec domain.TestRecord, loc *time.Location) string {
	body := fmt.Sprintf("%s\n\nUnfortunately your test %q at %s was rejected.\nBooked for: %s.\n",
		greeting(u), rec.AnalysisTitle, labName(rec), formatDate(rec.TestDate, loc))
	if rec.Result != "" {
		body += fmt.Sprintf("Reason: %s\n", rec.Result)
	}
	return body + "\nPlease contact the laboratory for details."
}
