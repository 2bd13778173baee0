package entities

import (
	"strings"
	"time"
)

// Registration statuses
const (
	RegistrationPending   = "pending"
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
	RegistrationAttended  = "attended"
)

// EventRegistration is a public sign-up for an event. EventID is not
// checked against the events collection.
type EventRegistration struct {
	Base
	SoftDelete
	EventID  int    `json:"eventId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (r *EventRegistration) Validate() error {
	var v checker
	if r.EventID <= 0 {
		v.add("eventId", "is required")
	}
	v.required("fullName", r.FullName)
	v.maxLen("fullName", r.FullName, 120)
	v.email("email", r.Email, true)
	v.maxLen("notes", r.Notes, 2000)
	v.oneOf("status", r.Status, RegistrationPending, RegistrationConfirmed, RegistrationCancelled, RegistrationAttended)
	return v.err()
}

// Message statuses
const (
	MessageNew      = "new"
	MessageRead     = "read"
	MessageReplied  = "replied"
	MessageArchived = "archived"
)

var messageTransitions = map[string][]string{
	MessageNew:      {MessageRead, MessageReplied, MessageArchived},
	MessageRead:     {MessageNew, MessageReplied, MessageArchived},
	MessageReplied:  {MessageArchived},
	MessageArchived: {MessageRead},
}

// ContactMessage is a contact form submission
type ContactMessage struct {
	Base
	SoftDelete
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Message  string `json:"message"`
	EventID  *int   `json:"eventId,omitempty"`
	Status   string `json:"status,omitempty"`
	ClientIP string `json:"clientIp,omitempty"`
}

func (m *ContactMessage) Validate() error {
	var v checker
	v.required("name", m.Name)
	v.maxLen("name", m.Name, 120)
	v.email("email", m.Email, true)
	v.maxLen("subject", m.Subject, 200)
	v.required("message", m.Message)
	v.maxLen("message", m.Message, 5000)
	v.oneOf("status", m.Status, MessageNew, MessageRead, MessageReplied, MessageArchived)
	return v.err()
}

// CanTransitionMessage reports whether a message may move from one status to another
func CanTransitionMessage(from, to string) bool {
	if from == "" {
		from = MessageNew
	}
	if from == to {
		return true
	}
	for _, allowed := range messageTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Certificate statuses
const (
	CertificateValid   = "valid"
	CertificateRevoked = "revoked"
	CertificateExpired = "expired"
)

// Certificate is an issued course completion certificate
type Certificate struct {
	Base
	SoftDelete
	CertificateNumber string     `json:"certificateNumber"`
	StudentName       string     `json:"studentName"`
	StudentEmail      string     `json:"studentEmail,omitempty"`
	CourseTitle       string     `json:"courseTitle"`
	IssueDate         time.Time  `json:"issueDate"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	Status            string     `json:"status,omitempty"`
}

func (c *Certificate) Validate() error {
	var v checker
	v.required("certificateNumber", c.CertificateNumber)
	v.required("studentName", c.StudentName)
	v.required("courseTitle", c.CourseTitle)
	v.email("studentEmail", c.StudentEmail, false)
	if c.IssueDate.IsZero() {
		v.add("issueDate", "is required")
	}
	if c.ExpiryDate != nil && c.ExpiryDate.Before(c.IssueDate) {
		v.add("expiryDate", "must not be before issueDate")
	}
	v.oneOf("status", c.Status, CertificateValid, CertificateRevoked, CertificateExpired)
	return v.err()
}

// EffectiveStatus folds expiry into the stored status
func (c *Certificate) EffectiveStatus(now time.Time) string {
	if c.Status == CertificateRevoked {
		return CertificateRevoked
	}
	if c.ExpiryDate != nil && c.ExpiryDate.Before(now) {
		return CertificateExpired
	}
	return CertificateValid
}

// NormalizeCertificateNumber trims and upper-cases a number for lookup
func NormalizeCertificateNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}
