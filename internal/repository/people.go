package repository

import (
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/store"
)

// RegistrationRepository adds queries over event registrations
type RegistrationRepository struct {
	*Repository[entities.EventRegistration]
}

// NewRegistrationRepository creates a registration repository
func NewRegistrationRepository(st store.Store, opts ...Option) *RegistrationRepository {
	return &RegistrationRepository{New[entities.EventRegistration](st, entities.CollectionEventRegistrations, opts...)}
}

// ByEvent returns active registrations for eventID
func (r *RegistrationRepository) ByEvent(eventID int) ([]entities.EventRegistration, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(reg *entities.EventRegistration) bool { return reg.EventID == eventID }), err
}

// ByEmail returns active registrations with email (case-insensitive)
func (r *RegistrationRepository) ByEmail(email string) ([]entities.EventRegistration, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(reg *entities.EventRegistration) bool { return equalFold(reg.Email, email) }), err
}

// ByStatus returns active registrations with status
func (r *RegistrationRepository) ByStatus(status string) ([]entities.EventRegistration, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(reg *entities.EventRegistration) bool { return reg.Status == status }), err
}

// Recent returns active registrations newest first, at most n (n <= 0 means all)
func (r *RegistrationRepository) Recent(n int) ([]entities.EventRegistration, error) {
	all, err := r.GetAll()
	out := activeWhere(all, nil)
	sortByTime(out, func(reg *entities.EventRegistration) time.Time { return createdOrZero(&reg.Base) }, true)
	return limit(out, n), err
}

// CountForEvent counts active, non-cancelled registrations for eventID
func (r *RegistrationRepository) CountForEvent(eventID int) (int, error) {
	regs, err := r.ByEvent(eventID)
	n := 0
	for _, reg := range regs {
		if reg.Status != entities.RegistrationCancelled {
			n++
		}
	}
	return n, err
}

// FindForEvent returns the active, non-cancelled registration of email for eventID
func (r *RegistrationRepository) FindForEvent(eventID int, email string) (entities.EventRegistration, bool, error) {
	regs, err := r.ByEvent(eventID)
	reg, ok := firstActive(regs, func(reg *entities.EventRegistration) bool {
		return equalFold(reg.Email, email) && reg.Status != entities.RegistrationCancelled
	})
	return reg, ok, err
}

// MessageRepository adds queries over contact messages
type MessageRepository struct {
	*Repository[entities.ContactMessage]
}

// NewMessageRepository creates a contact message repository
func NewMessageRepository(st store.Store, opts ...Option) *MessageRepository {
	return &MessageRepository{New[entities.ContactMessage](st, entities.CollectionContactMessages, opts...)}
}

func messageStatus(m *entities.ContactMessage) string {
	if m.Status == "" {
		return entities.MessageNew
	}
	return m.Status
}

// ByStatus returns active messages with status; an unset status counts as new
func (r *MessageRepository) ByStatus(status string) ([]entities.ContactMessage, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(m *entities.ContactMessage) bool { return messageStatus(m) == status }), err
}

// Unread returns active messages still in the new status
func (r *MessageRepository) Unread() ([]entities.ContactMessage, error) {
	return r.ByStatus(entities.MessageNew)
}

// Recent returns active messages newest first, at most n (n <= 0 means all)
func (r *MessageRepository) Recent(n int) ([]entities.ContactMessage, error) {
	all, err := r.GetAll()
	out := activeWhere(all, nil)
	sortByTime(out, func(m *entities.ContactMessage) time.Time { return createdOrZero(&m.Base) }, true)
	return limit(out, n), err
}

// ByEmail returns active messages from email (case-insensitive)
func (r *MessageRepository) ByEmail(email string) ([]entities.ContactMessage, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(m *entities.ContactMessage) bool { return equalFold(m.Email, email) }), err
}

// CertificateRepository adds lookups over certificates
type CertificateRepository struct {
	*Repository[entities.Certificate]
}

// NewCertificateRepository creates a certificate repository
func NewCertificateRepository(st store.Store, opts ...Option) *CertificateRepository {
	return &CertificateRepository{New[entities.Certificate](st, entities.CollectionCertificates, opts...)}
}

// ByNumber returns the first active certificate with number. Numbers are
// compared after trimming and upper-casing.
func (r *CertificateRepository) ByNumber(number string) (entities.Certificate, bool, error) {
	all, err := r.GetAll()
	want := entities.NormalizeCertificateNumber(number)
	if want == "" {
		return entities.Certificate{}, false, err
	}
	c, ok := firstActive(all, func(c *entities.Certificate) bool {
		return entities.NormalizeCertificateNumber(c.CertificateNumber) == want
	})
	return c, ok, err
}

// ByStudentEmail returns active certificates issued to email
func (r *CertificateRepository) ByStudentEmail(email string) ([]entities.Certificate, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(c *entities.Certificate) bool { return equalFold(c.StudentEmail, email) }), err
}
