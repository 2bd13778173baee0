package repository

import "github.com/learnforge/trainingportal/internal/store"

// Repositories bundles one repository per collection. Build it once at
// startup and share it; two bundles over the same store can lose updates.
type Repositories struct {
	Courses       *CourseRepository
	Trainings     *TrainingRepository
	Events        *EventRepository
	Registrations *RegistrationRepository
	Messages      *MessageRepository
	Certificates  *CertificateRepository
	Profiles      *ProfileRepository
	Settings      *SettingsRepository
	Images        *ImageRepository
	Videos        *VideoRepository
	Leads         *LeadRepository
}

// NewRepositories creates every repository over st
func NewRepositories(st store.Store, opts ...Option) *Repositories {
	return &Repositories{
		Courses:       NewCourseRepository(st, opts...),
		Trainings:     NewTrainingRepository(st, opts...),
		Events:        NewEventRepository(st, opts...),
		Registrations: NewRegistrationRepository(st, opts...),
		Messages:      NewMessageRepository(st, opts...),
		Certificates:  NewCertificateRepository(st, opts...),
		Profiles:      NewProfileRepository(st, opts...),
		Settings:      NewSettingsRepository(st, opts...),
		Images:        NewImageRepository(st, opts...),
		Videos:        NewVideoRepository(st, opts...),
		Leads:         NewLeadRepository(st, opts...),
	}
}
