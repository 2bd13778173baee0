package repository

import (
	"cmp"
	"slices"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/store"
)

// ProfileRepository holds the company profile
type ProfileRepository struct {
	*Repository[entities.Profile]
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(st store.Store, opts ...Option) *ProfileRepository {
	return &ProfileRepository{New[entities.Profile](st, entities.CollectionProfiles, opts...)}
}

// Current returns the first profile. Only one is expected; extras are ignored.
func (r *ProfileRepository) Current() (entities.Profile, bool, error) {
	all, err := r.GetAll()
	p, ok := firstActive(all, nil)
	return p, ok, err
}

// Save updates the current profile in place, or adds p when none exists
func (r *ProfileRepository) Save(p entities.Profile) (entities.Profile, error) {
	current, ok, err := r.Current()
	if err != nil {
		return p, err
	}
	if !ok {
		return r.Add(p)
	}
	p.ID = current.ID
	return r.Update(p)
}

// SettingsRepository holds the site-wide settings record
type SettingsRepository struct {
	*Repository[entities.SystemSetting]
}

// NewSettingsRepository creates a settings repository
func NewSettingsRepository(st store.Store, opts ...Option) *SettingsRepository {
	return &SettingsRepository{New[entities.SystemSetting](st, entities.CollectionSystemSettings, opts...)}
}

// Current returns the first settings record
func (r *SettingsRepository) Current() (entities.SystemSetting, bool, error) {
	all, err := r.GetAll()
	s, ok := firstActive(all, nil)
	return s, ok, err
}

// Save updates the current settings in place, or adds s when none exist
func (r *SettingsRepository) Save(s entities.SystemSetting) (entities.SystemSetting, error) {
	current, ok, err := r.Current()
	if err != nil {
		return s, err
	}
	if !ok {
		return r.Add(s)
	}
	s.ID = current.ID
	return r.Update(s)
}

// VideoRepository holds promotional videos
type VideoRepository struct {
	*Repository[entities.Video]
}

// NewVideoRepository creates a video repository
func NewVideoRepository(st store.Store, opts ...Option) *VideoRepository {
	return &VideoRepository{New[entities.Video](st, entities.CollectionVideos, opts...)}
}

// Active returns the first non-deleted video flagged active
func (r *VideoRepository) Active() (entities.Video, bool, error) {
	all, err := r.GetAll()
	v, ok := firstActive(all, func(v *entities.Video) bool { return v.Active })
	return v, ok, err
}

// ImageRepository holds website images
type ImageRepository struct {
	*Repository[entities.WebsiteImage]
}

// NewImageRepository creates a website image repository
func NewImageRepository(st store.Store, opts ...Option) *ImageRepository {
	return &ImageRepository{New[entities.WebsiteImage](st, entities.CollectionWebsiteImages, opts...)}
}

func sortImages(images []entities.WebsiteImage) {
	slices.SortStableFunc(images, func(a, b entities.WebsiteImage) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Active returns non-deleted images flagged active, in sort order
func (r *ImageRepository) Active() ([]entities.WebsiteImage, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(w *entities.WebsiteImage) bool { return w.Active })
	sortImages(out)
	return out, err
}

// BySection returns active images of section, in sort order
func (r *ImageRepository) BySection(section string) ([]entities.WebsiteImage, error) {
	all, err := r.Active()
	return activeWhere(all, func(w *entities.WebsiteImage) bool { return equalFold(w.Section, section) }), err
}

// LeadRepository holds the lead audit trail
type LeadRepository struct {
	*Repository[entities.LeadAuditLog]
}

// NewLeadRepository creates a lead audit log repository
func NewLeadRepository(st store.Store, opts ...Option) *LeadRepository {
	return &LeadRepository{New[entities.LeadAuditLog](st, entities.CollectionLeadAuditLogs, opts...)}
}

// Recent returns the newest n entries by id (n <= 0 means all)
func (r *LeadRepository) Recent(n int) ([]entities.LeadAuditLog, error) {
	all, err := r.GetAll()
	sortByIDDesc(all)
	return limit(all, n), err
}

// BySession returns entries for a chat session, newest first
func (r *LeadRepository) BySession(sessionID string) ([]entities.LeadAuditLog, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(l *entities.LeadAuditLog) bool { return l.SessionID == sessionID })
	sortByIDDesc(out)
	return out, err
}

// ByIntent returns entries with intent, newest first
func (r *LeadRepository) ByIntent(intent string) ([]entities.LeadAuditLog, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(l *entities.LeadAuditLog) bool { return l.Intent == intent })
	sortByIDDesc(out)
	return out, err
}
