package repository

import (
	"slices"
	"strings"
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/store"
)

// CourseRepository adds catalog queries over courses
type CourseRepository struct {
	*Repository[entities.Course]
}

// NewCourseRepository creates a course repository
func NewCourseRepository(st store.Store, opts ...Option) *CourseRepository {
	return &CourseRepository{New[entities.Course](st, entities.CollectionCourses, opts...)}
}

// Active returns published, non-deleted courses
func (r *CourseRepository) Active() ([]entities.Course, error) {
	all, err := r.GetAll()
	return activeWhere(all, func(c *entities.Course) bool { return c.Published }), err
}

// ByCategory returns active courses in category (case-insensitive)
func (r *CourseRepository) ByCategory(category string) ([]entities.Course, error) {
	all, err := r.Active()
	return activeWhere(all, func(c *entities.Course) bool { return equalFold(c.Category, category) }), err
}

// ByLevel returns active courses at level (case-insensitive)
func (r *CourseRepository) ByLevel(level string) ([]entities.Course, error) {
	all, err := r.Active()
	return activeWhere(all, func(c *entities.Course) bool { return equalFold(c.Level, level) }), err
}

// Search matches term against title, description and category
func (r *CourseRepository) Search(term string) ([]entities.Course, error) {
	all, err := r.Active()
	term = strings.TrimSpace(term)
	if term == "" {
		return all, err
	}
	return activeWhere(all, func(c *entities.Course) bool {
		return containsFold(c.Title, term) || containsFold(c.Description, term) || containsFold(c.Category, term)
	}), err
}

// Categories returns the distinct categories of active courses, sorted
func (r *CourseRepository) Categories() ([]string, error) {
	all, err := r.Active()
	seen := make(map[string]bool)
	var out []string
	for _, c := range all {
		key := strings.ToLower(strings.TrimSpace(c.Category))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(c.Category))
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out, err
}

// BySlug returns the active course with slug
func (r *CourseRepository) BySlug(slug string) (entities.Course, bool, error) {
	all, err := r.Active()
	c, ok := firstActive(all, func(c *entities.Course) bool { return equalFold(c.Slug, slug) })
	return c, ok, err
}

// TrainingRepository adds schedule queries over trainings
type TrainingRepository struct {
	*Repository[entities.Training]
}

// NewTrainingRepository creates a training repository
func NewTrainingRepository(st store.Store, opts ...Option) *TrainingRepository {
	return &TrainingRepository{New[entities.Training](st, entities.CollectionTrainings, opts...)}
}

func trainingStart(t *entities.Training) time.Time { return t.StartDate }

// Upcoming returns trainings starting at or after now, soonest first
func (r *TrainingRepository) Upcoming(now time.Time) ([]entities.Training, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(t *entities.Training) bool { return !t.StartDate.Before(now) })
	sortByTime(out, trainingStart, false)
	return out, err
}

// Past returns trainings that started before now, most recent first
func (r *TrainingRepository) Past(now time.Time) ([]entities.Training, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(t *entities.Training) bool { return t.StartDate.Before(now) })
	sortByTime(out, trainingStart, true)
	return out, err
}

// ByCategory returns active trainings in category ordered by start date
func (r *TrainingRepository) ByCategory(category string) ([]entities.Training, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(t *entities.Training) bool { return equalFold(t.Category, category) })
	sortByTime(out, trainingStart, false)
	return out, err
}

// ByLevel returns active trainings at level ordered by start date
func (r *TrainingRepository) ByLevel(level string) ([]entities.Training, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(t *entities.Training) bool { return equalFold(t.Level, level) })
	sortByTime(out, trainingStart, false)
	return out, err
}

// EventRepository adds schedule queries over events
type EventRepository struct {
	*Repository[entities.Event]
}

// NewEventRepository creates an event repository
func NewEventRepository(st store.Store, opts ...Option) *EventRepository {
	return &EventRepository{New[entities.Event](st, entities.CollectionEvents, opts...)}
}

func eventStart(e *entities.Event) time.Time { return e.StartDate }

// Upcoming returns events that have not ended, soonest first
func (r *EventRepository) Upcoming(now time.Time) ([]entities.Event, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(e *entities.Event) bool { return !e.HasEnded(now) })
	sortByTime(out, eventStart, false)
	return out, err
}

// Past returns ended events, most recent first
func (r *EventRepository) Past(now time.Time) ([]entities.Event, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(e *entities.Event) bool { return e.HasEnded(now) })
	sortByTime(out, eventStart, true)
	return out, err
}

// ByCategory returns active events in category ordered by start date
func (r *EventRepository) ByCategory(category string) ([]entities.Event, error) {
	all, err := r.GetAll()
	out := activeWhere(all, func(e *entities.Event) bool { return equalFold(e.Category, category) })
	sortByTime(out, eventStart, false)
	return out, err
}

// OpenForRegistration returns upcoming events accepting registrations
func (r *EventRepository) OpenForRegistration(now time.Time) ([]entities.Event, error) {
	upcoming, err := r.Upcoming(now)
	return activeWhere(upcoming, func(e *entities.Event) bool { return e.RegistrationOpen }), err
}
