package entities

import "time"

// Course levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Training delivery modes
const (
	ModeOnline    = "online"
	ModeClassroom = "classroom"
	ModeHybrid    = "hybrid"
)

// Course is a catalog entry
type Course struct {
	Base
	SoftDelete
	Title         string  `json:"title"`
	Slug          string  `json:"slug,omitempty"`
	Category      string  `json:"category,omitempty"`
	Level         string  `json:"level,omitempty"`
	Description   string  `json:"description,omitempty"` // may contain HTML
	DurationHours int     `json:"durationHours,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	Published     bool    `json:"published"`
}

func (c *Course) Validate() error {
	var v checker
	v.required("title", c.Title)
	v.maxLen("title", c.Title, 200)
	v.oneOf("level", c.Level, LevelBeginner, LevelIntermediate, LevelAdvanced)
	v.nonNegative("price", c.Price)
	if c.DurationHours < 0 {
		v.add("durationHours", "must not be negative")
	}
	return v.err()
}

// Training is a scheduled delivery of a course
type Training struct {
	Base
	SoftDelete
	Title      string     `json:"title"`
	CourseID   int        `json:"courseId,omitempty"`
	Category   string     `json:"category,omitempty"`
	Level      string     `json:"level,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Location   string     `json:"location,omitempty"`
	Instructor string     `json:"instructor,omitempty"`
	Seats      int        `json:"seats,omitempty"`
	Price      float64    `json:"price,omitempty"`
}

func (t *Training) Validate() error {
	var v checker
	v.required("title", t.Title)
	v.oneOf("level", t.Level, LevelBeginner, LevelIntermediate, LevelAdvanced)
	v.oneOf("mode", t.Mode, ModeOnline, ModeClassroom, ModeHybrid)
	if t.StartDate.IsZero() {
		v.add("startDate", "is required")
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		v.add("endDate", "must not be before startDate")
	}
	v.nonNegative("price", t.Price)
	return v.err()
}

// Event is a webinar, meetup or open day
type Event struct {
	Base
	SoftDelete
	Title            string     `json:"title"`
	Category         string     `json:"category,omitempty"`
	Description      string     `json:"description,omitempty"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Location         string     `json:"location,omitempty"`
	Capacity         int        `json:"capacity,omitempty"` // 0 means unlimited
	RegistrationOpen bool       `json:"registrationOpen"`
	ImageURL         string     `json:"imageUrl,omitempty"`
}

func (e *Event) Validate() error {
	var v checker
	v.required("title", e.Title)
	if e.StartDate.IsZero() {
		v.add("startDate", "is required")
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		v.add("endDate", "must not be before startDate")
	}
	if e.Capacity < 0 {
		v.add("capacity", "must not be negative")
	}
	return v.err()
}

// HasEnded reports whether the event is over at now
func (e *Event) HasEnded(now time.Time) bool {
	if e.EndDate != nil {
		return e.EndDate.Before(now)
	}
	return e.StartDate.Before(now)
}
