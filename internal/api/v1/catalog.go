package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
)

func (c *Controller) initCatalogRoutes() {
	c.Group.GET("/courses", c.ListCourses)
	c.Group.GET("/courses/categories", c.ListCourseCategories)
	c.Group.GET("/courses/:id", c.GetCourse)

	c.Group.GET("/trainings", c.ListUpcomingTrainings)
	c.Group.GET("/trainings/past", c.ListPastTrainings)

	c.Group.GET("/events", c.ListUpcomingEvents)
	c.Group.GET("/events/past", c.ListPastEvents)
	c.Group.GET("/events/:id", c.GetEvent)
}

// degraded logs a failed public read. The handler still answers with
// whatever the repository returned, which is an empty list on failure.
func (c *Controller) degraded(ctx echo.Context, err error, what string) {
	if err == nil {
		return
	}
	c.log.Warn("serving degraded response",
		logger.String("resource", what),
		logger.String("path", ctx.Request().URL.Path),
		logger.Error(err))
}

// ListCourses handles GET /api/courses. Optional filters: q, category, level.
func (c *Controller) ListCourses(ctx echo.Context) error {
	var (
		courses []entities.Course
		err     error
	)
	q := strings.TrimSpace(ctx.QueryParam("q"))
	category := strings.TrimSpace(ctx.QueryParam("category"))
	level := strings.TrimSpace(ctx.QueryParam("level"))

	switch {
	case q != "":
		courses, err = c.Repos.Courses.Search(q)
	case category != "":
		courses, err = c.Repos.Courses.ByCategory(category)
	default:
		courses, err = c.Repos.Courses.Active()
	}
	c.degraded(ctx, err, "courses")

	// search and category can be narrowed further
	if category != "" && q != "" {
		courses = filter(courses, func(co *entities.Course) bool { return strings.EqualFold(co.Category, category) })
	}
	if level != "" {
		courses = filter(courses, func(co *entities.Course) bool { return strings.EqualFold(co.Level, level) })
	}
	return ctx.JSON(http.StatusOK, courses)
}

// ListCourseCategories handles GET /api/courses/categories
func (c *Controller) ListCourseCategories(ctx echo.Context) error {
	categories, err := c.Repos.Courses.Categories()
	c.degraded(ctx, err, "course categories")
	if categories == nil {
		categories = []string{}
	}
	return ctx.JSON(http.StatusOK, categories)
}

// GetCourse handles GET /api/courses/:id. Unpublished and deleted courses
// are not found.
func (c *Controller) GetCourse(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid course id", http.StatusBadRequest)
	}
	course, ok, err := c.Repos.Courses.GetByID(id)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load course")
	}
	if !ok || !entities.IsActive(course) || !course.Published {
		return c.notFound(ctx, "Course")
	}
	return ctx.JSON(http.StatusOK, course)
}

// ListUpcomingTrainings handles GET /api/trainings. Optional filters:
// category, level.
func (c *Controller) ListUpcomingTrainings(ctx echo.Context) error {
	trainings, err := c.Repos.Trainings.Upcoming(c.now())
	c.degraded(ctx, err, "trainings")
	return ctx.JSON(http.StatusOK, filterTrainings(ctx, trainings))
}

// ListPastTrainings handles GET /api/trainings/past
func (c *Controller) ListPastTrainings(ctx echo.Context) error {
	trainings, err := c.Repos.Trainings.Past(c.now())
	c.degraded(ctx, err, "trainings")
	return ctx.JSON(http.StatusOK, filterTrainings(ctx, trainings))
}

func filterTrainings(ctx echo.Context, trainings []entities.Training) []entities.Training {
	if category := strings.TrimSpace(ctx.QueryParam("category")); category != "" {
		trainings = filter(trainings, func(t *entities.Training) bool { return strings.EqualFold(t.Category, category) })
	}
	if level := strings.TrimSpace(ctx.QueryParam("level")); level != "" {
		trainings = filter(trainings, func(t *entities.Training) bool { return strings.EqualFold(t.Level, level) })
	}
	return trainings
}

// ListUpcomingEvents handles GET /api/events. ?category= narrows the list.
func (c *Controller) ListUpcomingEvents(ctx echo.Context) error {
	events, err := c.Repos.Events.Upcoming(c.now())
	c.degraded(ctx, err, "events")
	if category := strings.TrimSpace(ctx.QueryParam("category")); category != "" {
		events = filter(events, func(e *entities.Event) bool { return strings.EqualFold(e.Category, category) })
	}
	return ctx.JSON(http.StatusOK, events)
}

// ListPastEvents handles GET /api/events/past
func (c *Controller) ListPastEvents(ctx echo.Context) error {
	events, err := c.Repos.Events.Past(c.now())
	c.degraded(ctx, err, "events")
	return ctx.JSON(http.StatusOK, events)
}

// EventDetail is an event with its live registration state
type EventDetail struct {
	entities.Event
	Registered     int  `json:"registered"`
	SeatsLeft      *int `json:"seatsLeft,omitempty"`
	AcceptsSignups bool `json:"acceptsSignups"`
}

// GetEvent handles GET /api/events/:id
func (c *Controller) GetEvent(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid event id", http.StatusBadRequest)
	}
	event, ok, err := c.Repos.Events.GetByID(id)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load event")
	}
	if !ok || !entities.IsActive(event) {
		return c.notFound(ctx, "Event")
	}

	registered, err := c.Repos.Registrations.CountForEvent(id)
	c.degraded(ctx, err, "registrations")

	detail := EventDetail{Event: event, Registered: registered}
	if event.Capacity > 0 {
		left := max(event.Capacity-registered, 0)
		detail.SeatsLeft = &left
	}
	detail.AcceptsSignups = registrationClosedReason(&event, registered, c.now()) == ""
	return ctx.JSON(http.StatusOK, detail)
}

// filter returns the records keep accepts, never nil
func filter[T any](records []T, keep func(*T) bool) []T {
	out := make([]T, 0, len(records))
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
