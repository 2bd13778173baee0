package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/chat"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/notification"
)

func seedCourses(t *testing.T, env *testEnv) {
	t.Helper()
	courses := []entities.Course{
		{Title: "Go Fundamentals", Category: "Programming", Level: entities.LevelBeginner, Published: true},
		{Title: "Draft course", Category: "Drafts", Published: false},
		{Title: "Retired Kubernetes", Category: "Cloud", Published: true},
		{Title: "Azure Administrator", Category: "cloud", Level: entities.LevelIntermediate, Published: true},
	}
	for _, c := range courses {
		_, err := env.repos.Courses.Add(c)
		require.NoError(t, err)
	}
	found, err := env.repos.Courses.Delete(3)
	require.NoError(t, err)
	require.True(t, found)
}

func TestListCoursesHidesDraftsAndDeleted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedCourses(t, env)

	rec := env.get(t, "/api/courses")
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decode[[]entities.Course](t, rec)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go Fundamentals", courses[0].Title)
	assert.Equal(t, "Azure Administrator", courses[1].Title)

	byCategory := decode[[]entities.Course](t, env.get(t, "/api/courses?category=CLOUD"))
	require.Len(t, byCategory, 1)
	assert.Equal(t, 4, byCategory[0].ID)

	byLevel := decode[[]entities.Course](t, env.get(t, "/api/courses?level=beginner"))
	require.Len(t, byLevel, 1)
	assert.Equal(t, 1, byLevel[0].ID)

	search := decode[[]entities.Course](t, env.get(t, "/api/courses?q=azure"))
	require.Len(t, search, 1)

	categories := decode[[]string](t, env.get(t, "/api/courses/categories"))
	assert.Equal(t, []string{"cloud", "Programming"}, categories)
}

func TestGetCourse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedCourses(t, env)

	rec := env.get(t, "/api/courses/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go Fundamentals", decode[entities.Course](t, rec).Title)

	for _, path := range []string{"/api/courses/2", "/api/courses/3", "/api/courses/99"} {
		rec := env.get(t, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, http.StatusNotFound, body.Code)
		assert.NotEmpty(t, body.CorrelationID)
	}

	rec = env.get(t, "/api/courses/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrainingsUpcomingAndPast(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, tr := range []entities.Training{
		{Title: "Later", StartDate: fixedNow.Add(72 * time.Hour), Category: "Cloud"},
		{Title: "Soon", StartDate: fixedNow.Add(24 * time.Hour), Category: "Security"},
		{Title: "Last month", StartDate: fixedNow.AddDate(0, -1, 0)},
		{Title: "Last week", StartDate: fixedNow.AddDate(0, 0, -7)},
	} {
		_, err := env.repos.Trainings.Add(tr)
		require.NoError(t, err)
	}

	upcoming := decode[[]entities.Training](t, env.get(t, "/api/trainings"))
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Soon", upcoming[0].Title)
	assert.Equal(t, "Later", upcoming[1].Title)

	filtered := decode[[]entities.Training](t, env.get(t, "/api/trainings?category=cloud"))
	require.Len(t, filtered, 1)
	assert.Equal(t, "Later", filtered[0].Title)

	past := decode[[]entities.Training](t, env.get(t, "/api/trainings/past"))
	require.Len(t, past, 2)
	assert.Equal(t, "Last week", past[0].Title)
	assert.Equal(t, "Last month", past[1].Title)
}

func TestEventDetailReportsSeats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.repos.Events.Add(entities.Event{
		Title: "Open day", StartDate: fixedNow.Add(48 * time.Hour), Capacity: 3, RegistrationOpen: true,
	})
	require.NoError(t, err)
	_, err = env.repos.Registrations.Add(entities.EventRegistration{EventID: 1, FullName: "A", Email: "a@example.com", Status: entities.RegistrationConfirmed})
	require.NoError(t, err)
	_, err = env.repos.Registrations.Add(entities.EventRegistration{EventID: 1, FullName: "B", Email: "b@example.com", Status: entities.RegistrationCancelled})
	require.NoError(t, err)

	detail := decode[EventDetail](t, env.get(t, "/api/events/1"))
	assert.Equal(t, "Open day", detail.Title)
	assert.Equal(t, 1, detail.Registered)
	require.NotNil(t, detail.SeatsLeft)
	assert.Equal(t, 2, *detail.SeatsLeft)
	assert.True(t, detail.AcceptsSignups)

	upcoming := decode[[]entities.Event](t, env.get(t, "/api/events"))
	assert.Len(t, upcoming, 1)
	assert.Empty(t, decode[[]entities.Event](t, env.get(t, "/api/events/past")))
}

func addOpenEvent(t *testing.T, env *testEnv, capacity int) entities.Event {
	t.Helper()
	ev, err := env.repos.Events.Add(entities.Event{
		Title:            "Cloud Summit",
		StartDate:        fixedNow.Add(7 * 24 * time.Hour),
		Capacity:         capacity,
		RegistrationOpen: true,
	})
	require.NoError(t, err)
	return ev
}

func TestRegisterForEvent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ev := addOpenEvent(t, env, 2)

	rec := env.post(t, "/api/events/register", RegistrationRequest{EventID: ev.ID, FullName: " Ada Lovelace ", Email: "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[RegistrationResponse](t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Registration)
	assert.Equal(t, 1, resp.Registration.ID)
	assert.Equal(t, "Ada Lovelace", resp.Registration.FullName)
	assert.Equal(t, entities.RegistrationPending, resp.Registration.Status)
	assert.Contains(t, resp.Message, "Cloud Summit")

	rec = env.post(t, "/api/events/register", RegistrationRequest{EventID: ev.ID, FullName: "Ada", Email: "ADA@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Message, "already registered")

	rec = env.post(t, "/api/events/register", RegistrationRequest{EventID: ev.ID, FullName: "Bob", Email: "bob@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.post(t, "/api/events/register", RegistrationRequest{EventID: ev.ID, FullName: "Carol", Email: "carol@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, reasonFull, decode[ErrorResponse](t, rec).Message)

	count, err := env.repos.Registrations.CountForEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	leads := env.leads.all()
	require.Len(t, leads, 2)
	assert.Equal(t, entities.LeadSourceRegistration, leads[0].Source)
	assert.Equal(t, "ada@example.com", leads[0].Email)
	assert.Equal(t, []notification.Kind{notification.KindRegistration, notification.KindRegistration}, env.notifier.kinds())
}

func TestRegisterRefusals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	closed, err := env.repos.Events.Add(entities.Event{Title: "Closed", StartDate: fixedNow.Add(time.Hour)})
	require.NoError(t, err)
	past, err := env.repos.Events.Add(entities.Event{Title: "Past", StartDate: fixedNow.Add(-time.Hour), RegistrationOpen: true})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     RegistrationRequest
		code    int
		message string
	}{
		{"closed event", RegistrationRequest{EventID: closed.ID, FullName: "X", Email: "x@example.com"}, http.StatusConflict, reasonClosed},
		{"past event", RegistrationRequest{EventID: past.ID, FullName: "X", Email: "x@example.com"}, http.StatusConflict, reasonEnded},
		{"unknown event", RegistrationRequest{EventID: 42, FullName: "X", Email: "x@example.com"}, http.StatusNotFound, "Event not found"},
		{"invalid email", RegistrationRequest{EventID: closed.ID, FullName: "X", Email: "not-an-email"}, http.StatusBadRequest, "Please check the registration form"},
		{"missing event", RegistrationRequest{FullName: "X", Email: "x@example.com"}, http.StatusBadRequest, "Please check the registration form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.post(t, "/api/events/register", tt.req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, decode[ErrorResponse](t, rec).Message)
		})
	}

	rec := env.post(t, "/api/events/register", RegistrationRequest{EventID: closed.ID, FullName: "", Email: "bad"})
	body := decode[ErrorResponse](t, rec)
	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"fullName", "email"}, fields)

	assert.Empty(t, env.leads.all())
}

func TestSubmitContact(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.post(t, "/api/contact", ContactRequest{
		Name: "Grace", Email: "grace@example.com", Subject: "Team training", Message: "Do you offer on-site courses?", EventID: ptr(7),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[ContactResponse](t, rec).ID)

	stored, ok, err := env.repos.Messages.GetByID(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entities.MessageNew, stored.Status)
	assert.Equal(t, "192.0.2.1", stored.ClientIP)
	require.NotNil(t, stored.EventID)
	assert.Equal(t, 7, *stored.EventID)
	require.NotNil(t, stored.CreatedAt)
	assert.True(t, stored.CreatedAt.Equal(fixedNow))

	leads := env.leads.all()
	require.Len(t, leads, 1)
	assert.Equal(t, entities.LeadSourceContact, leads[0].Source)
	assert.Equal(t, "192.0.2.1", leads[0].ClientIP)
	assert.Equal(t, []notification.Kind{notification.KindContactMessage}, env.notifier.kinds())

	rec = env.post(t, "/api/contact", ContactRequest{Name: "Grace", Email: "grace@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, env.leads.all(), 1)
}

func TestVerifyCertificate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	issued := fixedNow.AddDate(-1, 0, 0)
	expired := fixedNow.AddDate(0, -1, 0)
	for _, c := range []entities.Certificate{
		{CertificateNumber: "TP-2024-001", StudentName: "Ada", CourseTitle: "Go", IssueDate: issued, Status: entities.CertificateValid},
		{CertificateNumber: "TP-2024-002", StudentName: "Bob", CourseTitle: "Go", IssueDate: issued, Status: entities.CertificateRevoked},
		{CertificateNumber: "TP-2024-003", StudentName: "Eve", CourseTitle: "Go", IssueDate: issued, ExpiryDate: &expired},
	} {
		_, err := env.repos.Certificates.Add(c)
		require.NoError(t, err)
	}

	resp := decode[VerifyResponse](t, env.get(t, "/api/verify/check?number=+tp-2024-001+"))
	assert.True(t, resp.Found)
	assert.True(t, resp.Valid)
	require.NotNil(t, resp.Certificate)
	assert.Equal(t, "Ada", resp.Certificate.StudentName)

	resp = decode[VerifyResponse](t, env.post(t, "/api/verify/check", VerifyRequest{CertificateNumber: "TP-2024-002"}))
	assert.True(t, resp.Found)
	assert.False(t, resp.Valid)
	assert.Equal(t, entities.CertificateRevoked, resp.Status)

	resp = decode[VerifyResponse](t, env.get(t, "/api/verify/check?number=TP-2024-003"))
	assert.Equal(t, entities.CertificateExpired, resp.Status)

	rec := env.get(t, "/api/verify/check?number=NOPE")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[VerifyResponse](t, rec)
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Certificate)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/verify/check").Code)
}

func TestSiteContent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/profile").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/video").Code)

	settings := decode[PublicSettings](t, env.get(t, "/api/settings"))
	assert.Equal(t, "Test Academy", settings.SiteName)
	assert.False(t, settings.ChatEnabled)

	_, err := env.repos.Profiles.Save(entities.Profile{CompanyName: "LearnForge"})
	require.NoError(t, err)
	_, err = env.repos.Videos.Add(entities.Video{Title: "Old", URL: "https://v/1", Active: false})
	require.NoError(t, err)
	_, err = env.repos.Videos.Add(entities.Video{Title: "Intro", URL: "https://v/2", Active: true})
	require.NoError(t, err)
	for _, img := range []entities.WebsiteImage{
		{Section: "hero", URL: "/b.jpg", SortOrder: 2, Active: true},
		{Section: "hero", URL: "/a.jpg", SortOrder: 1, Active: true},
		{Section: "footer", URL: "/f.jpg", Active: true},
		{Section: "hero", URL: "/hidden.jpg", Active: false},
	} {
		_, err := env.repos.Images.Add(img)
		require.NoError(t, err)
	}

	assert.Equal(t, "LearnForge", decode[entities.Profile](t, env.get(t, "/api/profile")).CompanyName)
	assert.Equal(t, "Intro", decode[entities.Video](t, env.get(t, "/api/video")).Title)

	hero := decode[[]entities.WebsiteImage](t, env.get(t, "/api/images?section=hero"))
	require.Len(t, hero, 2)
	assert.Equal(t, "/a.jpg", hero[0].URL)
	assert.Len(t, decode[[]entities.WebsiteImage](t, env.get(t, "/api/images")), 3)
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("disabled without handler", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/chat", chat.Request{Message: "hi"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("forwards message and client ip", func(t *testing.T) {
		fc := &fakeChat{}
		env := newTestEnv(t, withChat(fc))
		rec := env.do(t, request{
			method:  http.MethodPost,
			path:    "/api/chat",
			body:    chat.Request{Message: "Which course first?", SessionID: "s-1"},
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[chat.Response](t, rec)
		assert.Equal(t, "echo: Which course first?", resp.Reply)
		assert.Equal(t, "203.0.113.9", fc.lastIP)
		assert.Equal(t, "s-1", fc.lastReq.SessionID)

		assert.True(t, decode[PublicSettings](t, env.get(t, "/api/settings")).ChatEnabled)
	})

	t.Run("switched off in settings", func(t *testing.T) {
		env := newTestEnv(t, withChat(&fakeChat{}))
		_, err := env.repos.Settings.Save(entities.SystemSetting{SiteName: "Test", ChatEnabled: false})
		require.NoError(t, err)
		rec := env.post(t, "/api/chat", chat.Request{Message: "hi"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
