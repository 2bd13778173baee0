package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/entities"
)

func titles[T any](records []T, title func(*T) string) []string {
	out := make([]string, 0, len(records))
	for i := range records {
		out = append(out, title(&records[i]))
	}
	return out
}

func courseTitle(c *entities.Course) string { return c.Title }
func eventTitle(e *entities.Event) string   { return e.Title }

func TestCourseQueries(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repos := NewRepositories(st, clock(fixedNow))
	courses := []entities.Course{
		{Title: "Go Fundamentals", Slug: "go-fundamentals", Category: "Programming", Level: entities.LevelBeginner, Published: true},
		{Title: "Kubernetes Ops", Slug: "k8s-ops", Category: "Cloud", Level: entities.LevelAdvanced, Published: true, Description: "Run clusters"},
		{Title: "Draft", Slug: "draft", Category: "Cloud", Published: false},
		{Title: "Terraform", Slug: "terraform", Category: "cloud", Level: entities.LevelIntermediate, Published: true},
	}
	for _, c := range courses {
		_, err := repos.Courses.Add(c)
		require.NoError(t, err)
	}
	_, err := repos.Courses.Delete(4)
	require.NoError(t, err)

	active, err := repos.Courses.Active()
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Fundamentals", "Kubernetes Ops"}, titles(active, courseTitle))

	cloud, err := repos.Courses.ByCategory("CLOUD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes Ops"}, titles(cloud, courseTitle))

	beginners, err := repos.Courses.ByLevel("beginner")
	require.NoError(t, err)
	assert.Len(t, beginners, 1)

	found, err := repos.Courses.Search("clusters")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes Ops"}, titles(found, courseTitle))

	all, err := repos.Courses.Search("  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cats, err := repos.Courses.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Cloud", "Programming"}, cats)

	c, ok, err := repos.Courses.BySlug("GO-FUNDAMENTALS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, c.ID)

	_, ok, err = repos.Courses.BySlug("draft")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventSchedule(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repo := NewEventRepository(st)
	day := 24 * time.Hour
	ended := fixedNow.Add(-time.Hour)
	events := []entities.Event{
		{Title: "next month", StartDate: fixedNow.Add(30 * day), RegistrationOpen: true},
		{Title: "last week", StartDate: fixedNow.Add(-7 * day)},
		{Title: "tomorrow", StartDate: fixedNow.Add(day), RegistrationOpen: false},
		{Title: "yesterday", StartDate: fixedNow.Add(-day), EndDate: &ended},
		{Title: "deleted", StartDate: fixedNow.Add(2 * day)},
	}
	for _, e := range events {
		_, err := repo.Add(e)
		require.NoError(t, err)
	}
	_, err := repo.Delete(5)
	require.NoError(t, err)

	upcoming, err := repo.Upcoming(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"tomorrow", "next month"}, titles(upcoming, eventTitle))

	past, err := repo.Past(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"yesterday", "last week"}, titles(past, eventTitle))

	open, err := repo.OpenForRegistration(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"next month"}, titles(open, eventTitle))
}

func TestRegistrationQueries(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	now := fixedNow
	repo := NewRegistrationRepository(st, WithClock(func() time.Time { return now }))
	regs := []entities.EventRegistration{
		{EventID: 1, Email: "a@example.com", Status: entities.RegistrationConfirmed},
		{EventID: 1, Email: "b@example.com", Status: entities.RegistrationCancelled},
		{EventID: 2, Email: "A@example.com", Status: entities.RegistrationPending},
		{EventID: 1, Email: "c@example.com"},
	}
	for _, r := range regs {
		_, err := repo.Add(r)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}

	count, err := repo.CountForEvent(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, ok, err := repo.FindForEvent(1, "B@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "cancelled registrations do not block")

	reg, ok, err := repo.FindForEvent(1, " A@EXAMPLE.COM ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, reg.ID)

	byEmail, err := repo.ByEmail("a@example.com")
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	recent, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].ID)
	assert.Equal(t, 3, recent[1].ID)
}

func TestMessageStatusDefaultsToNew(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repo := NewMessageRepository(st)
	_, err := repo.Add(entities.ContactMessage{Name: "a"})
	require.NoError(t, err)
	_, err = repo.Add(entities.ContactMessage{Name: "b", Status: entities.MessageRead})
	require.NoError(t, err)

	unread, err := repo.Unread()
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "a", unread[0].Name)
}

func TestCertificateByNumber(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repo := NewCertificateRepository(st)
	_, err := repo.Add(entities.Certificate{CertificateNumber: "CERT-2024-001", StudentEmail: "s@example.com"})
	require.NoError(t, err)

	c, ok, err := repo.ByNumber(" cert-2024-001 ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CERT-2024-001", c.CertificateNumber)

	_, ok, err = repo.ByNumber("")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSingletonSave(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repo := NewSettingsRepository(st)

	_, ok, err := repo.Current()
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := repo.Save(entities.SystemSetting{SiteName: "Portal"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)

	second, err := repo.Save(entities.SystemSetting{SiteName: "Portal 2", ChatEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, 1, second.ID)

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Portal 2", all[0].SiteName)
	assert.True(t, all[0].ChatEnabled)
}

func TestImagesAndVideos(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repos := NewRepositories(st)
	images := []entities.WebsiteImage{
		{Section: "hero", URL: "/b.jpg", SortOrder: 2, Active: true},
		{Section: "hero", URL: "/a.jpg", SortOrder: 1, Active: true},
		{Section: "hero", URL: "/hidden.jpg", SortOrder: 0, Active: false},
		{Section: "footer", URL: "/f.jpg", Active: true},
	}
	for _, img := range images {
		_, err := repos.Images.Add(img)
		require.NoError(t, err)
	}

	hero, err := repos.Images.BySection("HERO")
	require.NoError(t, err)
	require.Len(t, hero, 2)
	assert.Equal(t, "/a.jpg", hero[0].URL)
	assert.Equal(t, "/b.jpg", hero[1].URL)

	_, ok, err := repos.Videos.Active()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repos.Videos.Add(entities.Video{Title: "old", URL: "/old", Active: true})
	require.NoError(t, err)
	_, err = repos.Videos.Add(entities.Video{Title: "new", URL: "/new", Active: true})
	require.NoError(t, err)
	_, err = repos.Videos.Delete(1)
	require.NoError(t, err)

	v, ok, err := repos.Videos.Active()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", v.Title)
}

func TestLeadQueries(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	repo := NewLeadRepository(st)
	for _, l := range []entities.LeadAuditLog{
		{SessionID: "s1", Source: entities.LeadSourceChat, Intent: "pricing"},
		{SessionID: "s2", Source: entities.LeadSourceChat, Intent: "schedule"},
		{SessionID: "s1", Source: entities.LeadSourceChat, Intent: "pricing"},
	} {
		_, err := repo.Add(l)
		require.NoError(t, err)
	}

	recent, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].ID)

	s1, err := repo.BySession("s1")
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, 3, s1[0].ID)
	assert.Equal(t, 1, s1[1].ID)

	pricing, err := repo.ByIntent("pricing")
	require.NoError(t, err)
	assert.Len(t, pricing, 2)
}
