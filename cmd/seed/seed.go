// Package seed provides the seed command, which writes a sample catalog
// into the configured store.
package seed

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/store/backend"
)

// ErrNotEmpty is returned when the store already holds courses
var ErrNotEmpty = errors.NewStd("store already contains courses, use --force to seed anyway")

// Summary counts the records written by Run
type Summary struct {
	Courses      int
	Trainings    int
	Events       int
	Certificates int
	Images       int
}

// Command creates and returns the seed command
func Command(settings *conf.Settings) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a sample catalog into the configured store",
		Long: `Seed fills an empty store with sample courses, trainings, events,
certificates, the company profile and site settings. Dates are relative to
today so upcoming and past listings both have content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := backend.Open(&settings.Storage, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			sum, err := Run(repository.NewRepositories(st), time.Now(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d courses, %d trainings, %d events, %d certificates and %d images\n",
				sum.Courses, sum.Trainings, sum.Events, sum.Certificates, sum.Images)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Seed even when courses already exist")
	return cmd
}

// Run writes the sample data. It refuses a store that already has active
// courses unless force is set.
func Run(repos *repository.Repositories, now time.Time, force bool) (Summary, error) {
	var sum Summary

	existing, err := repos.Courses.Active()
	if err != nil {
		return sum, err
	}
	if len(existing) > 0 && !force {
		return sum, ErrNotEmpty
	}

	day := func(n int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()).AddDate(0, 0, n)
	}
	ptr := func(t time.Time) *time.Time { return &t }

	courseIDs := map[string]int{}
	for _, c := range sampleCourses() {
		saved, err := repos.Courses.Add(c)
		if err != nil {
			return sum, err
		}
		courseIDs[saved.Slug] = saved.ID
		sum.Courses++
	}

	trainings := []entities.Training{
		{Title: "Go Fundamentals (spring cohort)", CourseID: courseIDs["go-fundamentals"], Category: "Programming", Level: entities.LevelBeginner,
			Mode: entities.ModeOnline, StartDate: day(14), EndDate: ptr(day(18)), Instructor: "R. Pike", Seats: 20, Price: 890},
		{Title: "Kubernetes Operations", CourseID: courseIDs["kubernetes-operations"], Category: "Cloud", Level: entities.LevelIntermediate,
			Mode: entities.ModeClassroom, StartDate: day(30), EndDate: ptr(day(32)), Location: "Helsinki", Instructor: "K. Hightower", Seats: 12, Price: 1450},
		{Title: "Data Analysis with SQL", CourseID: courseIDs["sql-data-analysis"], Category: "Data", Level: entities.LevelBeginner,
			Mode: entities.ModeHybrid, StartDate: day(-40), EndDate: ptr(day(-38)), Location: "Tampere", Seats: 16, Price: 690},
	}
	for _, t := range trainings {
		if _, err := repos.Trainings.Add(t); err != nil {
			return sum, err
		}
		sum.Trainings++
	}

	events := []entities.Event{
		{Title: "Open Day", Category: "Open day", Description: "Meet the trainers and tour the classrooms.",
			StartDate: day(10), EndDate: ptr(day(10).Add(4 * time.Hour)), Location: "Helsinki campus", Capacity: 60, RegistrationOpen: true},
		{Title: "Webinar: Getting Started with Go", Category: "Webinar",
			StartDate: day(5), Location: "Online", RegistrationOpen: true},
		{Title: "Cloud Careers Meetup", Category: "Meetup",
			StartDate: day(-20), Location: "Espoo", Capacity: 40},
	}
	for _, e := range events {
		if _, err := repos.Events.Add(e); err != nil {
			return sum, err
		}
		sum.Events++
	}

	certificates := []entities.Certificate{
		{CertificateNumber: "TP-2024-0001", StudentName: "Ada Lovelace", StudentEmail: "ada@example.com",
			CourseTitle: "Go Fundamentals", IssueDate: day(-200), ExpiryDate: ptr(day(530)), Status: entities.CertificateValid},
		{CertificateNumber: "TP-2023-0042", StudentName: "Alan Turing", CourseTitle: "Data Analysis with SQL",
			IssueDate: day(-800), ExpiryDate: ptr(day(-70)), Status: entities.CertificateValid},
		{CertificateNumber: "TP-2024-0013", StudentName: "Grace Hopper", CourseTitle: "Kubernetes Operations",
			IssueDate: day(-100), Status: entities.CertificateRevoked},
	}
	for _, c := range certificates {
		if _, err := repos.Certificates.Add(c); err != nil {
			return sum, err
		}
		sum.Certificates++
	}

	images := []entities.WebsiteImage{
		{Section: "hero", Title: "Classroom", URL: "/images/hero-classroom.jpg", AltText: "Students in a classroom", SortOrder: 1, Active: true},
		{Section: "hero", Title: "Online", URL: "/images/hero-online.jpg", AltText: "Online training session", SortOrder: 2, Active: true},
		{Section: "partners", Title: "Partner logo", URL: "/images/partner.png", SortOrder: 1, Active: true},
	}
	for _, img := range images {
		if _, err := repos.Images.Add(img); err != nil {
			return sum, err
		}
		sum.Images++
	}

	if _, err := repos.Videos.Add(entities.Video{Title: "Why train with us", URL: "https://videos.example.com/intro.mp4", Active: true}); err != nil {
		return sum, err
	}
	if _, err := repos.Profiles.Save(entities.Profile{
		CompanyName: "LearnForge Academy",
		Tagline:     "Practical training for working engineers",
		Email:       "hello@learnforge.example",
		Phone:       "+358 40 123 4567",
		Address:     "Esplanadi 1, Helsinki",
		Social:      map[string]string{"linkedin": "https://www.linkedin.com/company/learnforge"},
	}); err != nil {
		return sum, err
	}
	if _, err := repos.Settings.Save(entities.SystemSetting{
		SiteName:     "LearnForge Academy",
		ContactEmail: "hello@learnforge.example",
		ChatEnabled:  true,
	}); err != nil {
		return sum, err
	}

	logger.Global().Module("seed").Info("sample data written",
		logger.Int("courses", sum.Courses),
		logger.Int("trainings", sum.Trainings),
		logger.Int("events", sum.Events))
	return sum, nil
}

func sampleCourses() []entities.Course {
	return []entities.Course{
		{Title: "Go Fundamentals", Slug: "go-fundamentals", Category: "Programming", Level: entities.LevelBeginner,
			Description: "<p>Types, interfaces, goroutines and the standard library.</p>", DurationHours: 32, Price: 890, Currency: "EUR", Published: true},
		{Title: "Kubernetes Operations", Slug: "kubernetes-operations", Category: "Cloud", Level: entities.LevelIntermediate,
			Description: "<p>Run, observe and upgrade production clusters.</p>", DurationHours: 24, Price: 1450, Currency: "EUR", Published: true},
		{Title: "Data Analysis with SQL", Slug: "sql-data-analysis", Category: "Data", Level: entities.LevelBeginner,
			Description: "<p>From SELECT to window functions.</p>", DurationHours: 16, Price: 690, Currency: "EUR", Published: true},
		{Title: "Secure Web Development", Slug: "secure-web-development", Category: "Security", Level: entities.LevelAdvanced,
			Description: "<p>Threat modelling and the OWASP Top 10 in practice.</p>", DurationHours: 24, Price: 1290, Currency: "EUR", Published: false},
	}
}
