package entities

// Collection names; each maps to <name>.json in the data directory
const (
	CollectionCourses            = "courses"
	CollectionTrainings          = "trainings"
	CollectionEvents             = "events"
	CollectionEventRegistrations = "event-registrations"
	CollectionContactMessages    = "contact-messages"
	CollectionCertificates       = "certificates"
	CollectionProfiles           = "profiles"
	CollectionWebsiteImages      = "website-images"
	CollectionSystemSettings     = "system-settings"
	CollectionVideos             = "videos"
	CollectionLeadAuditLogs      = "lead-audit-logs"
)

// AllCollections lists every collection, in backup and seed order
func AllCollections() []string {
	return []string{
		CollectionCourses,
		CollectionTrainings,
		CollectionEvents,
		CollectionEventRegistrations,
		CollectionContactMessages,
		CollectionCertificates,
		CollectionProfiles,
		CollectionWebsiteImages,
		CollectionSystemSettings,
		CollectionVideos,
		CollectionLeadAuditLogs,
	}
}
