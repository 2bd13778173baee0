package security

import "time"

const (
	// SessionName is the admin session cookie
	SessionName = "trainingportal_admin"

	sessionKeyUser     = "user"
	sessionKeyIssuedAt = "issued_at"

	DefaultSessionMaxAge = 8 * time.Hour

	MinSessionSecretLength = 32

	// BcryptCost is used by HashPassword; stored hashes keep their own cost
	BcryptCost = 12

	// bcrypt ignores input beyond 72 bytes
	maxPasswordBytes = 72
)
