// Package entities defines the persisted record shapes and the capability
// interfaces the generic repository discovers on them.
package entities

import "time"

// Identified records expose their identifier
type Identified interface {
	RecordID() int
}

// IDAssignable records accept a repository-assigned identifier
type IDAssignable interface {
	SetRecordID(id int)
}

// SoftDeletable records are flagged instead of removed on delete
type SoftDeletable interface {
	IsSoftDeleted() bool
	MarkSoftDeleted()
}

// CreateStamped records carry a creation time set by the repository
type CreateStamped interface {
	StampCreated(t time.Time)
}

// CreateTimed records expose their creation time so updates can keep it
type CreateTimed interface {
	CreatedTime() (time.Time, bool)
}

// UpdateStamped records carry a last-update time set by the repository
type UpdateStamped interface {
	StampUpdated(t time.Time)
}

// Validator is implemented by records accepted from API input
type Validator interface {
	Validate() error
}

// Base provides the identifier and timestamps. Embed it by value; the
// capability methods have pointer receivers so *T satisfies them.
type Base struct {
	ID        int        `json:"id"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (b *Base) RecordID() int            { return b.ID }
func (b *Base) SetRecordID(id int)       { b.ID = id }
func (b *Base) StampCreated(t time.Time) { b.CreatedAt = &t }
func (b *Base) StampUpdated(t time.Time) { b.UpdatedAt = &t }

func (b *Base) CreatedTime() (time.Time, bool) {
	if b.CreatedAt == nil {
		return time.Time{}, false
	}
	return *b.CreatedAt, true
}

// SoftDelete provides the isDeleted flag
type SoftDelete struct {
	IsDeleted bool `json:"isDeleted"`
}

func (s *SoftDelete) IsSoftDeleted() bool { return s.IsDeleted }
func (s *SoftDelete) MarkSoftDeleted()    { s.IsDeleted = true }

// IsActive reports whether rec is not soft-deleted. Shapes without the flag
// are always active.
func IsActive[T any](rec T) bool {
	if sd, ok := any(&rec).(SoftDeletable); ok {
		return !sd.IsSoftDeleted()
	}
	return true
}
