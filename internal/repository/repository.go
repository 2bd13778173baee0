// Package repository provides CRUD over store collections for any record
// shape, plus per-entity read queries.
//
// Capabilities are discovered on *T: a shape gets id assignment when it
// implements entities.IDAssignable, soft delete when it implements
// entities.SoftDeletable, and so on. Shapes that opt out keep working with
// the reduced behavior.
package repository

import (
	"slices"
	"sync"
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/store"
)

// ErrRecordNotFound is returned by Update when no record has the given id
var ErrRecordNotFound = errors.NewStd("record not found")

type options struct {
	now func() time.Time
}

// Option configures a repository
type Option func(*options)

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Repository is a collection of T persisted through a store.Store.
//
// Every operation re-reads the collection, so callers never see a cached
// list. Operations on one Repository are serialized; two Repository values
// over the same collection are only serialized by the store itself and can
// lose each other's updates.
type Repository[T any] struct {
	store      store.Store
	collection string
	now        func() time.Time
	log        logger.Logger

	mu      sync.Mutex
	scratch []T // last list read or written, persisted by SaveChanges
}

// New creates a repository for collection
func New[T any](st store.Store, collection string, opts ...Option) *Repository[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		store:      st,
		collection: collection,
		now:        o.now,
		log:        GetLogger().With(logger.String("collection", collection)),
	}
}

// Collection returns the collection name
func (r *Repository[T]) Collection() string { return r.collection }

// loadLocked reads the collection into the scratch copy. r.mu must be held.
func (r *Repository[T]) loadLocked() ([]T, error) {
	records, err := store.ReadAll[T](r.store, r.collection)
	r.scratch = records
	return records, err
}

// GetAll returns a copy of every record, soft-deleted ones included.
// On a read failure the list is empty and the error is returned.
func (r *Repository[T]) GetAll() ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadLocked()
	return slices.Clone(records), err
}

// GetByID returns the record with id. Shapes without an identifier are
// never found.
func (r *Repository[T]) GetByID(id int) (T, bool, error) {
	var zero T
	records, err := r.GetAll()
	if err != nil {
		return zero, false, err
	}
	if idx := indexOf(records, id); idx >= 0 {
		return records[idx], true, nil
	}
	return zero, false, nil
}

// Add assigns the next identifier (max+1) and creation timestamps, appends
// rec and persists the collection. The stored record is returned. When the
// collection cannot be read nothing is written.
func (r *Repository[T]) Add(rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadLocked()
	if err != nil {
		r.log.Error("add aborted, collection unreadable", logger.Error(err))
		return rec, err
	}

	if a, ok := any(&rec).(entities.IDAssignable); ok {
		a.SetRecordID(maxID(records) + 1)
	}
	now := r.now()
	if c, ok := any(&rec).(entities.CreateStamped); ok {
		c.StampCreated(now)
	}
	if u, ok := any(&rec).(entities.UpdateStamped); ok {
		u.StampUpdated(now)
	}

	records = append(records, rec)
	if err := store.WriteAll(r.store, r.collection, records); err != nil {
		return rec, err
	}
	r.scratch = records

	r.log.Debug("record added", logger.Int("id", idOf(&rec)))
	return rec, nil
}

// Update replaces the stored record with the same identifier, keeping its
// creation time and stamping the update time. When no record matches,
// nothing is written and ErrRecordNotFound is returned with rec unchanged.
func (r *Repository[T]) Update(rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadLocked()
	if err != nil {
		return rec, err
	}

	id := idOf(&rec)
	idx := indexOf(records, id)
	if idx < 0 {
		r.log.Warn("update of unknown record ignored", logger.Int("id", id))
		return rec, errors.New(ErrRecordNotFound).
			Component("repository").
			Category(errors.CategoryNotFound).
			Context("collection", r.collection).
			Context("id", id).
			Build()
	}

	if prev, ok := any(&records[idx]).(entities.CreateTimed); ok {
		if created, ok := prev.CreatedTime(); ok {
			if c, ok := any(&rec).(entities.CreateStamped); ok {
				c.StampCreated(created)
			}
		}
	}
	if u, ok := any(&rec).(entities.UpdateStamped); ok {
		u.StampUpdated(r.now())
	}

	records[idx] = rec
	if err := store.WriteAll(r.store, r.collection, records); err != nil {
		return rec, err
	}
	r.scratch = records
	return rec, nil
}

// Delete soft-deletes the record when the shape supports it, otherwise
// removes it. It reports whether a record with id existed; nothing is
// written when it did not.
func (r *Repository[T]) Delete(id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadLocked()
	if err != nil {
		return false, err
	}

	idx := indexOf(records, id)
	if idx < 0 {
		return false, nil
	}

	soft := false
	if sd, ok := any(&records[idx]).(entities.SoftDeletable); ok {
		sd.MarkSoftDeleted()
		if u, ok := any(&records[idx]).(entities.UpdateStamped); ok {
			u.StampUpdated(r.now())
		}
		soft = true
	} else {
		records = slices.Delete(records, idx, idx+1)
	}

	if err := store.WriteAll(r.store, r.collection, records); err != nil {
		return false, err
	}
	r.scratch = records

	r.log.Debug("record deleted", logger.Int("id", id), logger.Bool("soft", soft))
	return true, nil
}

// SaveChanges persists the scratch copy from the last operation. It exists
// for unit-of-work style callers; the other operations persist on their own.
func (r *Repository[T]) SaveChanges() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scratch == nil {
		return nil
	}
	return store.WriteAll(r.store, r.collection, r.scratch)
}

func idOf[T any](rec *T) int {
	if i, ok := any(rec).(entities.Identified); ok {
		return i.RecordID()
	}
	return 0
}

func maxID[T any](records []T) int {
	highest := 0
	for i := range records {
		if id := idOf(&records[i]); id > highest {
			highest = id
		}
	}
	return highest
}

// indexOf returns the position of the record with id, or -1. Shapes
// without an identifier never match.
func indexOf[T any](records []T, id int) int {
	for i := range records {
		if ident, ok := any(&records[i]).(entities.Identified); ok && ident.RecordID() == id {
			return i
		}
	}
	return -1
}

// GetLogger returns the repository module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("repository")
}
