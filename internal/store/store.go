// Package store defines how record collections are persisted.
//
// A collection is an ordered list of records of one type, stored as a single
// JSON array. Backends only move bytes; ReadAll and WriteAll do the encoding.
package store

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// ErrCollectionNotFound is returned by Load when nothing has been saved yet
var ErrCollectionNotFound = errors.NewStd("collection not found")

// Store persists whole collections. Implementations serialize their own
// Load and Save calls and are safe for concurrent use.
type Store interface {
	// Load returns the raw JSON array for collection, or ErrCollectionNotFound.
	Load(collection string) ([]byte, error)
	// Save replaces the collection with data.
	Save(collection string, data []byte) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// ReadAll loads and decodes a collection. A collection that was never saved
// decodes to an empty list with a nil error. On any other failure the result
// is also an empty list, together with a categorized error that has already
// been logged.
func ReadAll[T any](s Store, collection string) ([]T, error) {
	data, err := s.Load(collection)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return []T{}, nil
		}
		GetLogger().Error("failed to load collection",
			logger.String("collection", collection),
			logger.String("backend", s.Name()),
			logger.Error(err))
		return []T{}, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		GetLogger().Error("failed to decode collection",
			logger.String("collection", collection),
			logger.String("backend", s.Name()),
			logger.Error(err))
		return []T{}, errors.New(err).
			Component("store").
			Category(errors.CategoryFileParsing).
			Context("collection", collection).
			Context("operation", "decode_collection").
			Build()
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// WriteAll encodes records as an indented JSON array and replaces the
// collection. A nil slice is written as an empty array.
func WriteAll[T any](s Store, collection string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		GetLogger().Error("failed to encode collection",
			logger.String("collection", collection),
			logger.Error(err))
		return errors.New(err).
			Component("store").
			Category(errors.CategoryFileParsing).
			Context("collection", collection).
			Context("operation", "encode_collection").
			Build()
	}

	if err := s.Save(collection, data); err != nil {
		GetLogger().Error("failed to save collection",
			logger.String("collection", collection),
			logger.String("backend", s.Name()),
			logger.Error(err))
		return err
	}
	return nil
}

// ValidateCollectionName rejects names that could escape the data directory
func ValidateCollectionName(collection string) error {
	if collection == "" || strings.ContainsAny(collection, `/\`) || strings.Contains(collection, "..") {
		return errors.Newf("invalid collection name %q", collection).
			Component("store").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// GetLogger returns the store module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("store")
}
