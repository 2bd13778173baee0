package repository

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
)

// activeWhere returns the records that are not soft-deleted and satisfy keep
func activeWhere[T any](records []T, keep func(*T) bool) []T {
	out := make([]T, 0, len(records))
	for i := range records {
		if !entities.IsActive(records[i]) {
			continue
		}
		if keep == nil || keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// firstActive returns the first active record satisfying keep
func firstActive[T any](records []T, keep func(*T) bool) (T, bool) {
	for i := range records {
		if entities.IsActive(records[i]) && (keep == nil || keep(&records[i])) {
			return records[i], true
		}
	}
	var zero T
	return zero, false
}

func sortByTime[T any](records []T, key func(*T) time.Time, descending bool) {
	slices.SortStableFunc(records, func(a, b T) int {
		c := key(&a).Compare(key(&b))
		if descending {
			return -c
		}
		return c
	})
}

func sortByIDDesc[T any](records []T) {
	slices.SortStableFunc(records, func(a, b T) int {
		return cmp.Compare(idOf(&b), idOf(&a))
	})
}

func limit[T any](records []T, n int) []T {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// createdOrZero orders records lacking a creation time first
func createdOrZero(b *entities.Base) time.Time {
	if b.CreatedAt == nil {
		return time.Time{}
	}
	return *b.CreatedAt
}
