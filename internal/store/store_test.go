package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/errors"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	loadErr error
	saveErr error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Load(collection string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	d, ok := m.data[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return d, nil
}

func (m *memStore) Save(collection string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[collection] = data
	return nil
}

func (m *memStore) Name() string { return "mem" }

type item struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price *string `json:"price,omitempty"`
}

func TestReadAllMissingCollectionIsEmpty(t *testing.T) {
	t.Parallel()

	items, err := ReadAll[item](newMemStore(), "items")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestReadAllCorruptCollection(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	s.data["items"] = []byte("{not json")

	items, err := ReadAll[item](s, "items")
	require.Error(t, err)
	assert.Empty(t, items)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestReadAllBlankAndNull(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	s.data["blank"] = []byte("  \n")
	s.data["null"] = []byte("null")

	for _, name := range []string{"blank", "null"} {
		items, err := ReadAll[item](s, name)
		require.NoError(t, err, name)
		assert.NotNil(t, items, name)
		assert.Empty(t, items, name)
	}
}

func TestReadAllLoadFailure(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	s.loadErr = fmt.Errorf("disk on fire")

	items, err := ReadAll[item](s, "items")
	require.Error(t, err)
	assert.Empty(t, items)
}

func TestWriteAllOmitsNullFields(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	require.NoError(t, WriteAll(s, "items", []item{{ID: 1, Name: "a"}}))

	raw := string(s.data["items"])
	assert.NotContains(t, raw, "price")
	assert.Contains(t, raw, "\n  {", "output is indented")

	back, err := ReadAll[item](s, "items")
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 1, Name: "a"}}, back)
}

func TestWriteAllNilWritesEmptyArray(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	require.NoError(t, WriteAll[item](s, "items", nil))
	assert.Equal(t, "[]", string(s.data["items"]))
}

func TestWriteAllSaveFailure(t *testing.T) {
	t.Parallel()

	s := newMemStore()
	s.saveErr = fmt.Errorf("read-only filesystem")
	assert.Error(t, WriteAll(s, "items", []item{{ID: 1}}))
}

func TestValidateCollectionName(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCollectionName("event-registrations"))
	for _, bad := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		assert.Error(t, ValidateCollectionName(bad), bad)
	}
}
