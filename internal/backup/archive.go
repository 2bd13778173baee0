package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/store"
)

const (
	metadataEntry = "metadata.json"
	maxEntrySize  = 256 << 20
	collectionExt = ".json"
)

// WriteArchive writes every saved collection of st into a zip file at
// archivePath, one <collection>.json entry each, plus metadata.json. Size,
// checksum and collection list of meta are filled in.
func WriteArchive(ctx context.Context, st store.Store, archivePath string, meta *Metadata) (err error) {
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return archiveError(err, "create_archive")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = archiveError(closeErr, "close_archive")
		}
	}()

	hash := sha256.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(f, hash, counter))

	meta.Collections = meta.Collections[:0]
	meta.OriginalSize = 0
	for _, collection := range entities.AllCollections() {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := st.Load(collection)
		if errors.Is(err, store.ErrCollectionNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := writeEntry(zw, collection+collectionExt, data, meta); err != nil {
			return err
		}
		meta.Collections = append(meta.Collections, collection)
		meta.OriginalSize += int64(len(data))
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return archiveError(err, "encode_metadata")
	}
	if err := writeEntry(zw, metadataEntry, metaJSON, meta); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return archiveError(err, "finish_archive")
	}
	if err := f.Sync(); err != nil {
		return archiveError(err, "sync_archive")
	}

	meta.Size = counter.n
	meta.Checksum = hex.EncodeToString(hash.Sum(nil))
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, meta *Metadata) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: meta.Timestamp,
	})
	if err != nil {
		return archiveError(err, "create_entry")
	}
	if _, err := w.Write(data); err != nil {
		return archiveError(err, "write_entry")
	}
	return nil
}

// Restore saves every collection found in the archive back into st and
// returns the restored collection names. Entries are checked to hold JSON
// arrays before anything is written.
func Restore(st store.Store, archivePath string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, archiveError(err, "open_archive")
	}
	defer func() { _ = zr.Close() }()

	known := make(map[string]bool)
	for _, c := range entities.AllCollections() {
		known[c] = true
	}

	pending := make(map[string][]byte)
	var order []string
	for _, file := range zr.File {
		name := path.Base(file.Name)
		if name == metadataEntry || !strings.HasSuffix(name, collectionExt) {
			continue
		}
		collection := strings.TrimSuffix(name, collectionExt)
		if !known[collection] {
			GetLogger().Warn("skipping unknown collection in archive", logger.String("entry", file.Name))
			continue
		}
		data, err := readEntry(file)
		if err != nil {
			return nil, err
		}
		if !isJSONArray(data) {
			return nil, errors.Newf("archive entry %s is not a JSON array", file.Name).
				Component("backup").
				Category(errors.CategoryFileParsing).
				Build()
		}
		pending[collection] = data
		order = append(order, collection)
	}

	for _, collection := range order {
		if err := st.Save(collection, pending[collection]); err != nil {
			return nil, err
		}
	}
	GetLogger().Info("restored collections from archive",
		logger.String("archive", archivePath),
		logger.Strings("collections", order))
	return order, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	if file.UncompressedSize64 > maxEntrySize {
		return nil, errors.Newf("archive entry %s exceeds %d bytes", file.Name, maxEntrySize).
			Component("backup").
			Category(errors.CategoryValidation).
			Build()
	}
	rc, err := file.Open()
	if err != nil {
		return nil, archiveError(err, "open_entry")
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, archiveError(err, "read_entry")
	}
	return data, nil
}

func isJSONArray(data []byte) bool {
	var raw []json.RawMessage
	return json.Unmarshal(bytes.TrimSpace(data), &raw) == nil
}

func archiveError(err error, operation string) error {
	return errors.New(err).
		Component("backup").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Build()
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
