package datastore

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// snapshotRecord is the parquet row layout of snapshot metadata.
type snapshotRecord struct {
	SourceID    int64  `parquet:"source_id"`
	StorageRef  string `parquet:"storage_ref"`
	ContentHash string `parquet:"content_hash"`
	ContentSize int64  `parquet:"content_size"`
	TimestampMs int64  `parquet:"timestamp_ms"`
}

// HistoryStore keeps per-source snapshot history: gzip-compressed content
// files next to a parquet metadata index, one directory per source.
type HistoryStore struct {
	baseDir string
	log     zerolog.Logger
	mu      sync.Mutex
}

func NewHistoryStore(baseDir string, log zerolog.Logger) (*HistoryStore, error) {
	dir := filepath.Join(baseDir, "snapshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errorx.Wrapf(err, "failed to create snapshot directory %s", dir)
	}
	return &HistoryStore{
		baseDir: dir,
		log:     log.With().Str("component", "history_store").Logger(),
	}, nil
}

// Latest returns the most recent snapshot for the source, or nil when no
// history exists yet.
func (h *HistoryStore) Latest(sourceID int64) (*models.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.readIndex(sourceID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	latest := records[len(records)-1]
	return recordToSnapshot(latest), nil
}

// Load reads back the content behind a snapshot.
func (h *HistoryStore) Load(snapshot *models.Snapshot) ([]byte, error) {
	f, err := os.Open(snapshot.StorageRef)
	if err != nil {
		return nil, errorx.Wrapf(err, "failed to open snapshot %s", snapshot.StorageRef)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errorx.Wrapf(err, "corrupt snapshot %s", snapshot.StorageRef)
	}
	defer gz.Close()

	content, err := io.ReadAll(gz)
	if err != nil {
		return nil, errorx.Wrapf(err, "failed to read snapshot %s", snapshot.StorageRef)
	}
	return content, nil
}

// Save writes the content as a new snapshot and appends it to the metadata
// index.
func (h *HistoryStore) Save(sourceID int64, content []byte, hash string) (*models.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dir := h.sourceDir(sourceID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errorx.Wrapf(err, "failed to create snapshot directory %s", dir)
	}

	now := time.Now()
	ref := filepath.Join(dir, fmt.Sprintf("%d.gz", now.UnixNano()))
	if err := writeGzip(ref, content); err != nil {
		return nil, err
	}

	records, err := h.readIndex(sourceID)
	if err != nil {
		os.Remove(ref)
		return nil, err
	}
	record := snapshotRecord{
		SourceID:    sourceID,
		StorageRef:  ref,
		ContentHash: hash,
		ContentSize: int64(len(content)),
		TimestampMs: now.UnixMilli(),
	}
	records = append(records, record)

	if err := h.writeIndex(sourceID, records); err != nil {
		os.Remove(ref)
		return nil, err
	}

	h.log.Debug().Int64("source_id", sourceID).Int("bytes", len(content)).Msg("Snapshot saved")
	return recordToSnapshot(record), nil
}

// Prune keeps the newest keep snapshots for the source and removes the rest,
// content files included.
func (h *HistoryStore) Prune(sourceID int64, keep int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.readIndex(sourceID)
	if err != nil {
		return err
	}
	if keep < 1 || len(records) <= keep {
		return nil
	}

	evicted := records[:len(records)-keep]
	remaining := records[len(records)-keep:]

	if err := h.writeIndex(sourceID, remaining); err != nil {
		return err
	}
	for _, r := range evicted {
		if err := os.Remove(r.StorageRef); err != nil && !os.IsNotExist(err) {
			h.log.Warn().Err(err).Str("ref", r.StorageRef).Msg("Failed to remove pruned snapshot")
		}
	}

	h.log.Debug().Int64("source_id", sourceID).Int("pruned", len(evicted)).Msg("Snapshot history pruned")
	return nil
}

// DeleteAll removes all history for a source. Called when the source itself
// is deleted.
func (h *HistoryStore) DeleteAll(sourceID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.RemoveAll(h.sourceDir(sourceID)); err != nil {
		return errorx.Wrapf(err, "failed to delete history for source %d", sourceID)
	}
	return nil
}

func (h *HistoryStore) sourceDir(sourceID int64) string {
	return filepath.Join(h.baseDir, fmt.Sprintf("%d", sourceID))
}

func (h *HistoryStore) indexPath(sourceID int64) string {
	return filepath.Join(h.sourceDir(sourceID), "history.parquet")
}

// readIndex returns the source's snapshot records sorted oldest first.
func (h *HistoryStore) readIndex(sourceID int64) ([]snapshotRecord, error) {
	path := h.indexPath(sourceID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	records, err := parquet.ReadFile[snapshotRecord](path)
	if err != nil {
		return nil, errorx.Wrapf(err, "failed to read snapshot index %s", path)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].TimestampMs != records[j].TimestampMs {
			return records[i].TimestampMs < records[j].TimestampMs
		}
		return records[i].StorageRef < records[j].StorageRef
	})
	return records, nil
}

// writeIndex rewrites the source's metadata index atomically.
func (h *HistoryStore) writeIndex(sourceID int64, records []snapshotRecord) error {
	path := h.indexPath(sourceID)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return errorx.Wrapf(err, "failed to create snapshot index %s", tmp)
	}

	writer := parquet.NewGenericWriter[snapshotRecord](f, parquet.Compression(&parquet.Zstd))
	if _, err := writer.Write(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return errorx.Wrap(err, "failed to write snapshot index")
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errorx.Wrap(err, "failed to finalize snapshot index")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func writeGzip(path string, content []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errorx.Wrapf(err, "failed to create snapshot file %s", path)
	}

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		gz.Close()
		f.Close()
		os.Remove(path)
		return errorx.Wrap(err, "failed to compress snapshot")
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return errorx.Wrap(err, "failed to finalize snapshot")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func recordToSnapshot(r snapshotRecord) *models.Snapshot {
	return &models.Snapshot{
		SourceID:    r.SourceID,
		StorageRef:  r.StorageRef,
		ContentHash: r.ContentHash,
		ContentSize: r.ContentSize,
		Timestamp:   time.UnixMilli(r.TimestampMs),
	}
}
