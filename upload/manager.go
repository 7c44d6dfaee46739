package upload

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"fileshare/session"
	"fileshare/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const keyPrefix = "upload:"

type Config struct {
	ChunkSize    int64
	MaxSize      int64
	TTL          time.Duration
	Grace        time.Duration // how long an expired record stays visible to the sweep
	AllowedTypes []string      // lower-case extensions without the dot
}

// Manager is the state machine for chunked uploads: initialize, accept
// chunks, detect completion, finalize, cancel, expire. All session mutations
// for one upload id run under that id's lock.
type Manager struct {
	store  session.Store
	chunks storage.ChunkStore
	cfg    Config
	locker *IDLocker
}

func NewManager(store session.Store, chunks storage.ChunkStore, cfg Config) *Manager {
	return &Manager{
		store:  store,
		chunks: chunks,
		cfg:    cfg,
		locker: NewIDLocker(),
	}
}

// ChunkSize is the fixed chunk size every upload is split by.
func (m *Manager) ChunkSize() int64 {
	return m.cfg.ChunkSize
}

// Initialize validates the declared upload, creates its empty temp file and
// persists a fresh session. Validation failures create nothing.
func (m *Manager) Initialize(ctx context.Context, originalFilename, mimeType string, size int64, channelID, userID string) (*Session, error) {
	if size <= 0 {
		return nil, &ValidationError{Reason: "size must be positive"}
	}
	if size > m.cfg.MaxSize {
		return nil, &ValidationError{Reason: "file too large"}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalFilename), "."))
	if !m.typeAllowed(ext) {
		return nil, &ValidationError{Reason: "this file type is not allowed"}
	}

	now := time.Now()
	sess := &Session{
		UploadID:         uuid.NewString(),
		Filename:         sanitizeFilename(originalFilename, ext),
		OriginalFilename: originalFilename,
		MimeType:         mimeType,
		Size:             size,
		TotalChunks:      int((size + m.cfg.ChunkSize - 1) / m.cfg.ChunkSize),
		ChannelID:        channelID,
		UploadedBy:       userID,
		ReceivedChunks:   make(ChunkSet),
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.cfg.TTL),
	}
	sess.TempPath = sess.UploadID + ".part"

	if err := m.chunks.CreateEmpty(sess.TempPath); err != nil {
		return nil, err
	}
	if err := m.persist(ctx, sess); err != nil {
		// Don't leave an orphaned temp file behind
		if delErr := m.chunks.Delete(sess.TempPath); delErr != nil {
			log.Printf("could not remove temp file for %s: %v", sess.UploadID, delErr)
		}
		return nil, err
	}
	return sess, nil
}

// AcceptChunk writes one chunk at its byte offset and records its index.
// Re-submitting a received index is a no-op that reports the current
// completion state. When the last chunk arrives the assembled file's size is
// verified against the declared total.
func (m *Manager) AcceptChunk(ctx context.Context, uploadID string, chunkIndex, totalChunks int, totalSize int64, data []byte) (complete bool, err error) {
	m.locker.Acquire(uploadID)
	defer m.locker.Release(uploadID)

	sess, err := m.getSession(ctx, uploadID)
	if err != nil {
		return false, err
	}
	if totalChunks != sess.TotalChunks {
		return false, &ChunkMismatchError{Field: "total_chunks", Got: int64(totalChunks), Want: int64(sess.TotalChunks)}
	}
	if totalSize != sess.Size {
		return false, &ChunkMismatchError{Field: "total_size", Got: totalSize, Want: sess.Size}
	}
	if chunkIndex < 0 || chunkIndex >= sess.TotalChunks {
		return false, &ChunkMismatchError{Field: "chunk_index", Got: int64(chunkIndex), Want: int64(sess.TotalChunks)}
	}
	if want := m.expectedChunkSize(sess, chunkIndex); int64(len(data)) != want {
		return false, &ChunkMismatchError{Field: "chunk_size", Got: int64(len(data)), Want: want}
	}

	// Idempotent retry: the byte range was already written, don't touch it
	if sess.ReceivedChunks.Has(chunkIndex) {
		return sess.Complete(), nil
	}

	if err := m.chunks.WriteAt(sess.TempPath, int64(chunkIndex)*m.cfg.ChunkSize, data); err != nil {
		return false, err
	}
	sess.ReceivedChunks.Add(chunkIndex)
	// Refresh the TTL so completion can't race an idle timeout mid-upload
	sess.ExpiresAt = time.Now().Add(m.cfg.TTL)
	if err := m.persist(ctx, sess); err != nil {
		return false, err
	}

	if sess.Complete() {
		if err := m.verifySize(sess); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Progress reports completion state. BytesReceived credits the final chunk
// with its actual (possibly shorter) length.
func (m *Manager) Progress(ctx context.Context, uploadID string) (*Progress, error) {
	sess, err := m.getSession(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	lastIndex := sess.TotalChunks - 1
	lastSize := sess.Size - int64(lastIndex)*m.cfg.ChunkSize
	var bytes int64
	for index := range sess.ReceivedChunks {
		if index == lastIndex {
			bytes += lastSize
		} else {
			bytes += m.cfg.ChunkSize
		}
	}
	return &Progress{
		UploadID:      sess.UploadID,
		Percent:       float64(sess.ReceivedChunks.Count()) / float64(sess.TotalChunks) * 100,
		ReceivedCount: sess.ReceivedChunks.Count(),
		TotalChunks:   sess.TotalChunks,
		BytesReceived: bytes,
		TotalBytes:    sess.Size,
	}, nil
}

// Finalize re-verifies the assembled file and returns its descriptor for the
// transfer handoff. The session is re-persisted with a fresh TTL so an expiry
// sweep can't destroy an upload that is being finalized; cleanup is a
// separate step so retried finalize calls stay safe.
func (m *Manager) Finalize(ctx context.Context, uploadID string) (*FileDescriptor, error) {
	m.locker.Acquire(uploadID)
	defer m.locker.Release(uploadID)

	sess, err := m.getSession(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if !sess.Complete() {
		return nil, ErrIncomplete
	}
	if err := m.verifySize(sess); err != nil {
		return nil, err
	}
	sess.ExpiresAt = time.Now().Add(m.cfg.TTL)
	if err := m.persist(ctx, sess); err != nil {
		return nil, err
	}
	return &FileDescriptor{
		UploadID:         sess.UploadID,
		TempPath:         m.chunks.FullPath(sess.TempPath),
		Filename:         sess.Filename,
		OriginalFilename: sess.OriginalFilename,
		MimeType:         sess.MimeType,
		Size:             sess.Size,
		ChannelID:        sess.ChannelID,
		UploadedBy:       sess.UploadedBy,
	}, nil
}

// Cancel removes the temp file and the session record. Filesystem errors are
// logged, never returned. No-op for unknown ids.
func (m *Manager) Cancel(ctx context.Context, uploadID string) error {
	m.locker.Acquire(uploadID)
	defer m.locker.Release(uploadID)

	sess, err := m.getRecord(ctx, uploadID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.remove(ctx, sess)
}

// Cleanup removes the session and its temp file after a successful handoff.
func (m *Manager) Cleanup(ctx context.Context, uploadID string) error {
	return m.Cancel(ctx, uploadID)
}

// ExpireSessions removes every session whose deadline has passed and returns
// the removed sessions. Each candidate is re-checked under its id lock so the
// sweep never races destructively with an in-flight chunk or finalize.
func (m *Manager) ExpireSessions(ctx context.Context) ([]*Session, error) {
	keys, err := m.store.ListKeys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	var expired []*Session
	now := time.Now()
	for _, key := range keys {
		uploadID := strings.TrimPrefix(key, keyPrefix)
		m.locker.Acquire(uploadID)
		sess, err := m.getRecord(ctx, uploadID)
		if err == nil && sess.Expired(now) {
			if err := m.remove(ctx, sess); err != nil {
				log.Printf("expiry sweep: could not remove session %s: %v", uploadID, err)
			} else {
				expired = append(expired, sess)
			}
		}
		m.locker.Release(uploadID)
	}
	return expired, nil
}

func (m *Manager) typeAllowed(ext string) bool {
	for _, allowed := range m.cfg.AllowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (m *Manager) expectedChunkSize(sess *Session, chunkIndex int) int64 {
	if chunkIndex == sess.TotalChunks-1 {
		return sess.Size - int64(chunkIndex)*m.cfg.ChunkSize
	}
	return m.cfg.ChunkSize
}

func (m *Manager) verifySize(sess *Session) error {
	got, err := m.chunks.Size(sess.TempPath)
	if err != nil {
		return err
	}
	if got != sess.Size {
		return &SizeMismatchError{Got: got, Want: sess.Size}
	}
	return nil
}

// getSession loads a record and treats expired ones as absent.
func (m *Manager) getSession(ctx context.Context, uploadID string) (*Session, error) {
	sess, err := m.getRecord(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// getRecord loads a record even past its logical deadline; the expiry sweep
// needs to see those to clean up their temp files.
func (m *Manager) getRecord(ctx context.Context, uploadID string) (*Session, error) {
	data, err := m.store.Get(ctx, keyPrefix+uploadID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) persist(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt) + m.cfg.Grace
	return m.store.SetWithTTL(ctx, keyPrefix+sess.UploadID, data, ttl)
}

func (m *Manager) remove(ctx context.Context, sess *Session) error {
	if err := m.chunks.Delete(sess.TempPath); err != nil {
		log.Printf("could not remove temp file for %s: %v", sess.UploadID, err)
	}
	return m.store.Delete(ctx, keyPrefix+sess.UploadID)
}

func sanitizeFilename(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	name := slug.Make(base)
	if name == "" {
		name = "file"
	}
	if ext != "" {
		name += "." + ext
	}
	return name
}
