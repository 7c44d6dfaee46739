package storage

// ChunkStore is append-in-place byte storage for in-progress uploads.
// Paths are names relative to the store; FullPath resolves them for callers
// that hand the finished file to another component.
type ChunkStore interface {
	CreateEmpty(path string) error
	WriteAt(path string, offset int64, data []byte) error
	Size(path string) (int64, error)
	Delete(path string) error
	FullPath(path string) string
}
