package storage

import (
	"os"
	"path/filepath"
	"sync"
)

type DiskStore struct {
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{
		BasePath: basePath,
		dirs:     make(map[string]bool, 10),
	}
}

func (s *DiskStore) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	s.dirs[dir] = true
	return os.MkdirAll(dir, 0777)
}

func (s *DiskStore) FullPath(path string) string {
	return filepath.Join(s.BasePath, path)
}

// CreateEmpty creates a zero-length file. Chunk writes past the current end
// extend it sparsely, so no preallocation is needed.
func (s *DiskStore) CreateEmpty(path string) error {
	fileName := s.FullPath(path)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	return file.Close()
}

// WriteAt writes data at the given byte offset. Distinct offsets never overlap
// for distinct chunk indices, so concurrent calls for the same file are safe.
func (s *DiskStore) WriteAt(path string, offset int64, data []byte) error {
	file, err := os.OpenFile(s.FullPath(path), os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	_, err = file.WriteAt(data, offset)
	closeErr := file.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (s *DiskStore) Size(path string) (int64, error) {
	fi, err := os.Stat(s.FullPath(path))
	if err != nil {
		return -1, err
	}
	return fi.Size(), nil
}

func (s *DiskStore) Delete(path string) error {
	return os.Remove(s.FullPath(path))
}
