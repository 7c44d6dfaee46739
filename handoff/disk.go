package handoff

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"fileshare/upload"
)

// DiskHandoff moves finished files into a local directory. Mostly useful for
// single-node setups and tests.
type DiskHandoff struct {
	BaseDir string
}

func NewDiskHandoff(baseDir string) *DiskHandoff {
	return &DiskHandoff{BaseDir: baseDir}
}

func (h *DiskHandoff) Transfer(_ context.Context, desc *upload.FileDescriptor) (string, error) {
	fileID := filepath.Join(desc.ChannelID, desc.UploadID+"_"+desc.Filename)
	dest := filepath.Join(h.BaseDir, fileID)
	if err := os.MkdirAll(filepath.Dir(dest), 0777); err != nil {
		return "", &upload.HandoffError{Err: err}
	}
	if err := moveFile(desc.TempPath, dest); err != nil {
		return "", &upload.HandoffError{Err: err}
	}
	return fileID, nil
}

// moveFile copies when rename crosses filesystems. The source is kept: the
// upload manager removes its temp file during cleanup.
func moveFile(src, dest string) error {
	if err := os.Link(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
