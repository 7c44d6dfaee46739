package handoff

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fileshare/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskHandoffTransfer(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "abc.part")
	require.NoError(t, os.WriteFile(src, []byte("assembled content"), 0666))

	h := NewDiskHandoff(t.TempDir())
	fileID, err := h.Transfer(context.Background(), &upload.FileDescriptor{
		UploadID:  "abc",
		TempPath:  src,
		Filename:  "notes.txt",
		MimeType:  "text/plain",
		Size:      17,
		ChannelID: "ch1",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("ch1", "abc_notes.txt"), fileID)

	content, err := os.ReadFile(filepath.Join(h.BaseDir, fileID))
	require.NoError(t, err)
	assert.Equal(t, "assembled content", string(content))

	// The temp file is untouched; cleanup is the manager's job
	_, err = os.Stat(src)
	require.NoError(t, err)
}

func TestDiskHandoffMissingSource(t *testing.T) {
	h := NewDiskHandoff(t.TempDir())
	_, err := h.Transfer(context.Background(), &upload.FileDescriptor{
		UploadID:  "abc",
		TempPath:  "/does/not/exist.part",
		Filename:  "notes.txt",
		ChannelID: "ch1",
	})
	var handoffErr *upload.HandoffError
	require.ErrorAs(t, err, &handoffErr)
}
