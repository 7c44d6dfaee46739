package upload

import (
	"encoding/json"
	"sort"
	"time"
)

// ChunkSet is the set of received chunk indices. It serializes as a sorted
// array so session records stay readable in the store.
type ChunkSet map[int]struct{}

func (s ChunkSet) Has(index int) bool {
	_, ok := s[index]
	return ok
}

func (s ChunkSet) Add(index int) {
	s[index] = struct{}{}
}

func (s ChunkSet) Count() int {
	return len(s)
}

func (s ChunkSet) MarshalJSON() ([]byte, error) {
	indices := make([]int, 0, len(s))
	for i := range s {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return json.Marshal(indices)
}

func (s *ChunkSet) UnmarshalJSON(data []byte) error {
	var indices []int
	if err := json.Unmarshal(data, &indices); err != nil {
		return err
	}
	set := make(ChunkSet, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	*s = set
	return nil
}

// Session tracks one in-flight chunked upload.
type Session struct {
	UploadID         string    `json:"upload_id"`
	Filename         string    `json:"filename"`          // sanitized, system-chosen
	OriginalFilename string    `json:"original_filename"` // user-supplied, untrusted
	MimeType         string    `json:"mime_type"`
	Size             int64     `json:"size"`
	TotalChunks      int       `json:"total_chunks"`
	ChannelID        string    `json:"channel_id"`
	UploadedBy       string    `json:"uploaded_by"`
	ReceivedChunks   ChunkSet  `json:"received_chunks"`
	TempPath         string    `json:"temp_path"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (s *Session) Complete() bool {
	return s.ReceivedChunks.Count() == s.TotalChunks
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Progress is a read-only snapshot of an upload's completion state.
type Progress struct {
	UploadID      string  `json:"upload_id"`
	Percent       float64 `json:"progress"`
	ReceivedCount int     `json:"received_count"`
	TotalChunks   int     `json:"total_chunks"`
	BytesReceived int64   `json:"bytes_received"`
	TotalBytes    int64   `json:"total_bytes"`
}

// FileDescriptor is what Finalize hands to the transfer backend.
type FileDescriptor struct {
	UploadID         string
	TempPath         string // absolute path of the assembled file
	Filename         string
	OriginalFilename string
	MimeType         string
	Size             int64
	ChannelID        string
	UploadedBy       string
}
