package notifier

import "time"

// Inbound message kinds.
const (
	TypeSubscribeUpload   = "subscribe_upload"
	TypeUnsubscribeUpload = "unsubscribe_upload"
	TypePing              = "ping"
)

// Outbound event kinds.
const (
	TypeConnected      = "connected"
	TypePong           = "pong"
	TypeUploadProgress = "upload_progress"
	TypeUploadComplete = "upload_complete"
	TypeUploadError    = "upload_error"
)

// Message is the wire shape in both directions.
type Message struct {
	Type      string      `json:"type"`
	UploadID  string      `json:"uploadId,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type ProgressData struct {
	Progress      float64 `json:"progress"`
	BytesUploaded int64   `json:"bytesUploaded"`
	TotalBytes    int64   `json:"totalBytes"`
}

type CompleteData struct {
	FileID string `json:"fileId"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func newMessage(kind string) Message {
	return Message{Type: kind, Timestamp: time.Now().UnixMilli()}
}

func NewConnected(userID string) Message {
	m := newMessage(TypeConnected)
	m.Data = map[string]string{"userId": userID}
	return m
}

func NewPong() Message {
	return newMessage(TypePong)
}

func NewProgress(uploadID string, progress float64, bytesUploaded, totalBytes int64) Message {
	m := newMessage(TypeUploadProgress)
	m.UploadID = uploadID
	m.Data = ProgressData{Progress: progress, BytesUploaded: bytesUploaded, TotalBytes: totalBytes}
	return m
}

func NewComplete(uploadID, fileID string) Message {
	m := newMessage(TypeUploadComplete)
	m.UploadID = uploadID
	m.Data = CompleteData{FileID: fileID}
	return m
}

func NewError(uploadID, errText string) Message {
	m := newMessage(TypeUploadError)
	m.UploadID = uploadID
	m.Data = ErrorData{Error: errText}
	return m
}
