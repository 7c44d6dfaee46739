package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"fileshare/handoff"
	"fileshare/notifier"
	"fileshare/upload"

	"github.com/gin-gonic/gin"
)

// UploadHandler wires the upload state machine, the realtime notifier and
// the transfer backend together behind the HTTP endpoints.
type UploadHandler struct {
	Manager *upload.Manager
	Hub     *notifier.Hub
	Handoff handoff.Handoff
}

type InitRequest struct {
	Filename  string `json:"filename" binding:"required"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
}

type InitResponse struct {
	UploadID    string `json:"upload_id"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
}

type ChunkResponse struct {
	Accepted bool   `json:"accepted"`
	Complete bool   `json:"complete"`
	FileID   string `json:"file_id,omitempty"`
}

func (h *UploadHandler) Init(c *gin.Context, userID string) {
	var r InitRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	sess, err := h.Manager.Initialize(c.Request.Context(), r.Filename, r.MimeType, r.Size, r.ChannelID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, InitResponse{
		UploadID:    sess.UploadID,
		TotalChunks: sess.TotalChunks,
		ChunkSize:   h.Manager.ChunkSize(),
	})
}

// Chunk accepts one multipart chunk, broadcasts progress to the uploader's
// live connections and, on the final chunk, runs finalize + handoff.
func (h *UploadHandler) Chunk(c *gin.Context, userID string) {
	uploadID := c.PostForm("upload_id")
	chunkIndex, indexErr := strconv.Atoi(c.PostForm("chunk_index"))
	totalChunks, chunksErr := strconv.Atoi(c.PostForm("total_chunks"))
	totalSize, sizeErr := strconv.ParseInt(c.PostForm("total_size"), 10, 64)
	if uploadID == "" || indexErr != nil || chunksErr != nil || sizeErr != nil {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return
	}
	part, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if part.Size > h.Manager.ChunkSize() {
		c.JSON(http.StatusBadRequest, ChunkTooBigResponse)
		return
	}
	reader, err := part.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}

	ctx := c.Request.Context()
	complete, err := h.Manager.AcceptChunk(ctx, uploadID, chunkIndex, totalChunks, totalSize, data)
	if err != nil {
		var sizeMismatch *upload.SizeMismatchError
		if errors.As(err, &sizeMismatch) {
			// A reconnected client must still learn the outcome
			h.Hub.BroadcastError(userID, uploadID, sizeMismatch.Error())
		}
		h.writeError(c, err)
		return
	}

	if progress, err := h.Manager.Progress(ctx, uploadID); err == nil {
		h.Hub.BroadcastProgress(userID, uploadID, progress.Percent, progress.BytesReceived, progress.TotalBytes)
	}

	if !complete {
		c.JSON(http.StatusOK, ChunkResponse{Accepted: true})
		return
	}

	desc, err := h.Manager.Finalize(ctx, uploadID)
	if err != nil {
		h.Hub.BroadcastError(userID, uploadID, err.Error())
		h.writeError(c, err)
		return
	}
	fileID, err := h.Handoff.Transfer(ctx, desc)
	if err != nil {
		// Temp file stays so the handoff can be retried
		log.Printf("handoff failed for %s: %v", uploadID, err)
		h.Hub.BroadcastError(desc.UploadedBy, uploadID, err.Error())
		h.writeError(c, err)
		return
	}
	if err := h.Manager.Cleanup(ctx, uploadID); err != nil {
		log.Printf("cleanup failed for %s: %v", uploadID, err)
	}
	h.Hub.BroadcastComplete(desc.UploadedBy, uploadID, fileID)
	c.JSON(http.StatusOK, ChunkResponse{Accepted: true, Complete: true, FileID: fileID})
}

func (h *UploadHandler) Progress(c *gin.Context, _ string) {
	uploadID := c.Query("upload_id")
	if uploadID == "" {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return
	}
	progress, err := h.Manager.Progress(c.Request.Context(), uploadID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

type CancelRequest struct {
	UploadID string `json:"upload_id" binding:"required"`
}

func (h *UploadHandler) Cancel(c *gin.Context, _ string) {
	var r CancelRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := h.Manager.Cancel(c.Request.Context(), r.UploadID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func (h *UploadHandler) writeError(c *gin.Context, err error) {
	var validation *upload.ValidationError
	var mismatch *upload.ChunkMismatchError
	var sizeMismatch *upload.SizeMismatchError
	var handoffErr *upload.HandoffError
	switch {
	case errors.As(err, &validation), errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, Response{err.Error()})
	case errors.Is(err, upload.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, NotFoundResponse)
	case errors.Is(err, upload.ErrIncomplete), errors.As(err, &sizeMismatch):
		c.JSON(http.StatusConflict, Response{err.Error()})
	case errors.As(err, &handoffErr):
		c.JSON(http.StatusBadGateway, HandoffFailedResponse)
	default:
		log.Printf("upload handler error: %v", err)
		c.JSON(http.StatusInternalServerError, ServerErrorResponse)
	}
}
