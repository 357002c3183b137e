package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docflow/internal/docflow/transport"
	"docflow/internal/docflow/validation"
	docerrors "docflow/pkg/errors"
)

const (
	UploadedMessage  = "File uploaded successfully"
	CompletedMessage = "Driver run completed"
)

var errTooLarge = errors.New("file exceeds the size limit")

type uploadReply struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
}

type driverReply struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pages   *int   `json:"pages,omitempty"`
}

// handleUpload stores the multipart "file" field and marks it pending.
func (s *Server) handleUpload(c echo.Context) error {
	header, err := c.FormFile(transport.FileField)
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if header.Size > validation.MaxFileSize {
		return NewTooLargeError("File size must be less than 10MB")
	}

	src, err := header.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	doc, err := s.store.Save(header.Filename, src, validation.MaxFileSize)
	if errors.Is(err, errTooLarge) {
		return NewTooLargeError("File size must be less than 10MB")
	}
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	s.pending.Add(doc)
	s.logger.Info("document stored", "id", doc.ID, "name", doc.Name, "size", doc.Size)

	return c.JSON(http.StatusOK, uploadReply{
		Message: UploadedMessage,
		ID:      doc.ID,
		Name:    doc.Name,
		Size:    doc.Size,
	})
}

// handleRunDriver processes the latest upload.
func (s *Server) handleRunDriver(c echo.Context) error {
	doc := s.pending.Take()
	if doc == nil {
		return NewConflictError(docerrors.ErrNoPendingInput.Error())
	}
	defer func() {
		if err := s.store.Remove(doc); err != nil {
			s.logger.Warn("failed to remove processed document", "id", doc.ID, "error", err)
		}
	}()

	log := s.logger.WithFields("id", doc.ID, "name", doc.Name)
	log.Info("driver started", "delay", s.processDelay)
	started := time.Now()

	pages, err := s.process(c.Request().Context(), doc)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("driver interrupted", "error", err)
			return NewInternalError("driver interrupted", err)
		}
		return NewInternalError(fmt.Sprintf("failed to process %s", doc.Name), err)
	}

	log.Info("driver completed", "duration", time.Since(started))
	return c.JSON(http.StatusOK, driverReply{
		Message: CompletedMessage,
		ID:      doc.ID,
		Name:    doc.Name,
		Pages:   pages,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"pending": s.pending.Len(),
	})
}

// process simulates the long backend job, then counts pages of a PDF.
// Non-PDF documents complete without a page count.
func (s *Server) process(ctx context.Context, doc *Document) (*int, error) {
	if s.processDelay > 0 {
		timer := time.NewTimer(s.processDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	mt, err := mimetype.DetectFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("detecting content type: %w", err)
	}
	if !mt.Is("application/pdf") {
		return nil, nil
	}

	pages, err := api.PageCountFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	return &pages, nil
}
