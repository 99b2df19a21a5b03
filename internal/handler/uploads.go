package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/merchkpi/dashboard/backend/internal/utils"
)

func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxSize)
	if err := r.ParseMultipartForm(h.config.Upload.MaxSize); err != nil {
		h.badRequest(w, r, errors.New("upload must be a multipart form within the size limit"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, r, errors.New("no file uploaded"))
		return
	}
	defer file.Close()

	filename, err := utils.UploadFileName(h.now(), header.Filename)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := os.MkdirAll(h.config.Upload.Dir, 0o755); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	dst, err := os.Create(filepath.Join(h.config.Upload.Dir, filename))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "file uploaded", map[string]string{
		"url": "/uploads/" + filename,
	})
}
