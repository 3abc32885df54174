package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/m1z23r/drift/pkg/drift"
)

type FileHandler struct {
	blobs BlobReader
}

func NewFileHandler(blobs BlobReader) *FileHandler {
	return &FileHandler{blobs: blobs}
}

// Download serves an attachment. The content digest is the ETag.
func (h *FileHandler) Download(c *drift.Context) {
	ref, err := blob.ParseRef(c.Param("folder"), c.Param("name"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	obj, err := h.blobs.Open(c.Request.Context(), ref)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	etag := `"` + obj.Digest + `"`
	header := c.Response.Header()
	header.Set("ETag", etag)
	header.Set("Cache-Control", "private, max-age=300")

	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Response.WriteHeader(http.StatusNotModified)
		c.Abort()
		return
	}

	header.Set("Content-Type", obj.ContentType)
	header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	header.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": c.Param("name")}))
	c.Response.WriteHeader(http.StatusOK)
	_, _ = c.Response.Write(obj.Data)
	c.Abort()
}
