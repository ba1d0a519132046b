package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/habitat-apps/docchat/internal/pkg/errcode"
	appErr "github.com/habitat-apps/docchat/internal/pkg/errors"
	"github.com/habitat-apps/docchat/internal/pkg/response"
	"github.com/habitat-apps/docchat/internal/service"
)

const maxUploadSize = 20 << 20 // 20 MiB

type DocumentHandler struct {
	docs *service.DocumentService
}

func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	overwrite := c.PostForm("overwrite") == "true"

	doc, err := h.docs.Ingest(c.Request.Context(), getUserID(c), file.Filename, data, overwrite)
	if err != nil {
		var conflict *appErr.ConflictError
		if errors.As(err, &conflict) {
			// 409 with the colliding document's identity so the client can
			// offer an overwrite.
			c.JSON(http.StatusConflict, gin.H{
				"code":    conflict.Code,
				"message": conflict.Error(),
				"document": gin.H{
					"id":            conflict.DocumentID,
					"original_name": conflict.OriginalName,
				},
			})
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Remove(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
