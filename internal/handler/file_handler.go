package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type fileResolver interface {
	Resolve(token string) (*service.StoredFile, error)
}

// FileHandler streams exports and slips behind signed tokens.
type FileHandler struct {
	files fileResolver
}

// NewFileHandler constructs the handler.
func NewFileHandler(files fileResolver) *FileHandler {
	return &FileHandler{files: files}
}

// Download godoc
// @Summary Download a file using a signed token
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	if h.files == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "file service not configured"))
		return
	}
	file, err := h.files.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}
