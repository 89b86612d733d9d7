package controller

import (
	"context"

	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// CodeStore saves and loads editor documents.
type CodeStore interface {
	Save(ctx context.Context, filename, content string) error
	Load(ctx context.Context, filename string) (string, error)
}

// SaveRequest is the body of a save.
type SaveRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// CodeController handles editor save and load.
type CodeController struct {
	store CodeStore
}

func NewCodeController(store CodeStore) *CodeController {
	return &CodeController{store: store}
}

// Save stores a document.
func (h *CodeController) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindFailed(c, err, "Invalid request parameters")
		return
	}
	if req.Filename == "" || req.Content == "" {
		response.BadRequest(c, "Filename and content are required.")
		return
	}
	if err := h.store.Save(c.Request.Context(), req.Filename, req.Content); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "File saved successfully.", gin.H{"filename": req.Filename})
}

// Load returns a stored document.
func (h *CodeController) Load(c *gin.Context) {
	content, err := h.store.Load(c.Request.Context(), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"content": content})
}
