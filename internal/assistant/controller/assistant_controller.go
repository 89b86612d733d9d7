package controller

import (
	"context"
	"strings"

	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Assistant answers free-form prompts.
type Assistant interface {
	Ask(ctx context.Context, message string) (string, error)
}

// AskRequest is the body of a prompt.
type AskRequest struct {
	Message string `json:"message"`
}

type AssistantController struct {
	assistant Assistant
}

func NewAssistantController(assistant Assistant) *AssistantController {
	return &AssistantController{assistant: assistant}
}

// Ask forwards the posted message and returns the model's reply.
func (h *AssistantController) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindFailed(c, err, "Message is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.BadRequest(c, "Message is required")
		return
	}
	reply, err := h.assistant.Ask(c.Request.Context(), req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"response": reply})
}
