package controller

import (
	"context"
	"strings"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Submitter judges a submission against a challenge id.
type Submitter interface {
	SubmitByID(ctx context.Context, challengeID, source string) (model.SubmissionReport, error)
}

// SubmitRequest is the body of a submission.
type SubmitRequest struct {
	ChallengeID string `json:"challenge_id"`
	SourceCode  string `json:"source_code"`
}

// JudgeController handles submission requests.
type JudgeController struct {
	submitter      Submitter
	maxSourceBytes int
}

// NewJudgeController creates a new controller.
func NewJudgeController(submitter Submitter, maxSourceBytes int) *JudgeController {
	return &JudgeController{submitter: submitter, maxSourceBytes: maxSourceBytes}
}

// Submit judges the posted source and returns the full report.
func (h *JudgeController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindFailed(c, err, "Invalid request parameters")
		return
	}
	req.ChallengeID = strings.TrimSpace(req.ChallengeID)
	if req.ChallengeID == "" {
		response.BadRequest(c, "challenge_id is required")
		return
	}
	if strings.TrimSpace(req.SourceCode) == "" {
		response.BadRequest(c, "source_code is required")
		return
	}
	if h.maxSourceBytes > 0 && len(req.SourceCode) > h.maxSourceBytes {
		response.Error(c, appErr.Newf(appErr.CodeTooLarge, "source_code exceeds %d bytes", h.maxSourceBytes))
		return
	}

	rep, err := h.submitter.SubmitByID(c.Request.Context(), req.ChallengeID, req.SourceCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}
