package controller

import (
	"context"

	"codearena/internal/remote"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Executor runs code on the remote execution service.
type Executor interface {
	Execute(ctx context.Context, req remote.Request) (remote.Result, error)
	Languages(ctx context.Context) ([]remote.Language, error)
}

// CompileRequest is the body of a remote execution.
type CompileRequest struct {
	Language   string `json:"language"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

// CompileController proxies non-native languages to the remote executor.
type CompileController struct {
	executor Executor
}

func NewCompileController(executor Executor) *CompileController {
	return &CompileController{executor: executor}
}

// Compile runs the posted source remotely.
func (h *CompileController) Compile(c *gin.Context) {
	var req CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindFailed(c, err, "Invalid request parameters")
		return
	}
	if req.Language == "" || req.SourceCode == "" {
		response.BadRequest(c, "Missing language or source_code")
		return
	}
	res, err := h.executor.Execute(c.Request.Context(), remote.Request{
		Language:   req.Language,
		SourceCode: req.SourceCode,
		Stdin:      req.Stdin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Languages lists the languages the remote service supports.
func (h *CompileController) Languages(c *gin.Context) {
	langs, err := h.executor.Languages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"languages": langs, "aliases": remote.LanguageNames()})
}
