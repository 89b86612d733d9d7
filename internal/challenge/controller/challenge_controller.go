package controller

import (
	"strings"
	"time"

	"codearena/internal/challenge/repository"
	"codearena/internal/judge/model"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ChallengeSummary is a list entry. Test cases are never listed.
type ChallengeSummary struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Difficulty  model.Difficulty `json:"difficulty"`
	Category    string           `json:"category"`
	Points      int              `json:"points"`
	CompletedBy int64            `json:"completedBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	TestCount   int              `json:"testCount"`
}

// ChallengeDetail is a single challenge with hidden test cases redacted.
type ChallengeDetail struct {
	ChallengeSummary
	Description string         `json:"description"`
	StarterCode string         `json:"starterCode"`
	TestCases   []TestCaseView `json:"testCases"`
}

// TestCaseView exposes a visible test case, or only the position of a hidden one.
type TestCaseView struct {
	Index          int    `json:"index"`
	Hidden         bool   `json:"hidden"`
	Input          string `json:"input,omitempty"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
}

// ChallengeController serves the read-only challenge catalog.
type ChallengeController struct {
	repo repository.ChallengeRepository
}

func NewChallengeController(repo repository.ChallengeRepository) *ChallengeController {
	return &ChallengeController{repo: repo}
}

// List returns every challenge without test cases.
func (h *ChallengeController) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]ChallengeSummary, 0, len(list))
	for _, ch := range list {
		out = append(out, Summarize(ch))
	}
	response.Success(c, out)
}

// Get returns one challenge.
func (h *ChallengeController) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.BadRequest(c, "id is required")
		return
	}
	ch, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, Detail(ch))
}

// Detail converts ch into its public form.
func Detail(ch model.Challenge) ChallengeDetail {
	views := make([]TestCaseView, 0, len(ch.TestCases))
	for i, tc := range ch.TestCases {
		view := TestCaseView{Index: i, Hidden: tc.IsHidden}
		if !tc.IsHidden {
			view.Input = tc.Invocation
			view.ExpectedOutput = tc.ExpectedOutput
		}
		views = append(views, view)
	}
	return ChallengeDetail{
		ChallengeSummary: Summarize(ch),
		Description:      ch.Description,
		StarterCode:      ch.StarterCode,
		TestCases:        views,
	}
}

// Summarize converts ch into its list form.
func Summarize(ch model.Challenge) ChallengeSummary {
	return ChallengeSummary{
		ID:          ch.ID,
		Title:       ch.Title,
		Difficulty:  ch.Difficulty,
		Category:    ch.Category,
		Points:      ch.Points,
		CompletedBy: ch.CompletedBy,
		CreatedAt:   ch.CreatedAt,
		TestCount:   len(ch.TestCases),
	}
}
