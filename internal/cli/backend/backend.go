// Package backend lets judgectl work either in process or against a
// running judge-service.
package backend

import (
	"context"
	"net/http"
	"net/url"

	challengeController "codearena/internal/challenge/controller"
	"codearena/internal/challenge/repository"
	httpclient "codearena/internal/cli/http"
	"codearena/internal/judge/model"
)

// Backend is what the CLI commands run against.
type Backend interface {
	List(ctx context.Context) ([]challengeController.ChallengeSummary, error)
	Get(ctx context.Context, id string) (challengeController.ChallengeDetail, error)
	Submit(ctx context.Context, challengeID, source string) (model.SubmissionReport, error)
	Name() string
}

// Judge is the in-process judge.
type Judge interface {
	SubmitByID(ctx context.Context, challengeID, source string) (model.SubmissionReport, error)
}

// Local judges in process against a challenge repository.
type Local struct {
	challenges repository.ChallengeRepository
	judge      Judge
}

func NewLocal(challenges repository.ChallengeRepository, judge Judge) *Local {
	return &Local{challenges: challenges, judge: judge}
}

func (l *Local) Name() string { return "local" }

func (l *Local) List(ctx context.Context) ([]challengeController.ChallengeSummary, error) {
	list, err := l.challenges.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]challengeController.ChallengeSummary, 0, len(list))
	for _, ch := range list {
		out = append(out, challengeController.Summarize(ch))
	}
	return out, nil
}

func (l *Local) Get(ctx context.Context, id string) (challengeController.ChallengeDetail, error) {
	ch, err := l.challenges.Get(ctx, id)
	if err != nil {
		return challengeController.ChallengeDetail{}, err
	}
	return challengeController.Detail(ch), nil
}

func (l *Local) Submit(ctx context.Context, challengeID, source string) (model.SubmissionReport, error) {
	return l.judge.SubmitByID(ctx, challengeID, source)
}

// Remote calls the judge-service HTTP API.
type Remote struct {
	client *httpclient.Client
}

func NewRemote(client *httpclient.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) Name() string { return "remote " + r.client.BaseURL() }

func (r *Remote) List(ctx context.Context) ([]challengeController.ChallengeSummary, error) {
	var out []challengeController.ChallengeSummary
	if err := r.client.DoJSON(ctx, http.MethodGet, "/api/v1/challenges", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Remote) Get(ctx context.Context, id string) (challengeController.ChallengeDetail, error) {
	var out challengeController.ChallengeDetail
	err := r.client.DoJSON(ctx, http.MethodGet, "/api/v1/challenges/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (r *Remote) Submit(ctx context.Context, challengeID, source string) (model.SubmissionReport, error) {
	var out model.SubmissionReport
	body := map[string]string{"challenge_id": challengeID, "source_code": source}
	err := r.client.DoJSON(ctx, http.MethodPost, "/api/v1/judge/submissions", body, &out)
	return out, err
}
