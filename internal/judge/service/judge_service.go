package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codearena/internal/judge/comparator"
	"codearena/internal/judge/invoker"
	"codearena/internal/judge/model"
	"codearena/internal/judge/report"
	"codearena/internal/judge/repository"
	"codearena/internal/judge/sandbox"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/contextkey"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

// ChallengeStore fetches challenge definitions by id.
type ChallengeStore interface {
	Get(ctx context.Context, id string) (model.Challenge, error)
}

// Service judges submissions against challenges.
type Service struct {
	runner            sandbox.Runner
	loader            sandbox.Loader
	challenges        ChallengeStore
	publisher         repository.ReportPublisher
	queueWait         time.Duration
	testTimeout       time.Duration
	submissionTimeout time.Duration
	publishTimeout    time.Duration
	sem               chan struct{}
}

// Config holds service dependencies and settings.
type Config struct {
	Runner sandbox.Runner
	Loader sandbox.Loader
	// Challenges is required by SubmitByID only.
	Challenges ChallengeStore
	// Publisher is optional; when set every report summary is published.
	Publisher         repository.ReportPublisher
	PoolSize          int
	QueueWait         time.Duration
	TestTimeout       time.Duration
	SubmissionTimeout time.Duration
	PublishTimeout    time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("sandbox runner is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	testTimeout := cfg.TestTimeout
	if testTimeout <= 0 {
		testTimeout = 2 * time.Second
	}
	submissionTimeout := cfg.SubmissionTimeout
	if submissionTimeout <= 0 {
		submissionTimeout = 10 * time.Second
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = 3 * time.Second
	}
	return &Service{
		runner:            cfg.Runner,
		loader:            cfg.Loader,
		challenges:        cfg.Challenges,
		publisher:         cfg.Publisher,
		queueWait:         cfg.QueueWait,
		testTimeout:       testTimeout,
		submissionTimeout: submissionTimeout,
		publishTimeout:    publishTimeout,
		sem:               make(chan struct{}, poolSize),
	}, nil
}

// SubmitByID resolves the challenge through the content store and judges source against it.
func (s *Service) SubmitByID(ctx context.Context, challengeID, source string) (model.SubmissionReport, error) {
	if s.challenges == nil {
		return model.SubmissionReport{}, appErr.New(appErr.ServiceUnavailable).WithMessage("challenge store is not configured")
	}
	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		return model.SubmissionReport{}, err
	}
	return s.Submit(ctx, source, challenge)
}

// Submit judges source against every test case of challenge.
//
// Parse and load failures are reported through the report's TerminalError.
// The returned error is reserved for failures outside the submission itself:
// an invalid challenge, a full judge pool or a canceled context.
func (s *Service) Submit(ctx context.Context, source string, challenge model.Challenge) (model.SubmissionReport, error) {
	if err := challenge.Validate(); err != nil {
		return model.SubmissionReport{}, err
	}
	invocations := make([]invoker.Invocation, len(challenge.TestCases))
	for i, tc := range challenge.TestCases {
		inv, err := invoker.Parse(tc.Invocation)
		if err != nil {
			return model.SubmissionReport{}, err
		}
		invocations[i] = inv
	}

	if err := s.acquireSlot(ctx); err != nil {
		return model.SubmissionReport{}, err
	}
	defer s.releaseSlot()

	id := submissionID(challenge.ID, source)
	start := time.Now()
	subCtx, cancel := context.WithTimeout(ctx, s.submissionTimeout)
	defer cancel()

	rep, err := s.judge(subCtx, id, source, challenge, invocations)
	if err != nil {
		logger.Warn(ctx, "submission aborted",
			zap.String("submission_id", id),
			zap.String("challenge_id", challenge.ID),
			zap.Error(err),
		)
		return model.SubmissionReport{}, err
	}

	fields := []zap.Field{
		zap.String("submission_id", id),
		zap.String("challenge_id", challenge.ID),
		zap.Int("passed", rep.PassedCount),
		zap.Int("total", rep.TotalCount),
		zap.Duration("elapsed", time.Since(start)),
	}
	if rep.TerminalError != nil {
		fields = append(fields, zap.String("terminal_error", rep.TerminalError.Type))
	}
	logger.Info(ctx, "submission judged", fields...)

	s.publish(ctx, rep)
	return rep, nil
}

func (s *Service) judge(ctx context.Context, id, source string, challenge model.Challenge, invocations []invoker.Invocation) (model.SubmissionReport, error) {
	module, err := s.loader.Load(source)
	if err != nil {
		if appErr.Is(err, appErr.ParseError) {
			return report.Abort(id, challenge, err), nil
		}
		return model.SubmissionReport{}, err
	}

	if err := s.preflight(ctx, module, invocations); err != nil {
		switch {
		case appErr.Is(err, appErr.LoadError):
			return report.Abort(id, challenge, err), nil
		case appErr.Is(err, appErr.SubmissionCanceled):
			return model.SubmissionReport{}, err
		}
		// The module itself failed to evaluate. Each test reruns it in its
		// own sandbox and records that failure individually.
		logger.Debug(ctx, "module evaluation failed during preflight",
			zap.String("submission_id", id),
			zap.Error(err),
		)
	}

	outcomes := make([]report.Outcome, len(invocations))
	for i, inv := range invocations {
		outcome, err := s.runTest(ctx, module, inv, challenge.TestCases[i])
		if err != nil {
			if appErr.Is(err, appErr.LoadError) {
				return report.Abort(id, challenge, err), nil
			}
			return model.SubmissionReport{}, err
		}
		outcomes[i] = outcome
	}
	return report.Aggregate(id, challenge, outcomes), nil
}

// preflight evaluates the module once and checks that every invocation target
// is registered.
func (s *Service) preflight(ctx context.Context, module *sandbox.Module, invocations []invoker.Invocation) error {
	preflightCtx, cancel := context.WithTimeout(ctx, s.testTimeout)
	defer cancel()
	_, err := s.runner.Run(preflightCtx, module, func(env *sandbox.Env) error {
		for _, inv := range invocations {
			if _, ok := env.Registry().Lookup(inv.Function); !ok {
				return appErr.Newf(appErr.LoadError, "function %s is not defined", inv.Function).
					WithDetail("registered", env.Registry().Names())
			}
		}
		return nil
	})
	return err
}

// runTest judges one test case in a fresh sandbox. Only LoadError and
// cancellation are returned as errors; every other failure becomes a
// failed outcome.
func (s *Service) runTest(ctx context.Context, module *sandbox.Module, inv invoker.Invocation, tc model.TestCase) (report.Outcome, error) {
	if err := ctx.Err(); err != nil {
		cerr := contextError(err)
		if appErr.Is(cerr, appErr.SubmissionCanceled) {
			return report.Outcome{}, cerr
		}
		return report.Outcome{Err: cerr}, nil
	}

	testCtx, cancel := context.WithTimeout(ctx, s.testTimeout)
	defer cancel()

	var raw invoker.RawResult
	exec, err := s.runner.Run(testCtx, module, func(env *sandbox.Env) error {
		raw = invoker.Invoke(env, inv)
		return nil
	})
	if err == nil {
		err = raw.Err
	}
	logger.Debug(ctx, "test case executed",
		zap.String("function", inv.Function),
		zap.Duration("elapsed", exec.Elapsed),
		zap.Int("console_lines", len(exec.Console)),
		zap.Bool("console_truncated", exec.Truncated),
		zap.Bool("failed", err != nil),
	)
	if err != nil {
		if appErr.Is(err, appErr.LoadError) || appErr.Is(err, appErr.SubmissionCanceled) {
			return report.Outcome{}, err
		}
		return report.Outcome{Err: err}, nil
	}

	verdict, err := comparator.Compare(raw.Value, tc.ExpectedOutput)
	if err != nil {
		return report.Outcome{Err: err}, nil
	}
	return report.Outcome{Actual: verdict.Actual, Passed: verdict.Passed}, nil
}

func (s *Service) publish(ctx context.Context, rep model.SubmissionReport) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := model.ReportEvent{
		SubmissionID: rep.SubmissionID,
		ChallengeID:  rep.ChallengeID,
		UserID:       contextkey.String(ctx, contextkey.UserID),
		AllPassed:    rep.AllPassed,
		Passed:       rep.PassedCount,
		Total:        rep.TotalCount,
		CreatedAt:    time.Now().Unix(),
	}
	if rep.TerminalError != nil {
		event.TerminalErrorType = rep.TerminalError.Type
	}
	if err := s.publisher.PublishReport(pubCtx, event); err != nil {
		logger.Warn(ctx, "publish report event failed",
			zap.String("submission_id", rep.SubmissionID),
			zap.Error(err),
		)
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrapf(err, appErr.TimeoutError, "submission time budget exceeded")
	}
	return appErr.Wrapf(err, appErr.SubmissionCanceled, "submission canceled")
}
