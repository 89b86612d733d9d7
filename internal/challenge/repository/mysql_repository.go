package repository

import (
	"context"
	"encoding/json"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultChallengeTTL      = 30 * time.Minute
	defaultChallengeEmptyTTL = 5 * time.Minute
	challengeKeyPrefix       = "challenge:detail:"
	challengeListKey         = "challenge:list"
)

// MySQLChallengeRepository reads challenges from MySQL with a Redis cache in front.
type MySQLChallengeRepository struct {
	db       db.Database
	cache    cache.BasicOps
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewMySQLChallengeRepository creates a repository. cacheClient may be nil.
func NewMySQLChallengeRepository(database db.Database, cacheClient cache.BasicOps, ttl, emptyTTL time.Duration) *MySQLChallengeRepository {
	if ttl <= 0 {
		ttl = defaultChallengeTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultChallengeEmptyTTL
	}
	return &MySQLChallengeRepository{db: database, cache: cacheClient, ttl: ttl, emptyTTL: emptyTTL}
}

func (r *MySQLChallengeRepository) Get(ctx context.Context, id string) (model.Challenge, error) {
	if r.cache == nil {
		return r.getOrNotFound(ctx, id)
	}
	ch, err := cache.GetWithCached[model.Challenge](
		ctx,
		r.cache,
		challengeKeyPrefix+id,
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(ch model.Challenge) bool { return ch.ID == "" },
		marshalJSON[model.Challenge],
		unmarshalJSON[model.Challenge],
		func(ctx context.Context) (model.Challenge, error) {
			ch, found, err := r.getFromDB(ctx, id)
			if err != nil || !found {
				return model.Challenge{}, err
			}
			return ch, nil
		},
	)
	if err != nil {
		return model.Challenge{}, err
	}
	if ch.ID == "" {
		return model.Challenge{}, notFound(id)
	}
	return ch, nil
}

func (r *MySQLChallengeRepository) List(ctx context.Context) ([]model.Challenge, error) {
	if r.cache == nil {
		return r.listFromDB(ctx)
	}
	return cache.GetWithCached[[]model.Challenge](
		ctx,
		r.cache,
		challengeListKey,
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(list []model.Challenge) bool { return len(list) == 0 },
		marshalJSON[[]model.Challenge],
		unmarshalJSON[[]model.Challenge],
		r.listFromDB,
	)
}

func (r *MySQLChallengeRepository) getOrNotFound(ctx context.Context, id string) (model.Challenge, error) {
	ch, found, err := r.getFromDB(ctx, id)
	if err != nil {
		return model.Challenge{}, err
	}
	if !found {
		return model.Challenge{}, notFound(id)
	}
	return ch, nil
}

func (r *MySQLChallengeRepository) getFromDB(ctx context.Context, id string) (model.Challenge, bool, error) {
	query := `
		SELECT id, title, difficulty, category, description, starter_code, points, completed_by, created_at
		FROM challenges
		WHERE id = ?`
	ch, err := scanChallenge(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return model.Challenge{}, false, nil
		}
		return model.Challenge{}, false, dbError(err, "load challenge "+id)
	}

	cases, err := r.testCases(ctx, []string{id})
	if err != nil {
		return model.Challenge{}, false, err
	}
	ch.TestCases = cases[ch.ID]
	if err := ch.Validate(); err != nil {
		logger.Error(ctx, "stored challenge is invalid", zap.String("challenge_id", id), zap.Error(err))
		return model.Challenge{}, false, err
	}
	return ch, true, nil
}

func (r *MySQLChallengeRepository) listFromDB(ctx context.Context) ([]model.Challenge, error) {
	query := `
		SELECT id, title, difficulty, category, description, starter_code, points, completed_by, created_at
		FROM challenges
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, dbError(err, "list challenges")
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan challenge")
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list challenges")
	}

	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, len(out))
	for i, ch := range out {
		ids[i] = ch.ID
	}
	cases, err := r.testCases(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].TestCases = cases[out[i].ID]
	}
	return out, nil
}

// testCases loads the test cases of ids grouped by challenge id, in position order.
func (r *MySQLChallengeRepository) testCases(ctx context.Context, ids []string) (map[string][]model.TestCase, error) {
	query := "SELECT challenge_id, invocation, expected_output, is_hidden FROM challenge_test_cases " +
		"WHERE challenge_id IN (" + db.Placeholders(len(ids)) + ") ORDER BY challenge_id, position"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "load test cases")
	}
	defer rows.Close()

	out := make(map[string][]model.TestCase)
	for rows.Next() {
		var challengeID string
		var tc model.TestCase
		if err := rows.Scan(&challengeID, &tc.Invocation, &tc.ExpectedOutput, &tc.IsHidden); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan test case")
		}
		out[challengeID] = append(out[challengeID], tc)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load test cases")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row scanner) (model.Challenge, error) {
	var ch model.Challenge
	var difficulty string
	if err := row.Scan(&ch.ID, &ch.Title, &difficulty, &ch.Category, &ch.Description,
		&ch.StarterCode, &ch.Points, &ch.CompletedBy, &ch.CreatedAt); err != nil {
		return model.Challenge{}, err
	}
	ch.Difficulty = model.Difficulty(difficulty)
	return ch, nil
}

// dbError wraps a driver error. A missing table means schema.sql was never applied.
func dbError(err error, op string) error {
	if db.IsUnknownTable(err) {
		return appErr.Wrapf(err, appErr.DatabaseError, "%s: challenge tables are missing, apply schema.sql", op)
	}
	return appErr.Wrapf(err, appErr.DatabaseError, "%s", op)
}

func notFound(id string) error {
	return appErr.Newf(appErr.ChallengeNotFound, "challenge %s not found", id)
}

func marshalJSON[T any](v T) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON[T any](s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
