package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/apperrors"
	"github.com/propfolio/insight-engine/pkg/llm"
	"github.com/propfolio/insight-engine/pkg/models"
	"github.com/propfolio/insight-engine/pkg/schema"
)

func newTestInsightService(t *testing.T, gen *llm.MockGenerator, exec QueryExecutor) *InsightService {
	t.Helper()
	contract, err := schema.Load()
	require.NoError(t, err)

	logger := zap.NewNop()
	canned := NewCannedLibrary(exec, logger)
	return NewInsightService(contract, gen, exec, NewShaper(), canned, nil, nil, logger)
}

func TestAskHappyPath(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "```sql\nSELECT \"city\" FROM properties;\n```", nil
		},
	}
	exec := &mockExecutor{result: &models.QueryResult{
		Columns:  []models.ColumnInfo{{Name: "city", Type: "TEXT"}},
		Rows:     []map[string]any{{"city": "Austin"}},
		RowCount: 1,
	}}
	svc := newTestInsightService(t, gen, exec)

	resp, err := svc.Ask(context.Background(), uuid.New(), "Which cities do I own in?")
	require.NoError(t, err)

	assert.Equal(t, "city: Austin", resp.Answer)
	assert.Equal(t, []string{"properties"}, resp.Tables)
	assert.Equal(t, 1, resp.RowCount)

	// The executor received the sanitized text, fences stripped.
	require.Len(t, exec.validated, 1)
	assert.Equal(t, `SELECT "city" FROM properties`, exec.validated[0].SQL)
}

func TestAskEmptyQuestionFailsBeforeGeneration(t *testing.T) {
	gen := &llm.MockGenerator{}
	svc := newTestInsightService(t, gen, &mockExecutor{result: emptyResult()})

	_, err := svc.Ask(context.Background(), uuid.New(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, gen.GenerateQueryCalls)
}

func TestAskRejectsMaliciousCandidate(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "SELECT * FROM users; DROP TABLE users;", nil
		},
	}
	exec := &mockExecutor{result: emptyResult()}
	svc := newTestInsightService(t, gen, exec)

	_, err := svc.Ask(context.Background(), uuid.New(), "show me everything")
	assert.ErrorIs(t, err, apperrors.ErrValidationRejected)
	assert.Empty(t, exec.validated, "rejected statement must never reach the store")
}

func TestAskRejectsUnknownTable(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "SELECT * FROM pg_shadow", nil
		},
	}
	exec := &mockExecutor{result: emptyResult()}
	svc := newTestInsightService(t, gen, exec)

	_, err := svc.Ask(context.Background(), uuid.New(), "dump credentials")
	assert.ErrorIs(t, err, apperrors.ErrValidationRejected)
	assert.Empty(t, exec.validated)
}

func TestAskSurfacesGeneratorFailure(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "", apperrors.ErrGeneratorTimeout
		},
	}
	svc := newTestInsightService(t, gen, &mockExecutor{result: emptyResult()})

	_, err := svc.Ask(context.Background(), uuid.New(), "slow question")
	assert.ErrorIs(t, err, apperrors.ErrGeneratorTimeout)
}

func TestAskSurfacesExecutionFailure(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return `SELECT "city" FROM properties`, nil
		},
	}
	exec := &mockExecutor{err: apperrors.ErrExecutionFailure}
	svc := newTestInsightService(t, gen, exec)

	_, err := svc.Ask(context.Background(), uuid.New(), "anything")
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailure)
}

func TestAskEmptyResultYieldsNoDataMessage(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return `SELECT "city" FROM properties WHERE "state" = 'ZZ'`, nil
		},
	}
	exec := &mockExecutor{result: emptyResult()}
	svc := newTestInsightService(t, gen, exec)

	resp, err := svc.Ask(context.Background(), uuid.New(), "properties in ZZ?")
	require.NoError(t, err)
	assert.Equal(t, NoDataMessage, resp.Answer)
}

func TestAskPromptCarriesSchemaAndCaller(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return `SELECT "city" FROM properties`, nil
		},
	}
	svc := newTestInsightService(t, gen, &mockExecutor{result: emptyResult()})
	userID := uuid.New()

	_, err := svc.Ask(context.Background(), userID, "what do I own?")
	require.NoError(t, err)

	assert.Contains(t, gen.LastPrompt, "Database Schema (PostgreSQL)")
	assert.Contains(t, gen.LastPrompt, userID.String())
	assert.Contains(t, gen.LastSystem, "ONE SQL statement")
}

func TestChatFoldsGroundingAndTracksSession(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return `SELECT "name" FROM properties`, nil
		},
	}
	exec := &mockExecutor{result: emptyResult()}

	contract, err := schema.Load()
	require.NoError(t, err)
	logger := zap.NewNop()

	userID := uuid.New()
	propertyID := uuid.New()
	authz := &stubAuthz{ids: []uuid.UUID{propertyID}}
	repo := &stubPortfolioRepo{
		properties: []models.Property{{ID: propertyID, UserID: userID, Name: "Lakeview Duplex", City: "Austin"}},
	}
	grounding := NewGroundingAssembler(authz, repo, 50, logger)
	sessions := NewSessionStore(testSessionTTL, logger)
	t.Cleanup(sessions.Stop)

	canned := NewCannedLibrary(exec, logger)
	svc := NewInsightService(contract, gen, exec, NewShaper(), canned, grounding, sessions, logger)

	resp, err := svc.Chat(context.Background(), uuid.Nil, userID, "how is my duplex doing?")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.Contains(t, gen.LastPrompt, "Lakeview Duplex")
	assert.Equal(t, userID, authz.lastUser)

	// Second message reuses the session.
	again, err := svc.Chat(context.Background(), resp.SessionID, userID, "and the rent?")
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, again.SessionID)
}

func TestChatSecondMessageCarriesHistory(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateQueryFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return `SELECT "city" FROM properties`, nil
		},
	}
	exec := &mockExecutor{result: &models.QueryResult{
		Rows:     []map[string]any{{"city": "Austin"}},
		RowCount: 1,
	}}

	contract, err := schema.Load()
	require.NoError(t, err)
	logger := zap.NewNop()

	userID := uuid.New()
	grounding := NewGroundingAssembler(&stubAuthz{}, &stubPortfolioRepo{}, 50, logger)
	sessions := NewSessionStore(testSessionTTL, logger)
	t.Cleanup(sessions.Stop)

	canned := NewCannedLibrary(exec, logger)
	svc := NewInsightService(contract, gen, exec, NewShaper(), canned, grounding, sessions, logger)

	first, err := svc.Chat(context.Background(), uuid.Nil, userID, "which cities do I own in?")
	require.NoError(t, err)
	assert.NotContains(t, gen.LastPrompt, "Earlier in this conversation:",
		"the opening message has no history")

	_, err = svc.Chat(context.Background(), first.SessionID, userID, "and the expenses there?")
	require.NoError(t, err)

	assert.Contains(t, gen.LastPrompt, "Q: which cities do I own in?")
	assert.Contains(t, gen.LastPrompt, "A: "+first.Answer)
}

func TestCannedThroughService(t *testing.T) {
	exec := &mockExecutor{result: &models.QueryResult{
		Columns:  []models.ColumnInfo{{Name: "total_current_value", Type: "FLOAT8"}},
		Rows:     []map[string]any{{"total_current_value": 1250000.0}},
		RowCount: 1,
	}}
	svc := newTestInsightService(t, &llm.MockGenerator{}, exec)

	resp, err := svc.Canned(context.Background(), CannedPortfolioTotalValue, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "total_current_value: 1250000", resp.Answer)
}

func TestValidateOnly(t *testing.T) {
	svc := newTestInsightService(t, &llm.MockGenerator{}, &mockExecutor{result: emptyResult()})

	stmt, err := svc.ValidateOnly(`SELECT "city" FROM properties`)
	require.NoError(t, err)
	assert.Equal(t, []string{"properties"}, stmt.Tables)

	_, err = svc.ValidateOnly("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.ValidateOnly("DELETE FROM properties")
	var rejected error = apperrors.ErrValidationRejected
	assert.True(t, errors.Is(err, rejected))
}
