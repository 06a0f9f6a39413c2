package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/apperrors"
	"github.com/propfolio/insight-engine/pkg/llm"
	"github.com/propfolio/insight-engine/pkg/prompts"
	"github.com/propfolio/insight-engine/pkg/schema"
	sqlval "github.com/propfolio/insight-engine/pkg/sql"
)

// InsightResponse is the shaped outcome of one answered question.
type InsightResponse struct {
	Answer    string    `json:"answer"`
	Tables    []string  `json:"tables,omitempty"`
	RowCount  int       `json:"row_count"`
	Truncated bool      `json:"truncated,omitempty"`
	SessionID uuid.UUID `json:"session_id,omitempty"`
}

// InsightService runs the question pipeline: build the prompt from the schema
// contract, generate a candidate statement, sanitize it, execute it read-only,
// and shape the rows into an answer. The generator's output is never trusted;
// only statements that pass every sanitizer gate reach the store.
type InsightService struct {
	contract  *schema.Contract
	generator llm.QueryGenerator
	executor  QueryExecutor
	shaper    *Shaper
	canned    *CannedLibrary
	grounding *GroundingAssembler
	sessions  *SessionStore
	logger    *zap.Logger
}

// NewInsightService wires the pipeline. grounding and sessions are only
// exercised by the chat path and may be nil when chat is not served.
func NewInsightService(
	contract *schema.Contract,
	generator llm.QueryGenerator,
	executor QueryExecutor,
	shaper *Shaper,
	canned *CannedLibrary,
	grounding *GroundingAssembler,
	sessions *SessionStore,
	logger *zap.Logger,
) *InsightService {
	return &InsightService{
		contract:  contract,
		generator: generator,
		executor:  executor,
		shaper:    shaper,
		canned:    canned,
		grounding: grounding,
		sessions:  sessions,
		logger:    logger.Named("insight"),
	}
}

// promptHistoryExchanges bounds how many prior turns a chat prompt carries.
// The store keeps more; the prompt only needs the recent tail.
const promptHistoryExchanges = 5

// Ask answers a one-shot question with no conversation state.
func (s *InsightService) Ask(ctx context.Context, userID uuid.UUID, question string) (*InsightResponse, error) {
	return s.answer(ctx, userID, question, "", nil)
}

// Chat answers a question inside a conversation session. A nil or expired
// session id starts a fresh session; the returned response carries the live
// session id for the next message. The caller's visible records and the
// session's recent turns are folded into the prompt.
func (s *InsightService) Chat(ctx context.Context, sessionID, userID uuid.UUID, question string) (*InsightResponse, error) {
	sess := s.sessions.Touch(sessionID, userID)

	snapshot, err := s.grounding.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	groundingBlock, err := s.grounding.Render(snapshot)
	if err != nil {
		return nil, err
	}

	var history []prompts.Exchange
	for _, ex := range s.sessions.History(sess.ID, promptHistoryExchanges) {
		history = append(history, prompts.Exchange{Question: ex.Question, Answer: ex.Answer})
	}

	resp, err := s.answer(ctx, userID, question, groundingBlock, history)
	if err != nil {
		return nil, err
	}

	s.sessions.Record(sess.ID, question, resp.Answer)
	resp.SessionID = sess.ID
	return resp, nil
}

func (s *InsightService) answer(ctx context.Context, userID uuid.UUID, question, groundingBlock string, history []prompts.Exchange) (*InsightResponse, error) {
	req, err := prompts.BuildInsightRequest(s.contract.Describe(), question, userID.String(), groundingBlock, history)
	if err != nil {
		return nil, err
	}

	candidate, err := s.generator.GenerateQuery(ctx, req.System, req.User)
	if err != nil {
		return nil, err
	}

	stmt, err := sqlval.Sanitize(candidate, s.contract)
	if err != nil {
		var rej *sqlval.RejectionError
		if errors.As(err, &rej) {
			s.logger.Warn("rejected generated statement",
				zap.String("reason", string(rej.Reason)),
				zap.String("model", s.generator.Model()))
		}
		return nil, err
	}

	result, err := s.executor.ExecuteValidated(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return &InsightResponse{
		Answer:    s.shaper.Narrative(result),
		Tables:    stmt.Tables,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
	}, nil
}

// Canned runs one catalog query for the caller and shapes it as narrative.
func (s *InsightService) Canned(ctx context.Context, id CannedQueryID, userID uuid.UUID) (*InsightResponse, error) {
	result, err := s.canned.Execute(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &InsightResponse{
		Answer:   s.shaper.Narrative(result),
		RowCount: result.RowCount,
	}, nil
}

// Describe exposes the schema description used for prompts, handy for
// operational inspection.
func (s *InsightService) Describe() string {
	return s.contract.Describe()
}

// ValidateOnly runs a candidate statement through the sanitizer without
// executing it. Used by tooling and tests to probe the gates.
func (s *InsightService) ValidateOnly(candidate string) (*sqlval.Statement, error) {
	if candidate == "" {
		return nil, fmt.Errorf("%w: statement must not be empty", apperrors.ErrInvalidInput)
	}
	return sqlval.Sanitize(candidate, s.contract)
}
