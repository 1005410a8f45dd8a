// FILE: internal/service/chat_service.go
// PURPOSE: Orchestrates one chat turn end to end: classify, acknowledge,
// retrieve, run the agent loop, persist both turns, and stream NDJSON events.
package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-context-engine/internal/constant"
	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/memory"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/events"
	"ai-context-engine/pkg/llm"
	pktNats "ai-context-engine/pkg/nats"
	"ai-context-engine/pkg/rag/executor"
	"ai-context-engine/pkg/store"
	"ai-context-engine/pkg/trigger"

	"github.com/google/uuid"
)

const (
	// ackTimeout caps the instant acknowledgement. Past it the canned line
	// ships instead; the ack must never delay the real answer.
	ackTimeout = 2500 * time.Millisecond

	// historyTokenBudget bounds how much conversation one turn replays.
	historyTokenBudget = 6000

	sessionTitleMaxLen = 80
)

// StreamEmitter receives stream events in order. The controller flushes each
// one as an NDJSON line.
type StreamEmitter func(event *dto.StreamEvent)

// IChatService defines the chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.StreamChatRequest, emit StreamEmitter) error
}

// chatService coordinates the retrieval pipeline and the agent loop
type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	completions    llm.CompletionProvider
	ackModel       string
	answerModel    string
	pipeline       *executor.Pipeline
	agentLoop      *agent.Loop
	pendingStore   *agent.PendingStore
	sessionRepo    *memory.AgentSessionRepository
	eventPublisher *pktNats.Publisher
	llmLogger      *log.Logger
}

// NewChatService creates the chat service around prebuilt engine components
func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	completions llm.CompletionProvider,
	ackModel string,
	answerModel string,
	pipeline *executor.Pipeline,
	agentLoop *agent.Loop,
	pendingStore *agent.PendingStore,
	sessionRepo *memory.AgentSessionRepository,
	eventPublisher *pktNats.Publisher,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		completions:    completions,
		ackModel:       ackModel,
		answerModel:    answerModel,
		pipeline:       pipeline,
		agentLoop:      agentLoop,
		pendingStore:   pendingStore,
		sessionRepo:    sessionRepo,
		eventPublisher: eventPublisher,
		llmLogger:      initLLMLogger(),
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_agent.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-AGENT] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession creates a new chat session
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = "New conversation"
	}

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves the conversation turns for a session
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	turns, err := uow.ConversationTurnRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(turns))
	for _, turn := range turns {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        turn.Id,
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}

	return resp, nil
}

// DeleteSession removes a chat session and its turns
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ConversationTurnRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}

	cs.sessionRepo.Delete(sessionId.String())

	return uow.Commit()
}

// StreamChat runs one full turn. Session/validation failures come back as an
// error before anything is emitted; once events start flowing every failure
// is reported on the stream itself and the method returns nil.
func (cs *chatService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.StreamChatRequest, emit StreamEmitter) error {
	started := time.Now()
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	path := trigger.Classify(request.Message)
	cs.llmLogger.Printf("[TRIGGER] Path=%s for message: %s", path, logPreview(request.Message, 60))

	// Junk never becomes conversation: no turn rows, empty response, the
	// bridge sees path=skip and sends nothing.
	if path == trigger.PathSkip {
		cs.rememberTurn(request.ChatSessionId, userId, request.Message, string(path), "")
		emit(&dto.StreamEvent{
			Type:       "response",
			ResponseId: uuid.NewString(),
			Debug: &dto.DebugInfo{
				Path:   string(path),
				Timing: dto.TimingDebug{TotalMs: time.Since(started).Milliseconds()},
			},
		})
		return nil
	}

	priorTurns, err := uow.ConversationTurnRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return err
	}

	now := time.Now()
	userTurn := &entity.ConversationTurn{
		Id:            uuid.New(),
		Role:          constant.ChatMessageRoleUser,
		Content:       request.Message,
		ChatSessionId: request.ChatSessionId,
		UserId:        userId,
		CreatedAt:     now,
	}

	// The first user message names the session.
	var retitled *entity.ChatSession
	if len(priorTurns) == 0 {
		sess.Title = deriveSessionTitle(request.Message)
		retitled = sess
	}
	if err := cs.saveTurn(ctx, userTurn, retitled); err != nil {
		return err
	}

	history := turnsToMessages(priorTurns)
	history = append(history, llm.Message{Role: "user", Content: request.Message})

	if path == trigger.PathCasual {
		cs.runCasual(ctx, userId, request, history, emit, started)
		return nil
	}

	cs.runAgent(ctx, userId, request, history, emit, started)
	return nil
}

// runCasual answers social filler with a single completion: no ack, no
// retrieval, no tools.
func (cs *chatService) runCasual(
	ctx context.Context,
	userId uuid.UUID,
	request *dto.StreamChatRequest,
	history []llm.Message,
	emit StreamEmitter,
	started time.Time,
) {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.CasualSystemPromptV1})
	msgs = append(msgs, agent.Truncate(history, historyTokenBudget)...)

	reply, err := cs.completions.Chat(ctx, msgs)
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		if err != nil {
			cs.llmLogger.Printf("[WARN] Casual completion failed: %v", err)
		}
		reply = constant.CasualReplyFallback
	}

	responseId := cs.persistAssistantTurn(ctx, userId, request.ChatSessionId, reply)
	cs.rememberTurn(request.ChatSessionId, userId, request.Message, string(trigger.PathCasual), responseId)
	cs.publishChatCompleted(ctx, userId, request.ChatSessionId, string(trigger.PathCasual), nil, time.Since(started).Milliseconds())

	emit(&dto.StreamEvent{
		Type:       "response",
		Response:   reply,
		ResponseId: responseId,
		Debug: &dto.DebugInfo{
			Source: cs.answerModel,
			Path:   string(trigger.PathCasual),
			Timing: dto.TimingDebug{TotalMs: time.Since(started).Milliseconds()},
		},
	})
}

// runAgent is the substantive path: instant ack, retrieval pipeline, then
// the tool loop over the assembled history.
func (cs *chatService) runAgent(
	ctx context.Context,
	userId uuid.UUID,
	request *dto.StreamChatRequest,
	history []llm.Message,
	emit StreamEmitter,
	started time.Time,
) {
	emit(&dto.StreamEvent{Type: "ack", Text: cs.instantAck(ctx, request.Message)})

	loc, err := time.LoadLocation(request.Timezone)
	if err != nil || request.Timezone == "" {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	pipeRes := cs.pipeline.Execute(ctx, userId, request.Message, request.Timezone)

	msgs := make([]llm.Message, 0, len(history)+2)
	if len(pipeRes.Blocks) > 0 {
		msgs = append(msgs, llm.Message{
			Role:    "user",
			Content: agent.MarkerContext + "\n" + pipeRes.Evidence,
		})
	}
	msgs = append(msgs, history...)
	msgs = agent.Truncate(msgs, historyTokenBudget)
	msgs = append([]llm.Message{{
		Role:    constant.ChatMessageRoleSystem,
		Content: cs.buildSystemPrompt(ctx, userId, now),
	}}, msgs...)

	agentStarted := time.Now()
	loopRes, err := cs.agentLoop.Run(ctx, userId, request.Timezone, msgs)
	agentMs := time.Since(agentStarted).Milliseconds()

	if err != nil {
		cs.llmLogger.Printf("[ERROR] Agent loop failed: %v", err)
		emit(&dto.StreamEvent{Type: "error", Message: constant.AnswerUnavailableFallback})
		return
	}

	answer := strings.TrimSpace(loopRes.Answer)
	if answer == "" {
		answer = constant.AnswerUnavailableFallback
	}

	responseId := cs.persistAssistantTurn(ctx, userId, request.ChatSessionId, answer)
	cs.savePendingActions(ctx, userId, loopRes.Pending)
	cs.rememberTurn(request.ChatSessionId, userId, request.Message, string(trigger.PathAgent), responseId)

	totalMs := time.Since(started).Milliseconds()
	cs.publishChatCompleted(ctx, userId, request.ChatSessionId, string(trigger.PathAgent), loopRes.ToolsUsed, totalMs)
	cs.llmLogger.Printf("[TIMING] context=%dms agent=%dms total=%dms tools=%v",
		pipeRes.ContextMs, agentMs, totalMs, loopRes.ToolsUsed)

	emit(&dto.StreamEvent{
		Type:       "response",
		Response:   answer,
		ResponseId: responseId,
		Debug: &dto.DebugInfo{
			Source:    cs.answerModel,
			Path:      string(trigger.PathAgent),
			ToolsUsed: loopRes.ToolsUsed,
			Timing: dto.TimingDebug{
				ContextMs:             pipeRes.ContextMs,
				AgentMs:               agentMs,
				OrchestratorLatencyMs: totalMs - pipeRes.ContextMs - agentMs,
				TotalMs:               totalMs,
			},
		},
	})
}

// instantAck asks the cheap model for a short acknowledgement under a hard
// deadline. Any failure falls back to the canned list.
func (cs *chatService) instantAck(ctx context.Context, message string) string {
	ackCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()

	text, err := cs.completions.Generate(ackCtx,
		fmt.Sprintf(constant.AckPromptTemplate, logPreview(message, 200)),
		llm.WithModel(cs.ackModel),
		llm.WithMaxTokens(20),
	)
	ack := strings.TrimSpace(text)
	if err != nil || ack == "" {
		if err != nil {
			cs.llmLogger.Printf("[WARN] Ack model failed, using fallback: %v", err)
		}
		return trigger.FallbackAck()
	}
	return ack
}

// buildSystemPrompt layers current time and live pending actions onto the
// base instructions.
func (cs *chatService) buildSystemPrompt(ctx context.Context, userId uuid.UUID, now time.Time) string {
	var b strings.Builder
	b.WriteString(constant.AgentSystemPromptV1)
	b.WriteString("\n\nCurrent time: ")
	b.WriteString(now.Format("Monday, January 2, 2006 at 3:04 PM MST"))

	if summaries := cs.pendingStore.Summaries(ctx, userId); len(summaries) > 0 {
		b.WriteString("\n\nPending actions awaiting the user's confirmation:\n")
		for _, s := range summaries {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// saveTurn persists one turn, plus an optional session retitle, in a short
// transaction. The engine never runs inside a DB transaction.
func (cs *chatService) saveTurn(ctx context.Context, turn *entity.ConversationTurn, retitled *entity.ChatSession) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ConversationTurnRepository().Create(ctx, turn); err != nil {
		return err
	}
	if retitled != nil {
		if err := uow.ChatSessionRepository().Update(ctx, retitled); err != nil {
			return err
		}
	}

	return uow.Commit()
}

// persistAssistantTurn writes the answer and returns its id as the stream's
// response_id. A write failure here must not swallow an answer the model
// already produced, so it degrades to a synthetic id.
func (cs *chatService) persistAssistantTurn(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, answer string) string {
	turn := &entity.ConversationTurn{
		Id:            uuid.New(),
		Role:          constant.ChatMessageRoleAssistant,
		Content:       answer,
		ChatSessionId: sessionId,
		UserId:        userId,
		CreatedAt:     time.Now(),
	}
	if err := cs.saveTurn(ctx, turn, nil); err != nil {
		cs.llmLogger.Printf("[ERROR] Failed to persist assistant turn: %v", err)
	}
	return turn.Id.String()
}

func (cs *chatService) savePendingActions(ctx context.Context, userId uuid.UUID, pending []*agent.PendingAction) {
	for _, action := range pending {
		if action.UserID == "" {
			action.UserID = userId.String()
		}
		if err := cs.pendingStore.Save(ctx, action); err != nil {
			cs.llmLogger.Printf("[WARN] Failed to save pending %s: %v", action.Type, err)
		}
	}
}

// rememberTurn refreshes the hot per-session state.
func (cs *chatService) rememberTurn(sessionId uuid.UUID, userId uuid.UUID, query string, path string, responseId string) {
	state, found := cs.sessionRepo.Get(sessionId.String())
	if !found {
		state = &store.AgentSession{ID: sessionId.String(), UserID: userId.String()}
	}
	state.LastQuery = query
	state.LastPath = path
	state.LastResponseID = responseId
	cs.sessionRepo.Save(state)
}

func (cs *chatService) publishChatCompleted(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, path string, toolsUsed []string, totalMs int64) {
	if cs.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: "CHAT_COMPLETED",
		Data: map[string]interface{}{
			"user_id":         userId,
			"chat_session_id": sessionId,
			"path":            path,
			"tools_used":      toolsUsed,
			"total_ms":        totalMs,
		},
		OccurredAt: time.Now(),
	}
	// We log error but don't fail the request as notification is auxiliary
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.llmLogger.Printf("[WARN] Failed to publish CHAT_COMPLETED event: %v", err)
	}
}

func turnsToMessages(turns []*entity.ConversationTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return msgs
}

func deriveSessionTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	runes := []rune(title)
	if len(runes) > sessionTitleMaxLen {
		title = string(runes[:sessionTitleMaxLen]) + "..."
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}

func logPreview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
