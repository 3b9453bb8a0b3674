package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pubmed-chat/internal/domain"
	"pubmed-chat/internal/logger"
	"pubmed-chat/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	errorNotFound       = "NOT_FOUND"
	conversationsPrefix = "/conversations/"
)

// AskUseCase is the pipeline surface the handler needs.
type AskUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	History(ctx context.Context, conversationID string) ([]domain.ConversationTurn, error)
}

type Handler struct {
	uc       AskUseCase
	log      *slog.Logger
	validate *validator.Validate
}

type askRequest struct {
	Question       string `json:"question" validate:"required"`
	ConversationID string `json:"conversationId" validate:"omitempty,max=128"`
}

type askResponse struct {
	ConversationID string         `json:"conversationId"`
	Blocks         []domain.Block `json:"blocks"`
	Failure        string         `json:"failure,omitempty"`
}

type historyResponse struct {
	ConversationID string                    `json:"conversationId"`
	Turns          []domain.ConversationTurn `json:"turns"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(uc AskUseCase, log *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		uc:       uc,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Handle serves API Gateway proxy events: POST /ask runs one submission and
// GET /conversations/{id} returns the stored transcript.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, headerCorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)
	log := logger.FromContext(ctx, h.log)

	var resp events.APIGatewayProxyResponse
	switch {
	case req.HTTPMethod == http.MethodPost && strings.HasSuffix(req.Path, "/ask"):
		resp = h.ask(ctx, log, req.Body)
	case req.HTTPMethod == http.MethodGet && conversationID(req) != "":
		resp = h.history(ctx, log, conversationID(req))
	default:
		resp = jsonResponse(http.StatusNotFound, errorResponse{Error: errorNotFound})
	}
	resp.Headers[headerCorrelationID] = correlationID
	log.Info("request handled", "method", req.HTTPMethod, "path", req.Path, "status", resp.StatusCode)
	return resp, nil
}

func (h *Handler) ask(ctx context.Context, log *slog.Logger, body string) events.APIGatewayProxyResponse {
	var in askRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		log.Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_json"})
	}
	if err := h.validate.Struct(&in); err != nil {
		log.Warn("request validation failed", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_request"})
	}

	out, err := h.uc.Ask(ctx, usecase.AskInput{Question: in.Question, ConversationID: in.ConversationID})
	if err != nil {
		return errorResponseFor(log, err)
	}
	status := http.StatusOK
	if out.Failure != "" {
		log.Info("pipeline finished with failure turn", "failure", out.Failure)
	}
	// The turn is already recorded; 429 tells the client to retry later.
	if out.Failure == usecase.ErrorRateLimited {
		status = http.StatusTooManyRequests
	}
	return jsonResponse(status, askResponse{
		ConversationID: out.ConversationID,
		Blocks:         out.Blocks,
		Failure:        string(out.Failure),
	})
}

func (h *Handler) history(ctx context.Context, log *slog.Logger, id string) events.APIGatewayProxyResponse {
	turns, err := h.uc.History(ctx, id)
	if err != nil {
		return errorResponseFor(log, err)
	}
	if len(turns) == 0 {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: errorNotFound, Reason: "unknown_conversation"})
	}
	return jsonResponse(http.StatusOK, historyResponse{ConversationID: id, Turns: turns})
}

func errorResponseFor(log *slog.Logger, err error) events.APIGatewayProxyResponse {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		log.Error("unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
	}
	status := statusFor(ue.Code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", ue.Code, "reason", ue.Reason, "err", ue.Err)
	} else {
		log.Warn("request rejected", "code", ue.Code, "reason", ue.Reason)
	}
	return jsonResponse(status, errorResponse{Error: string(ue.Code), Reason: ue.Reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(raw),
	}
}

// conversationID reads the id from the path parameters, falling back to
// the raw path.
func conversationID(req events.APIGatewayProxyRequest) string {
	if id := strings.TrimSpace(req.PathParameters["id"]); id != "" {
		return id
	}
	_, id, ok := strings.Cut(req.Path, conversationsPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return strings.TrimSpace(id)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
