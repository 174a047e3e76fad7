package genai

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/middleware"
)

const maxQuestionLength = 4000

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Handler exposes a free-form question endpoint backed by the same gateway
// used for handover summaries.
type Handler struct {
	svc Summarizer
}

func NewHandler(svc Summarizer) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/ai/ask", h.Ask)
}

func (h *Handler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return middleware.BindError(err)
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return apperr.Validation("question", "질문을 입력해주세요")
	}
	if utf8.RuneCountInString(q) > maxQuestionLength {
		return apperr.Validation("question", "질문은 4000자 이하로 입력해주세요")
	}

	answer, err := h.svc.GenerateText(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusOK, askResponse{Question: q, Answer: answer})
}
