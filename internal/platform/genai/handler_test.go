package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
)

type stubSummarizer struct {
	prompt string
	out    string
	err    error
}

func (s *stubSummarizer) GenerateText(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

func ask(t *testing.T, svc Summarizer, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/ask", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := NewHandler(svc).Ask(e.NewContext(req, rec))
	return rec, err
}

func TestAsk_Success(t *testing.T) {
	svc := &stubSummarizer{out: "답변"}
	rec, err := ask(t, svc, `{"question":"  욕창 예방법은?  "}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "욕창 예방법은?", svc.prompt)
	assert.Contains(t, rec.Body.String(), `"answer":"답변"`)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestAsk_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"question":""}`},
		{"blank", `{"question":"   "}`},
		{"too long", `{"question":"` + strings.Repeat("a", maxQuestionLength+1) + `"}`},
		{"malformed", `{"question":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubSummarizer{}
			_, err := ask(t, svc, tt.body)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
			assert.Empty(t, svc.prompt, "gateway must not be called")
		})
	}
}

func TestAsk_GatewayFailure(t *testing.T) {
	svc := &stubSummarizer{err: apperr.Summarization(errors.New("down"))}
	_, err := ask(t, svc, `{"question":"hi"}`)
	assert.True(t, errors.Is(err, apperr.ErrSummarization))
}
