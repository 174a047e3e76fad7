package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/auth"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	h := RequestID()(func(c echo.Context) error {
		seen = RequestIDFromContext(c)
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Error("expected request id in context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("expected response header %q, got %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error { return nil })
	_ = h(c)
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected abc-123, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})
	err := h(c)
	if StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestLogger_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/handovers/preview", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "nurse-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Logger(logger)(func(c echo.Context) error {
		return apperr.NotFound("shift", 9)
	})
	_ = h(c)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("expected status 404, got %v", line["status"])
	}
	if line["user_id"] != "nurse-1" {
		t.Errorf("expected user_id nurse-1, got %v", line["user_id"])
	}
	if line["level"] != "warn" {
		t.Errorf("expected warn level, got %v", line["level"])
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("handover", 1), http.StatusNotFound},
		{apperr.Forbidden("author only"), http.StatusForbidden},
		{apperr.Validation("aiSummary", "is required"), http.StatusBadRequest},
		{apperr.Summarization(errors.New("timeout")), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("shift", 2)), http.StatusNotFound},
		{echo.NewHTTPError(http.StatusUnauthorized, "missing token"), http.StatusUnauthorized},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorHandler_Envelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		notContain string
	}{
		{"validation", apperr.Validation("note", "must not be empty"), http.StatusBadRequest, "note: must not be empty", ""},
		{"summarization hides cause", apperr.Summarization(errors.New("key=secret")), http.StatusBadGateway, "AI 요약 생성에 실패했습니다", "secret"},
		{"internal hides detail", errors.New("pq: relation users does not exist"), http.StatusInternalServerError, "internal server error", "relation"},
		{"echo http error", echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized, "invalid token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			ErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var env Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success {
				t.Error("expected success=false")
			}
			if env.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, env.Message)
			}
			if tt.notContain != "" && strings.Contains(rec.Body.String(), tt.notContain) {
				t.Errorf("response leaked %q: %s", tt.notContain, rec.Body.String())
			}
		})
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	var last error
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		last = h(e.NewContext(req, rec))
		if i < 2 && last != nil {
			t.Fatalf("request %d should pass, got %v", i, last)
		}
		if i == 2 && rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on rejection")
		}
	}
	if StatusOf(last) != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %v", last)
	}
}

func TestRateLimit_SeparateKeysPerUser(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	h := mw(func(c echo.Context) error { return nil })

	for _, uid := range []string{"nurse-a", "nurse-b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
		if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Errorf("first request for %s should pass, got %v", uid, err)
		}
	}
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	h := RequestTimeout(50 * time.Millisecond)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})
	if err := h(c); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRequestTimeout_SkipsExport(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAccept, mimeXLSX)
	c := e.NewContext(req, httptest.NewRecorder())

	h := RequestTimeout(time.Millisecond)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("export request should not carry a deadline")
		}
		return nil
	})
	_ = h(c)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"256K", 256 << 10},
		{"256KB", 256 << 10},
		{"1m", 1 << 20},
		{"2G", 2 << 30},
		{"500", 500},
		{"", 1 << 20},
		{"lots", 1 << 20},
		{"-5K", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBodyLimit_RejectsDeclaredLengthBeforeHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 2048)))
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := BodyLimit("1K")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if called {
		t.Error("handler should not run for an oversized declared body")
	}
	if StatusOf(err) != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", StatusOf(err))
	}
}

func TestBodyLimit_StopsReadingPastLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 2048)))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	var readErr error
	var n int
	_ = BodyLimit("1K")(func(c echo.Context) error {
		var b []byte
		b, readErr = io.ReadAll(c.Request().Body)
		n = len(b)
		return nil
	})(c)
	if !errors.Is(readErr, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", readErr)
	}
	if n > 1024 {
		t.Errorf("read %d bytes, expected at most 1024", n)
	}
}

func TestBodyLimit_PassesSmallBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	var got string
	err := BodyLimit("1K")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		got = string(b)
		return err
	})(c)
	if err != nil || got != "hello" {
		t.Fatalf("expected body to pass through, got %q, %v", got, err)
	}
}

func TestBindError(t *testing.T) {
	if err := BindError(fmt.Errorf("decode: %w", ErrBodyTooLarge)); StatusOf(err) != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for an oversized body, got %d", StatusOf(err))
	}
	err := BindError(echo.NewHTTPError(http.StatusBadRequest, "syntax error"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
