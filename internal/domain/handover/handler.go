package handover

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/auth"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/middleware"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
	loc *time.Location
}

func NewHandler(svc *Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/handovers", auth.RequireRole(auth.RoleNurse, auth.RoleHeadNurse))
	g.POST("/ai-summary", h.GenerateSummary)
	g.GET("/preview", h.Preview)
	g.POST("", h.Create)
	g.GET("/department/:departmentId", h.ListByDepartment)
	g.GET("/department/:departmentId/export", h.Export)
	g.DELETE("/:id", h.Delete)
}

// Response is the API view of a handover.
type Response struct {
	*Handover
	HandoverDate string `json:"handoverDate"`
}

func toResponse(h *Handover) Response {
	return Response{Handover: h, HandoverDate: h.HandoverDate.Format(time.DateOnly)}
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	id, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return id, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperr.Validation(field, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation(field, "must be a valid id")
	}
	return id, nil
}

func (h *Handler) GenerateSummary(c echo.Context) error {
	nurseID, err := currentUser(c)
	if err != nil {
		return err
	}
	shiftID, err := parseID("fromShiftId", c.QueryParam("fromShiftId"))
	if err != nil {
		return err
	}
	summary, err := h.svc.GenerateSummary(c.Request().Context(), nurseID, shiftID)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusOK, summary)
}

// Preview returns the prompt that would be sent, without sending it.
func (h *Handler) Preview(c echo.Context) error {
	nurseID, err := currentUser(c)
	if err != nil {
		return err
	}
	shiftID, err := parseID("fromShiftId", c.QueryParam("fromShiftId"))
	if err != nil {
		return err
	}
	prompt, ok, err := h.svc.PreparePrompt(c.Request().Context(), nurseID, shiftID)
	if err != nil {
		return err
	}
	if !ok {
		prompt = NoPatientsMessage
	}
	return middleware.OK(c, http.StatusOK, prompt)
}

// Create accepts either a JSON body or a text/plain summary with the ids in
// the query string.
func (h *Handler) Create(c echo.Context) error {
	authorID, err := currentUser(c)
	if err != nil {
		return err
	}
	in, err := bindCreate(c)
	if err != nil {
		return err
	}
	created, err := h.svc.Create(c.Request().Context(), authorID, in)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusCreated, toResponse(created))
}

func bindCreate(c echo.Context) (CreateInput, error) {
	var in CreateInput
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMETextPlain) {
		if err := c.Bind(&in); err != nil {
			return in, middleware.BindError(err)
		}
		return in, nil
	}

	var err error
	if in.DepartmentID, err = parseID("departmentId", c.QueryParam("departmentId")); err != nil {
		return in, err
	}
	if in.FromShiftID, err = parseID("fromShiftId", c.QueryParam("fromShiftId")); err != nil {
		return in, err
	}
	if in.ToShiftID, err = parseID("toShiftId", c.QueryParam("toShiftId")); err != nil {
		return in, err
	}
	if notes := c.QueryParam("additionalNotes"); notes != "" {
		in.AdditionalNotes = &notes
	}

	// Four bytes per rune covers the longest valid summary; one more byte
	// lets validation see an oversized body.
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSummaryLength*4+1))
	if err != nil {
		return in, middleware.BindError(err)
	}
	in.AISummary = string(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	return in, nil
}

func (h *Handler) ListByDepartment(c echo.Context) error {
	deptID, err := parseID("departmentId", c.Param("departmentId"))
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDepartment(c.Request().Context(), deptID)
	if err != nil {
		return err
	}
	out := make([]Response, len(items))
	for i, it := range items {
		out[i] = toResponse(it)
	}
	return middleware.OK(c, http.StatusOK, out)
}

func (h *Handler) Export(c echo.Context) error {
	deptID, err := parseID("departmentId", c.Param("departmentId"))
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDepartment(c.Request().Context(), deptID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, items, h.loc); err != nil {
		return fmt.Errorf("export handovers: %w", err)
	}
	name := fmt.Sprintf("handovers-%s.xlsx", time.Now().In(h.loc).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func (h *Handler) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID("id", c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
