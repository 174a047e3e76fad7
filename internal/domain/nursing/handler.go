package nursing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/auth"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/middleware"
	"github.com/MediFlow-EMR/mediflow-dev/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleHeadNurse))
	g.POST("/nursing-notes", h.CreateNote)
	g.GET("/nursing-notes/patient/:patientId", h.ListNotes)
	g.PUT("/nursing-notes/:id", h.UpdateNote)
	g.DELETE("/nursing-notes/:id", h.DeleteNote)

	g.POST("/intake-output", h.CreateIntakeOutput)
	g.GET("/intake-output/patient/:patientId", h.ListIntakeOutput)
	g.PUT("/intake-output/:id", h.UpdateIntakeOutput)
	g.DELETE("/intake-output/:id", h.DeleteIntakeOutput)
}

type noteView struct {
	*NursingNote
	CanEdit bool `json:"canEdit"`
}

type intakeOutputView struct {
	*IntakeOutputRecord
	CanEdit bool `json:"canEdit"`
}

func currentNurse(c echo.Context) (uuid.UUID, error) {
	id, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation(name, "must be a valid id")
	}
	return id, nil
}

// -- Nursing Note Handlers --

func (h *Handler) CreateNote(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	var in NoteInput
	if err := c.Bind(&in); err != nil {
		return middleware.BindError(err)
	}
	n, err := h.svc.CreateNote(c.Request().Context(), nurseID, in)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusCreated, noteView{n, true})
}

func (h *Handler) ListNotes(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	views := make([]noteView, len(items))
	for i, n := range items {
		views[i] = noteView{n, n.NurseID == nurseID}
	}
	return middleware.OK(c, http.StatusOK, pagination.NewResponse(views, total, pg))
}

func (h *Handler) UpdateNote(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in NoteInput
	if err := c.Bind(&in); err != nil {
		return middleware.BindError(err)
	}
	n, err := h.svc.UpdateNote(c.Request().Context(), nurseID, id, in)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusOK, noteView{n, true})
}

func (h *Handler) DeleteNote(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNote(c.Request().Context(), nurseID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Intake/Output Handlers --

func (h *Handler) CreateIntakeOutput(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	var in IntakeOutputInput
	if err := c.Bind(&in); err != nil {
		return middleware.BindError(err)
	}
	rec, err := h.svc.CreateIntakeOutput(c.Request().Context(), nurseID, in)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusCreated, intakeOutputView{rec, true})
}

func (h *Handler) ListIntakeOutput(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIntakeOutput(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	views := make([]intakeOutputView, len(items))
	for i, r := range items {
		views[i] = intakeOutputView{r, r.NurseID == nurseID}
	}
	return middleware.OK(c, http.StatusOK, pagination.NewResponse(views, total, pg))
}

func (h *Handler) UpdateIntakeOutput(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in IntakeOutputInput
	if err := c.Bind(&in); err != nil {
		return middleware.BindError(err)
	}
	rec, err := h.svc.UpdateIntakeOutput(c.Request().Context(), nurseID, id, in)
	if err != nil {
		return err
	}
	return middleware.OK(c, http.StatusOK, intakeOutputView{rec, true})
}

func (h *Handler) DeleteIntakeOutput(c echo.Context) error {
	nurseID, err := currentNurse(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteIntakeOutput(c.Request().Context(), nurseID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
