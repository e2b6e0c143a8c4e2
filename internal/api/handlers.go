package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/manual"
	"github.com/labddb/resistorlens/internal/reading"
	"github.com/labddb/resistorlens/internal/scanner"
	"github.com/labddb/resistorlens/internal/vision"
)

// ColorResponse describes one band colour.
type ColorResponse struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Digit       *int    `json:"digit"`
	Multiplier  float64 `json:"multiplier"`
	Tolerance   string  `json:"tolerance,omitempty"`
	Hex         string  `json:"hex"`
}

// ReadingResponse is a recorded reading with its display strings.
type ReadingResponse struct {
	scanner.Reading
	DisplayValue string `json:"display_value"`
	Summary      string `json:"summary"`
}

// ResultResponse is an unrecorded Result, as produced by the manual picker.
type ResultResponse struct {
	reading.Result
	Quality      reading.Quality `json:"quality"`
	DisplayValue string          `json:"display_value"`
	Summary      string          `json:"summary"`
}

// ManualResponse is the picker state with the colours offered per slot.
type ManualResponse struct {
	Selection map[string]colorcode.Color   `json:"selection"`
	Options   map[string][]colorcode.Color `json:"options"`
	Result    ResultResponse               `json:"result"`
	Usage     *int64                       `json:"usage,omitempty"`
}

// DecodeRequest lists band colours, first band first.
type DecodeRequest struct {
	Bands []string `json:"bands"`
}

// ManualUpdateRequest selects a colour for one slot. Slot is 0..2 or a
// slot name.
type ManualUpdateRequest struct {
	Slot  json.RawMessage `json:"slot"`
	Color string          `json:"color"`
}

// ScanRequest carries an image as a data URL.
type ScanRequest struct {
	Image string `json:"image"`
}

// HealthCheck reports service status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":        "healthy",
		"version":       c.build.GetVersion(),
		"build_date":    c.build.GetBuildDate(),
		"timestamp":     time.Now().Format(time.RFC3339),
		"vision":        "unavailable",
		"history_limit": c.Scanner.History().Limit(),
	}
	if c.visionReady {
		response["vision"] = "configured"
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.Round(time.Second).String()
	response["uptime_seconds"] = uptime.Seconds()

	dbStatus := "connected"
	if _, err := c.Scanner.History().Usage(ctx.Request().Context()); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	return ctx.JSON(http.StatusOK, response)
}

// ListColors returns the twelve band colours in canonical order.
func (c *Controller) ListColors(ctx echo.Context) error {
	colors := colorcode.Colors()
	out := make([]ColorResponse, 0, len(colors))
	for _, col := range colors {
		out = append(out, newColorResponse(col))
	}
	return ctx.JSON(http.StatusOK, out)
}

// Decode decodes an explicit band list and records the reading.
func (c *Controller) Decode(ctx echo.Context) error {
	var req DecodeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	r, err := c.Scanner.DecodeBands(ctx.Request().Context(), req.Bands)
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, newReadingResponse(r))
}

// Scan reads a photo through the vision analyzer. The image is taken from
// the multipart field "image", a JSON data URL, or the raw request body.
func (c *Controller) Scan(ctx echo.Context) error {
	source := history.Source(ctx.QueryParam("source"))
	switch source {
	case "":
		source = history.SourceUpload
	case history.SourceUpload, history.SourceCamera:
	default:
		return c.HandleError(ctx, nil, "source must be camera or upload", http.StatusBadRequest)
	}

	img, err := readImage(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err)
	}

	r, err := c.Scanner.Scan(ctx.Request().Context(), source, img)
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, newReadingResponse(r))
}

// GetManual returns the picker state.
func (c *Controller) GetManual(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.manualResponse(nil))
}

// UpdateManual applies one picker edit.
func (c *Controller) UpdateManual(ctx echo.Context) error {
	var req ManualUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	slot, err := manual.ParseSlot(strings.Trim(string(req.Slot), `"`))
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	if _, err := c.Scanner.ManualUpdate(ctx.Request().Context(), slot, req.Color); err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, c.manualResponse(nil))
}

// ActivateManual switches to manual mode and counts one usage.
func (c *Controller) ActivateManual(ctx echo.Context) error {
	_, usage, err := c.Scanner.ActivateManual(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, c.manualResponse(&usage))
}

// SaveManual records the current manual Result in the history.
func (c *Controller) SaveManual(ctx echo.Context) error {
	r, err := c.Scanner.SaveManual(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, newReadingResponse(r))
}

// ResetManual restores the initial selection.
func (c *Controller) ResetManual(ctx echo.Context) error {
	c.Scanner.ResetManual(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, c.manualResponse(nil))
}

// GetHistory lists recent readings, most recent first.
func (c *Controller) GetHistory(ctx echo.Context) error {
	entries, err := c.Scanner.History().List(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// ClearHistory empties the history. The usage counter is kept.
func (c *Controller) ClearHistory(ctx echo.Context) error {
	if err := c.Scanner.History().Clear(ctx.Request().Context()); err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetUsage returns the usage counter.
func (c *Controller) GetUsage(ctx echo.Context) error {
	usage, err := c.Scanner.History().Usage(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]int64{"usage": usage})
}

func (c *Controller) manualResponse(usage *int64) ManualResponse {
	sel := c.Scanner.Manual()
	state := sel.State()
	resp := ManualResponse{
		Selection: make(map[string]colorcode.Color, len(state.Bands)),
		Options:   make(map[string][]colorcode.Color, len(state.Bands)),
		Result:    newResultResponse(sel.Current()),
		Usage:     usage,
	}
	for i, col := range state.Bands {
		slot := manual.Slot(i)
		resp.Selection[slot.String()] = col
		resp.Options[slot.String()] = manual.Options(slot)
	}
	return resp
}

func readImage(ctx echo.Context) (vision.Image, error) {
	req := ctx.Request()
	contentType := req.Header.Get(echo.HeaderContentType)
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		fh, err := ctx.FormFile("image")
		if err != nil {
			return vision.Image{}, echo.NewHTTPError(http.StatusBadRequest, `multipart field "image" is required`)
		}
		f, err := fh.Open()
		if err != nil {
			return vision.Image{}, errors.New(err).Component("api").Category(errors.CategoryFileIO).Build()
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, vision.MaxImageBytes+1))
		if err != nil {
			return vision.Image{}, errors.New(err).Component("api").Category(errors.CategoryFileIO).Build()
		}
		return vision.NewImage(data, fh.Header.Get(echo.HeaderContentType))

	case mediaType == echo.MIMEApplicationJSON:
		var body ScanRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return vision.Image{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		return vision.DecodeDataURL(body.Image)

	default:
		data, err := io.ReadAll(io.LimitReader(req.Body, vision.MaxImageBytes+1))
		if err != nil {
			return vision.Image{}, echo.NewHTTPError(http.StatusBadRequest, "Could not read request body")
		}
		return vision.NewImage(data, contentType)
	}
}

func newColorResponse(col colorcode.Color) ColorResponse {
	resp := ColorResponse{
		Name:        col.String(),
		DisplayName: col.DisplayName(),
		Multiplier:  col.Multiplier(),
		Hex:         col.Hex(),
	}
	if d, ok := col.Digit(); ok {
		resp.Digit = &d
	}
	if tol, ok := col.Tolerance(); ok {
		resp.Tolerance = tol
	}
	return resp
}

func newReadingResponse(r scanner.Reading) ReadingResponse {
	return ReadingResponse{
		Reading:      r,
		DisplayValue: r.Result.DisplayValue(),
		Summary:      r.Result.Summary(),
	}
}

func newResultResponse(r reading.Result) ResultResponse {
	return ResultResponse{
		Result:       r,
		Quality:      r.Quality(),
		DisplayValue: r.DisplayValue(),
		Summary:      r.Summary(),
	}
}
