package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/http/api"
	"github.com/noorhub/salahtrack/internal/http/api/prayers/packets"
	"github.com/noorhub/salahtrack/internal/model"
	"github.com/noorhub/salahtrack/internal/prayer"
)

// PrayerModule mounts the prayer tracking endpoints (JWT required).
func PrayerModule(engine *prayer.Engine) api.Module {
	ctl := &prayerController{engine: engine}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/prayers", ctl.getPrayerTimes)
		c.POST("/prayers/:id/complete", ctl.completePrayer)
		c.POST("/prayers/:id/qada", ctl.markQada)
		c.POST("/prayers/sweep", ctl.sweepMissed)
		c.GET("/dashboard/stats", ctl.dashboardStats)
		c.GET("/calendar/week", ctl.weeklyCalendar)
	})
}

type prayerController struct {
	engine *prayer.Engine
}

// GET /api/prayers?date=YYYY-MM-DD
func (p *prayerController) getPrayerTimes(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	day, err := p.engine.GetPrayerTimes(ctx.Request.Context(), user.ID, ctx.Query("date"), time.Now())
	if err != nil {
		return nil, translateEngineError(err)
	}
	return day, nil
}

// POST /api/prayers/:id/complete
func (p *prayerController) completePrayer(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	prayerID, apiErr := prayerIDParam(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.CompletePrayerRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
		}
	}

	completion, err := p.engine.CompletePrayer(ctx.Request.Context(), user.ID, prayerID, time.Now(), request.InJamaat, request.Notes)
	if err != nil {
		return nil, translateEngineError(err)
	}
	return completion, nil
}

// POST /api/prayers/:id/qada
func (p *prayerController) markQada(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	prayerID, apiErr := prayerIDParam(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	completion, err := p.engine.MarkQada(ctx.Request.Context(), user.ID, prayerID, time.Now())
	if err != nil {
		return nil, translateEngineError(err)
	}
	return completion, nil
}

// POST /api/prayers/sweep
func (p *prayerController) sweepMissed(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	swept, err := p.engine.SweepMissedToday(ctx.Request.Context(), user.ID, time.Now())
	if err != nil {
		return nil, translateEngineError(err)
	}
	return gin.H{"updated_count": swept}, nil
}

// GET /api/dashboard/stats
func (p *prayerController) dashboardStats(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	stats, err := p.engine.GetDashboardStats(ctx.Request.Context(), user.ID, time.Now())
	if err != nil {
		return nil, translateEngineError(err)
	}
	return stats, nil
}

// GET /api/calendar/week?start=YYYY-MM-DD
func (p *prayerController) weeklyCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	start := ctx.Query("start")
	if start == "" {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "start query parameter is required"}
	}
	days, err := p.engine.GetWeeklyCalendar(ctx.Request.Context(), user.ID, start)
	if err != nil {
		return nil, translateEngineError(err)
	}
	return gin.H{"week_start": start, "days": days}, nil
}

func prayerIDParam(ctx *gin.Context) (int, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, &api.APIError{Code: http.StatusBadRequest, Message: "invalid prayer id"}
	}
	return id, nil
}

// translateEngineError maps the engine's typed errors onto HTTP codes so
// handlers stay declarative.
func translateEngineError(err error) *api.APIError {
	switch {
	case errors.Is(err, prayer.ErrInvalidInput):
		return &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, prayer.ErrNotFound):
		return &api.APIError{Code: http.StatusNotFound, Message: "not found"}
	case errors.Is(err, prayer.ErrOutOfRange):
		return &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, prayer.ErrAlreadyCompleted):
		return &api.APIError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, prayer.ErrTooEarly),
		errors.Is(err, prayer.ErrNotEligibleForQada),
		errors.Is(err, prayer.ErrBeforeAccountCreation):
		return &api.APIError{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, prayer.ErrProviderUnavailable):
		return &api.APIError{Code: http.StatusServiceUnavailable, Message: err.Error()}
	default:
		log.Error().Err(err).Msg("prayer endpoint internal error")
		return &api.APIError{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}
