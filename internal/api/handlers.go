// Package api serves health index computations and snapshot history over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/protocol"
	"github.com/smukkama/growth-index/internal/snapshot"
)

const (
	defaultHistoryLimit = 12
	maxHistoryLimit     = 104
)

// ResultCache is the read-through cache for on-demand results.
// *cache.ResultCache implements it.
type ResultCache interface {
	Get(ctx context.Context, storeID string, w alignment.Window) (*engine.Result, bool, error)
	Set(ctx context.Context, res *engine.Result) error
	Invalidate(ctx context.Context, storeID string, w alignment.Window) error
}

// MessageWriter enqueues recompute requests. *queue.Producer implements it.
type MessageWriter interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Handler struct {
	computer  snapshot.Computer
	service   *snapshot.Service
	cache     ResultCache
	recompute MessageWriter
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewHandler wires the handlers. cache and recompute may be nil.
func NewHandler(computer snapshot.Computer, service *snapshot.Service, cache ResultCache, recompute MessageWriter, logger logrus.FieldLogger) *Handler {
	return &Handler{
		computer:  computer,
		service:   service,
		cache:     cache,
		recompute: recompute,
		logger:    logger,
		now:       time.Now,
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthIndex computes the index for ?start=&end= on demand.
func (h *Handler) HealthIndex(c *gin.Context) {
	storeID := strings.TrimSpace(c.Param("storeId"))
	start, err := time.Parse(time.DateOnly, c.Query("start"))
	if err != nil {
		badRequest(c, "start must be a date (YYYY-MM-DD)")
		return
	}
	end, err := time.Parse(time.DateOnly, c.Query("end"))
	if err != nil {
		badRequest(c, "end must be a date (YYYY-MM-DD)")
		return
	}
	w := alignment.NewWindow(start, end)
	if err := w.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	if h.cache != nil && !refresh {
		res, ok, err := h.cache.Get(ctx, storeID, w)
		if err != nil {
			logging.LogError(h.logger, "api", "HealthIndex", "reading result cache", storeID, err)
		} else if ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, res)
			return
		}
	}

	res, err := h.computer.Compute(ctx, engine.Request{StoreID: storeID, Start: w.Start, End: w.End})
	if errors.Is(err, engine.ErrInvalidRequest) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		logging.LogError(h.logger, "api", "HealthIndex", "computing health index", storeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute health index"})
		return
	}

	h.refreshCache(ctx, "HealthIndex", res)
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, res)
}

// refreshCache stores res for later reads. A result degraded by a source
// failure is never stored, and any older entry for its window is dropped.
func (h *Handler) refreshCache(ctx context.Context, funcName string, res *engine.Result) {
	if h.cache == nil {
		return
	}
	var err error
	if len(res.SourceErrors) > 0 {
		err = h.cache.Invalidate(ctx, res.StoreID, res.Window())
	} else {
		err = h.cache.Set(ctx, res)
	}
	if err != nil {
		logging.LogError(h.logger, "api", funcName, "refreshing result cache", res.StoreID, err)
	}
}

// PeriodRequest names one reporting period. An empty PeriodEnd means the
// previous completed period.
type PeriodRequest struct {
	PeriodType string `json:"period_type" binding:"required,oneof=week month"`
	PeriodEnd  string `json:"period_end" binding:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) resolvePeriod(req PeriodRequest) (period.Type, alignment.Window, error) {
	t, err := period.ParseType(req.PeriodType)
	if err != nil {
		return "", alignment.Window{}, err
	}
	if req.PeriodEnd == "" {
		w, err := period.PreviousCompleted(t, h.now())
		return t, w, err
	}
	end, err := time.Parse(time.DateOnly, req.PeriodEnd)
	if err != nil {
		return "", alignment.Window{}, err
	}
	w, err := period.ForEnd(t, end)
	return t, w, err
}

type snapshotResponse struct {
	Result    *engine.Result     `json:"result"`
	Snapshot  *snapshot.Snapshot `json:"snapshot,omitempty"`
	Persisted bool               `json:"persisted"`
}

// CreateSnapshot computes and persists one period synchronously.
func (h *Handler) CreateSnapshot(c *gin.Context) {
	storeID := strings.TrimSpace(c.Param("storeId"))

	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	t, w, err := h.resolvePeriod(req)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	out, err := h.service.Run(c.Request.Context(), storeID, t, w)
	if errors.Is(err, engine.ErrInvalidRequest) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		logging.LogError(h.logger, "api", "CreateSnapshot", "running snapshot", storeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute snapshot"})
		return
	}

	h.refreshCache(c.Request.Context(), "CreateSnapshot", out.Result)

	// A failed upsert still answers with the computed result.
	status := http.StatusCreated
	if !out.Persisted {
		status = http.StatusOK
	}
	c.JSON(status, snapshotResponse{Result: out.Result, Snapshot: out.Snapshot, Persisted: out.Persisted})
}

// ListSnapshots returns history for ?period_type=&limit=, newest first.
func (h *Handler) ListSnapshots(c *gin.Context) {
	storeID := strings.TrimSpace(c.Param("storeId"))

	t, err := period.ParseType(c.DefaultQuery("period_type", string(period.Week)))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		badRequest(c, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
		return
	}

	snaps, err := h.service.Persister().History(c.Request.Context(), storeID, t, limit)
	if err != nil {
		logging.LogError(h.logger, "api", "ListSnapshots", "listing snapshots", storeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}
	if snaps == nil {
		snaps = []*snapshot.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// EnqueueRecompute queues a recompute request for the background worker.
func (h *Handler) EnqueueRecompute(c *gin.Context) {
	if h.recompute == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recompute queue not configured"})
		return
	}
	storeID := strings.TrimSpace(c.Param("storeId"))

	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	msg := &protocol.RecomputeRequest{
		StoreID:     storeID,
		PeriodType:  req.PeriodType,
		PeriodEnd:   req.PeriodEnd,
		RequestedAt: h.now().UTC(),
	}
	data, err := protocol.EncodeRecomputeRequest(msg)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.recompute.Publish(c.Request.Context(), storeID, data); err != nil {
		logging.LogError(h.logger, "api", "EnqueueRecompute", "publishing recompute request", storeID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue recompute"})
		return
	}
	c.JSON(http.StatusAccepted, msg)
}
