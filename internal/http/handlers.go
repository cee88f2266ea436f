package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/cache"
	"github.com/example/trading-services/internal/models"
	"github.com/example/trading-services/internal/store"
	"github.com/example/trading-services/internal/transfer"
)

type Server struct {
	R              *gin.Engine
	Store          *store.Store
	Engine         *transfer.Engine
	PortfolioCache *cache.MapCache[cache.PortfolioKey, models.Portfolio]
	StatsCache     *cache.Cache
	Logger         *zap.Logger
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type transferPayload struct {
	RecordID   string `json:"recordId"`
	StockID    string `json:"stockId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

func (p transferPayload) request() models.TransferRequest {
	id := p.RecordID
	if id == "" {
		id = p.StockID
	}
	return models.TransferRequest{RecordID: id, FromOwner: p.FromUserID, ToOwner: p.ToUserID}
}

type transferResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Record  models.Stock `json:"record"`
}

type batchResponse struct {
	Success bool                  `json:"success"`
	Results []transfer.ItemResult `json:"results"`
	Error   string                `json:"error,omitempty"`
}

// NewServer wires the trading routes. statsCache may be nil, in which case
// sector statistics are computed on every request.
func NewServer(st *store.Store, engine *transfer.Engine, statsCache *cache.Cache, logger *zap.Logger, opts Options) *Server {
	g := newEngine(logger, opts)

	s := &Server{
		R:              g,
		Store:          st,
		Engine:         engine,
		PortfolioCache: cache.NewMapCache[cache.PortfolioKey, models.Portfolio](),
		StatsCache:     statsCache,
		Logger:         logger,
	}

	g.GET("/", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"message": "Trading Service API"}) })
	for _, prefix := range []string{"/records", "/stocks"} {
		g.GET(prefix, s.listRecords)
		g.GET(prefix+"/:id", s.getRecord)
	}
	g.POST("/transfer", s.transfer)
	g.POST("/swap", s.transfer)
	g.POST("/transfer-batch", s.transferBatch)
	g.POST("/bulk-swap", s.transferBatch)
	g.GET("/portfolio/:ownerId", s.getPortfolio)
	g.GET("/sector-stats", s.getSectorStats)

	return s
}

// InvalidateCaches drops cached aggregates. The engine calls it after every
// mutation.
func (s *Server) InvalidateCaches() {
	s.PortfolioCache.Clear()
	if s.StatsCache != nil {
		s.StatsCache.Clear()
	}
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Error: msg, Code: "bad_request"})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
	c.JSON(http.StatusInternalServerError, apiError{Error: transfer.Message(err), Code: "internal_server_error"})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, transfer.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, transfer.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, transfer.ErrOwnershipMismatch):
		return http.StatusBadRequest, "ownership_mismatch"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

func parseLimit(v string, def, min, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

// --- Handlers ---

func (s *Server) listRecords(c *gin.Context) {
	f := store.Filter{
		Sector: strings.TrimSpace(c.Query("sector")),
		Owner:  strings.TrimSpace(c.Query("owned")),
		Limit:  parseLimit(c.Query("limit"), 0, 1, math.MaxInt32),
	}
	c.JSON(http.StatusOK, s.Store.List(f))
}

func (s *Server) getRecord(c *gin.Context) {
	id := c.Param("id")
	rec, ok := s.Store.Get(id)
	if !ok {
		s.Logger.Warn("record not found", zap.String("record_id", id))
		c.JSON(http.StatusNotFound, apiError{Error: transfer.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) transfer(c *gin.Context) {
	var p transferPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}

	res, err := s.Engine.Transfer(c.Request.Context(), p.request())
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusInternalServerError {
			s.internalError(c, "Transfer", err)
			return
		}
		c.JSON(status, apiError{Error: transfer.Message(err), Code: code})
		return
	}
	c.JSON(http.StatusOK, transferResponse{Success: true, Message: res.Message, Record: res.Record})
}

func (s *Server) transferBatch(c *gin.Context) {
	var body struct {
		Operations json.RawMessage `json:"operations"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}
	var ops []json.RawMessage
	raw := strings.TrimSpace(string(body.Operations))
	if !strings.HasPrefix(raw, "[") || json.Unmarshal(body.Operations, &ops) != nil || len(ops) == 0 {
		s.badRequest(c, "missing or invalid operations array")
		return
	}

	// An element that is not a transfer object becomes an empty request and
	// fails on its own as missing parameters.
	reqs := make([]models.TransferRequest, 0, len(ops))
	for _, op := range ops {
		var p transferPayload
		if err := json.Unmarshal(op, &p); err != nil {
			p = transferPayload{}
		}
		reqs = append(reqs, p.request())
	}

	results, err := s.Engine.TransferBatch(c.Request.Context(), reqs)
	if err != nil {
		status, _ := statusFor(err)
		if status != http.StatusInternalServerError {
			s.badRequest(c, transfer.Message(err))
			return
		}
		s.Logger.Error("internal_error", zap.String("where", "TransferBatch"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, batchResponse{Success: false, Results: results, Error: transfer.Message(err)})
		return
	}
	c.JSON(http.StatusOK, batchResponse{Success: true, Results: results})
}

func (s *Server) getPortfolio(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("ownerId"))
	key := cache.Portfolio(owner, s.Store.Version())
	p := s.PortfolioCache.GetOrLoad(key, func() models.Portfolio { return s.Store.Portfolio(owner) })
	c.JSON(http.StatusOK, p)
}

func (s *Server) getSectorStats(c *gin.Context) {
	if s.StatsCache == nil {
		c.JSON(http.StatusOK, s.Store.SectorStats())
		return
	}
	key := cache.SectorStats(s.Store.Version())
	if v, ok := s.StatsCache.Get(key); ok {
		if stats, ok := v.(map[string]models.SectorStat); ok {
			c.JSON(http.StatusOK, stats)
			return
		}
	}
	stats := s.Store.SectorStats()
	s.StatsCache.Set(key, stats)
	c.JSON(http.StatusOK, stats)
}
