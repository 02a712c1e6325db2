package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/auth"
	"github.com/universal-data-connector/backend/internal/cache"
	"github.com/universal-data-connector/backend/internal/connector"
	"github.com/universal-data-connector/backend/internal/export"
	"github.com/universal-data-connector/backend/internal/query"
	"github.com/universal-data-connector/backend/internal/voice"
	"github.com/universal-data-connector/backend/internal/webhook"
)

type Handler struct {
	Executor  *query.Executor
	Customers connector.CustomerProvider
	Tickets   connector.TicketProvider
	Metrics   connector.MetricProvider
	Store     *connector.PostgresStore // nil on the file backend
	Gateway   ai.Gateway               // nil when the LLM path is disabled
	Auth      *auth.Service
	Cache     *cache.Cache
	Export    *export.Service
	Webhooks  *webhook.Service
	Validator *validator.Validate
	Logger    zerolog.Logger

	DataDir      string
	DefaultLimit int
}

// Metadata accompanies every data listing.
type Metadata struct {
	TotalResults    int    `json:"total_results"`
	ReturnedResults int    `json:"returned_results"`
	Context         string `json:"context"`
	DataFreshness   string `json:"data_freshness"`
	HasMore         bool   `json:"has_more"`
}

type DataResponse struct {
	Data     []any    `json:"data"`
	Metadata Metadata `json:"metadata"`
}

type QueryRequest struct {
	Query string `json:"query" validate:"required,min=1"`
}

type WebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
}

type KeyRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// @Summary Health probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Execute a natural-language query
// @Description Classifies the query and resolves it locally or via the LLM path
// @Tags query
// @Accept json
// @Produce json
// @Param request body QueryRequest true "query text"
// @Success 200 {object} models.ExecutionResult
// @Failure 400 {object} map[string]any
// @Router /api/query [post]
func (h *Handler) ExecuteQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "query is required", err.Error())
		return
	}

	result := h.Executor.Execute(c.Request.Context(), req.Query)

	h.Webhooks.Notify(webhook.EventQueryExecuted, map[string]any{
		"query":      result.Query,
		"query_type": result.QueryType,
		"status":     result.Status,
		"used_llm":   result.UsedLLM,
		"count":      result.Count,
	})

	c.JSON(http.StatusOK, result)
}

// @Summary List customers
// @Tags data
// @Produce json
// @Param status query string false "active or inactive"
// @Param limit query int false "max results"
// @Success 200 {object} DataResponse
// @Router /api/data/customers [get]
func (h *Handler) CustomersList(c *gin.Context) {
	filters := connector.Filters{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	limit := h.parseLimit(c)

	cacheKey := fmt.Sprintf("data:customers:status=%s:limit=%d", filters["status"], limit)
	var cached DataResponse
	if h.Cache.Get(c.Request.Context(), cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	customers, err := h.Customers.FetchCustomers(c.Request.Context(), filters, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PROVIDER_ERROR", "Failed to fetch customers", err.Error())
		return
	}

	resp := buildDataResponse(toAny(customers))
	h.Cache.Set(c.Request.Context(), cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

// @Summary List support tickets
// @Tags data
// @Produce json
// @Param status query string false "open or closed"
// @Param priority query string false "low, medium or high"
// @Param limit query int false "max results"
// @Success 200 {object} DataResponse
// @Router /api/data/support-tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	filters := connector.Filters{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if priority := c.Query("priority"); priority != "" {
		filters["priority"] = priority
	}
	limit := h.parseLimit(c)

	cacheKey := fmt.Sprintf("data:tickets:status=%s:priority=%s:limit=%d", filters["status"], filters["priority"], limit)
	var cached DataResponse
	if h.Cache.Get(c.Request.Context(), cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	tickets, err := h.Tickets.FetchTickets(c.Request.Context(), filters, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PROVIDER_ERROR", "Failed to fetch tickets", err.Error())
		return
	}

	resp := buildDataResponse(toAny(tickets))
	h.Cache.Set(c.Request.Context(), cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

// @Summary List metrics
// @Tags data
// @Produce json
// @Param metric query string false "metric name"
// @Param limit query int false "max results"
// @Success 200 {object} DataResponse
// @Router /api/data/analytics [get]
func (h *Handler) MetricsList(c *gin.Context) {
	filters := connector.Filters{}
	if metric := c.Query("metric"); metric != "" {
		filters["metric"] = metric
	}
	limit := h.parseLimit(c)

	cacheKey := fmt.Sprintf("data:analytics:metric=%s:limit=%d", filters["metric"], limit)
	var cached DataResponse
	if h.Cache.Get(c.Request.Context(), cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	points, err := h.Metrics.FetchMetrics(c.Request.Context(), filters, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PROVIDER_ERROR", "Failed to fetch metrics", err.Error())
		return
	}

	resp := buildDataResponse(toAny(points))
	h.Cache.Set(c.Request.Context(), cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

// @Summary LLM call history and token totals
// @Tags llm
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/llm/usage [get]
func (h *Handler) LLMUsage(c *gin.Context) {
	if h.Gateway == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.Gateway.UsageStats())
}

// @Summary Export a data source
// @Tags export
// @Produce json
// @Param source path string true "customers, support-tickets or analytics"
// @Param format query string false "csv or json"
// @Router /api/export/{source} [get]
func (h *Handler) ExportData(c *gin.Context) {
	source := c.Param("source")
	var (
		records []map[string]any
		err     error
	)
	ctx := c.Request.Context()
	switch source {
	case "customers":
		var customers any
		customers, err = h.Customers.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
		records = toRecords(customers)
	case "support-tickets":
		var tickets any
		tickets, err = h.Tickets.FetchTickets(ctx, connector.Filters{}, connector.AllRecords)
		records = toRecords(tickets)
	case "analytics":
		var points any
		points, err = h.Metrics.FetchMetrics(ctx, connector.Filters{}, connector.AllRecords)
		records = toRecords(points)
	default:
		writeError(c, http.StatusNotFound, "UNKNOWN_SOURCE", "Unknown data source", source)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PROVIDER_ERROR", "Failed to fetch data", err.Error())
		return
	}

	format := c.DefaultQuery("format", "csv")
	stamp := time.Now().UTC().Format("20060102T150405")
	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, source, stamp))
		if err := h.Export.WriteCSV(c.Writer, records); err != nil {
			h.Logger.Error().Err(err).Msg("csv export failed")
		}
	case "json":
		c.Header("Content-Type", "application/json")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.json"`, source, stamp))
		if err := h.Export.WriteJSON(c.Writer, records); err != nil {
			h.Logger.Error().Err(err).Msg("json export failed")
		}
	default:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be csv or json", format)
	}
}

// @Summary Register a webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body WebhookRequest true "subscription"
// @Success 200 {object} webhook.Registration
// @Router /api/webhooks [post]
func (h *Handler) WebhookRegister(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "url and events are required", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.Webhooks.Register(req.URL, req.Events))
}

// @Summary List webhooks
// @Tags webhooks
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/webhooks [get]
func (h *Handler) WebhookList(c *gin.Context) {
	hooks := h.Webhooks.List()
	c.JSON(http.StatusOK, gin.H{"webhooks": hooks, "total": len(hooks)})
}

// @Summary Unregister a webhook
// @Tags webhooks
// @Produce json
// @Param id path string true "webhook id"
// @Router /api/webhooks/{id} [delete]
func (h *Handler) WebhookDelete(c *gin.Context) {
	if !h.Webhooks.Unregister(c.Param("id")) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Webhook not found", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// @Summary Generate an API key
// @Tags auth
// @Accept json
// @Produce json
// @Param request body KeyRequest true "key name"
// @Router /api/auth/keys [post]
func (h *Handler) GenerateKey(c *gin.Context) {
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "name is required", err.Error())
		return
	}
	key, info := h.Auth.Generate(req.Name)
	c.JSON(http.StatusOK, gin.H{"api_key": key, "name": info.Name, "created_at": info.CreatedAt})
}

// @Summary List API keys
// @Tags auth
// @Produce json
// @Router /api/auth/keys [get]
func (h *Handler) ListKeys(c *gin.Context) {
	keys := h.Auth.List()
	c.JSON(http.StatusOK, gin.H{"keys": keys, "total": len(keys)})
}

// @Summary Seed Postgres from the JSON data files
// @Tags admin
// @Produce json
// @Router /api/admin/seed [post]
func (h *Handler) SeedDatabase(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Postgres backend is not configured", nil)
		return
	}

	files := connector.NewFileStore(h.DataDir, 0, h.Logger)
	ctx := c.Request.Context()
	customers, err := files.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DATA_ERROR", "Failed to read customers file", err.Error())
		return
	}
	tickets, err := files.FetchTickets(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DATA_ERROR", "Failed to read tickets file", err.Error())
		return
	}
	points, err := files.FetchMetrics(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DATA_ERROR", "Failed to read analytics file", err.Error())
		return
	}

	if err := h.Store.Seed(ctx, customers, tickets, points); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to seed database", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customers": len(customers),
		"tickets":   len(tickets),
		"metrics":   len(points),
	})
}

// @Summary Generate deterministic sample data files
// @Tags admin
// @Produce json
// @Router /api/admin/generate-data [post]
func (h *Handler) GenerateData(c *gin.Context) {
	if err := connector.WriteSampleData(h.DataDir, time.Now().UTC()); err != nil {
		writeError(c, http.StatusInternalServerError, "DATA_ERROR", "Failed to write sample data", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_dir": h.DataDir, "status": "generated"})
}

func (h *Handler) parseLimit(c *gin.Context) int {
	limit := h.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

func buildDataResponse(data []any) DataResponse {
	total := len(data)
	shaped := voice.SummarizeIfLarge(data, 50)
	return DataResponse{
		Data: shaped,
		Metadata: Metadata{
			TotalResults:    total,
			ReturnedResults: len(shaped),
			Context:         voice.ContextMessage(len(shaped), total),
			DataFreshness:   "Data as of " + time.Now().UTC().Format(time.RFC3339),
			HasMore:         len(shaped) < total,
		},
	}
}

func toAny[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// toRecords round-trips typed records through JSON so export can flatten
// them generically.
func toRecords(v any) []map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
