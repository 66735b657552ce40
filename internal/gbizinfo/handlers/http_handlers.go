package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// HTTPHandler exposes the tool registry as REST routes.
type HTTPHandler struct {
	registry *tools.Registry
	logger   *zap.Logger
}

func NewHTTPHandler(registry *tools.Registry, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{registry: registry, logger: logger.Named("http_handler")}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, pattern string
		handler         runtime.HandlerFunc
	}{
		{http.MethodGet, "/healthz", h.health},
		{http.MethodGet, "/api/tools", h.listTools},
		{http.MethodPost, "/api/tools/{name}", h.callTool},
		{http.MethodGet, "/api/companies", h.search},
		{http.MethodGet, "/api/companies/{corporateNumber}", h.detail},
		{http.MethodGet, "/api/companies/{corporateNumber}/{category}", h.detail},
		{http.MethodGet, "/api/updates", h.updates},
		{http.MethodGet, "/api/updates/{category}", h.updates},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPHandler) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) listTools(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": describe(h.registry.List())})
}

func (h *HTTPHandler) callTool(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, e.NewValidationError(e.ErrInvalidInput, "", "unreadable request body"))
		return
	}
	h.run(w, r, params["name"], body)
}

func (h *HTTPHandler) search(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	h.runQuery(w, r, "search")
}

func (h *HTTPHandler) detail(w http.ResponseWriter, r *http.Request, params map[string]string) {
	category, err := models.ParseCategory(params["category"])
	if err != nil {
		writeError(w, err)
		return
	}
	name := "get_basic_info"
	if category != models.CategoryBasic {
		name = "get_" + string(category)
	}
	args, err := json.Marshal(map[string]string{"corporateNumber": params["corporateNumber"]})
	if err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, name, args)
}

func (h *HTTPHandler) updates(w http.ResponseWriter, r *http.Request, params map[string]string) {
	category, err := models.ParseCategory(params["category"])
	if err != nil {
		writeError(w, err)
		return
	}
	name := "get_update_info"
	if category != models.CategoryBasic {
		name += "_" + string(category)
	}
	h.runQuery(w, r, name)
}

// runQuery builds the tool arguments from the URL query string.
func (h *HTTPHandler) runQuery(w http.ResponseWriter, r *http.Request, name string) {
	tool, ok := h.registry.Lookup(name)
	if !ok {
		writeError(w, e.ErrUnknownTool)
		return
	}
	args, err := tool.ArgsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, name, args)
}

func (h *HTTPHandler) run(w http.ResponseWriter, r *http.Request, name string, args []byte) {
	res, err := h.registry.Call(r.Context(), name, args)
	if err != nil {
		h.logger.Debug("route failed", zap.String("path", r.URL.Path), zap.String("tool", name), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
