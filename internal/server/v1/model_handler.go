package v1

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/resolver"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

type ModelHandler struct {
	resolver *resolver.Resolver
	tiers    config.FallbackConfig
	started  int64
}

func NewModelHandler(res *resolver.Resolver, tiers config.FallbackConfig) *ModelHandler {
	return &ModelHandler{
		resolver: res,
		tiers:    tiers,
		started:  time.Now().Unix(),
	}
}

// ListModels advertises every public name the bridge accepts: the alias
// table plus the fallback tiers. Unmapped names still resolve (probe or
// heuristic), so this list is a floor, not a ceiling.
func (h *ModelHandler) ListModels(c *gin.Context) {
	seen := make(map[string]bool)
	var models []api.Model

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		models = append(models, api.Model{
			ID:      id,
			Object:  "model",
			Created: h.started,
			OwnedBy: "model-bridge",
		})
	}

	for public := range h.resolver.Aliases() {
		add(public)
	}
	add(h.tiers.Large)
	add(h.tiers.Medium)
	add(h.tiers.Small)

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   models,
	})
}
