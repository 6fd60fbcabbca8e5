package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/catalog"
)

// currencyCaveatHeader marks responses whose prices mix currencies.
const (
	currencyCaveatHeader = "X-Price-Currency-Caveat"
	currencyCaveat       = "prices are in each offer's currency and are not converted"
)

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pricehub model price catalog",
		"status":  "running",
		"version": Version,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError maps catalog errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, catalog.ErrModelNotFound), errors.Is(err, adapter.ErrUnknownSource):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listModels(c *gin.Context) {
	mergeEnabled := true
	if v := c.Query("merge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid merge value %q", v)})
			return
		}
		mergeEnabled = b
	}

	models, err := s.catalog.ListModels(c.Request.Context(), mergeEnabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(currencyCaveatHeader, currencyCaveat)
	c.JSON(http.StatusOK, models)
}

func (s *Server) listBrands(c *gin.Context) {
	brands, err := s.catalog.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands, "count": len(brands)})
}

func (s *Server) listModelsByBrand(c *gin.Context) {
	brand := c.Param("brand")
	models, err := s.catalog.ListModelsByBrand(c.Request.Context(), brand)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(models) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no models for brand %q", brand)})
		return
	}
	c.Header(currencyCaveatHeader, currencyCaveat)
	c.JSON(http.StatusOK, models)
}

func (s *Server) providersForModel(c *gin.Context) {
	s.writeProviders(c, c.Param("name"))
}

func (s *Server) providersForModelQuery(c *gin.Context) {
	name := c.Query("model")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model query parameter is required"})
		return
	}
	s.writeProviders(c, name)
}

func (s *Server) writeProviders(c *gin.Context, name string) {
	offers, err := s.catalog.GetProvidersForModel(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(currencyCaveatHeader, currencyCaveat)
	c.JSON(http.StatusOK, offers)
}

func (s *Server) pluginStatus(c *gin.Context) {
	sources := s.catalog.ListSources()
	enabled := 0
	for _, src := range sources {
		if src.Enabled {
			enabled++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"plugins":       sources,
		"total_count":   len(sources),
		"enabled_count": enabled,
	})
}

func (s *Server) enablePlugin(c *gin.Context)  { s.toggle(c, true) }
func (s *Server) disablePlugin(c *gin.Context) { s.toggle(c, false) }

func (s *Server) toggle(c *gin.Context, enabled bool) {
	name := c.Param("name")
	if err := s.catalog.SetSourceEnabled(name, enabled); err != nil {
		respondError(c, err)
		return
	}
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("source %s %s", name, verb), "success": true})
}

func (s *Server) reloadPlugin(c *gin.Context) {
	name := c.Param("name")
	report, err := s.catalog.ReloadSource(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("source %s reloaded", name),
		"success": true,
		"run_id":  report.RunID,
	})
}

func (s *Server) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.ListSources())
}

func (s *Server) getProvider(c *gin.Context) {
	src, err := s.catalog.Source(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

func (s *Server) providerModels(c *gin.Context) {
	models, err := s.catalog.ModelsBySource(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(currencyCaveatHeader, currencyCaveat)
	c.JSON(http.StatusOK, models)
}

func (s *Server) providerHealth(c *gin.Context) {
	name := c.Param("name")
	if err := s.catalog.CheckSource(c.Request.Context(), name); err != nil {
		if errors.Is(err, adapter.ErrUnknownSource) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": name, "healthy": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": name, "healthy": true})
}

func (s *Server) refresh(c *gin.Context) {
	report, err := s.catalog.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) lastReport(c *gin.Context) {
	report := s.catalog.Report()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "catalog has not been built yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}
