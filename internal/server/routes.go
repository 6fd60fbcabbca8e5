package server

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(requestLogger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/v1")
	{
		query := api.Group("/query")
		query.GET("/models", s.listModels)
		query.GET("/models/brands", s.listBrands)
		query.GET("/models/brand/:brand", s.listModelsByBrand)
		query.GET("/providers", s.providersForModelQuery)
		query.GET("/plugins/status", s.pluginStatus)
		query.POST("/plugins/:name/enable", s.enablePlugin)
		query.POST("/plugins/:name/disable", s.disablePlugin)
		query.POST("/plugins/:name/reload", s.reloadPlugin)

		api.GET("/providers", s.listProviders)
		api.GET("/providers/:name", s.getProvider)
		api.GET("/providers/:name/models", s.providerModels)
		api.GET("/providers/:name/health", s.providerHealth)
		api.GET("/models/:name/providers", s.providersForModel)

		api.POST("/refresh", s.refresh)
		api.GET("/refresh/report", s.lastReport)
	}
}
