package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(mode string, queryHandler *QueryHandler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/presets", queryHandler.ListPresets)

		games := v1.Group("/games")
		{
			games.GET("", queryHandler.ListActiveGames)
			games.GET("/:id", queryHandler.GetGame)
		}

		history := v1.Group("/history")
		{
			history.GET("", queryHandler.ListHistory)
			history.GET("/:id", queryHandler.GetHistory)
		}
	}

	return r
}
