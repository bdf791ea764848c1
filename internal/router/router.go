package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gramseva/swasthya-sahayak/internal/handler/status"
	"github.com/gramseva/swasthya-sahayak/internal/middleware"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

// Router wires the localhost status surface. It binds to loopback only;
// the assistant has no remote-facing API of its own.
type Router struct {
	engine  *gin.Engine
	statusH *status.Handler
}

func NewRouter(statusH *status.Handler, log *logger.Logger) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(log))

	return &Router{
		engine:  engine,
		statusH: statusH,
	}
}

func (r *Router) Setup() *gin.Engine {
	root := r.engine.Group("/")
	r.statusH.RegisterRoutes(root)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r.engine
}
