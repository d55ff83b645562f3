// Package api exposes the engine over HTTP for controllers and operators.
package api

import (
	"net/http"

	"github.com/fwdask/fwdask/engine"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Code int    `json:"code,omitempty"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

type Options struct {
	AccessLog  bool
	PathPrefix string
	Username   string
	Password   string
	// CORS lists the allowed origins, "*" allows all of them.
	CORS []string
	// Console serves the operator console, usually a confirm.WebSocketConfirmer.
	Console http.Handler
}

func Register(r *gin.Engine, e *engine.Engine, opts *Options) {
	if opts == nil {
		opts = &Options{}
	}

	r.Use(gin.Recovery(), mwRequestID())
	if len(opts.CORS) > 0 {
		cfg := cors.Config{
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
			ExposeHeaders: []string{headerRequestID},
		}
		if len(opts.CORS) == 1 && opts.CORS[0] == "*" {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = opts.CORS
		}
		r.Use(cors.New(cfg))
	}
	if opts.AccessLog {
		r.Use(mwLogger())
	}

	router := r.Group("")
	if opts.PathPrefix != "" {
		router = router.Group(opts.PathPrefix)
	}
	router.Use(mwBasicAuth(opts.Username, opts.Password))

	h := &handler{engine: e}

	flows := router.Group("/flows")
	flows.GET("", h.findFlows)
	flows.POST("/decide", h.decide)
	flows.POST("/exempt", h.exempt)
	flows.POST("/fingerprint", h.fingerprint)

	decisions := router.Group("/decisions")
	decisions.GET("", h.decisionList)
	decisions.GET("/:fingerprint", h.getDecision)
	decisions.POST("/lookup", h.lookupDecision)

	router.GET("/evaluators", h.evaluatorList)

	if opts.Console != nil {
		router.GET("/console/ws", gin.WrapH(opts.Console))
	}
}

type handler struct {
	engine *engine.Engine
}
