package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	registrars []RouteRegistrar
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine) *Router {
	return &Router{
		engine:     engine,
		registrars: make([]RouteRegistrar, 0),
	}
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterGroup adds registrars under a shared prefix with extra middleware
func (r *Router) RegisterGroup(prefix string, middleware []gin.HandlerFunc, registrars ...RouteRegistrar) *Router {
	group := r.engine.Group(prefix, middleware...)
	for _, registrar := range registrars {
		registrar.RegisterRoutes(group)
	}
	return r
}

// Setup registers all plain registrars at the engine root
func (r *Router) Setup() {
	root := r.engine.Group("")
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(root)
	}
}
