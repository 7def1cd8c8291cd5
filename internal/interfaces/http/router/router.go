package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Registrar mounts its routes on the versioned API group
type Registrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	registrars []Registrar
}

// Option configures a Router
type Option func(*Router)

// WithAPIVersion sets the version segment of the API prefix, v1 by default
func WithAPIVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the path every API route starts with
func (r *Router) Prefix() string {
	return "/api/" + r.version
}

// Use adds middleware for API routes only. Engine-level routes such as
// /health do not run it.
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...Registrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registered registrar
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route is one method and path relative to its Resource
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// Get declares a GET route
func Get(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodGet, Path: path, Handlers: handlers}
}

// Post declares a POST route
func Post(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodPost, Path: path, Handlers: handlers}
}

// Delete declares a DELETE route
func Delete(path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: http.MethodDelete, Path: path, Handlers: handlers}
}

// Resource is a collection of routes under one prefix. Nested resources
// extend the parent prefix and inherit its middleware.
type Resource struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Nested     []*Resource
}

// RegisterRoutes implements Registrar
func (res *Resource) RegisterRoutes(parent *gin.RouterGroup) {
	group := parent.Group(res.Prefix, res.Middleware...)
	for _, route := range res.Routes {
		group.Handle(route.Method, route.Path, route.Handlers...)
	}
	for _, nested := range res.Nested {
		nested.RegisterRoutes(group)
	}
}

// Endpoints lists "METHOD path" for every route of res and its nested
// resources, relative to base.
func (res *Resource) Endpoints(base string) []string {
	prefix := joinPath(base, res.Prefix)
	endpoints := make([]string, 0, len(res.Routes))
	for _, route := range res.Routes {
		endpoints = append(endpoints, route.Method+" "+joinPath(prefix, route.Path))
	}
	for _, nested := range res.Nested {
		endpoints = append(endpoints, nested.Endpoints(prefix)...)
	}
	return endpoints
}

// joinPath joins like gin does: path.Join drops a trailing slash the route asked for
func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	joined := path.Join(base, rel)
	if rel[len(rel)-1] == '/' && joined[len(joined)-1] != '/' {
		joined += "/"
	}
	return joined
}
