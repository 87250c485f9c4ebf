// Package fleetstub serves a minimal fleet-tracking page with the same
// Add/Edit Device element contract as the production application, backed by
// a SQLite device store. The E2E suite runs against it when no BASE_URL is
// configured.
package fleetstub

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates/*.html static/*.js
var assets embed.FS

const sessionCookie = "fleet_session"

// Options configures a Server
type Options struct {
	Store *Store
	// User and Password enable the login page when both are set
	User     string
	Password string
	// Quiet disables per-request logging
	Quiet bool
}

// Server is the stub application
type Server struct {
	store        *Store
	user         string
	password     string
	sessionToken string
	pages        map[string]*pongo2.Template
	engine       *gin.Engine
}

// NewServer builds the routes and parses the page templates
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("fleetstub: store is required")
	}
	s := &Server{
		store:        opts.Store,
		user:         opts.User,
		password:     opts.Password,
		sessionToken: uuid.New().String(),
		pages:        make(map[string]*pongo2.Template),
	}
	for _, name := range []string{"device_dialog.html", "login.html"} {
		raw, err := assets.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tpl, err := pongo2.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		s.pages[name] = tpl
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	if !opts.Quiet {
		r.Use(requestLogger())
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/static/:file", s.handleStatic)
	r.GET("/login", s.handleLoginPage)
	r.POST("/login", s.handleLogin)

	app := r.Group("/", s.requireSession())
	app.GET("/", s.handleIndex)

	api := r.Group("/api", s.requireSession())
	api.GET("/devices", s.handleListDevices)
	api.POST("/devices", s.handleCreateDevice)
	api.GET("/devices/:id", s.handleGetDevice)
	api.PUT("/devices/:id", s.handleUpdateDevice)
	api.DELETE("/devices/:id", s.handleDeleteDevice)

	s.engine = r
	return s, nil
}

// Handler exposes the router for http.Server or httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) loginEnabled() bool {
	return s.user != "" && s.password != ""
}

func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginEnabled() {
			c.Next()
			return
		}
		if token, err := c.Cookie(sessionCookie); err == nil && token == s.sessionToken {
			c.Next()
			return
		}
		if c.Request.Method == http.MethodGet && c.FullPath() == "/" {
			c.Redirect(http.StatusFound, "/login")
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		}
		c.Abort()
	}
}

func (s *Server) render(c *gin.Context, code int, name string, ctx pongo2.Context) {
	tpl, ok := s.pages[name]
	if !ok {
		c.String(http.StatusInternalServerError, "Template not found: %s", name)
		return
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		c.String(http.StatusInternalServerError, "Template execution error: %v", err)
		return
	}
	c.Data(code, "text/html; charset=utf-8", []byte(out))
}

func (s *Server) handleStatic(c *gin.Context) {
	data, err := assets.ReadFile("static/" + c.Param("file"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", data)
}

func (s *Server) handleLoginPage(c *gin.Context) {
	if !s.loginEnabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.render(c, http.StatusOK, "login.html", pongo2.Context{"error": ""})
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.loginEnabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if c.PostForm("form-username") != s.user || c.PostForm("password") != s.password {
		s.render(c, http.StatusUnauthorized, "login.html", pongo2.Context{"error": "Invalid username or password"})
		return
	}
	c.SetCookie(sessionCookie, s.sessionToken, int((12 * time.Hour).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleIndex(c *gin.Context) {
	devices, err := s.store.List(c.Request.Context(), "")
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to load devices: %v", err)
		return
	}
	s.render(c, http.StatusOK, "device_dialog.html", pongo2.Context{
		"title":   "Fleet Map",
		"devices": devices,
		"icons":   Icons,
	})
}

func (s *Server) handleListDevices(c *gin.Context) {
	devices, err := s.store.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) handleGetDevice(c *gin.Context) {
	d, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleCreateDevice(c *gin.Context) {
	var in DeviceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	var d Device
	if err := in.toDevice(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Create(c.Request.Context(), &d); err != nil {
		writeStoreError(c, err)
		return
	}
	log.Printf("[fleet-stub] created device %s (%q)", d.ID, d.Name)
	c.JSON(http.StatusCreated, d)
}

func (s *Server) handleUpdateDevice(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := s.store.Get(ctx, c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	var in DeviceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if err := in.toDevice(d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Update(ctx, d); err != nil {
		writeStoreError(c, err)
		return
	}
	log.Printf("[fleet-stub] updated device %s (%q)", d.ID, d.Name)
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleDeleteDevice(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		writeStoreError(c, err)
		return
	}
	log.Printf("[fleet-stub] removed device %s", id)
	c.Status(http.StatusNoContent)
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[fleet-stub] %s %s %d %s id=%s", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond), c.GetString("request_id"))
	}
}
