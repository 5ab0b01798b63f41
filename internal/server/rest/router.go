package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() (*gin.Engine, error) {
	r := gin.New()
	// ClientIP keys the login limiter, so only listed proxies may set it
	if err := r.SetTrustedProxies(s.opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), requestLogger(s.logger), cors(s.opts.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	u := api.Group("/users")
	u.POST("/register", s.register)
	u.POST("/login", s.limiter.middleware(), s.login)
	u.POST("/refresh", s.refresh)
	u.DELETE("/logout", s.logout)

	protected := u.Group("", requireAuth(s.verifier))
	protected.GET("", s.listUsers)
	protected.GET("/:id", s.getUser)
	protected.PUT("/edit-user/:id", s.updateUser)
	protected.DELETE("/delete-user/:id", s.deleteUser)

	n := api.Group("/notes", requireAuth(s.verifier))
	n.GET("", s.listNotes)
	n.POST("", s.createNote)
	n.PUT("/:id", s.updateNote)
	n.DELETE("/:id", s.deleteNote)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})

	return r, nil
}
