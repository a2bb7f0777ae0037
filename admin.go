// admin.go - privacy-conscious admin dashboard
package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwhitmore/portfolio/internal/store"
)

func generateAdminToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Middleware to check admin authentication
func (s *site) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || !constantTimeEqual(token, s.adminToken) {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Setup all admin routes
func (s *site) setupAdminRoutes(r *gin.Engine) {
	// Privacy policy route
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"retention": "12 months",
		})
	})

	// Admin login page
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	// Admin login handler
	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		userOK := constantTimeEqual(username, s.cfg.AdminUsername)
		passOK := constantTimeEqual(password, s.cfg.AdminPassword)
		if userOK && passOK {
			// Set secure cookie (24 hours)
			c.SetCookie("admin_token", s.adminToken, 3600*24, "/admin", "", s.cfg.IsProduction(), true)
			s.log.Info("admin login successful", "from", s.store.Hash(c.ClientIP()))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		s.log.Info("failed admin login attempt", "from", s.store.Hash(c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	// Admin logout
	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", s.cfg.IsProduction(), true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	// Protected admin routes group
	adminGroup := r.Group("/admin")
	adminGroup.Use(s.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.log.Error(err, "loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":    stats,
			"sessions": s.sessions.Len(),
		})
	})

	// Admin API endpoints for HTMX/AJAX
	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	// Run the retention cleanup now instead of waiting for the daily pass
	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.store.Cleanup(c.Request.Context(), store.Retention)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Set headers for file download
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.log.Info("admin stats exported", "by", s.store.Hash(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}
