package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/jobtracker/internal/service"
)

// RegisterRoutes mounts every page and API route on e.
func RegisterRoutes(e *echo.Echo, guard *service.SessionGuard, pages *AuthHandler, jobs *JobHandler) {
	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public pages
	e.GET("/", pages.Welcome)
	e.GET("/login", pages.ShowLogin)
	e.POST("/login", pages.Login)
	e.GET("/register", pages.ShowRegister)
	e.POST("/register", pages.Register)
	e.POST("/logout", pages.Logout)

	// Protected pages
	auth := RequireSession(guard)
	e.GET("/home", jobs.List, auth)
	e.GET("/jobs", jobs.List, auth)
	e.POST("/jobs", jobs.Create, auth)
	e.GET("/jobs/new", jobs.New, auth)
	e.GET("/jobs/add", jobs.New, auth)
	e.GET("/jobs/applied", jobs.Applied, auth)
	e.GET("/jobs/:id", jobs.Show, auth)
	e.GET("/jobs/:id/edit", jobs.EditForm, auth)
	e.POST("/jobs/:id/edit", jobs.Update, auth)
	e.GET("/jobs/:id/delete", jobs.ConfirmDelete, auth)
	e.POST("/jobs/:id/delete", jobs.Delete, auth)

	e.GET("/api/jobs", jobs.APIList, auth)
}

// NewServer builds the echo instance with the shared middleware chain.
func NewServer(renderer echo.Renderer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Renderer = renderer

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(RequestLogger())
	return e
}
