package routes

import (
	"time"

	"care-portal-server/internal/config"
	"care-portal-server/internal/goals"
	"care-portal-server/internal/handlers"
	"care-portal-server/internal/jobs"
	"care-portal-server/internal/middleware"
	"care-portal-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the long-lived services shared by the handlers. Nil fields are
// filled with defaults built from db and cfg.
type Deps struct {
	Goals             *goals.Service
	GoalNotifications *jobs.GoalNotificationJob
	AuthLimiter       *middleware.RateLimiter
}

func (d *Deps) fill(db *gorm.DB, cfg *config.Config) {
	if d.Goals == nil {
		d.Goals = goals.NewService(db)
	}
	if d.GoalNotifications == nil {
		d.GoalNotifications = jobs.NewGoalNotificationJob(db)
	}
	if d.AuthLimiter == nil {
		d.AuthLimiter = middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, 10*time.Minute)
	}
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, deps Deps) {
	deps.fill(db, cfg)

	if !cfg.IsProduction() {
		router.Use(middleware.ExposeErrors())
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db)
	doctorHandler := handlers.NewDoctorHandler(db, deps.Goals)
	patientHandler := handlers.NewPatientHandler(db, deps.Goals)
	goalHandler := handlers.NewGoalHandler(deps.Goals)
	trackingHandler := handlers.NewTrackingHandler(db, deps.Goals)
	prescriptionHandler := handlers.NewPrescriptionHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db)
	messageHandler := handlers.NewMessageHandler(db)
	jobHandler := handlers.NewJobHandler(deps.GoalNotifications)

	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)
	doctorOnly := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)
	patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)

	// Public routes
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(deps.AuthLimiter.Middleware())
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/me", authHandler.GetProfile)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(adminOnly)
		{
			adminRoutes.GET("/users", adminHandler.GetUsers)
			adminRoutes.POST("/users", adminHandler.CreateUser)
			adminRoutes.GET("/users/:id", adminHandler.GetUserByID)
			adminRoutes.PUT("/users/:id", adminHandler.UpdateUser)
			adminRoutes.DELETE("/users/:id", adminHandler.DeactivateUser)
			adminRoutes.GET("/doctors", adminHandler.GetDoctors)
			adminRoutes.POST("/doctors", adminHandler.CreateDoctor)
			adminRoutes.POST("/assignments", adminHandler.AssignPatient)
			adminRoutes.GET("/dashboard-data", adminHandler.GetDashboard)
			adminRoutes.POST("/jobs/goal-notifications/run", jobHandler.RunGoalNotifications)
		}

		doctorRoutes := private.Group("/doctor")
		doctorRoutes.Use(doctorOnly)
		{
			doctorRoutes.GET("/patients", doctorHandler.GetMyPatients)
			doctorRoutes.GET("/patients/:patientId", doctorHandler.GetPatientProfile)
			doctorRoutes.GET("/patients/:patientId/goals", doctorHandler.GetPatientGoals)
		}
		private.POST("/doctors/goals", middleware.RoleAuthMiddleware(models.RoleDoctor), goalHandler.CreateGoal)

		// /patient mixes patient self-service with doctor routes keyed by :patientId.
		patientRoutes := private.Group("/patient")
		{
			patientRoutes.GET("/dashboard-data", patientOnly, patientHandler.GetDashboard)
			patientRoutes.GET("/goals", patientOnly, goalHandler.GetMyGoals)
			patientRoutes.POST("/goals/:goalId/track", patientOnly, goalHandler.TrackGoal)
			patientRoutes.GET("/prescriptions", patientOnly, prescriptionHandler.GetMyPrescriptions)

			patientRoutes.POST("/:patientId/goals", middleware.RoleAuthMiddleware(models.RoleDoctor), goalHandler.CreateGoal)
			patientRoutes.POST("/:patientId/prescriptions", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.CreatePrescription)
			patientRoutes.GET("/:patientId/conversations", messageHandler.GetPatientConversation)
			patientRoutes.POST("/:patientId/conversations", middleware.RoleAuthMiddleware(models.RoleDoctor), messageHandler.PostPatientConversation)
		}

		trackingRoutes := private.Group("/tracking")
		trackingRoutes.Use(patientOnly)
		{
			trackingRoutes.POST("", trackingHandler.CreateRecord)
			trackingRoutes.GET("", trackingHandler.GetRecords)
			trackingRoutes.PUT("/:id", trackingHandler.UpdateRecord)
			trackingRoutes.DELETE("/:id", trackingHandler.DeleteRecord)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
		}

		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("", messageHandler.GetMessagesForUser)
			messageRoutes.GET("/new", messageHandler.GetNewMessages)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
