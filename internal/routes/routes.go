package routes

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/config"
	"medicare-server/internal/handlers"
	"medicare-server/internal/middleware"
	"medicare-server/internal/models"
	"medicare-server/internal/services"
)

// Services is everything the HTTP layer needs.
type Services struct {
	Accounts     *services.AccountService
	Doctors      *services.DoctorService
	Appointments *services.AppointmentService
	Beds         *services.BedService
	Reviews      *services.ReviewService
	Records      *services.RecordService
	Health       map[string]handlers.HealthCheck
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, svc Services, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(svc.Accounts, cfg)
	userHandler := handlers.NewUserHandler(svc.Accounts, svc.Doctors)
	doctorHandler := handlers.NewDoctorHandler(svc.Doctors, svc.Appointments, svc.Reviews)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments)
	doctorAppointmentHandler := handlers.NewDoctorAppointmentHandler(svc.Appointments)
	bedHandler := handlers.NewBedHandler(svc.Beds)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	recordHandler := handlers.NewRecordHandler(svc.Records)
	healthHandler := handlers.NewHealthHandler(svc.Health)

	patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)
	doctorOnly := middleware.RoleAuthMiddleware(models.RoleDoctor)
	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		public.GET("/doctors", doctorHandler.ListDoctors)
		public.GET("/doctors/specializations", doctorHandler.Specializations)
		public.GET("/doctors/:id", doctorHandler.GetDoctor)
		public.GET("/reviews/:doctorId", doctorHandler.ListReviews)
		public.GET("/appointments/slots/:doctorId/:date", doctorHandler.AvailableSlots)

		public.GET("/beds/availability", bedHandler.Availability)
		public.GET("/beds/available/:wardType", bedHandler.AvailableBeds)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
			authRoutesPrivate.PUT("/password", authHandler.ChangePassword)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(adminOnly)
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
				adminRoutes.POST("/:id/doctor-profile", userHandler.CreateDoctorProfile)
			}
		}

		appointmentRoutes := private.Group("/appointments")
		appointmentRoutes.Use(patientOnly)
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.CancelAppointment)
		}

		doctorRoutes := private.Group("/doctor")
		doctorRoutes.Use(doctorOnly)
		{
			doctorRoutes.GET("/profile", doctorHandler.MyProfile)
			doctorRoutes.PUT("/profile", doctorHandler.UpdateMyProfile)

			doctorRoutes.GET("/appointments", doctorAppointmentHandler.List)
			doctorRoutes.GET("/appointments/stats", doctorAppointmentHandler.Stats)
			doctorRoutes.GET("/appointments/today", doctorAppointmentHandler.Today)
			doctorRoutes.GET("/appointments/:id", doctorAppointmentHandler.Get)
			doctorRoutes.PUT("/appointments/:id/status", doctorAppointmentHandler.UpdateStatus)
			doctorRoutes.PUT("/appointments/:id/complete", doctorAppointmentHandler.Complete)
		}

		bedRoutes := private.Group("/beds")
		{
			bedRoutes.POST("/book", patientOnly, bedHandler.Book)
			bedRoutes.GET("/my-bookings", patientOnly, bedHandler.MyBookings)
			bedRoutes.DELETE("/booking/:id", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), bedHandler.CancelBooking)

			bedRoutes.POST("", adminOnly, bedHandler.CreateBed)
			bedRoutes.GET("/bookings", adminOnly, bedHandler.ListBookings)
			bedRoutes.PUT("/:id/maintenance", adminOnly, bedHandler.SetMaintenance)
			bedRoutes.PUT("/booking/:id/admit", adminOnly, bedHandler.Admit)
			bedRoutes.PUT("/booking/:id/discharge", adminOnly, bedHandler.Discharge)
		}

		private.POST("/reviews", patientOnly, reviewHandler.Create)

		recordRoutes := private.Group("/records")
		{
			recordRoutes.POST("", doctorOnly, recordHandler.CreateRecord)
			recordRoutes.GET("/patient/:patientId", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RolePatient), recordHandler.ListPatientRecords)
			recordRoutes.GET("", patientOnly, recordHandler.ListRecords)
			recordRoutes.GET("/stats", patientOnly, recordHandler.Stats)
			recordRoutes.GET("/:id", patientOnly, recordHandler.GetRecord)
		}

		prescriptionRoutes := private.Group("/prescriptions")
		prescriptionRoutes.Use(patientOnly)
		{
			prescriptionRoutes.GET("", recordHandler.ListPrescriptions)
			prescriptionRoutes.GET("/active-count", recordHandler.ActivePrescriptionCount)
			prescriptionRoutes.GET("/:id", recordHandler.GetPrescription)
		}
	}

	router.GET("/health", healthHandler.Health)
}
