package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// UserHandler handles user administration.
type UserHandler struct {
	Accounts *services.AccountService
	Doctors  *services.DoctorService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts *services.AccountService, doctors *services.DoctorService) *UserHandler {
	return &UserHandler{Accounts: accounts, Doctors: doctors}
}

func sanitizeAll(users []models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Sanitize()
	}
	return out
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role" binding:"required,oneof=patient doctor admin"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, err := h.Accounts.CreateUser(c.Request.Context(), services.NewUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        models.Role(req.Role),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists users, optionally filtered by ?role= (admin).
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.Accounts.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Users fetched successfully", sanitizeAll(users))
}

// GetPatients lists patient accounts for doctors and admins.
func (h *UserHandler) GetPatients(c *gin.Context) {
	users, err := h.Accounts.ListUsers(c.Request.Context(), string(models.RolePatient))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patients fetched successfully", sanitizeAll(users))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.Accounts.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
type UpdateUserRequest struct {
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Email     *string      `json:"email" binding:"omitempty,email"`
	Role      *models.Role `json:"role"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, err := h.Accounts.UpdateUser(c.Request.Context(), c.Param("id"), services.AdminUserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin).
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.Accounts.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

// CreateDoctorProfileRequest is an admin's new profile for a doctor account.
type CreateDoctorProfileRequest struct {
	Specialization string   `json:"specialization" binding:"required"`
	Qualifications string   `json:"qualifications"`
	Experience     int      `json:"experience" binding:"gte=0"`
	Hospital       string   `json:"hospital"`
	Fees           int      `json:"fees" binding:"gte=0"`
	Days           []string `json:"days"`
	Slots          []string `json:"slots"`
	Image          string   `json:"image"`
	About          string   `json:"about"`
}

// CreateDoctorProfile attaches a doctor profile to the user :id (admin).
func (h *UserHandler) CreateDoctorProfile(c *gin.Context) {
	var req CreateDoctorProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, err := h.Doctors.CreateProfile(c.Request.Context(), services.CreateProfileInput{
		UserID:         c.Param("id"),
		Specialization: req.Specialization,
		Qualifications: req.Qualifications,
		Experience:     req.Experience,
		Hospital:       req.Hospital,
		Fees:           req.Fees,
		Availability:   models.Availability{Days: req.Days, Slots: req.Slots},
		Image:          req.Image,
		About:          req.About,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Doctor profile created successfully", doctor)
}
