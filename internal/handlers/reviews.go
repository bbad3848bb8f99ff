package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

// CreateReviewRequest rates a completed appointment.
type CreateReviewRequest struct {
	AppointmentID string `json:"appointmentId"`
	DoctorID      string `json:"doctorId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// Create handles POST /reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	result, err := h.Reviews.Create(c.Request.Context(), actor, services.CreateReviewInput{
		AppointmentID: req.AppointmentID,
		DoctorID:      req.DoctorID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Review submitted successfully", result)
}
