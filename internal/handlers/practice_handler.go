package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/practice"
)

// PracticeHandler serves the data behind the marketing pages
type PracticeHandler struct {
	profile *practice.Profile
}

func NewPracticeHandler(profile *practice.Profile) *PracticeHandler {
	return &PracticeHandler{profile: profile}
}

func (h *PracticeHandler) GetPractice(c *gin.Context) {
	c.JSON(http.StatusOK, models.PracticeInfoResponse{
		Doctor:    h.profile.Doctor,
		Clinic:    h.profile.Clinic,
		Insurance: h.profile.Insurance,
		Assistant: models.AssistantInfo{
			Name:     h.profile.Chatbot.Name,
			Greeting: h.profile.Chatbot.Greeting,
		},
	})
}

func (h *PracticeHandler) GetServices(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServicesResponse{Services: h.profile.Services})
}

func (h *PracticeHandler) GetConditions(c *gin.Context) {
	c.JSON(http.StatusOK, models.ConditionsResponse{Conditions: h.profile.Conditions})
}

func (h *PracticeHandler) GetCondition(c *gin.Context) {
	condition, ok := h.profile.Condition(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Condition not found"})
		return
	}
	c.JSON(http.StatusOK, condition)
}
