package handlers

import (
	"net/http"

	"rental/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// ListVehicles supports ?type=&status=&startDate=&endDate=.
func (h *Handler) ListVehicles(c *gin.Context) {
	start, err := parseDateParam("startDate", c.Query("startDate"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	end, err := parseDateParam("endDate", c.Query("endDate"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	filter := models.VehicleFilter{Type: c.Query("type"), Status: c.Query("status")}
	list, err := h.availabilityService().ListVehicles(c.Request.Context(), filter, start, end)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": list, "count": len(list)})
}

func (h *Handler) GetVehicle(c *gin.Context) {
	v, err := h.availabilityService().GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}
