package api

import (
	"net/http"
	"time"

	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/arpitshukla/eventmaster/internal/service/auth"
	"github.com/arpitshukla/eventmaster/internal/service/events"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service events.EventUseCase
	auth    auth.AuthUseCase
}

type createEventRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date" binding:"required"`
	Location     string    `json:"location"`
	Image        string    `json:"image"`
	PriceCents   int64     `json:"price_cents" binding:"min=0"`
	TotalTickets int       `json:"total_tickets" binding:"required,min=1"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
	PriceCents  *int64     `json:"price_cents"`
}

type eventResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Date             string `json:"date"`
	Location         string `json:"location"`
	Image            string `json:"image"`
	PriceCents       int64  `json:"price_cents"`
	TotalTickets     int    `json:"total_tickets"`
	AvailableTickets int    `json:"available_tickets"`
	CreatedBy        string `json:"created_by"`
}

func NewEventHandler(service events.EventUseCase, authSvc auth.AuthUseCase) *EventHandler {
	return &EventHandler{service: service, auth: authSvc}
}

// Register wires the public read endpoints and the authenticated write
// endpoints onto the same group.
func (h *EventHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)

	protected := router.Group("", AuthRequired(h.auth))
	protected.POST("", h.create)
	protected.PUT("/:id", h.update)
	protected.DELETE("/:id", h.delete)
}

func (h *EventHandler) list(c *gin.Context) {
	futureOnly := c.Query("future") == "true"
	list, err := h.service.List(c.Request.Context(), futureOnly)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]eventResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toEventResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) get(c *gin.Context) {
	event, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

func (h *EventHandler) create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.Create(c.Request.Context(), events.CreateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Location:     req.Location,
		Image:        req.Image,
		PriceCents:   req.PriceCents,
		TotalTickets: req.TotalTickets,
	}, identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEventResponse(event))
}

func (h *EventHandler) update(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.Update(c.Request.Context(), c.Param("id"), events.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Image:       req.Image,
		PriceCents:  req.PriceCents,
	}, identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEventResponse(event))
}

func (h *EventHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), identityFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toEventResponse(e *domain.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Date:             e.Date.Format(time.RFC3339),
		Location:         e.Location,
		Image:            e.Image,
		PriceCents:       e.PriceCents,
		TotalTickets:     e.TotalTickets,
		AvailableTickets: e.AvailableTickets,
		CreatedBy:        e.CreatedBy,
	}
}
