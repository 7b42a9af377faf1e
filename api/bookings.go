package api

import (
	"net/http"
	"time"

	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/arpitshukla/eventmaster/internal/service/ledger"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service ledger.LedgerUseCase
}

type createBookingRequest struct {
	EventID         string `json:"event_id" binding:"required"`
	NumberOfTickets int    `json:"number_of_tickets" binding:"required"`
}

type bookingResponse struct {
	ID              string `json:"id"`
	EventID         string `json:"event_id"`
	UserID          string `json:"user_id"`
	NumberOfTickets int    `json:"number_of_tickets"`
	TotalPriceCents int64  `json:"total_price_cents"`
	BookingDate     string `json:"booking_date"`
	Status          string `json:"status"`
}

func NewBookingHandler(service ledger.LedgerUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.PUT("/:id/cancel", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := identityFrom(c)
	booking, err := h.service.Reserve(c.Request.Context(), ledger.ReserveInput{
		EventID:         req.EventID,
		UserID:          caller.UserID,
		NumberOfTickets: req.NumberOfTickets,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (h *BookingHandler) list(c *gin.Context) {
	caller := identityFrom(c)
	bookings, err := h.service.ListForUser(c.Request.Context(), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]bookingResponse, 0)
	for b := range bookings {
		resp = append(resp, toBookingResponse(&b))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	booking, err := h.service.Get(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	booking, err := h.service.Cancel(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		EventID:         b.EventID,
		UserID:          b.UserID,
		NumberOfTickets: b.NumberOfTickets,
		TotalPriceCents: b.TotalPriceCents,
		BookingDate:     b.BookingDate.Format(time.RFC3339),
		Status:          string(b.Status),
	}
}
