package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"campusbook/internal/bookings/service"
	"campusbook/pkg/auth"
	apperrors "campusbook/pkg/errors"
	httputil "campusbook/pkg/http"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CreateBookingRequest struct {
	Facility string     `json:"facility"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

type CurrentBookingResponse struct {
	Booking *model.Booking `json:"booking"`
}

type BookingHandler struct {
	service service.BookingService
	jwt     *auth.JWTManager
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, jwt *auth.JWTManager, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		jwt:     jwt,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing user identity"))
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	confirmation, err := h.service.Create(r.Context(), userID, req.Facility, req.Start, req.End)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, confirmation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, "Me", apperrors.Unauthorized("Missing user identity"))
		return
	}

	booking, err := h.service.GetActive(r.Context(), userID)
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}

	if err := httputil.WriteSuccess(w, CurrentBookingResponse{Booking: booking}); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "error", err)
	}
}

// Verify is unauthenticated: it accepts either the raw booking id or the
// sealed token from the QR payload.
func (h *BookingHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	bookingID := query.Get("booking_id")
	if sealed := query.Get("token"); sealed != "" {
		var err error
		bookingID, err = h.service.ResolveToken(sealed)
		if err != nil {
			h.writeError(w, "Verify", err)
			return
		}
	}

	if bookingID == "" {
		h.writeError(w, "Verify", apperrors.InvalidInput("Either 'booking_id' or 'token' query parameter is required"))
		return
	}

	verification, err := h.service.Verify(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httputil.WriteSuccess(w, verification); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "error", err)
	}
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	facility := r.URL.Query().Get("facility")

	bookings, err := h.service.ListSlots(r.Context(), facility)
	if err != nil {
		h.writeError(w, "Slots", err)
		return
	}

	if bookings == nil {
		bookings = []*model.Booking{}
	}
	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "Slots", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, "Cancel", apperrors.Unauthorized("Missing user identity"))
		return
	}

	if err := h.service.Cancel(r.Context(), userID); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteMessage(w, "Booking cancelled"); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	authed := auth.Required(h.jwt, h.log)

	router.POST("/api/v1/bookings", authed(h.Create))
	router.GET("/api/v1/bookings/me", authed(h.Me))
	router.DELETE("/api/v1/bookings", authed(h.Cancel))
	router.GET("/api/v1/bookings/verify", h.Verify)
	router.GET("/api/v1/bookings/slots", h.Slots)
}
