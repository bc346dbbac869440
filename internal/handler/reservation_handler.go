package handler

import (
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/Shivanand-hulikatti/slot-booking/internal/service"
	"github.com/go-chi/chi/v5"
)

// ReservationHandler serves booking, cancellation and the occupancy reads.
type ReservationHandler struct {
	svc *service.Coordinator
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *service.Coordinator) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// Book handles POST /slots/{id}/bookings
// Confirms a seat (201), queues the caller on a full slot (202) or refuses a
// closed or cancelled slot (409). The body is always a BookingResult except
// for lookup and validation errors.
func (h *ReservationHandler) Book(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slotID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Book(r.Context(), userID, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			writeJSON(w, http.StatusConflict, result)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == model.OutcomeWaitlisted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// Cancel handles DELETE /bookings/{id}
// Only the booking's owner may cancel it.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookingID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), bookingID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"booking_id": bookingID.String(),
		"status":     string(model.BookingCancelled),
	})
}

// Availability handles GET /availability?center_id=&date=&start_time=
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	centerID, err := int64Param(q.Get("center_id"), "center_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := service.ParseDate(q.Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	avail, err := h.svc.GetAvailability(r.Context(), centerID, date, q.Get("start_time"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, avail)
}

// UserBookings handles GET /users/{id}/bookings?date=
// Returns every booking the user holds on that date, in any status.
func (h *ReservationHandler) UserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := int64Param(chi.URLParam(r, "id"), "user id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := service.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	bookings, err := h.svc.GetUserBookings(r.Context(), userID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if bookings == nil {
		bookings = []model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}
