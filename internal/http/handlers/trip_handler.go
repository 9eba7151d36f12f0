// README: Trip handlers for start/status/telemetry/list/evict and the profile catalog.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsim/internal/modules/trip"
	"tripsim/internal/types"
)

type TripHandler struct {
	trip *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trip: svc}
}

type startTripResp struct {
	Status  string   `json:"status"`
	Dominio string   `json:"dominio"`
	IDViaje types.ID `json:"id_viaje"`
}

func (h *TripHandler) Start(c *gin.Context) {
	var req trip.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.trip.CreateTrip(c.Request.Context(), req)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, startTripResp{Status: "viaje iniciado", Dominio: res.DomainCode, IDViaje: res.TripID})
}

func (h *TripHandler) Status(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeNotFound(c)
		return
	}
	t, err := h.trip.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": t.Status, "trip_info": t})
}

func (h *TripHandler) Telemetry(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeNotFound(c)
		return
	}
	events, err := h.trip.Events(c.Request.Context(), types.ID(id))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "success", "telemetry": events})
}

type tripSummary struct {
	ID         types.ID           `json:"id"`
	DomainCode string             `json:"dominio"`
	Profile    string             `json:"profile"`
	Status     trip.Status        `json:"status"`
	StartTime  string             `json:"start_time"`
	Events     int                `json:"telemetry_count"`
	Summary    *trip.RouteSummary `json:"summary,omitempty"`
}

func (h *TripHandler) List(c *gin.Context) {
	trips := h.trip.List(c.Request.Context())
	out := make([]tripSummary, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripSummary{
			ID:         t.ID,
			DomainCode: t.DomainCode,
			Profile:    t.Profile,
			Status:     t.Status,
			StartTime:  t.StartTime.Format("2006-01-02T15:04:05.000Z07:00"),
			Events:     len(t.Events),
			Summary:    t.Summary,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": out})
}

func (h *TripHandler) Evict(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeNotFound(c)
		return
	}
	if err := h.trip.Evict(c.Request.Context(), types.ID(id)); err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "evicted", "id_viaje": id})
}

func (h *TripHandler) Profiles(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"profiles": h.trip.Profiles()})
}
