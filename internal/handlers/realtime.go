package handlers

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

// RealtimeHandler upgrades admin sessions into WebSocket streams.
type RealtimeHandler struct {
	hub     *realtime.Hub
	allowed []string
}

// NewRealtimeHandler limits clients to streams; with none, any name is accepted.
func NewRealtimeHandler(hub *realtime.Hub, streams ...string) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, allowed: realtime.UniqueStreams(streams)}
}

// GET /api/realtime and /api/realtime/:stream, behind RequireAdmin.
// Streams come from the path, repeated ?stream= and comma separated ?streams=.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	subscriber := sessionSlug(c)
	if subscriber == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	requested := append([]string{c.Param("stream"), c.Query("streams")}, c.QueryArray("stream")...)
	streams := realtime.ParseStreams(requested...)
	if len(streams) == 0 {
		streams = []string{realtime.StreamPitchDeck}
	}
	if len(h.allowed) > 0 {
		for _, stream := range streams {
			if !slices.Contains(h.allowed, stream) {
				response.Error(c, errors.NewNotFound("unknown stream "+stream))
				return
			}
		}
	}

	h.hub.Serve(subscriber, streams, h.allowed, c.Writer, c.Request)
}
