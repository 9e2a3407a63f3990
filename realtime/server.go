package realtime

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"

	"partyup/config"
	"partyup/models"
	"partyup/services"
)

// Server is the gate in front of the realtime transport. Chat and media
// sessions are only permitted while an event is ONGOING, and the gate
// queries the current status on every request rather than caching it.
// Live score updates are relayed from Redis pub/sub as SSE.
type Server struct {
	echo   *echo.Echo
	server *http.Server
	events *services.EventService
	redis  *redis.Client
}

func NewServer(events *services.EventService, redisClient *redis.Client, cfg *config.Config) *Server {
	e := echo.New()

	s := &Server{
		echo:   e,
		events: events,
		redis:  redisClient,
		server: &http.Server{
			Addr:    ":" + cfg.RealtimePort,
			Handler: e,
		},
	}

	limiter := NewRateLimiter(redisClient)
	e.Use(limiter.Middleware())

	e.GET("/realtime/events/:eventId/session", s.session)
	e.GET("/realtime/events/:eventId/stream", s.stream)

	return s
}

// Start blocks serving the realtime listener.
func (s *Server) Start() error {
	log.Printf("Realtime gate listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// session answers whether the transport may admit a session right now.
func (s *Server) session(c echo.Context) error {
	eventID := c.PathParam("eventId")

	st, err := s.events.Status(eventID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "event not found"})
	}
	if st != models.StatusOngoing {
		return c.JSON(http.StatusForbidden, map[string]any{
			"allowed": false,
			"status":  string(st),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"allowed": true,
		"status":  string(st),
	})
}

// stream relays live score updates for an ongoing event as SSE.
func (s *Server) stream(c echo.Context) error {
	eventID := c.PathParam("eventId")

	st, err := s.events.Status(eventID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "event not found"})
	}
	if st != models.StatusOngoing {
		return c.JSON(http.StatusForbidden, map[string]any{"allowed": false, "status": string(st)})
	}
	if s.redis == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "stream unavailable"})
	}

	ctx := c.Request().Context()
	sub := s.redis.Subscribe(ctx, fmt.Sprintf("event_scores:%s", eventID))
	defer sub.Close()

	res := c.Response()
	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", msg.Payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
