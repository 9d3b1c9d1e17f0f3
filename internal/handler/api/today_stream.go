package api

import (
	"context"
	"net/http"
	"time"

	models "AstroPull/internal/domain/models"
	xlogger "AstroPull/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
)

// TodaySky is the chart source of the stream.
type TodaySky interface {
	Today(ctx context.Context) (*models.ChartResult, error)
}

// TodayStream pushes the current sky over a websocket every interval.
type TodayStream struct {
	logger   *xlogger.Logger
	sky      TodaySky
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewTodayStream(logger *xlogger.Logger, sky TodaySky, interval time.Duration) *TodayStream {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TodayStream{
		logger:   logger,
		sky:      sky,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *TodayStream) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/astro/today/stream", s.Serve)
}

// streamFrame is one websocket message.
type streamFrame struct {
	Chart *models.ChartResult `json:"chart,omitempty"`
	Error string              `json:"error,omitempty"`
	At    time.Time           `json:"at"`
}

func (s *TodayStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reader: only control frames are expected; any error ends the stream.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	pingEvery := streamPongWait * 9 / 10
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingEvery)
	defer pinger.Stop()

	if err := s.push(ctx, conn); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil
		case <-ticker.C:
			if err := s.push(ctx, conn); err != nil {
				return nil
			}
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (s *TodayStream) push(ctx context.Context, conn *websocket.Conn) error {
	frame := streamFrame{At: time.Now().UTC()}
	res, err := s.sky.Today(ctx)
	if err != nil {
		s.logger.Warn("today chart failed", xlogger.Error(err))
		frame.Error = toAppError(err).Message
	} else {
		frame.Chart = res
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.Debug("websocket write failed", xlogger.Error(err))
		return err
	}
	return nil
}
