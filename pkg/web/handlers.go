package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-molty/pkg/emotions"
	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// EmotionInfo describes an available emotion.
type EmotionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Loop        bool   `json:"loop"`
	Terminal    bool   `json:"terminal"`
}

// ServosRequest is the body of POST /api/servos. Omitted angles default to 90.
type ServosRequest struct {
	Angle1 *float64 `json:"angle1"`
	Angle2 *float64 `json:"angle2"`
}

// statusCode maps transition errors to HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, emotions.ErrUnknownEmotion), errors.Is(err, emotions.ErrNotLoaded):
		return fiber.StatusNotFound
	case errors.Is(err, scheduler.ErrTerminal):
		return fiber.StatusConflict
	case errors.Is(err, scheduler.ErrClosed), errors.Is(err, scheduler.ErrNoServos):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctl.Snapshot())
}

func (s *Server) handleListEmotions(c *fiber.Ctx) error {
	lib := s.ctl.Library()
	descriptions := lib.ListWithDescriptions()

	out := make([]EmotionInfo, 0, len(descriptions))
	for _, e := range lib.List() {
		info := EmotionInfo{Name: string(e), Description: descriptions[e], Terminal: e.Terminal()}
		if p, err := lib.Program(e); err == nil {
			info.Loop = p.Loop
		}
		out = append(out, info)
	}
	return c.JSON(out)
}

func (s *Server) handleSetEmotion(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.ctl.SetEmotion(name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": protocol.StatusEmotionChanged, "emotion": name})
}

func (s *Server) handleSetServos(c *fiber.Ctx) error {
	var req ServosRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
		}
	}
	cmd := protocol.Command{Command: protocol.CmdSetServos, Angle1: req.Angle1, Angle2: req.Angle2}
	angle1, angle2 := cmd.Angles()

	if err := s.ctl.SetServos(angle1, angle2); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": protocol.StatusServosSet, "angle1": angle1, "angle2": angle2})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.ctl.Stop(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": protocol.StatusStopped})
}
