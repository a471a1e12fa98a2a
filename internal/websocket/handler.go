package websocket

import (
	"ai-notebook-companion/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes exposes GET /embedding/v1/ws. Browsers pass the token as ?token=.
func (h *Handler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/embedding/v1/ws", auth, h.upgrade, websocket.New(h.serve))
}

func (h *Handler) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	ctx.Locals("ws_user_id", userId)
	return ctx.Next()
}

func (h *Handler) serve(conn *websocket.Conn) {
	userId, ok := conn.Locals("ws_user_id").(uuid.UUID)
	if !ok {
		conn.Close()
		return
	}
	client := newClient(h.hub, conn, userId)
	if !h.hub.add(client) {
		conn.Close()
		return
	}

	go client.forward()
	client.awaitClose()
}
