package controller

import (
	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/serverutils"
	"ai-notebook-companion/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	UpdateSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
	AddMessage(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	Pin(ctx *fiber.Ctx) error
	Unpin(ctx *fiber.Ctx) error
	ListPersonas(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{chatbotService: chatbotService}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat/v1")
	h.Use(auth)
	h.Get("personas", c.ListPersonas)
	h.Post("send", c.SendChat)
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/:id", c.GetSession)
	h.Patch("sessions/:id", c.UpdateSession)
	h.Delete("sessions/:id", c.DeleteSession)
	h.Get("sessions/:id/messages", c.ListMessages)
	h.Post("sessions/:id/messages", c.AddMessage)
	h.Post("sessions/:id/pin", c.Pin)
	h.Post("sessions/:id/unpin", c.Unpin)
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *chatbotController) ListSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.ListSessions(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *chatbotController) GetSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.GetSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *chatbotController) UpdateSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.UpdateSession(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session updated", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	if err := c.chatbotService.DeleteSession(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *chatbotController) ListMessages(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.ListMessagesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}

	res, err := c.chatbotService.ListMessages(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *chatbotController) AddMessage(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.AddMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.AddMessage(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatbotController) Pin(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.PinSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session pinned", res))
}

func (c *chatbotController) Unpin(ctx *fiber.Ctx) error {
	userId, sessionId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.UnpinSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session unpinned", res))
}

func (c *chatbotController) ListPersonas(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get personas", c.chatbotService.ListPersonas(ctx.UserContext())))
}

// ownerAndID reads the authenticated user and the :id route parameter.
func ownerAndID(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.NewValidationError("id", "must be a valid UUID")
	}
	return userId, id, nil
}
