package handler

import (
	"helpdesk-be/internal/operator"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/internal/service"
	internalWS "helpdesk-be/internal/websocket"
	"helpdesk-be/internal/widget"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/livesync"
	"helpdesk-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	SurfaceWidget   = "widget"
	SurfaceOperator = "operator"
)

// RealtimeHandler upgrades the widget and operator sockets and hands each
// connection to its surface loop.
type RealtimeHandler struct {
	hub         *internalWS.Hub
	content     store.Subscriber
	sessions    store.Subscriber
	chats       service.IChatSessionService
	docs        livesync.Documents
	defaultLang knowledge.Language
	jwtSecret   string
	logger      logger.ILogger
}

func NewRealtimeHandler(
	hub *internalWS.Hub,
	content, sessions store.Subscriber,
	chats service.IChatSessionService,
	docs livesync.Documents,
	defaultLang knowledge.Language,
	jwtSecret string,
	log logger.ILogger,
) *RealtimeHandler {
	return &RealtimeHandler{
		hub:         hub,
		content:     content,
		sessions:    sessions,
		chats:       chats,
		docs:        docs,
		defaultLang: defaultLang,
		jwtSecret:   jwtSecret,
		logger:      log,
	}
}

func (h *RealtimeHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/widget/ws", requireUpgrade, h.ServeWidget)
	r.Get("/operator/ws", serverutils.JwtMiddleware(h.jwtSecret), requireUpgrade, h.ServeOperator)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ServeWidget opens one customer widget. The "lang" query parameter picks the
// starting language.
func (h *RealtimeHandler) ServeWidget(c *fiber.Ctx) error {
	lang, ok := knowledge.ParseLanguage(c.Query("lang"))
	if !ok {
		lang = h.defaultLang
	}

	return websocket.New(func(conn *websocket.Conn) {
		adapter := livesync.New(h.content, h.sessions, h.docs, h.logger)
		session := widget.NewSession(lang, adapter, h.chats, h.logger)

		h.logger.Info("RealtimeHandler", "Widget session started", map[string]interface{}{"language": lang})
		internalWS.ServeWs(h.hub, conn, SurfaceWidget, session.Run)
		h.logger.Info("RealtimeHandler", "Widget session ended", nil)
	})(c)
}

func (h *RealtimeHandler) ServeOperator(c *fiber.Ctx) error {
	email := serverutils.OperatorEmail(c)

	return websocket.New(func(conn *websocket.Conn) {
		adapter := livesync.New(h.content, h.sessions, h.docs, h.logger)
		console := operator.NewConsole(email, adapter, h.chats, h.logger)

		h.logger.Info("RealtimeHandler", "Operator console opened", map[string]interface{}{"operator": email})
		internalWS.ServeWs(h.hub, conn, SurfaceOperator, console.Run)
		h.logger.Info("RealtimeHandler", "Operator console closed", map[string]interface{}{"operator": email})
	})(c)
}
