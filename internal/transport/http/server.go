package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/auth"
	"github.com/worksphere/connect-server/internal/config"
	"github.com/worksphere/connect-server/internal/core"
	"github.com/worksphere/connect-server/internal/store"
)

// NewServer builds the HTTP server with all routes mounted.
func NewServer(
	registry *core.Registry,
	typing *core.TypingStore,
	broadcaster *core.Broadcaster,
	authService *auth.Service,
	st store.Store,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	contactHandlers := NewContactHandlers(st, logger)
	groupHandlers := NewGroupHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, typing, broadcaster, logger)
	streamHandlers := NewStreamHandlers(st, st, typing, cfg.StreamPollInterval, logger)
	wsHandler := NewWSHandler(registry, typing, broadcaster, st, authService, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.GET("/contacts", contactHandlers.ListContacts)
	authorized.POST("/contacts", contactHandlers.AddContact)
	authorized.DELETE("/contacts/:id", contactHandlers.RemoveContact)
	authorized.GET("/users/search", contactHandlers.SearchUsers)

	authorized.POST("/groups", groupHandlers.CreateGroup)
	authorized.GET("/groups", groupHandlers.ListGroups)
	authorized.POST("/groups/:id/members", groupHandlers.AddMember)
	authorized.DELETE("/groups/:id/members/:user_id", groupHandlers.RemoveMember)
	authorized.POST("/groups/:id/messages", messageHandlers.SendGroup)
	authorized.GET("/groups/:id/messages", messageHandlers.ListGroup)

	authorized.POST("/messages", messageHandlers.SendPrivate)
	authorized.GET("/messages", messageHandlers.ListPrivate)
	authorized.POST("/messages/read", messageHandlers.MarkRead)
	authorized.GET("/messages/unread", messageHandlers.ListUnread)
	authorized.GET("/messages/recent", messageHandlers.ListRecent)

	authorized.POST("/typing", messageHandlers.Typing)
	authorized.GET("/stream", streamHandlers.Stream)

	// The websocket upgrade hijacks the connection, which gin's wrapped
	// response writer does not allow. Mount it on the mux directly so it
	// gets the raw writer; everything else goes through the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
