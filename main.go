package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/channels"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/push"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/stargate"
	"messenger-service/internal/telemetry"
)

const serviceName = "messenger-service"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	database, err := db.Connect()
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to db")
	}

	ctx := context.Background()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := observability.InitTracer(ctx, endpoint, serviceName)
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialize tracer")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logrus.WithError(err).Warn("tracer shutdown error")
			}
		}()
	}

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "messenger.events"))
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", serviceName, getEnv("ENVIRONMENT", "development"))

	userRepo := repositories.NewUserRepo(database)
	relationshipRepo := repositories.NewRelationshipRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	// The push-channel backend is either a remote Stargate deployment or the
	// embedded websocket gateway.
	var registry push.ChannelRegistry
	var gateway *channels.Gateway
	if addr := os.Getenv("STARGATE_ADDR"); addr != "" {
		registry = stargate.NewClient(addr, os.Getenv("STARGATE_ACCESS_TOKEN"))
	} else {
		gateway = channels.NewGateway()
		registry = gateway
	}

	dispatcher := push.NewDispatcher(registry, userRepo, publisher)
	provisioner := push.NewProvisioner(registry, userRepo)

	listenBase := getEnv("LISTEN_BASE_URL", "ws://localhost:"+getEnv("PORT", "8083"))

	friendHandler := handlers.NewFriendHandler(relationshipRepo, userRepo, conversationRepo, dispatcher, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, userRepo, relationshipRepo)
	messageHandler := handlers.NewMessageHandler(conversationRepo, messageRepo, userRepo, dispatcher, audit)
	pusherHandler := handlers.NewPusherHandler(provisioner, listenBase)
	userHandler := handlers.NewUserHandler(userRepo, relationshipRepo, conversationRepo)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(userRepo)

	router.GET("/users", authMiddleware, userHandler.SearchUsers)
	router.GET("/users/:user_id", authMiddleware, userHandler.UserDetail)

	router.POST("/friends/requests", authMiddleware, friendHandler.CreateRequest)
	router.POST("/friends/requests/:request_id/complete", authMiddleware, friendHandler.CompleteRequest)
	router.GET("/friends/requests", authMiddleware, friendHandler.MyRequests)
	router.DELETE("/friends/:user_id", authMiddleware, friendHandler.DeleteFriend)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.GET("/conversations/:conversation_id", authMiddleware, conversationHandler.ConversationDetail)
	router.POST("/conversations/private", authMiddleware, conversationHandler.StartPrivate)
	router.POST("/conversations/groups", authMiddleware, conversationHandler.CreateGroup)

	router.GET("/conversations/:conversation_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, messageHandler.SendMessage)

	router.POST("/pusher/init", authMiddleware, pusherHandler.InitPusher)
	if gateway != nil {
		router.GET("/ws/channels/:channel_id", gateway.Listen)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
