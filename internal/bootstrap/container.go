package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"oho-chat-gateway/internal/config"
	"oho-chat-gateway/internal/controller"
	"oho-chat-gateway/internal/pkg/logger"
	"oho-chat-gateway/internal/service"
	"oho-chat-gateway/internal/websocket"
	"oho-chat-gateway/pkg/chat"
	"oho-chat-gateway/pkg/chat/ratelimit"
	"oho-chat-gateway/pkg/flow"
	"oho-chat-gateway/pkg/flow/extract"
)

const turnTopic = "CHAT_TURN_COMPLETED"

type Container struct {
	// Controllers
	ChatController  controller.IChatController
	DebugController controller.IDebugController

	// Background Services (Exposed for main.go to run)
	ArchiverService service.IArchiverService

	// WebSockets
	WebSocketHub *websocket.Hub
}

// NewContainer wires the gateway. The flow definition is required and
// already loaded by main; missing provider credentials do not stop the
// wiring, they put the chat service into a turn-refusing state instead.
func NewContainer(def *flow.Definition, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Flow Engine Client
	engine := flow.NewClient(
		cfg.Engine.BaseURL,
		cfg.Engine.APIKey,
		def.ID,
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second,
	)

	overlay := flow.NewOverlay(def)
	baseTweaks := flow.BuildBaseTweaks(def, flow.BaseParams{
		OpenAIKey:         cfg.Keys.OpenAI,
		PineconeKey:       cfg.Keys.Pinecone,
		PineconeNamespace: cfg.Chat.PineconeNamespace,
		ModelName:         cfg.Chat.ModelName,
		Temperature:       cfg.Chat.Temperature,
		RetrievalTopK:     cfg.Chat.RetrievalTopK,
	})

	// 4. Session Store
	var rdb *redis.Client
	if cfg.Session.StoreDriver == "redis" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.Session.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}
	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	store, err := chat.NewStore(cfg.Session.StoreDriver, rdb, sessionTTL)
	if err != nil {
		log.Printf("[WARN] %v; falling back to memory session store", err)
		store = chat.NewMemoryStore(sessionTTL)
	}

	// 5. Turn Policies
	limiter := ratelimit.New(cfg.Chat.RateLimitCalls, time.Duration(cfg.Chat.RateLimitSeconds)*time.Second)
	memo := chat.NewMemoCache(time.Duration(cfg.Chat.MemoTTLSeconds)*time.Second, cfg.Chat.MemoMaxEntries)
	extractor := extract.New(cfg.Chat.FallbackReply)

	// Credentials are checked once here; failure refuses turns, it does
	// not crash the process.
	configErr := cfg.ValidateCredentials()
	if configErr != nil {
		log.Printf("[ERROR] %v; refusing chat turns until resolved", configErr)
	}

	// 6. Services
	chatService := service.NewChatService(
		engine,
		overlay,
		baseTweaks,
		extractor,
		store,
		limiter,
		memo,
		pubSub,
		turnTopic,
		sysLogger,
		cfg.Chat.MemoryWindow,
		configErr,
	)

	// WebSocket Hub (isolated log so the turn feed stays out of main logs)
	wsLogger := logger.NewIsolatedLogger("logs/debug_feed.log")
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()

	archiverService := service.NewArchiverService(pubSub, turnTopic, "logs/turns.jsonl", wsHub, sysLogger)

	// 7. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService),
		DebugController: controller.NewDebugController(chatService, sysLogger),
		ArchiverService: archiverService,
		WebSocketHub:    wsHub,
	}
}
