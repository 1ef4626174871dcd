package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatroom-backend/internal/config"
	"chatroom-backend/internal/handlers"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer st.Close()

	relay := services.NewRelay(st)

	chat := services.NewChatService(st, relay)
	packets := services.NewRedPacketEngine(st, chat, relay)
	dice := services.NewDiceEngine(st, chat, relay)
	polls := services.NewPollEngine(st, chat, relay)
	lotteries := services.NewLotteryEngine(st, chat, relay)
	kicks := services.NewKickVoteEngine(st, chat, relay)
	toasts := services.NewToastEngine(st, chat)

	hub := handlers.NewHub()
	go hub.Run()

	ctx := context.Background()

	// Relay -> local clients. Force-disconnect instructions are consumed
	// here instead of being forwarded.
	relay.Subscribe(ctx, func(ev services.Event) {
		if ev.Event == services.EventForceDisconnect {
			var payload services.ForceDisconnectPayload
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				log.Printf("bad forceDisconnect payload: %v", err)
				return
			}
			hub.Kick(payload.UserID)
			return
		}
		hub.Broadcast(ev)
	})

	workerID := uuid.New().String()
	sweeper := services.NewSweeper(st, workerID, cfg.EntityLifetime, cfg.SweepInterval,
		packets.Registry(),
		dice.Registry(),
		polls.Registry(),
		lotteries.Registry(),
		toasts.Registry(),
		kicks.Registry(),
	)
	go sweeper.Run(ctx)

	router := handlers.NewRouter(chat, packets, dice, polls, lotteries, kicks, toasts)
	wsHandler := handlers.NewWebSocketHandler(hub, chat, router)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()

	engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	engine.GET("/ws", wsHandler.HandleWebSocket)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Printf("Worker %s starting on port %s", workerID, cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
