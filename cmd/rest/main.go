package main

import (
	"context"
	"log"

	"oho-chat-gateway/internal/bootstrap"
	"oho-chat-gateway/internal/config"
	"oho-chat-gateway/internal/server"
	"oho-chat-gateway/internal/tracer"
	"oho-chat-gateway/pkg/flow"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Load Flow Definition (startup-fatal when missing or malformed)
	def, err := flow.LoadDefinition(cfg.Engine.FlowFilePath)
	if err != nil {
		log.Panicf("Unable to load flow definition: %v", err)
	}
	log.Printf("Loaded flow %q with %d nodes", def.ID, len(def.NodeIDs))

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(def, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Turn Archiver...")
		if err := container.ArchiverService.Consume(context.Background()); err != nil {
			log.Printf("Background Archiver Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
