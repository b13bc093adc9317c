package service

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"oho-chat-gateway/internal/dto"
	"oho-chat-gateway/internal/pkg/logger"
)

// TurnFeed receives completed turns for live delivery (the websocket hub
// implements this).
type TurnFeed interface {
	BroadcastTurn(event dto.TurnCompletedEvent)
}

type IArchiverService interface {
	Consume(ctx context.Context) error
}

// archiverService drains turn events off the in-process bus, appends them
// to a JSONL archive and forwards them to the live feed. It runs out of
// band so a slow disk never delays a turn.
type archiverService struct {
	pubSub   *gochannel.GoChannel
	topic    string
	filePath string
	feed     TurnFeed
	logger   logger.ILogger

	mu sync.Mutex
}

func NewArchiverService(pubSub *gochannel.GoChannel, topic, filePath string, feed TurnFeed, sysLogger logger.ILogger) IArchiverService {
	return &archiverService{
		pubSub:   pubSub,
		topic:    topic,
		filePath: filePath,
		feed:     feed,
		logger:   sysLogger,
	}
}

func (a *archiverService) Consume(ctx context.Context) error {
	messages, err := a.pubSub.Subscribe(ctx, a.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			a.processMessage(msg)
		}
	}()

	return nil
}

func (a *archiverService) processMessage(msg *message.Message) {
	var event dto.TurnCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		a.logger.Warn("Archiver", "Failed to unmarshal turn event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := a.appendLine(msg.Payload); err != nil {
		a.logger.Error("Archiver", "Failed to append turn to archive", map[string]interface{}{
			"error": err.Error(), "file": a.filePath,
		})
	}

	if a.feed != nil {
		a.feed.BroadcastTurn(event)
	}

	msg.Ack()
}

func (a *archiverService) appendLine(payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(payload); err != nil {
		return err
	}
	_, err = f.Write([]byte("\n"))
	return err
}
