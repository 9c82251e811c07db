package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/store"
)

const resubscribeBackoff = 2 * time.Second

// StartChatSubscription opens the standing chat subscription and pumps every
// pushed snapshot into the chat store's cache as a wholesale replacement.
// The subscription is re-established with backoff if the driver closes it.
// Call StopChatSubscription (or cancel ctx) to stop.
func (o *Orchestrator) StartChatSubscription(ctx context.Context) error {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	if o.subCtx != nil {
		return fmt.Errorf("chat subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	o.subCtx = cancel

	o.subWG.Add(1)
	go func() {
		defer o.subWG.Done()
		for {
			if err := o.pumpChat(subCtx); err != nil {
				o.logger.Warn("chat subscription lost", zap.Error(err))
			}
			select {
			case <-subCtx.Done():
				return
			case <-time.After(resubscribeBackoff):
			}
		}
	}()
	return nil
}

// StopChatSubscription terminates the subscription and waits for the pump to
// exit.
func (o *Orchestrator) StopChatSubscription() {
	o.subMu.Lock()
	cancel := o.subCtx
	o.subCtx = nil
	o.subMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.subWG.Wait()
}

// Shutdown stops the subscription and the job queue.
func (o *Orchestrator) Shutdown() {
	o.StopChatSubscription()
	if o.queue != nil {
		o.queue.Stop()
	}
}

func (o *Orchestrator) pumpChat(ctx context.Context) error {
	sub, err := o.gw.Subscribe(ctx, store.CollectionChat, "timestamp", true)
	if err != nil {
		return fmt.Errorf("subscribe chat: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case docs, ok := <-sub.Snapshots():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("snapshot channel closed")
			}
			o.stores.Chat.ApplySnapshot(docs)
			o.chatSnapshots.Inc()
		}
	}
}

func errUnknownStore(name string) error {
	return fmt.Errorf("unknown store %q", name)
}
