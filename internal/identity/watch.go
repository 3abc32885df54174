package identity

import (
	"context"
	"sync"
	"time"

	"github.com/dimitrije/medportal-api/internal/hub"
	"github.com/google/uuid"
)

// Subscribe reports credential changes for one client. onChange is called
// once with initial, then with nil when the account is signed out everywhere
// or the access token expires, and again with the same credential when the
// user's directory record changes. Calls are serialized. The returned
// function stops the subscription and waits for any running onChange call;
// it must not be called from inside onChange.
func (s *Service) Subscribe(ctx context.Context, initial *Credential, onChange func(*Credential)) func() {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	var client *hub.Client
	if initial != nil && s.local != nil {
		client = &hub.Client{ID: uuid.NewString(), UID: initial.UID, Send: make(chan hub.Event, 16)}
		s.local.Register(client)
	}

	go func() {
		defer close(done)
		onChange(initial)
		if initial == nil {
			<-watchCtx.Done()
			return
		}

		var events <-chan hub.Event
		if client != nil {
			events = client.Send
		}
		expiry := time.NewTimer(time.Until(initial.ExpiresAt))
		defer expiry.Stop()

		current := initial
		for {
			select {
			case <-watchCtx.Done():
				return

			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if current == nil {
					continue
				}
				switch ev.Type {
				case hub.EventSignedOut:
					current = nil
					onChange(nil)
				case hub.EventRecordChanged:
					onChange(current)
				}

			case <-expiry.C:
				if current != nil {
					current = nil
					onChange(nil)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if client != nil {
				s.local.Unregister(client)
			}
			<-done
		})
	}
}
