package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/obs"
)

// CredentialSource delivers credential changes, starting with the current
// credential (or nil), until the returned function is called.
type CredentialSource interface {
	Subscribe(ctx context.Context, onChange func(*identity.Credential)) (unsubscribe func())
}

type PrincipalResolver interface {
	Resolve(ctx context.Context, cred *identity.Credential) (*Principal, error)
}

// Materializer keeps a Cell in step with a credential stream. Every change
// gets the next sequence number; a resolution whose number is no longer the
// latest is cancelled and its result dropped.
type Materializer struct {
	resolver PrincipalResolver
	cell     *Cell
	logger   *slog.Logger
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	seq            uint64
	cancelInFlight context.CancelFunc
	unsubscribe    func()
	started        bool
	closed         bool
}

// NewMaterializer returns a Materializer whose resolutions give up after timeout (0 means never).
func NewMaterializer(resolver PrincipalResolver, timeout time.Duration, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Materializer{
		resolver: resolver,
		cell:     NewCell(),
		logger:   logger,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Materializer) View() View {
	return m.cell
}

// Start subscribes to source. It may be called once.
func (m *Materializer) Start(ctx context.Context, source CredentialSource) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	unsubscribe := source.Subscribe(ctx, m.handle)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

func (m *Materializer) handle(cred *identity.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.seq++
	seq := m.seq
	if m.cancelInFlight != nil {
		m.cancelInFlight()
		m.cancelInFlight = nil
	}

	if cred == nil {
		obs.ObserveResolution(obs.OutcomeAnonymous)
		m.cell.store(State{Seq: seq})
		return
	}

	m.cell.store(State{IsResolving: true, Seq: seq})

	var rctx context.Context
	var cancel context.CancelFunc
	if m.timeout > 0 {
		rctx, cancel = context.WithTimeout(m.ctx, m.timeout)
	} else {
		rctx, cancel = context.WithCancel(m.ctx)
	}
	m.cancelInFlight = cancel

	m.wg.Add(1)
	go m.resolve(rctx, cancel, seq, cred)
}

func (m *Materializer) resolve(ctx context.Context, cancel context.CancelFunc, seq uint64, cred *identity.Credential) {
	defer m.wg.Done()
	defer cancel()

	principal, err := m.resolver.Resolve(ctx, cred)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || seq != m.seq {
		obs.ObserveResolution(obs.OutcomeSuperseded)
		return
	}
	m.cancelInFlight = nil

	if err != nil {
		m.logger.Warn("session resolution failed", "uid", cred.UID, "seq", seq, "error", err)
		principal = nil
	}
	m.cell.store(State{Principal: principal, Seq: seq})
}

// Await blocks until the cell holds a settled state or ctx is done.
func (m *Materializer) Await(ctx context.Context) (State, error) {
	settled := make(chan State, 1)
	cancel := m.cell.Subscribe(func(s State) {
		if s.IsResolving {
			return
		}
		select {
		case settled <- s:
		default:
		}
	})
	defer cancel()

	if s := m.cell.Load(); !s.IsResolving && s.Seq > 0 {
		return s, nil
	}

	select {
	case s := <-settled:
		return s, nil
	case <-ctx.Done():
		return m.cell.Load(), ctx.Err()
	}
}

// Close unsubscribes from the source and cancels in-flight resolutions. The
// cell is not written after Close returns.
func (m *Materializer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.cancelInFlight != nil {
		m.cancelInFlight()
		m.cancelInFlight = nil
	}
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.cancel()
	m.wg.Wait()
}
