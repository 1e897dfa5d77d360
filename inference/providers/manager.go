package providers

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/inference"
	"github.com/nvr-ai/cam-detector/logging"
)

// State is the lifecycle state of the managed session.
type State int

const (
	// StateUnloaded holds no session.
	StateUnloaded State = iota
	// StateLoading is attempting the provider chain.
	StateLoading
	// StateReady holds a usable session.
	StateReady
	// StateFailed holds no session; the last load failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the manager.
type Status struct {
	State State `json:"state"`
	// The provider requested by the last load.
	Provider ExecutionProvider `json:"provider,omitempty"`
	// The chain entry that initialized, when Ready.
	Active ExecutionProvider `json:"active,omitempty"`
	// The native backend serving Active, when Ready.
	Backend Backend `json:"backend,omitempty"`
	// Set when a switch to this provider failed and cpu was loaded instead.
	FallbackFrom ExecutionProvider `json:"fallbackFrom,omitempty"`
	// The load failure, when Failed.
	Err error `json:"-"`
}

// Manager owns at most one inference session and moves it between providers.
//
// Transitions:
//
//	Unloaded/Ready/Failed --LoadModel(p)--> Loading(p) --> Ready(p) | Failed(p, err)
//	Ready(q) --SwitchProvider(p), p != q--> release --> LoadModel(p) [--> LoadModel(cpu)]
//
// Every load releases the held session first. Release failures are logged and never block
// the next load.
type Manager struct {
	factory   SessionFactory
	modelPath string
	runtime   RuntimeConfig
	log       logrus.FieldLogger

	// opMu serializes loads, switches and releases.
	opMu sync.Mutex

	mu      sync.RWMutex
	session Session
	status  Status
}

// NewManager creates a manager in the Unloaded state.
//
// Arguments:
//   - factory: Creates sessions for each chain attempt.
//   - modelPath: The model asset, passed to the factory unchanged.
//   - rt: Backend bindings and thread settings.
//   - log: Logger; nil discards.
//
// Returns:
//   - *Manager: The manager.
func NewManager(factory SessionFactory, modelPath string, rt RuntimeConfig, log logrus.FieldLogger) *Manager {
	return &Manager{
		factory:   factory,
		modelPath: modelPath,
		runtime:   rt,
		log:       logging.OrDiscard(log),
	}
}

// Status returns a snapshot of the current state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Session returns the ready session.
//
// Returns:
//   - Session: The session, valid until the next load, switch or release.
//   - error: inference.ErrModelNotLoaded unless Ready.
func (m *Manager) Session() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status.State != StateReady || m.session == nil {
		return nil, inference.ErrModelNotLoaded
	}
	return m.session, nil
}

// LoadModel releases any held session and loads p, trying its chain in order.
//
// Returns:
//   - error: A *ProviderLoadError when every attempt failed; the state is then Failed(p).
func (m *Manager) LoadModel(ctx context.Context, p ExecutionProvider) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.load(ctx, p)
}

// SwitchProvider moves the session to provider p.
//
// Switching to the provider already Ready is a no-op. When p fails to load and p is not
// cpu, cpu is loaded instead and Status().FallbackFrom records p; the call then succeeds.
//
// Returns:
//   - error: A *FallbackError (matching ErrNoUsableProvider) when p and cpu both failed, or
//     the *ProviderLoadError when p is cpu.
func (m *Manager) SwitchProvider(ctx context.Context, p ExecutionProvider) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if st := m.Status(); st.State == StateReady && st.Provider == p {
		m.log.WithField("provider", p).Debug("provider already active")
		return nil
	}

	m.log.WithFields(logrus.Fields{"from": m.Status().Provider, "to": p}).Info("switching provider")
	return m.loadWithFallback(ctx, p)
}

// Reload releases the session and loads the last requested provider again, with the same
// cpu fallback as SwitchProvider.
//
// Returns:
//   - error: inference.ErrModelNotLoaded when no provider was ever requested.
func (m *Manager) Reload(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	p := m.Status().Provider
	if p == "" {
		return inference.ErrModelNotLoaded
	}
	m.log.WithField("provider", p).Info("reloading model")
	return m.loadWithFallback(ctx, p)
}

// Release frees the held session and returns to Unloaded.
//
// Returns:
//   - error: A *ReleaseError matching ErrSessionRelease. The state is Unloaded
//     regardless.
func (m *Manager) Release() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.release()
	m.setStatus(Status{State: StateUnloaded})
	return err
}

func (m *Manager) loadWithFallback(ctx context.Context, p ExecutionProvider) error {
	err := m.load(ctx, p)
	if err == nil || p == CPU {
		return err
	}

	m.log.WithFields(logrus.Fields{"provider": p, "error": err}).Warn("provider failed, falling back to cpu")
	if cpuErr := m.load(ctx, CPU); cpuErr != nil {
		m.log.WithError(cpuErr).Error("cpu fallback failed")
		return &FallbackError{Requested: err, Fallback: cpuErr}
	}

	m.mu.Lock()
	m.status.FallbackFrom = p
	m.mu.Unlock()
	return nil
}

// load must be called with opMu held.
func (m *Manager) load(ctx context.Context, p ExecutionProvider) error {
	if err := m.release(); err != nil {
		m.log.WithError(err).Warn("continuing load after release failure")
	}
	m.setStatus(Status{State: StateLoading, Provider: p})

	loadErr := &ProviderLoadError{Provider: p}
	for _, attempt := range Chain(p) {
		backend := m.runtime.BackendFor(attempt)
		fields := logrus.Fields{"provider": p, "attempt": attempt, "backend": backend}

		if err := ctx.Err(); err != nil {
			loadErr.Attempts = append(loadErr.Attempts, &AttemptError{Provider: attempt, Backend: backend, Err: err})
			break
		}

		session, err := m.factory.NewSession(ctx, SessionRequest{
			ModelPath: m.modelPath,
			Provider:  attempt,
			Backend:   backend,
			Options:   SessionOptionsFor(attempt, m.runtime),
		})
		if err != nil {
			m.log.WithFields(fields).WithError(err).Warn("provider failed, trying next")
			loadErr.Attempts = append(loadErr.Attempts, &AttemptError{Provider: attempt, Backend: backend, Err: err})
			continue
		}

		m.mu.Lock()
		m.session = session
		m.status = Status{State: StateReady, Provider: p, Active: attempt, Backend: backend}
		m.mu.Unlock()

		m.log.WithFields(fields).Info("model loaded")
		return nil
	}

	m.setStatus(Status{State: StateFailed, Provider: p, Err: loadErr})
	return loadErr
}

// release must be called with opMu held.
func (m *Manager) release() error {
	m.mu.Lock()
	session := m.session
	active := m.status.Active
	m.session = nil
	m.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Release(); err != nil {
		err = &ReleaseError{Provider: active, Err: err}
		m.log.WithError(err).Warn("session release failed")
		return err
	}
	return nil
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}
