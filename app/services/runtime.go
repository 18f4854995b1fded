package services

import (
	"context"
	"sync"

	"github.com/crewnet/enrol-service/app/config"
	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/logger"
	"github.com/crewnet/enrol-service/app/store"
)

// Snapshot is one consistent view of the runtime configuration. Handlers
// take a snapshot once per request; a concurrent reconfigure never
// changes the rules mid-operation.
type Snapshot struct {
	Policy        config.Policy
	Salt          []byte
	Hostname      string
	NodeName      string
	NodeURL       string
	InvitationURL string
}

// Runtime owns the mutable process-wide configuration: the policy and
// the values derived from the active system configuration record. It is
// loaded at startup and re-applied on a reload signal without restart.
type Runtime struct {
	mu      sync.RWMutex
	enabled bool
	snap    Snapshot

	store store.Storage
}

func NewRuntime(st store.Storage) *Runtime {
	return &Runtime{store: st}
}

// Reconfigure reloads the policy and re-derives node name, node URL,
// invitation URL and salt from the active system configuration. Without
// a configured salt the component disables itself rather than operate
// insecurely; every operation then fails until a later reconfigure
// succeeds.
func (r *Runtime) Reconfigure(ctx context.Context) *apperrors.AppError {
	log := logger.WithComponent("runtime")

	policy := config.LoadPolicy()

	sysconfig, err := r.store.SystemConfig.GetActive(ctx)
	if err != nil {
		r.disable()
		log.Error().Err(err).Msg("no active system configuration found, component disabled")
		return apperrors.NewConfiguration("no active system configuration")
	}

	if sysconfig.Salt == "" {
		r.disable()
		log.Error().Msg("no system salt found, check your configuration; this can happen upon first start")
		return apperrors.NewConfiguration("no system salt configured")
	}

	nodeURL := "https://" + sysconfig.Hostname

	r.mu.Lock()
	r.snap = Snapshot{
		Policy:        policy,
		Salt:          []byte(sysconfig.Salt),
		Hostname:      sysconfig.Hostname,
		NodeName:      sysconfig.Name,
		NodeURL:       nodeURL,
		InvitationURL: nodeURL + "/#!/invitation/",
	}
	r.enabled = true
	r.mu.Unlock()

	log.Info().Str("node", sysconfig.Name).Str("hostname", sysconfig.Hostname).Msg("runtime configured")
	return nil
}

func (r *Runtime) disable() {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
}

// Enabled reports whether the component is currently allowed to serve.
func (r *Runtime) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Snapshot returns the current configuration view.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
