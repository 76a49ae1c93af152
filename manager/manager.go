// Package manager implements the two-level tree registry: a ProcessType
// maps to a global root and, optionally, a set of per-TargetInstance roots.
// GetRoot clones the relevant roots (trees are never shared live across
// sessions) and merges them through ptree.Merge according to the requested
// TargetBehaviour, following the same Register/Get/mutex shape as the
// teacher's tool registry.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/proctree/config"
	"github.com/tailored-agentic-units/proctree/observability"
	"github.com/tailored-agentic-units/proctree/ptree"
)

// EventRegistration is emitted by RegisterGlobal/RegisterTarget.
const EventRegistration observability.EventType = "manager.registration"

// EventGetRoot is emitted by GetRoot once it has resolved (or failed to
// resolve) a root.
const EventGetRoot observability.EventType = "manager.get_root"

// ProcessType names a category of process (e.g. "order.fulfillment"); every
// root registered under it must share the same overall tree shape.
type ProcessType string

// TargetInstance names a specific addressable target a process runs
// against (e.g. a customer id, a device serial) that may need its own
// behavioural overrides layered on top of the global tree.
type TargetInstance string

type registryEntry struct {
	global  ptree.Node
	targets map[TargetInstance]ptree.Node
}

// Manager is the process-type keyed tree registry. The zero value is not
// usable; construct with New.
type Manager struct {
	mu       sync.RWMutex
	entries  map[ProcessType]*registryEntry
	cfg      config.ManagerConfig
	metrics  *Metrics
	observer observability.Observer
}

// New constructs a Manager. metrics may be nil to disable Prometheus
// recording entirely.
func New(cfg config.ManagerConfig, metrics *Metrics) *Manager {
	return &Manager{
		entries:  make(map[ProcessType]*registryEntry),
		cfg:      cfg,
		metrics:  metrics,
		observer: observability.NoOpObserver{},
	}
}

// WithObserver attaches an Observer that receives a registration event for
// every RegisterGlobal/RegisterTarget call and a resolution event for every
// GetRoot call. The default is a NoOpObserver.
func (m *Manager) WithObserver(obs observability.Observer) *Manager {
	if obs != nil {
		m.observer = obs
	}
	return m
}

func (m *Manager) emit(eventType observability.EventType, level observability.Level, source string, data map[string]any) {
	m.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}

// RegisterGlobal composes root into the default tree for a process type,
// used whenever no per-target override applies. A second registration for
// the same type clones the existing entry, merges the new builder's delta
// on top, and stores the result back — it does not replace it outright
// (spec.md §4.7 "register clones the existing entry, applies the builder's
// delta, stores back").
func (m *Manager) RegisterGlobal(processType ProcessType, root ptree.Node) error {
	if processType == "" {
		return ErrEmptyProcessType
	}
	if root == nil {
		return ErrNilRoot
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[processType]
	if entry == nil {
		entry = &registryEntry{targets: make(map[TargetInstance]ptree.Node)}
		m.entries[processType] = entry
	}

	if entry.global == nil {
		entry.global = root
	} else {
		merged, err := ptree.Merge(entry.global.CloneDeep(), root)
		if err != nil {
			return err
		}
		entry.global = merged
	}
	m.metrics.recordRegistration("global")
	m.metrics.setRegisteredProcessTypes(len(m.entries))
	m.emit(EventRegistration, observability.LevelInfo, "manager.RegisterGlobal", map[string]any{
		"process_type": string(processType),
		"scope":        "global",
	})
	return nil
}

// RegisterTarget composes root into the per-target override for a process
// type, merged over the global root for that process type at GetRoot time.
// Like RegisterGlobal, a repeat registration for the same (type, target)
// merges onto the existing entry rather than replacing it.
func (m *Manager) RegisterTarget(processType ProcessType, target TargetInstance, root ptree.Node) error {
	if processType == "" {
		return ErrEmptyProcessType
	}
	if root == nil {
		return ErrNilRoot
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[processType]
	if entry == nil {
		entry = &registryEntry{targets: make(map[TargetInstance]ptree.Node)}
		m.entries[processType] = entry
	}

	existing, found := entry.targets[target]
	if !found {
		entry.targets[target] = root
	} else {
		merged, err := ptree.Merge(existing.CloneDeep(), root)
		if err != nil {
			return err
		}
		entry.targets[target] = merged
	}
	m.metrics.recordRegistration("target")
	m.metrics.setRegisteredProcessTypes(len(m.entries))
	m.emit(EventRegistration, observability.LevelInfo, "manager.RegisterTarget", map[string]any{
		"process_type": string(processType),
		"scope":        "target",
		"target":       string(target),
	})
	return nil
}

// GetRoot resolves and clones the merged root for processType against the
// given targets, using behaviour to decide how many per-target entries
// participate: All merges every supplied target with a registered entry,
// First merges only the first one found, None merges none (global only).
//
// localRoot, if non-nil, seeds the builder as the lowest-precedence layer —
// the global entry merges on top of it, followed by per-target entries, so
// a registered global or per-target node overrides a same-id/kind node from
// localRoot rather than the other way around (spec.md §4.7 steps 1-2). Pass
// nil when the caller has no local layer to contribute.
//
// The returned tree is an independent clone-on-read copy; the caller is
// free to mutate its runtime status without affecting the registry.
func (m *Manager) GetRoot(processType ProcessType, localRoot ptree.Node, targets []TargetInstance, behaviour config.TargetBehaviour) (ptree.Node, error) {
	m.mu.RLock()
	entry, ok := m.entries[processType]
	m.mu.RUnlock()

	if !ok || entry.global == nil {
		if localRoot == nil {
			m.metrics.recordGetRoot("miss")
			m.emit(EventGetRoot, observability.LevelWarning, "manager.GetRoot", map[string]any{
				"process_type": string(processType), "outcome": "miss",
			})
			return nil, ErrNotFound
		}
		m.metrics.recordGetRoot("hit")
		m.emit(EventGetRoot, observability.LevelVerbose, "manager.GetRoot", map[string]any{
			"process_type": string(processType), "outcome": "hit", "source": "local_root_only",
		})
		return localRoot.CloneDeep(), nil
	}

	root := entry.global.CloneDeep()
	if localRoot != nil {
		merged, err := ptree.Merge(localRoot.CloneDeep(), root)
		if err != nil {
			m.metrics.recordGetRoot("error")
			m.emit(EventGetRoot, observability.LevelError, "manager.GetRoot", map[string]any{
				"process_type": string(processType), "outcome": "error", "error": err.Error(),
			})
			return nil, err
		}
		root = merged
	}

	if behaviour == config.None {
		m.metrics.recordGetRoot("hit")
		m.emit(EventGetRoot, observability.LevelVerbose, "manager.GetRoot", map[string]any{
			"process_type": string(processType), "outcome": "hit", "targets_merged": 0,
		})
		return root, nil
	}

	mergedTargets := 0
	for _, target := range targets {
		m.mu.RLock()
		overlay, found := entry.targets[target]
		m.mu.RUnlock()
		if !found {
			continue
		}

		merged, err := ptree.Merge(root, overlay)
		if err != nil {
			m.metrics.recordGetRoot("error")
			m.emit(EventGetRoot, observability.LevelError, "manager.GetRoot", map[string]any{
				"process_type": string(processType), "outcome": "error", "error": err.Error(),
			})
			return nil, err
		}
		root = merged
		mergedTargets++

		if behaviour == config.First {
			break
		}
	}

	m.metrics.recordGetRoot("hit")
	m.emit(EventGetRoot, observability.LevelVerbose, "manager.GetRoot", map[string]any{
		"process_type": string(processType), "outcome": "hit", "targets_merged": mergedTargets,
	})
	return root, nil
}

// DefaultBehaviour returns the Manager's configured fallback TargetBehaviour
// for GetRoot callers that don't pin one explicitly.
func (m *Manager) DefaultBehaviour() config.TargetBehaviour {
	return m.cfg.DefaultBehaviour
}

// ResetForTest wipes every registered entry. It exists solely so test
// suites that share package-level Manager instances can isolate cases;
// production code should construct a fresh Manager instead.
func (m *Manager) ResetForTest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[ProcessType]*registryEntry)
	m.metrics.setRegisteredProcessTypes(0)
}
