// Package manager wires the suggestion engine together: it owns the worker
// pool and the component registries, binds the built-in component kinds plus
// the configured named components, resolves and pins the top-level pipeline
// slots, and serves requests for the daemon.
package manager

import (
	"fmt"
	"log/slog"

	"github.com/runger/suggestd/internal/algo"
	"github.com/runger/suggestd/internal/config"
	"github.com/runger/suggestd/internal/dedupe"
	"github.com/runger/suggestd/internal/falcon"
	"github.com/runger/suggestd/internal/merge"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/pipeline"
	"github.com/runger/suggestd/internal/pool"
	"github.com/runger/suggestd/internal/registry"
	"github.com/runger/suggestd/internal/rescore"
)

// Built-in component kinds. Named components in the configuration reference
// these; the parameterless ones are also resolvable directly by kind name.
const (
	KindFalconJSON   = "falcon-json"
	KindFalconSQLite = "falcon-sqlite"
	KindFalconRemote = "falcon-remote"

	KindKeyValue  = "key-value"
	KindAlgoGroup = "algo-group"
	KindBow       = "bow"
	KindAttribute = "attribute"
	KindTemplate  = "template"
	KindFallback  = "fallback"

	KindDomainBoost   = "domain-boost"
	KindIdentity      = "identity"
	KindTwiddlerGroup = "twiddler-group"

	KindDuplicate = "duplicate"
)

// Manager is the engine root. One manager lives for the daemon lifetime.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger

	pool *pool.Pool

	falcons   *registry.Registry[falcon.Store]
	algos     *registry.Registry[algo.Algorithm]
	rescorers *registry.Registry[rescore.Rescorer]
	dedupers  *registry.Registry[dedupe.Deduper]
	mergers   *registry.Registry[merge.Merger]

	handles  []releasable
	pipeline *pipeline.Pipeline
}

type releasable interface {
	Pin()
	Unpin()
	Release()
}

// New builds a manager from configuration: registries, built-in kinds,
// configured components, pinned top-level handles, worker pool, pipeline.
// A failure tears down everything resolved so far.
func New(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.Manager.ThreadpoolSize
	if size <= 0 {
		size = pool.DefaultWorkers
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		pool:      pool.New(pool.Config{Workers: size, Logger: logger}),
		falcons:   registry.New[falcon.Store]("falcon"),
		algos:     registry.New[algo.Algorithm]("algorithm"),
		rescorers: registry.New[rescore.Rescorer]("rescorer"),
		dedupers:  registry.New[dedupe.Deduper]("deduper"),
		mergers:   registry.New[merge.Merger]("merger"),
	}

	if err := m.bindBuiltins(); err != nil {
		m.Close()
		return nil, err
	}
	for _, comp := range cfg.Components {
		if err := m.bindComponent(comp); err != nil {
			m.Close()
			return nil, err
		}
	}
	deps, err := m.resolvePipeline()
	if err != nil {
		m.Close()
		return nil, err
	}

	mc := cfg.Manager
	m.pipeline = pipeline.New(pipeline.Config{
		MaxSuggestionsMultiplier: mc.MaxSuggestionsMultiplier,
		MinSecondarySuggestions:  mc.MinSecondarySuggestions,
		InstantMinFreq:           mc.InstantMinFreq,
		InstantMinSelectionProb:  mc.InstantMinSelectionProb,
		DefaultCountry:           mc.DefaultCountry,
		DefaultLanguage:          mc.DefaultLanguage,
		NumSuggestionsMobile:     mc.NumSuggestionsMobile,
		NumSuggestionsWeb:        mc.NumSuggestionsWeb,
	}, deps)

	logger.Info("suggestion manager ready",
		"threadpool_size", size,
		"components", len(cfg.Components),
		"primary_algo", mc.PrimaryAlgo)
	return m, nil
}

// Suggest serves one request through the pipeline.
func (m *Manager) Suggest(req *model.SuggestRequest) *model.SuggestResponse {
	return m.pipeline.Suggest(req)
}

// Algorithms exposes the algorithm registry for introspection endpoints.
func (m *Manager) Algorithms() []string { return m.algos.Names() }

// Close releases the pinned handles and drains the worker pool.
func (m *Manager) Close() {
	for i := len(m.handles) - 1; i >= 0; i-- {
		m.handles[i].Unpin()
		m.handles[i].Release()
	}
	m.handles = nil
	m.pool.Close()
}

// bindBuiltins registers every built-in kind under its kind name. The
// parameterless kinds double as directly usable components.
func (m *Manager) bindBuiltins() error {
	if err := merge.Register(m.mergers); err != nil {
		return err
	}
	binds := []func() error{
		func() error {
			return m.falcons.Bind(KindFalconJSON, nil, func() falcon.Store { return falcon.NewJSONFile() })
		},
		func() error {
			return m.falcons.Bind(KindFalconSQLite, nil, func() falcon.Store { return falcon.NewSQLite() })
		},
		func() error {
			return m.falcons.Bind(KindFalconRemote, nil, func() falcon.Store { return falcon.NewRemote(m.logger) })
		},
		func() error {
			return m.algos.Bind(KindTemplate, nil, func() algo.Algorithm { return algo.NewStub(KindTemplate) })
		},
		func() error {
			return m.algos.Bind(KindFallback, nil, func() algo.Algorithm { return algo.NewStub(KindFallback) })
		},
		func() error {
			return m.rescorers.Bind(KindDomainBoost, nil, func() rescore.Rescorer { return rescore.NewDomainBoost() })
		},
		func() error {
			return m.rescorers.Bind(KindIdentity, nil, func() rescore.Rescorer { return rescore.NewIdentity() })
		},
		func() error {
			return m.dedupers.Bind(KindDuplicate, nil, func() dedupe.Deduper { return dedupe.NewDuplicate() })
		},
	}
	for _, bind := range binds {
		if err := bind(); err != nil {
			return err
		}
	}
	return nil
}

// bindComponent registers one configured component under its name, routed to
// the registry family its kind belongs to.
func (m *Manager) bindComponent(comp config.ComponentConfig) error {
	opts, err := comp.OptionsJSON()
	if err != nil {
		return err
	}
	switch comp.Kind {
	case KindFalconJSON:
		return m.falcons.Bind(comp.Name, opts, func() falcon.Store { return falcon.NewJSONFile() })
	case KindFalconSQLite:
		return m.falcons.Bind(comp.Name, opts, func() falcon.Store { return falcon.NewSQLite() })
	case KindFalconRemote:
		return m.falcons.Bind(comp.Name, opts, func() falcon.Store { return falcon.NewRemote(m.logger) })
	case KindKeyValue:
		return m.algos.Bind(comp.Name, opts, func() algo.Algorithm { return algo.NewKeyValue(m.falcons) })
	case KindAlgoGroup:
		return m.algos.Bind(comp.Name, opts, func() algo.Algorithm { return algo.NewGroup(m.algos, m.mergers, m.logger) })
	case KindBow:
		return m.algos.Bind(comp.Name, opts, func() algo.Algorithm { return algo.NewBagOfWords(m.algos) })
	case KindAttribute:
		return m.algos.Bind(comp.Name, opts, func() algo.Algorithm { return algo.NewAttribute(m.algos) })
	case KindTemplate, KindFallback:
		return m.algos.Bind(comp.Name, opts, func() algo.Algorithm { return algo.NewStub(comp.Kind) })
	case KindDomainBoost:
		return m.rescorers.Bind(comp.Name, opts, func() rescore.Rescorer { return rescore.NewDomainBoost() })
	case KindIdentity:
		return m.rescorers.Bind(comp.Name, opts, func() rescore.Rescorer { return rescore.NewIdentity() })
	case KindTwiddlerGroup:
		return m.rescorers.Bind(comp.Name, opts, func() rescore.Rescorer { return rescore.NewGroup(m.rescorers, m.logger) })
	case KindDuplicate:
		return m.dedupers.Bind(comp.Name, opts, func() dedupe.Deduper { return dedupe.NewDuplicate() })
	}
	return fmt.Errorf("component %q: unknown kind %q", comp.Name, comp.Kind)
}

// resolvePipeline resolves and pins the top-level slots named by the manager
// configuration.
func (m *Manager) resolvePipeline() (pipeline.Deps, error) {
	mc := m.cfg.Manager
	deps := pipeline.Deps{Pool: m.pool, Logger: m.logger}

	primary, err := m.pinAlgo(mc.PrimaryAlgo)
	if err != nil {
		return deps, fmt.Errorf("primary algo: %w", err)
	}
	deps.Primary = primary

	if mc.FallbackAlgo != "" {
		fallback, err := m.pinAlgo(mc.FallbackAlgo)
		if err != nil {
			return deps, fmt.Errorf("fallback algo: %w", err)
		}
		deps.Fallback = fallback
	}
	if mc.SecondaryAlgo != "" {
		secondary, err := m.pinAlgo(mc.SecondaryAlgo)
		if err != nil {
			return deps, fmt.Errorf("secondary algo: %w", err)
		}
		deps.Secondary = secondary
	}
	if mc.PrimaryTwiddler != "" {
		r, err := m.pinRescorer(mc.PrimaryTwiddler)
		if err != nil {
			return deps, fmt.Errorf("primary twiddler: %w", err)
		}
		deps.PrimaryRescorer = r
	}
	if mc.SecondaryTwiddler != "" {
		r, err := m.pinRescorer(mc.SecondaryTwiddler)
		if err != nil {
			return deps, fmt.Errorf("secondary twiddler: %w", err)
		}
		deps.SecondaryRescorer = r
	}
	for _, name := range mc.Dedupers {
		handle, err := m.dedupers.MakeShared(name, nil)
		if err != nil {
			return deps, fmt.Errorf("deduper %q: %w", name, err)
		}
		m.pin(handle)
		deps.Dedupers = append(deps.Dedupers, handle.Get())
	}
	return deps, nil
}

func (m *Manager) pinAlgo(name string) (algo.Algorithm, error) {
	handle, err := m.algos.MakeShared(name, nil)
	if err != nil {
		return nil, err
	}
	m.pin(handle)
	return handle.Get(), nil
}

func (m *Manager) pinRescorer(name string) (rescore.Rescorer, error) {
	handle, err := m.rescorers.MakeShared(name, nil)
	if err != nil {
		return nil, err
	}
	m.pin(handle)
	return handle.Get(), nil
}

func (m *Manager) pin(h releasable) {
	h.Pin()
	m.handles = append(m.handles, h)
}
