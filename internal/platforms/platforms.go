// Package platforms is the registry of every supported ticket platform.
package platforms

import (
	"errors"
	"fmt"
	"sort"
	"ticketscout/internal/adapter"
	"ticketscout/internal/config"
	"ticketscout/internal/platforms/axs"
	"ticketscout/internal/platforms/eventbrite"
	"ticketscout/internal/platforms/funzone"
	"ticketscout/internal/platforms/livenation"
	"ticketscout/internal/platforms/manutd"
	"ticketscout/internal/platforms/seatgeek"
	"ticketscout/internal/platforms/stubhub"
	"ticketscout/internal/platforms/ticketmaster"
	"ticketscout/internal/platforms/tickpick"
	"ticketscout/internal/platforms/viagogo"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type Factory func(cfg config.Platform, deps adapter.Deps) (adapter.Adapter, error)

// wrap adapts a concrete constructor, keeping a nil *T from becoming a non
// nil interface.
func wrap[T adapter.Adapter](fn func(config.Platform, adapter.Deps) (T, error)) Factory {
	return func(cfg config.Platform, deps adapter.Deps) (adapter.Adapter, error) {
		a, err := fn(cfg, deps)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

var factories = map[string]Factory{
	ticketmaster.Name: wrap(ticketmaster.New),
	stubhub.Name:      wrap(stubhub.New),
	seatgeek.Name:     wrap(seatgeek.New),
	viagogo.Name:      wrap(viagogo.New),
	tickpick.Name:     wrap(tickpick.New),
	funzone.Name:      wrap(funzone.New),
	eventbrite.Name:   wrap(eventbrite.New),
	axs.Name:          wrap(axs.New),
	livenation.Name:   wrap(livenation.New),
	manutd.Name:       wrap(manutd.New),
}

// Names lists every registered platform, sorted.
func Names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// Build creates the adapter of a single platform.
func Build(name string, cfg config.Platform, deps adapter.Deps) (adapter.Adapter, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
	a, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return a, nil
}

// BuildEnabled creates the adapters named in only (every platform when
// empty), skipping the ones disabled in cfg.
func BuildEnabled(cfg config.Config, deps adapter.Deps, only ...string) ([]adapter.Adapter, error) {
	names := only
	if len(names) == 0 {
		names = Names()
	}

	var out []adapter.Adapter
	var errs []error
	for _, name := range names {
		if !Known(name) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownPlatform, name))
			continue
		}
		pcfg := cfg.Platform(name)
		if !pcfg.IsEnabled() {
			continue
		}
		a, err := Build(name, pcfg, deps)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, a)
	}
	return out, errors.Join(errs...)
}
