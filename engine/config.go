package engine

import (
	"github.com/iltempo/trrouter/config"
	"github.com/iltempo/trrouter/pattern"
)

// RequestReload hands a freshly-loaded configuration to the engine and
// sets the reload flag. Safe to call from any goroutine; the engine
// worker drains it at the next event boundary (spec §5).
func (e *Engine) RequestReload(doc *config.Document) {
	e.mu.Lock()
	e.pendingConfig = doc
	e.mu.Unlock()
	e.reloadFlag.Store(true)
}

// checkReload applies a pending config if one was requested. Only
// called from the worker goroutine, between events — never mid-fire.
func (e *Engine) checkReload() {
	if !e.reloadFlag.CompareAndSwap(true, false) {
		return
	}
	e.mu.Lock()
	doc := e.pendingConfig
	e.pendingConfig = nil
	e.mu.Unlock()
	if doc == nil {
		return
	}
	// A bad reload already failed in the loader before reaching here;
	// applyConfig itself only rewires ports and sequencers and does not
	// fail on well-formed documents.
	_ = e.applyConfig(doc)
}

// applyConfig installs doc as the current configuration. Sounding notes
// on every pattern being replaced or removed are released first, so a
// reload never leaves a stuck note (spec §4.6).
func (e *Engine) applyConfig(doc *config.Document) error {
	keep := make(map[string]bool, len(doc.PatternOrder))
	for _, name := range doc.PatternOrder {
		keep[name] = true
	}

	for name, seq := range e.sequencers {
		if keep[name] {
			continue
		}
		_ = e.sendEmissions(name, seq.Silence())
		if out, ok := e.outputs[name]; ok {
			_ = out.port.Close()
		}
		delete(e.sequencers, name)
		delete(e.outputs, name)
	}

	for _, name := range doc.PatternOrder {
		cfg := doc.Patterns[name]

		seq, exists := e.sequencers[name]
		if !exists {
			port, err := e.ports.OpenOutput(name, cfg.OutputChannel)
			if err != nil {
				return err
			}
			e.outputs[name] = boundOutput{port: port, channel: cfg.OutputChannel}
			e.sequencers[name] = pattern.NewSequencer(cfg)
			continue
		}

		_ = e.sendEmissions(name, seq.Silence())

		if bound := e.outputs[name]; bound.channel != cfg.OutputChannel {
			_ = bound.port.Close()
			port, err := e.ports.OpenOutput(name, cfg.OutputChannel)
			if err != nil {
				return err
			}
			e.outputs[name] = boundOutput{port: port, channel: cfg.OutputChannel}
		}

		seq.ReplaceConfig(cfg)
	}

	e.order = doc.PatternOrder
	e.inputChannel = doc.InputChannel
	return nil
}
