//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/raggauge/raggauge/log"
)

// Registry is the catalog of computable metrics for one run. Construct one
// per run rather than sharing ambient global state.
type Registry struct {
	mu sync.RWMutex
	// defs maps metric name to definition.
	defs map[string]*Definition
	// order preserves registration order for stable resolution.
	order []string
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a metric definition. It returns a DuplicateError when the
// name is already taken; duplicate names are a configuration error and must
// surface before any run starts.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return errors.New("metric definition is nil")
	}
	if def.Name == "" {
		return errors.New("metric definition has empty name")
	}
	if def.Compute == nil {
		return fmt.Errorf("metric %s has nil compute function", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; ok {
		return &DuplicateError{Name: def.Name}
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister registers definitions and panics on error. Intended for
// setup-time wiring where a duplicate name is a programming error.
func (r *Registry) MustRegister(defs ...*Definition) *Registry {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns the definition registered under name, or os.ErrNotExist.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("metric %s: %w", name, os.ErrNotExist)
	}
	return def, nil
}

// Resolve returns the definitions applicable to a stage, deterministic
// metrics before judged ones so cheap failures surface first, each group in
// registration order.
func (r *Registry) Resolve(stage Stage) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var deterministic, judged []*Definition
	for _, name := range r.order {
		def := r.defs[name]
		if def.Stage != stage {
			continue
		}
		if def.Kind == KindJudged {
			judged = append(judged, def)
			continue
		}
		deterministic = append(deterministic, def)
	}
	return append(deterministic, judged...)
}

// Names returns all registered metric names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Compute runs one metric over the inputs. Failures, including panics inside
// the compute function, come back as a ComputationError so the caller can
// record a per-metric failure without aborting the batch.
func (r *Registry) Compute(ctx context.Context, def *Definition, in *Inputs) (v Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("metric %s panicked: %v", def.Name, rec)
			v = UndefinedValue()
			err = &ComputationError{Metric: def.Name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if in == nil || in.Sample == nil || in.Turn == nil {
		return UndefinedValue(), &ComputationError{Metric: def.Name, Err: errors.New("missing inputs")}
	}
	v, err = def.Compute(ctx, in)
	if err != nil {
		var compErr *ComputationError
		if errors.As(err, &compErr) {
			return UndefinedValue(), err
		}
		return UndefinedValue(), &ComputationError{Metric: def.Name, Err: err}
	}
	if err := checkValue(def, v); err != nil {
		return UndefinedValue(), &ComputationError{Metric: def.Name, Err: err}
	}
	return v, nil
}

// checkValue validates a computed value against the definition's declared type.
func checkValue(def *Definition, v Value) error {
	if v.Undefined {
		return nil
	}
	switch def.ValueType {
	case TypeUnitFloat:
		if v.Float < 0 || v.Float > 1 {
			return fmt.Errorf("value %s out of [0,1]", v)
		}
	case TypeCategorical:
		if v.Category == "" {
			return errors.New("empty category value")
		}
	}
	return nil
}
