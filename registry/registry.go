// Package registry holds the named objects built from configuration.
package registry

import (
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/recorder"
	"github.com/fwdask/fwdask/store"
)

var (
	ErrDup = errors.New("registry: duplicate object")
)

var (
	evaluatorReg Registry[evaluator.Evaluator] = new(evaluatorRegistry)
	recorderReg  Registry[recorder.Recorder]   = new(recorderRegistry)
	storeReg     Registry[store.Store]         = new(registry[store.Store])
	loggerReg    Registry[logger.Logger]       = new(registry[logger.Logger])
)

type Registry[T any] interface {
	Register(name string, v T) error
	Unregister(name string)
	IsRegistered(name string) bool
	Get(name string) T
	GetAll() map[string]T
	Names() []string
}

type registry[T any] struct {
	m sync.Map
}

func (r *registry[T]) Register(name string, v T) error {
	if name == "" {
		return nil
	}
	if _, loaded := r.m.LoadOrStore(name, v); loaded {
		return ErrDup
	}

	return nil
}

func (r *registry[T]) Unregister(name string) {
	if v, ok := r.m.Load(name); ok {
		if closer, ok := v.(io.Closer); ok {
			closer.Close()
		}
		r.m.Delete(name)
	}
}

func (r *registry[T]) IsRegistered(name string) bool {
	_, ok := r.m.Load(name)
	return ok
}

func (r *registry[T]) Get(name string) (t T) {
	if name == "" {
		return
	}
	v, _ := r.m.Load(name)
	t, _ = v.(T)
	return
}

func (r *registry[T]) GetAll() (m map[string]T) {
	m = make(map[string]T)
	r.m.Range(func(key, value any) bool {
		k, _ := key.(string)
		v, _ := value.(T)
		m[k] = v
		return true
	})
	return
}

// Names returns the registered names in lexical order.
func (r *registry[T]) Names() []string {
	var names []string
	r.m.Range(func(key, value any) bool {
		k, _ := key.(string)
		names = append(names, k)
		return true
	})
	sort.Strings(names)
	return names
}

func EvaluatorRegistry() Registry[evaluator.Evaluator] {
	return evaluatorReg
}

func RecorderRegistry() Registry[recorder.Recorder] {
	return recorderReg
}

func StoreRegistry() Registry[store.Store] {
	return storeReg
}

func LoggerRegistry() Registry[logger.Logger] {
	return loggerReg
}
