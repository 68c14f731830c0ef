package script

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Loader builds a Script from source already read into memory. The loader
// must not leave a half-constructed interpreter behind on failure.
type Loader func(host *Host, path string, source []byte) (Script, error)

// Registry maps engine names to loaders. Backends register once at process
// start; entries persist for the process lifetime.
type Registry struct {
	mu      sync.Mutex
	engines map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Loader)}
}

// Register adds a loader under name. A duplicate name is rejected and the
// existing loader stays active.
func (r *Registry) Register(name string, loader Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.engines[name]; dup {
		return fmt.Errorf("script engine %q already registered", name)
	}
	r.engines[name] = loader
	return nil
}

// Load reads the script file and hands it to the named engine's loader.
// Unknown engine names and load failures are logged and yield a nil Script;
// the caller treats the entity as scriptless.
func (r *Registry) Load(host *Host, engine, path string) (Script, error) {
	r.mu.Lock()
	loader, ok := r.engines[engine]
	r.mu.Unlock()
	if !ok {
		err := fmt.Errorf("unknown script engine %q", engine)
		host.Logger().Error("script load failed", zap.String("file", path), zap.Error(err))
		return nil, err
	}

	src, err := host.readFile(path)
	if err != nil {
		host.Logger().Error("script load failed",
			zap.String("engine", engine),
			zap.String("file", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	s, err := loader(host, path, src)
	if err != nil {
		host.Logger().Error("script load failed",
			zap.String("engine", engine),
			zap.String("file", path),
			zap.Error(err),
		)
		return nil, err
	}
	host.Logger().Info("loaded script", zap.String("engine", engine), zap.String("file", path))
	return s, nil
}

var defaultRegistry = NewRegistry()

// Register adds a loader to the process-wide registry.
func Register(name string, loader Loader) error {
	return defaultRegistry.Register(name, loader)
}

// MustRegister is Register for backend init functions, where a duplicate
// engine name is a startup-time error.
func MustRegister(name string, loader Loader) {
	if err := defaultRegistry.Register(name, loader); err != nil {
		panic(err)
	}
}

// Load loads through the process-wide registry.
func Load(host *Host, engine, path string) (Script, error) {
	return defaultRegistry.Load(host, engine, path)
}

// Reset clears the process-wide registry. Test use only; production code
// never unregisters an engine.
func Reset() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.engines = make(map[string]Loader)
}
