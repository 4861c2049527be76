package modules

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"

	"go.jsrt.io/jsrt/lib/fsext"
)

// ModuleSystem maps import specifiers to module records, compiles and
// caches user modules, and synthesizes built-in ones. It is used only from
// the loop goroutine - every callback the engine makes lands there - so it
// needs no locking.
type ModuleSystem struct {
	vu     VU
	logger logrus.FieldLogger

	// builtins is the registry of bare specifiers backed by Go code.
	builtins map[string]Module

	// cache maps an absolute file path to its compiled-and-linked module.
	cache map[string]sobek.ModuleRecord

	// builtinRecords maps a bare specifier to its synthesized record.
	builtinRecords map[string]sobek.ModuleRecord

	// reverse maps a user module record back to its absolute path. It is
	// what lets the resolve callback and import.meta find out where a
	// referrer lives.
	reverse map[interface{}]string
}

// NewModuleSystem returns a module system resolving bare specifiers through
// the given built-in registry.
func NewModuleSystem(vu VU, logger logrus.FieldLogger, builtins map[string]Module) *ModuleSystem {
	return &ModuleSystem{
		vu:             vu,
		logger:         logger,
		builtins:       builtins,
		cache:          make(map[string]sobek.ModuleRecord),
		builtinRecords: make(map[string]sobek.ModuleRecord),
		reverse:        make(map[interface{}]string),
	}
}

// ResolveModule is the resolve callback handed to the engine: it is invoked
// for every static import while a module is being linked. Specifiers
// starting with "." or "/" name user modules on disk; everything else must
// be a registered built-in.
func (ms *ModuleSystem) ResolveModule(referrer interface{}, specifier string) (sobek.ModuleRecord, error) {
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return ms.resolveUserModule(referrer, specifier)
	}
	return ms.resolveBuiltinModule(specifier)
}

func (ms *ModuleSystem) resolveUserModule(referrer interface{}, specifier string) (sobek.ModuleRecord, error) {
	var resolved string
	if filepath.IsAbs(specifier) {
		resolved = filepath.Clean(specifier)
	} else {
		referrerPath, ok := ms.reverse[referrer]
		if !ok {
			err := fmt.Errorf("cannot resolve %q: unknown referrer module", specifier)
			ms.logger.WithField("specifier", specifier).Error(err)
			return nil, err
		}
		resolved = filepath.Join(filepath.Dir(referrerPath), specifier)
	}

	// Extension fallback: the exact path wins, otherwise try with ".js".
	for _, candidate := range []string{resolved, resolved + ".js"} {
		if fsext.Exists(ms.vu.FS(), candidate) {
			return ms.getOrCompileModule(candidate)
		}
	}

	err := fmt.Errorf("module %q not found (resolved to %q)", specifier, resolved)
	ms.logger.WithField("specifier", specifier).Error(err)
	return nil, err
}

func (ms *ModuleSystem) resolveBuiltinModule(specifier string) (sobek.ModuleRecord, error) {
	if record, ok := ms.builtinRecords[specifier]; ok {
		return record, nil
	}
	mod, ok := ms.builtins[specifier]
	if !ok {
		err := fmt.Errorf("unknown built-in module %q", specifier)
		ms.logger.WithField("specifier", specifier).Error(err)
		return nil, err
	}
	record := newGoModule(ms.vu, specifier, mod)
	ms.builtinRecords[specifier] = record
	return record, nil
}

// getOrCompileModule returns the cached module for absPath or reads,
// compiles and links it. Only fully linked modules enter the cache; a
// module that fails anywhere along the way leaves no trace behind.
func (ms *ModuleSystem) getOrCompileModule(absPath string) (sobek.ModuleRecord, error) {
	if record, ok := ms.cache[absPath]; ok {
		return record, nil
	}

	data, err := fsext.ReadFile(ms.vu.FS(), absPath)
	if err != nil {
		ms.logger.WithError(err).WithField("path", absPath).Error("could not read module")
		return nil, err
	}

	record, err := sobek.ParseModule(absPath, string(data), ms.ResolveModule)
	if err != nil {
		ms.logger.WithError(err).WithField("path", absPath).Error("could not compile module")
		return nil, err
	}

	// The reverse entry must exist before linking: linking resolves the
	// module's own imports, and relative ones need to know where it lives.
	ms.reverse[record] = absPath

	if err = record.Link(); err != nil {
		delete(ms.reverse, record)
		ms.logger.WithError(err).WithField("path", absPath).Error("could not instantiate module")
		return nil, err
	}

	ms.cache[absPath] = record
	return record, nil
}

// CreateEntryModule canonicalizes the user-supplied entry path and compiles
// the module graph rooted there.
func (ms *ModuleSystem) CreateEntryModule(path string) (sobek.ModuleRecord, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve entry path %q: %w", path, err)
	}
	if !fsext.Exists(ms.vu.FS(), absPath) {
		return nil, fmt.Errorf("entry script %q does not exist", absPath)
	}
	return ms.getOrCompileModule(absPath)
}

// BuiltinExports returns the default export of the built-in registered for
// specifier, instantiating it if needed. Used to expose a built-in both as
// an importable module and as a global.
func (ms *ModuleSystem) BuiltinExports(specifier string) (sobek.Value, error) {
	record, err := ms.resolveBuiltinModule(specifier)
	if err != nil {
		return nil, err
	}
	gm := record.(*goModule)
	instance, err := gm.Instantiate(ms.vu.Runtime())
	if err != nil {
		return nil, err
	}
	return instance.GetBindingValue("default"), nil
}

// GetImportMetaProperties enriches import.meta during module linking:
// user modules get dirname, the parent directory of their absolute path.
func (ms *ModuleSystem) GetImportMetaProperties(m sobek.ModuleRecord) []sobek.MetaProperty {
	path, ok := ms.reverse[m]
	if !ok {
		return nil
	}
	return []sobek.MetaProperty{
		{Key: "dirname", Value: ms.vu.Runtime().ToValue(filepath.Dir(path))},
	}
}
