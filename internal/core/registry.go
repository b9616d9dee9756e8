package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// registry holds compiled-in modules keyed by namespace then ID.
var registry = struct {
	sync.RWMutex
	byNS map[string]map[ModuleID]ModuleInfo
}{byNS: make(map[string]map[ModuleID]ModuleInfo)}

// RegisterModule records a module from its ModuleInfo. It panics on an
// invalid or duplicate ID. Call it from init().
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if err := info.ID.validate(); err != nil {
		panic(err.Error())
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New must not be nil", info.ID))
	}

	registry.Lock()
	defer registry.Unlock()

	ns := info.ID.Namespace()
	mods := registry.byNS[ns]
	if mods == nil {
		mods = make(map[ModuleID]ModuleInfo)
		registry.byNS[ns] = mods
	}
	if _, dup := mods[info.ID]; dup {
		panic(fmt.Sprintf("module %s registered twice", info.ID))
	}
	mods[info.ID] = info
}

// GetModule looks up a registered module by ID.
func GetModule(id string) (ModuleInfo, bool) {
	mid := ModuleID(id)

	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.byNS[mid.Namespace()][mid]
	return info, ok
}

// GetModules returns every registered module in load order: by namespace
// rank, then by ID.
func GetModules() []ModuleInfo {
	var result []ModuleInfo
	for _, ns := range namespaces {
		result = append(result, GetModulesByNamespace(ns)...)
	}
	return result
}

// GetModulesByNamespace returns the modules of one namespace sorted by ID.
func GetModulesByNamespace(ns string) []ModuleInfo {
	registry.RLock()
	defer registry.RUnlock()

	mods := registry.byNS[ns]
	result := make([]ModuleInfo, 0, len(mods))
	for _, info := range mods {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry for tests.
func resetRegistry() {
	registry.Lock()
	defer registry.Unlock()
	registry.byNS = make(map[string]map[ModuleID]ModuleInfo)
}
