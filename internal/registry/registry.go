// Package registry keeps the set of discovered templates and notifies
// watchers when templates are added, changed or removed.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/tmplc/internal/types"
)

// TemplateRegistry manages all discovered templates
type TemplateRegistry struct {
	templates map[string]*types.TemplateInfo
	mutex     sync.RWMutex
	watchers  []chan types.TemplateEvent
}

// NewTemplateRegistry creates a new template registry
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*types.TemplateInfo),
		watchers:  make([]chan types.TemplateEvent, 0),
	}
}

// Register adds or updates a template. It reports false, and notifies
// nobody, when a template with the same name and hash is already known.
func (r *TemplateRegistry) Register(template *types.TemplateInfo) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := types.EventTypeAdded
	if existing, exists := r.templates[template.Name]; exists {
		if existing.Hash == template.Hash {
			return false
		}
		eventType = types.EventTypeUpdated
	}

	r.templates[template.Name] = template
	r.notify(types.TemplateEvent{
		Type:      eventType,
		Template:  template,
		Timestamp: time.Now(),
	})
	return true
}

// Get retrieves a template by name
func (r *TemplateRegistry) Get(name string) (*types.TemplateInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	template, exists := r.templates[name]
	return template, exists
}

// GetAll returns all registered templates sorted by name
func (r *TemplateRegistry) GetAll() []*types.TemplateInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.TemplateInfo, 0, len(r.templates))
	for _, template := range r.templates {
		result = append(result, template)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns every registered name, sorted.
func (r *TemplateRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove removes a template from the registry
func (r *TemplateRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	template, exists := r.templates[name]
	if !exists {
		return
	}

	delete(r.templates, name)
	r.notify(types.TemplateEvent{
		Type:      types.EventTypeRemoved,
		Template:  template,
		Timestamp: time.Now(),
	})
}

// Watch returns a channel that receives template events
func (r *TemplateRegistry) Watch() <-chan types.TemplateEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan types.TemplateEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *TemplateRegistry) UnWatch(ch <-chan types.TemplateEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered templates
func (r *TemplateRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.templates)
}

// notify must be called with the write lock held.
func (r *TemplateRegistry) notify(event types.TemplateEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
