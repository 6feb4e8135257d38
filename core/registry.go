package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ServiceResolver maps a service id to its configured service. The command
// and refresh layers depend on this instead of concrete registries.
type ServiceResolver interface {
	ResolveService(serviceID string) (SocialService, error)
}

type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]SocialService
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[string]SocialService)}
}

func (r *ServiceRegistry) Register(service SocialService) error {
	if service == nil {
		return fmt.Errorf("core: service is nil")
	}
	id := strings.TrimSpace(service.Descriptor().ServiceID)
	if id == "" {
		return fmt.Errorf("core: service id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[id]; exists {
		return fmt.Errorf("core: service already registered: %s", id)
	}
	r.services[id] = service
	return nil
}

func (r *ServiceRegistry) ResolveService(serviceID string) (SocialService, error) {
	id := strings.TrimSpace(serviceID)
	if id == "" {
		return nil, fmt.Errorf("core: service id is required")
	}
	r.mu.RLock()
	service, ok := r.services[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("core: service not registered: %s", id)
	}
	return service, nil
}

func (r *ServiceRegistry) ServiceIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

var _ ServiceResolver = (*ServiceRegistry)(nil)
