package core

import "testing"

func newTestService(t *testing.T, serviceID string) *Service {
	t.Helper()
	service, err := NewService(NewDescriptor(serviceID, serviceID))
	if err != nil {
		t.Fatalf("new service %s: %v", serviceID, err)
	}
	return service
}

func TestServiceRegistry_RegisterAndResolve(t *testing.T) {
	registry := NewServiceRegistry()
	service := newTestService(t, "disqus")

	if err := registry.Register(service); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := registry.ResolveService("disqus")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor().ServiceID != "disqus" {
		t.Fatalf("unexpected service resolved: %q", resolved.Descriptor().ServiceID)
	}
}

func TestServiceRegistry_RejectsDuplicatesAndUnknown(t *testing.T) {
	registry := NewServiceRegistry()
	if err := registry.Register(newTestService(t, "disqus")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(newTestService(t, "disqus")); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil service registration to fail")
	}
	if _, err := registry.ResolveService("google"); err == nil {
		t.Fatalf("expected unknown service resolution to fail")
	}
}

func TestServiceRegistry_ServiceIDsAreSorted(t *testing.T) {
	registry := NewServiceRegistry()
	for _, id := range []string{"google", "disqus", "flickr"} {
		if err := registry.Register(newTestService(t, id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	ids := registry.ServiceIDs()
	want := []string{"disqus", "flickr", "google"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected sorted ids %v, got %v", want, ids)
		}
	}
}
