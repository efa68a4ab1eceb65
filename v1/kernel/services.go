package kernel

import "fmt"

// DefaultServiceID is used for services without an id and for lookups
// without a service id.
const DefaultServiceID = "default"

// Service is an AI service registered on the kernel: a chat model, an
// embedding model, a reranker.
type Service interface {
	ServiceID() string
	ModelID() string
}

func serviceKey(s Service) string {
	if id := s.ServiceID(); id != "" {
		return id
	}
	if id := s.ModelID(); id != "" {
		return id
	}
	return DefaultServiceID
}

// AddService registers s under its service id. Registering an id twice
// fails unless overwrite is set.
func (k *Kernel) AddService(s Service, overwrite bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	key := serviceKey(s)
	if _, ok := k.services[key]; ok {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrServiceExists, key)
		}
	} else {
		k.serviceOrder = append(k.serviceOrder, key)
	}
	k.services[key] = s
	return nil
}

// GetService returns the service with id serviceID. An empty id selects the
// service registered as "default", else the first registered service.
func (k *Kernel) GetService(serviceID string) (Service, error) {
	return GetServiceAs[Service](k, serviceID)
}

// GetServiceAs returns a service implementing T. With an empty serviceID the
// "default" service is preferred if it implements T, otherwise the first
// registered service implementing T is returned.
//
// Example:
//
//	chat, err := kernel.GetServiceAs[ai.ChatCompletion](k, settings.ServiceID)
func GetServiceAs[T any](k *Kernel, serviceID string) (T, error) {
	var zero T
	k.mu.RLock()
	defer k.mu.RUnlock()

	if serviceID != "" {
		s, ok := k.services[serviceID]
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
		}
		typed, ok := s.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s has type %T, not %T", ErrServiceNotFound, serviceID, s, zero)
		}
		return typed, nil
	}

	if s, ok := k.services[DefaultServiceID]; ok {
		if typed, ok := s.(T); ok {
			return typed, nil
		}
	}
	for _, key := range k.serviceOrder {
		if typed, ok := k.services[key].(T); ok {
			return typed, nil
		}
	}
	return zero, fmt.Errorf("%w: no service of type %T", ErrServiceNotFound, zero)
}

// ServicesAs returns all services implementing T in registration order.
func ServicesAs[T any](k *Kernel) []T {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var out []T
	for _, key := range k.serviceOrder {
		if typed, ok := k.services[key].(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Services returns every registered service in registration order.
func (k *Kernel) Services() []Service {
	return ServicesAs[Service](k)
}

func (k *Kernel) RemoveService(serviceID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.services[serviceID]; !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}
	delete(k.services, serviceID)
	for i, key := range k.serviceOrder {
		if key == serviceID {
			k.serviceOrder = append(k.serviceOrder[:i], k.serviceOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (k *Kernel) RemoveAllServices() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.services = map[string]Service{}
	k.serviceOrder = nil
}
