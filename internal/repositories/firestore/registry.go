package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/repositories"
)

// Registry bundles the Firestore repositories with a caller supplied health repository.
type Registry struct {
	provider *pfirestore.Provider

	rateConfigs *RateConfigRepository
	zones       *ZoneRepository
	orders      *OrderRepository
	tickets     *SupportTicketRepository
	counters    *CounterRepository
	health      repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on the shared provider.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	rateConfigs, err := NewRateConfigRepository(provider)
	if err != nil {
		return nil, err
	}
	zones, err := NewZoneRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	tickets, err := NewSupportTicketRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:    provider,
		rateConfigs: rateConfigs,
		zones:       zones,
		orders:      orders,
		tickets:     tickets,
		counters:    counters,
		health:      health,
	}, nil
}

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) RateConfigs() repositories.RateConfigRepository { return r.rateConfigs }
func (r *Registry) Zones() repositories.ZoneRepository { return r.zones }
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }
func (r *Registry) SupportTickets() repositories.SupportTicketRepository { return r.tickets }
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }
func (r *Registry) Health() repositories.HealthRepository { return r.health }
