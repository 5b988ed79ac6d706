// Package partner implements the multi-tenant partner registry. Each partner
// gets an isolated claim namespace identical in shape to the primary one.
package partner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/warrenhq/warren/pkg/dropstore"
)

// ErrPartnerExists is returned when registering an ID that is already taken.
var ErrPartnerExists = errors.New("partner ID already registered")

// Registry owns partner metadata. Partner records are only ever mutated
// through it.
type Registry struct {
	store *dropstore.Client
}

// NewRegistry creates a partner registry over the given store.
func NewRegistry(store *dropstore.Client) *Registry {
	return &Registry{store: store}
}

// Namespace returns the claim namespace of a partner.
func Namespace(partnerID string) string {
	return dropstore.PartnerNamespace(partnerID)
}

// Register adds a new partner. The ID set is the registration gate (SADD), so
// two concurrent registrations of the same ID resolve to one winner.
func (r *Registry) Register(ctx context.Context, record *dropstore.PartnerRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	added, err := r.store.RegisterPartnerID(ctx, record.ID)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("%w: %s", ErrPartnerExists, record.ID)
	}

	return r.store.PutPartner(ctx, record)
}

// Get retrieves a partner record by ID.
// Returns (nil, redis.Nil) if the partner doesn't exist.
func (r *Registry) Get(ctx context.Context, partnerID string) (*dropstore.PartnerRecord, error) {
	return r.store.GetPartner(ctx, partnerID)
}

// List returns all partner records sorted by ID.
func (r *Registry) List(ctx context.Context) ([]*dropstore.PartnerRecord, error) {
	ids, err := r.store.PartnerIDs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	partners := make([]*dropstore.PartnerRecord, 0, len(ids))
	for _, id := range ids {
		record, err := r.store.GetPartner(ctx, id)
		if err != nil {
			if dropstore.IsNotFound(err) {
				// ID registered but record write lost; skip rather than fail the listing.
				continue
			}
			return nil, err
		}
		partners = append(partners, record)
	}
	return partners, nil
}

// MarkDeployed records the partner collection's contract address after the
// settlement collaborator deploys it.
func (r *Registry) MarkDeployed(ctx context.Context, partnerID, contractAddress string) error {
	if contractAddress == "" {
		return fmt.Errorf("contract address cannot be empty")
	}

	record, err := r.store.GetPartner(ctx, partnerID)
	if err != nil {
		return err
	}

	record.ContractAddress = contractAddress
	record.Deployed = true
	return r.store.PutPartner(ctx, record)
}

// SetLogo updates the partner's logo reference.
func (r *Registry) SetLogo(ctx context.Context, partnerID, logoRef string) error {
	record, err := r.store.GetPartner(ctx, partnerID)
	if err != nil {
		return err
	}

	record.LogoRef = logoRef
	return r.store.PutPartner(ctx, record)
}

// SupplyCeiling resolves a partner namespace to the partner's total supply.
// Non-partner namespaces and unknown partners are unlimited (0): the primary
// ceiling comes from campaign configuration, not the registry.
func (r *Registry) SupplyCeiling(ctx context.Context, namespace string) (int64, error) {
	const prefix = "partner:"
	if len(namespace) <= len(prefix) || namespace[:len(prefix)] != prefix {
		return 0, nil
	}

	record, err := r.store.GetPartner(ctx, namespace[len(prefix):])
	if err != nil {
		if dropstore.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return record.TotalSupply, nil
}
