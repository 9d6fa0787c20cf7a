package patterns

import (
	"context"
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// ClaimCheck moves the payload under payloadKey into a store and leaves the
// ticket under api.KeyClaimTicket.
type ClaimCheck struct {
	name          string
	payloadKey    string
	store         api.ClaimCheckStore
	removePayload bool
}

var _ api.Step = (*ClaimCheck)(nil)

// NewClaimCheck creates a claim check. When removePayload is true the
// payload key is deleted from the context once the store accepted it.
func NewClaimCheck(name, payloadKey string, store api.ClaimCheckStore, removePayload bool) *ClaimCheck {
	return &ClaimCheck{
		name:          name,
		payloadKey:    payloadKey,
		store:         store,
		removePayload: removePayload,
	}
}

func (c *ClaimCheck) Name() string { return c.name }

func (c *ClaimCheck) Run(ctx context.Context, ec *api.ExecutionContext) error {
	payload, ok := ec.Get(c.payloadKey)
	if !ok {
		return fmt.Errorf("%w: %s is not set", api.ErrInvalidValue, c.payloadKey)
	}

	ticket, err := c.store.Store(ctx, payload)
	if err != nil {
		return fmt.Errorf("claim check store: %w", err)
	}

	ec.Set(api.KeyClaimTicket, ticket)
	if c.removePayload {
		ec.Delete(c.payloadKey)
	}
	return nil
}

// ClaimRetrieve exchanges the ticket under api.KeyClaimTicket for its
// payload and stores it under api.KeyClaimPayload. It must follow a
// ClaimCheck in the same run; a missing ticket fails with
// api.ErrMissingClaimTicket.
type ClaimRetrieve struct {
	name  string
	store api.ClaimCheckStore
}

var _ api.Step = (*ClaimRetrieve)(nil)

// NewClaimRetrieve creates a claim retrieve.
func NewClaimRetrieve(name string, store api.ClaimCheckStore) *ClaimRetrieve {
	return &ClaimRetrieve{name: name, store: store}
}

func (c *ClaimRetrieve) Name() string { return c.name }

func (c *ClaimRetrieve) Run(ctx context.Context, ec *api.ExecutionContext) error {
	ticket, ok := api.Value[string](ec, api.KeyClaimTicket)
	if !ok || ticket == "" {
		return api.ErrMissingClaimTicket
	}

	payload, err := c.store.Retrieve(ctx, ticket)
	if err != nil {
		return fmt.Errorf("claim retrieve %s: %w", ticket, err)
	}
	ec.Set(api.KeyClaimPayload, payload)
	return nil
}
