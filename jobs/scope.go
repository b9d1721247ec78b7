package jobs

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationLister enumerates tenants with ledger data.
type OrganizationLister interface {
	ActiveOrganizations(ctx context.Context) ([]uuid.UUID, error)
}

func resolveScope(ctx context.Context, lister OrganizationLister, payload ScopePayload) ([]uuid.UUID, error) {
	if id, ok, err := payload.Organization(); err != nil {
		return nil, err
	} else if ok {
		return []uuid.UUID{id}, nil
	}
	return lister.ActiveOrganizations(ctx)
}
