package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// AccountStore is the per-collection persistence contract. Each of the four
// variants has one store; the directory is the only place that enumerates
// them.
type AccountStore interface {
	AccountType() domain.AccountType
	Create(ctx context.Context, a *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	Update(ctx context.Context, email string, updates map[string]interface{}) error
}

// Directory is the single lookup capability over the four account
// collections. Callers never fan out by hand.
type Directory struct {
	stores map[domain.AccountType]AccountStore
}

// NewDirectory indexes the stores by the variant each one reports for itself.
func NewDirectory(stores ...AccountStore) *Directory {
	d := &Directory{stores: make(map[domain.AccountType]AccountStore, len(stores))}
	for _, s := range stores {
		d.stores[s.AccountType()] = s
	}
	return d
}

// FindByEmail looks the email up in all four collections concurrently and
// returns the first hit in domain.LookupOrder. Under the cross-collection
// uniqueness invariant at most one collection matches; the fixed order is a
// tie-break in case that invariant was ever violated.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return d.fanOut(ctx, func(ctx context.Context, s AccountStore) (*domain.Account, error) {
		return s.GetByEmail(ctx, email)
	})
}

// FindByID fetches a record from the collection named by its variant tag.
func (d *Directory) FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error) {
	s, ok := d.stores[accountType]
	if !ok {
		return nil, fmt.Errorf("unknown account type %q: %w", accountType, domain.ErrBadRequest)
	}
	return s.GetByID(ctx, accountID)
}

// EmailExists reports whether any of the four collections holds the email.
func (d *Directory) EmailExists(ctx context.Context, email string) (bool, error) {
	a, err := d.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// PhoneExists reports whether any of the four collections holds the phone
// number. The check spans all variants so the uniqueness policy is uniform.
func (d *Directory) PhoneExists(ctx context.Context, phone string) (bool, error) {
	a, err := d.fanOut(ctx, func(ctx context.Context, s AccountStore) (*domain.Account, error) {
		return s.GetByPhone(ctx, phone)
	})
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// Create routes the record to the collection named by its discriminator.
func (d *Directory) Create(ctx context.Context, a *domain.Account) error {
	s, ok := d.stores[a.AccountType]
	if !ok {
		return fmt.Errorf("unknown account type %q: %w", a.AccountType, domain.ErrBadRequest)
	}
	return s.Create(ctx, a)
}

// Update applies a partial update to the record in the named collection.
func (d *Directory) Update(ctx context.Context, accountType domain.AccountType, email string, updates map[string]interface{}) error {
	s, ok := d.stores[accountType]
	if !ok {
		return fmt.Errorf("unknown account type %q: %w", accountType, domain.ErrBadRequest)
	}
	return s.Update(ctx, email, updates)
}

// fanOut runs the lookup against every collection concurrently. NotFound from
// a collection is a miss, not an error; any other store error wins over a
// miss so callers never mistake an outage for absence. Returns (nil, nil)
// when no collection matches.
func (d *Directory) fanOut(ctx context.Context, lookup func(context.Context, AccountStore) (*domain.Account, error)) (*domain.Account, error) {
	results := make([]*domain.Account, len(domain.LookupOrder))
	errs := make([]error, len(domain.LookupOrder))

	var wg sync.WaitGroup
	for i, at := range domain.LookupOrder {
		if d.stores[at] == nil {
			continue
		}
		wg.Add(1)
		go func(i int, s AccountStore) {
			defer wg.Done()
			a, err := lookup(ctx, s)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					errs[i] = err
				}
				return
			}
			results[i] = a
		}(i, d.stores[at])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, a := range results {
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}
