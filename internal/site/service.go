package site

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Service struct {
	store SiteStore
	coll  *collate.Collator
}

func NewService(db *sql.DB) *Service {
	return &Service{
		store: NewStore(db),
		coll:  collate.New(language.English, collate.IgnoreCase),
	}
}

func NewServiceWithStore(store SiteStore) *Service {
	return &Service{
		store: store,
		coll:  collate.New(language.English, collate.IgnoreCase),
	}
}

// List returns all sites ordered by display name. Ordering is done here
// rather than in SQL so names with mixed case and accents sort the way
// they read.
func (s *Service) List(ctx context.Context) ([]SiteResponse, error) {
	sites, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sites, func(i, j int) bool {
		return s.coll.CompareString(sites[i].Name, sites[j].Name) < 0
	})
	out := make([]SiteResponse, 0, len(sites))
	for _, st := range sites {
		out = append(out, st.toDTO())
	}
	return out, nil
}

func (s *Service) GetByULID(ctx context.Context, ulid string) (*Site, error) {
	if ulid == "" {
		return nil, ErrInvalid("site_id is required")
	}
	st, err := s.store.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrNotFound("site not found")
	}
	return st, nil
}
