package visit

import "context"

// Repository is the storage contract for visits. Implementations must apply
// Filter in full, including the join-aware Search and the soft-delete default.
type Repository interface {
	Count(ctx context.Context, f Filter) (int64, error)
	// List returns visits ordered by s then id ascending. limit <= 0 means no limit.
	List(ctx context.Context, f Filter, s Sort, limit, offset int) ([]*Visit, error)
	Stats(ctx context.Context, f Filter) (*Stats, error)
	GroupCount(ctx context.Context, f Filter, keys ...GroupKey) ([]GroupCount, error)
	ListForReport(ctx context.Context, f Filter) ([]ReportRow, error)

	// FindByID returns soft-deleted visits too; callers decide visibility.
	FindByID(ctx context.Context, id int64) (*Visit, error)
	Create(ctx context.Context, v *Visit) error
	Update(ctx context.Context, v *Visit) error
	SoftDelete(ctx context.Context, id int64) error
}
