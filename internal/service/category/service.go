package category

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
	categoryrepo "coinboard/internal/repository/category"
)

// DefaultMaxDepth bounds the length of any root-to-leaf chain.
const DefaultMaxDepth = 32

// TreeCache stores the assembled category tree between mutations. Every Invalidate
// starts a new generation; Set only stores a tree built within the generation it names.
type TreeCache interface {
	// Get returns the cached tree, if any, and the current generation. A negative
	// generation means it could not be read and nothing should be stored.
	Get(ctx context.Context) (nodes []domain.CategoryNode, gen int64, ok bool)
	Set(ctx context.Context, gen int64, nodes []domain.CategoryNode)
	Invalidate(ctx context.Context)
}

// Publisher announces committed category changes.
type Publisher interface {
	Publish(ctx context.Context, ev domain.CategoryEvent) error
}

// Options configures a Service. Zero values select defaults; nil Cache and Publisher disable those features.
type Options struct {
	MaxDepth  int
	Cache     TreeCache
	Publisher Publisher
	Logger    *zap.Logger
}

// Service enforces the category hierarchy invariants on top of the repository.
type Service struct {
	store     categoryrepo.Store
	maxDepth  int
	cache     TreeCache
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func New(store categoryrepo.Store, opts Options) *Service {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Service{
		store:     store,
		maxDepth:  opts.MaxDepth,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		logger:    logging.OrNop(opts.Logger).Named("category"),
		now:       time.Now,
	}
}

// Create validates req and inserts a new category under its optional parent.
func (s *Service) Create(ctx context.Context, req domain.CategoryRequest) (*domain.Category, error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	var created *domain.Category
	err := s.store.InTx(ctx, func(tx categoryrepo.Repository) error {
		if req.ParentID != nil {
			if err := tx.LockHierarchy(ctx); err != nil {
				return fmt.Errorf("lock hierarchy: %w", err)
			}
			parent, err := tx.FindByID(ctx, *req.ParentID)
			if err != nil {
				return fmt.Errorf("find parent: %w", err)
			}
			if parent == nil {
				return domain.ErrParentNotFound
			}
			chain, err := s.ancestry(ctx, tx, parent)
			if err != nil {
				return err
			}
			if len(chain)+1 > s.maxDepth {
				return domain.ErrHierarchyTooDeep
			}
		}

		exists, err := tx.ExistsByName(ctx, req.Name)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if exists {
			return domain.ErrDuplicateCategoryName
		}

		created, err = tx.Save(ctx, domain.Category{
			Name:        req.Name,
			Description: req.Description,
			ParentID:    req.ParentID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, change{domain.CategoryCreated, *created})
	return created, nil
}

// Update replaces name, description and parent of category id. A nil ParentID moves it to the root.
func (s *Service) Update(ctx context.Context, id int64, req domain.CategoryRequest) (*domain.Category, error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	var updated *domain.Category
	err := s.store.InTx(ctx, func(tx categoryrepo.Repository) error {
		if err := tx.LockHierarchy(ctx); err != nil {
			return fmt.Errorf("lock hierarchy: %w", err)
		}
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find category: %w", err)
		}
		if current == nil {
			return domain.ErrCategoryNotFound
		}

		if req.Name != current.Name {
			exists, err := tx.ExistsByName(ctx, req.Name)
			if err != nil {
				return fmt.Errorf("check name: %w", err)
			}
			if exists {
				return domain.ErrDuplicateCategoryName
			}
		}

		if req.ParentID != nil && !sameParent(current.ParentID, req.ParentID) {
			if err := s.checkMove(ctx, tx, id, *req.ParentID); err != nil {
				return err
			}
		}

		next := *current
		next.Name = req.Name
		next.Description = req.Description
		next.ParentID = req.ParentID
		updated, err = tx.Save(ctx, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, change{domain.CategoryUpdated, *updated})
	return updated, nil
}

// Delete removes category id. With children present, mode decides: reject, cascade the subtree,
// or reparent the children onto the deleted category's parent.
func (s *Service) Delete(ctx context.Context, id int64, mode domain.DeleteMode) error {
	mode, err := domain.ParseDeleteMode(string(mode))
	if err != nil {
		return err
	}

	var changes []change
	err = s.store.InTx(ctx, func(tx categoryrepo.Repository) error {
		changes = changes[:0]
		if err := tx.LockHierarchy(ctx); err != nil {
			return fmt.Errorf("lock hierarchy: %w", err)
		}
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find category: %w", err)
		}
		if current == nil {
			return domain.ErrCategoryNotFound
		}

		n, err := tx.CountChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("count children: %w", err)
		}
		if n > 0 {
			switch mode {
			case domain.DeleteCascade:
				removed, err := tx.DeleteSubtree(ctx, id)
				if err != nil {
					return err
				}
				s.logger.Info("category subtree deleted", zap.Int64("id", id), zap.Int("rows", len(removed)))
				changes = append(changes, change{domain.CategoryDeleted, *current})
				for _, c := range removed {
					if c.ID != id {
						changes = append(changes, change{domain.CategoryDeleted, c})
					}
				}
				return nil
			case domain.DeleteReparent:
				moved, err := tx.ReparentChildren(ctx, id, current.ParentID)
				if err != nil {
					return fmt.Errorf("reparent children: %w", err)
				}
				for _, c := range moved {
					changes = append(changes, change{domain.CategoryUpdated, c})
				}
			default:
				return domain.ErrHasChildren
			}
		}

		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		changes = append(changes, change{domain.CategoryDeleted, *current})
		return nil
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, changes...)
	return nil
}

// Get returns category id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return c, nil
}

// GetByName returns the category with exactly this name.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	c, err := s.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return c, nil
}

// ListRoots returns every category without a parent.
func (s *Service) ListRoots(ctx context.Context) ([]domain.Category, error) {
	return s.store.FindRootCategories(ctx)
}

// ListChildren returns the direct children of parentID.
func (s *Service) ListChildren(ctx context.Context, parentID int64) ([]domain.Category, error) {
	parent, err := s.store.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return s.store.FindByParentID(ctx, parentID)
}

// ListTree returns the full hierarchy, served from cache when available.
func (s *Service) ListTree(ctx context.Context) ([]domain.CategoryNode, error) {
	gen := int64(-1)
	if s.cache != nil {
		var (
			nodes []domain.CategoryNode
			ok    bool
		)
		if nodes, gen, ok = s.cache.Get(ctx); ok {
			return nodes, nil
		}
	}

	all, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	nodes, stats := BuildTree(all, s.maxDepth)
	if stats.Truncated > 0 || stats.Unreachable > 0 {
		s.logger.Warn("category tree incomplete",
			zap.Int("truncated", stats.Truncated),
			zap.Int("unreachable", stats.Unreachable),
			zap.Int("max_depth", s.maxDepth),
		)
	}

	if s.cache != nil && gen >= 0 {
		s.cache.Set(ctx, gen, nodes)
	}
	return nodes, nil
}

// checkMove verifies category id may hang under newParentID.
func (s *Service) checkMove(ctx context.Context, tx categoryrepo.Repository, id, newParentID int64) error {
	if newParentID == id {
		return domain.ErrCyclicHierarchy
	}
	parent, err := tx.FindByID(ctx, newParentID)
	if err != nil {
		return fmt.Errorf("find parent: %w", err)
	}
	if parent == nil {
		return domain.ErrParentNotFound
	}

	chain, err := s.ancestry(ctx, tx, parent)
	if slices.Contains(chain, id) {
		return domain.ErrCyclicHierarchy
	}
	if err != nil {
		return err
	}

	height, err := s.subtreeHeight(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(chain)+height > s.maxDepth {
		return domain.ErrHierarchyTooDeep
	}
	return nil
}

// ancestry returns the ids from c up to its root, c first. On ErrHierarchyTooDeep or
// ErrCyclicHierarchy the chain walked so far is returned alongside the error.
func (s *Service) ancestry(ctx context.Context, repo categoryrepo.Repository, c *domain.Category) ([]int64, error) {
	chain := []int64{c.ID}
	cur := c
	for cur.ParentID != nil {
		if slices.Contains(chain, *cur.ParentID) {
			return chain, domain.ErrCyclicHierarchy
		}
		if len(chain) >= s.maxDepth {
			return chain, domain.ErrHierarchyTooDeep
		}
		p, err := repo.FindByID(ctx, *cur.ParentID)
		if err != nil {
			return nil, fmt.Errorf("find ancestor: %w", err)
		}
		if p == nil {
			break
		}
		chain = append(chain, p.ID)
		cur = p
	}
	return chain, nil
}

// subtreeHeight counts the levels of the subtree rooted at id, 1 for a leaf.
// It stops early once the height exceeds maxDepth.
func (s *Service) subtreeHeight(ctx context.Context, repo categoryrepo.Repository, id int64) (int, error) {
	height := 1
	seen := map[int64]bool{id: true}
	frontier := []int64{id}
	for len(frontier) > 0 && height <= s.maxDepth {
		var next []int64
		for _, pid := range frontier {
			kids, err := repo.FindByParentID(ctx, pid)
			if err != nil {
				return 0, fmt.Errorf("find children: %w", err)
			}
			for _, k := range kids {
				if !seen[k.ID] {
					seen[k.ID] = true
					next = append(next, k.ID)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		height++
		frontier = next
	}
	return height, nil
}

// change is one committed row mutation to announce.
type change struct {
	typ domain.CategoryEventType
	cat domain.Category
}

func (s *Service) afterWrite(ctx context.Context, changes ...change) {
	if len(changes) == 0 {
		return
	}
	reqID := logging.RequestID(ctx)
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	for _, ch := range changes {
		s.logger.Info(string(ch.typ),
			zap.Int64("id", ch.cat.ID),
			zap.String("name", ch.cat.Name),
			zap.String("request_id", reqID),
		)
		if s.publisher == nil {
			continue
		}
		ev := domain.CategoryEvent{
			ID:         uuid.NewString(),
			Type:       ch.typ,
			CategoryID: ch.cat.ID,
			Name:       ch.cat.Name,
			ParentID:   ch.cat.ParentID,
			OccurredAt: s.now().UTC(),
			RequestID:  reqID,
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publish category event failed", zap.String("type", string(ch.typ)), zap.Int64("id", ch.cat.ID), zap.Error(err))
		}
	}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

