package category

import (
	"context"
	"sort"
	"sync"
	"time"

	"coinboard/internal/domain"
	categoryrepo "coinboard/internal/repository/category"
)

// memStore is an in-memory categoryrepo.Store. Transactions run one at a time on a copy
// of the table that replaces the original on commit; the name index is enforced in Save.
type memStore struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	rows   map[int64]domain.Category
	nextID int64

	// blindExists makes ExistsByName always report false, as a racing writer would see it.
	blindExists bool
	saveCalls   int

	// beforeFindAll, when set, runs after FindAll has read its rows and before it returns.
	beforeFindAll func()
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]domain.Category{}, nextID: 1}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx categoryrepo.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := &memTable{rows: make(map[int64]domain.Category, len(m.rows)), nextID: m.nextID, store: m}
	for k, v := range m.rows {
		snapshot.rows[k] = v
	}
	m.mu.RUnlock()

	if err := fn(snapshot); err != nil {
		return err
	}

	m.mu.Lock()
	m.rows = snapshot.rows
	m.nextID = snapshot.nextID
	m.mu.Unlock()
	return nil
}

func (m *memStore) table() *memTable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := &memTable{rows: make(map[int64]domain.Category, len(m.rows)), nextID: m.nextID, store: m}
	for k, v := range m.rows {
		t.rows[k] = v
	}
	return t
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	return m.table().FindByID(ctx, id)
}

func (m *memStore) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return m.table().FindByName(ctx, name)
}

func (m *memStore) FindRootCategories(ctx context.Context) ([]domain.Category, error) {
	return m.table().FindRootCategories(ctx)
}

func (m *memStore) FindByParentID(ctx context.Context, parentID int64) ([]domain.Category, error) {
	return m.table().FindByParentID(ctx, parentID)
}

func (m *memStore) FindAll(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.table().FindAll(ctx)
	if m.beforeFindAll != nil {
		m.beforeFindAll()
	}
	return rows, err
}

func (m *memStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	return m.table().ExistsByName(ctx, name)
}

func (m *memStore) CountChildren(ctx context.Context, id int64) (int, error) {
	return m.table().CountChildren(ctx, id)
}

func (m *memStore) Save(ctx context.Context, c domain.Category) (*domain.Category, error) {
	var out *domain.Category
	err := m.InTx(ctx, func(tx categoryrepo.Repository) error {
		var err error
		out, err = tx.Save(ctx, c)
		return err
	})
	return out, err
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	return m.InTx(ctx, func(tx categoryrepo.Repository) error { return tx.Delete(ctx, id) })
}

func (m *memStore) DeleteSubtree(ctx context.Context, id int64) ([]domain.Category, error) {
	var removed []domain.Category
	err := m.InTx(ctx, func(tx categoryrepo.Repository) error {
		var err error
		removed, err = tx.DeleteSubtree(ctx, id)
		return err
	})
	return removed, err
}

func (m *memStore) ReparentChildren(ctx context.Context, fromID int64, toID *int64) ([]domain.Category, error) {
	var moved []domain.Category
	err := m.InTx(ctx, func(tx categoryrepo.Repository) error {
		var err error
		moved, err = tx.ReparentChildren(ctx, fromID, toID)
		return err
	})
	return moved, err
}

func (m *memStore) LockHierarchy(context.Context) error { return nil }

// force writes a row directly, bypassing every check.
func (m *memStore) force(c domain.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	if c.ID >= m.nextID {
		m.nextID = c.ID + 1
	}
}

func (m *memStore) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

type memTable struct {
	rows   map[int64]domain.Category
	nextID int64
	store  *memStore
}

func (t *memTable) FindByID(_ context.Context, id int64) (*domain.Category, error) {
	c, ok := t.rows[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (t *memTable) FindByName(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range t.rows {
		if c.Name == name {
			clone := c
			return &clone, nil
		}
	}
	return nil, nil
}

func (t *memTable) FindRootCategories(_ context.Context) ([]domain.Category, error) {
	return t.filter(func(c domain.Category) bool { return c.ParentID == nil }), nil
}

func (t *memTable) FindByParentID(_ context.Context, parentID int64) ([]domain.Category, error) {
	return t.filter(func(c domain.Category) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (t *memTable) FindAll(_ context.Context) ([]domain.Category, error) {
	return t.filter(func(domain.Category) bool { return true }), nil
}

func (t *memTable) ExistsByName(ctx context.Context, name string) (bool, error) {
	if t.store.blindExists {
		return false, nil
	}
	c, _ := t.FindByName(ctx, name)
	return c != nil, nil
}

func (t *memTable) CountChildren(ctx context.Context, id int64) (int, error) {
	kids, _ := t.FindByParentID(ctx, id)
	return len(kids), nil
}

func (t *memTable) Save(_ context.Context, c domain.Category) (*domain.Category, error) {
	t.store.saveCalls++
	for _, other := range t.rows {
		if other.Name == c.Name && other.ID != c.ID {
			return nil, domain.ErrDuplicateCategoryName
		}
	}
	if c.ParentID != nil {
		if _, ok := t.rows[*c.ParentID]; !ok {
			return nil, domain.ErrParentNotFound
		}
	}
	now := time.Now().UTC()
	if c.ID == 0 {
		c.ID = t.nextID
		t.nextID++
		c.CreatedAt = now
	} else if _, ok := t.rows[c.ID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	c.UpdatedAt = now
	t.rows[c.ID] = c
	return &c, nil
}

func (t *memTable) Delete(ctx context.Context, id int64) error {
	if _, ok := t.rows[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	if n, _ := t.CountChildren(ctx, id); n > 0 {
		return domain.ErrHasChildren
	}
	delete(t.rows, id)
	return nil
}

func (t *memTable) DeleteSubtree(ctx context.Context, id int64) ([]domain.Category, error) {
	if _, ok := t.rows[id]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	var removed []domain.Category
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids, _ := t.FindByParentID(ctx, cur)
		for _, k := range kids {
			stack = append(stack, k.ID)
		}
		if c, ok := t.rows[cur]; ok {
			removed = append(removed, c)
			delete(t.rows, cur)
		}
	}
	return removed, nil
}

func (t *memTable) ReparentChildren(ctx context.Context, fromID int64, toID *int64) ([]domain.Category, error) {
	kids, _ := t.FindByParentID(ctx, fromID)
	for i := range kids {
		kids[i].ParentID = toID
		kids[i].UpdatedAt = time.Now().UTC()
		t.rows[kids[i].ID] = kids[i]
	}
	return kids, nil
}

func (t *memTable) LockHierarchy(context.Context) error { return nil }

func (t *memTable) filter(keep func(domain.Category) bool) []domain.Category {
	out := []domain.Category{}
	for _, c := range t.rows {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
