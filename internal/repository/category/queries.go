package category

import (
	sq "github.com/Masterminds/squirrel"

	"coinboard/internal/domain"
)

// hierarchyLockKey is the pg_advisory_xact_lock key guarding parent reassignment.
const hierarchyLockKey int64 = 0x636174656772

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var categoryColumns = []string{
	"id",
	"name",
	"COALESCE(description, '')",
	"parent_id",
	"created_at",
	"updated_at",
}

const returningColumns = "RETURNING id, name, COALESCE(description, ''), parent_id, created_at, updated_at"

const deleteSubtreeSQL = `
WITH RECURSIVE subtree AS (
    SELECT id FROM categories WHERE id = $1
    UNION
    SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
)
DELETE FROM categories WHERE id IN (SELECT id FROM subtree)
RETURNING id, name, COALESCE(description, ''), parent_id, created_at, updated_at
`

func selectCategories() sq.SelectBuilder {
	return psql.Select(categoryColumns...).From("categories")
}

func findByIDQuery(id int64) sq.SelectBuilder {
	return selectCategories().Where(sq.Eq{"id": id})
}

func findByNameQuery(name string) sq.SelectBuilder {
	return selectCategories().Where(sq.Eq{"name": name}).Limit(1)
}

func findRootsQuery() sq.SelectBuilder {
	return selectCategories().Where(sq.Eq{"parent_id": nil}).OrderBy("name ASC", "id ASC")
}

func findByParentQuery(parentID int64) sq.SelectBuilder {
	return selectCategories().Where(sq.Eq{"parent_id": parentID}).OrderBy("name ASC", "id ASC")
}

func findAllQuery() sq.SelectBuilder {
	return selectCategories().OrderBy("name ASC", "id ASC")
}

func existsByNameQuery(name string) sq.SelectBuilder {
	return psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("categories").
		Where(sq.Eq{"name": name}).
		Suffix(")")
}

func countChildrenQuery(id int64) sq.SelectBuilder {
	return psql.Select("COUNT(*)").From("categories").Where(sq.Eq{"parent_id": id})
}

func insertQuery(c domain.Category) sq.InsertBuilder {
	return psql.Insert("categories").
		Columns("name", "description", "parent_id").
		Values(c.Name, sq.Expr("NULLIF(?, '')", c.Description), c.ParentID).
		Suffix(returningColumns)
}

func updateQuery(c domain.Category) sq.UpdateBuilder {
	return psql.Update("categories").
		Set("name", c.Name).
		Set("description", sq.Expr("NULLIF(?, '')", c.Description)).
		Set("parent_id", c.ParentID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": c.ID}).
		Suffix(returningColumns)
}

func deleteQuery(id int64) sq.DeleteBuilder {
	return psql.Delete("categories").Where(sq.Eq{"id": id})
}

func reparentQuery(fromID int64, toID *int64) sq.UpdateBuilder {
	return psql.Update("categories").
		Set("parent_id", toID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"parent_id": fromID}).
		Suffix(returningColumns)
}
