package squill_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/corebit/squill"
)

type customer struct {
	ID     int64          `db:"id"`
	Name   string         `db:"name"`
	Email  sql.NullString `db:"email"`
	Tier   string         `db:"tier"`
	Active int            `db:"active"`
}

type order struct {
	ID         int64   `db:"id"`
	CustomerID int64   `db:"customer_id"`
	Status     string  `db:"status"`
	Total      float64 `db:"total"`
}

func openShopDB(t *testing.T) *squill.DB {
	t.Helper()
	db, err := squill.Open("sqlite", ":memory:", squill.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE customers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT,
			tier TEXT NOT NULL DEFAULT 'standard',
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			total REAL NOT NULL
		)`,
	} {
		_, err := db.Unwrap().Exec(ddl)
		require.NoError(t, err)
	}
	return db
}

func seedShop(t *testing.T, db *squill.DB) {
	t.Helper()
	customers := db.Table("customers")
	_, err := customers.CreateBatch(
		[]string{"name", "email", "tier", "active"},
		[][]any{
			{"ada", "ada@example.com", "gold", 1},
			{"grace", "grace@example.com", "standard", 1},
			{"linus", nil, "standard", 0},
		})
	require.NoError(t, err)

	orders := db.Table("orders")
	_, err = orders.CreateBatch(
		[]string{"customer_id", "status", "total"},
		[][]any{
			{1, "paid", 120.0},
			{1, "paid", 80.0},
			{1, "open", 45.0},
			{2, "paid", 60.0},
			{3, "cancelled", 10.0},
		})
	require.NoError(t, err)
}

func TestCRUDRoundTrip(t *testing.T) {
	db := openShopDB(t)
	customers := db.Table("customers")

	id, err := customers.Create(map[string]any{"name": "ada", "email": "ada@example.com", "tier": "gold"})
	require.NoError(t, err)

	var c customer
	require.NoError(t, customers.Read(&c, id))
	assert.Equal(t, "ada", c.Name)
	assert.Equal(t, "gold", c.Tier)

	affected, err := customers.Update(id, map[string]any{"tier": "platinum"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.NoError(t, customers.Read(&c, id))
	assert.Equal(t, "platinum", c.Tier)

	affected, err = customers.Delete(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.ErrorIs(t, customers.Read(&c, id), squill.ErrNoRows)
}

func TestBuilderWithJoinsAndAggregates(t *testing.T) {
	db := openShopDB(t)
	seedShop(t, db)

	t.Run("join with grouping", func(t *testing.T) {
		type row struct {
			Name  string  `db:"name"`
			Spent float64 `db:"spent"`
		}
		var got []row
		err := db.From("customers c").
			Select("c.name").
			SelectRaw("SUM(o.total) AS spent").
			JoinInner("orders o", "o.customer_id = c.id").
			Where("o.status", "paid").
			GroupBy("c.name").
			Having("SUM(o.total) > ?", 50).
			OrderBy("spent", "DESC").
			Get(&got)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ada", got[0].Name)
		assert.Equal(t, 200.0, got[0].Spent)
	})

	t.Run("cond variants", func(t *testing.T) {
		count, err := db.From("orders").
			Where("status", squill.In("paid", "open")).
			Where("total", squill.Between(40, 150)).
			Count()
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("subquery", func(t *testing.T) {
		var got []customer
		err := db.From("customers").
			WhereSubFn("id", "IN", "orders", func(sub *squill.QueryBuilder) {
				sub.Select("customer_id").Where("status", "paid")
			}).
			Get(&got)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("aggregates", func(t *testing.T) {
		sum, err := db.From("orders").Where("status", "paid").Sum("total")
		require.NoError(t, err)
		assert.Equal(t, 260.0, sum)

		ok, err := db.From("orders").Where("status", "refunded").Exists()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("pagination", func(t *testing.T) {
		var got []order
		page, err := db.From("orders").OrderBy("total", "ASC").Paginate(2, 1, &got)
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		assert.Equal(t, 3, page.LastPage)
		require.Len(t, got, 2)
		assert.Equal(t, 10.0, got[0].Total)
	})
}

func TestDeferredStoreTransaction(t *testing.T) {
	db := openShopDB(t)
	customers := db.Table("customers")

	customers.BeginTransaction()
	_, err := customers.Create(map[string]any{"name": "a"})
	require.NoError(t, err)
	_, err = customers.Create(map[string]any{"name": "b"})
	require.NoError(t, err)
	require.NoError(t, customers.Commit())

	count, err := db.From("customers").Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestErrorSurfaces(t *testing.T) {
	db := openShopDB(t)

	_, err := db.From("customers").WhereIn("id").ToSQL()
	assert.ErrorIs(t, err, squill.ErrInvalidConditionShape)

	_, err = db.From("customers; --").ToSQL()
	assert.ErrorIs(t, err, squill.ErrInvalidIdentifier)

	var got []customer
	err = db.Table("customers").Select(&got, "name = 'x'", nil)
	assert.ErrorIs(t, err, squill.ErrUnsafeFragment)

	var qerr *squill.QueryError
	err = db.Table("customers").ReadAll(&got, "no_such_column")
	require.Error(t, err)
	assert.True(t, errors.As(err, &qerr))

	_, err = squill.Open("oracle", "dsn")
	assert.ErrorIs(t, err, squill.ErrUnsupportedDialect)
}

func TestToSQLIsDriverAgnostic(t *testing.T) {
	db := openShopDB(t)

	qb := db.From("orders").Where("status", "paid").Where("total >", 50)
	sqlText, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders WHERE status = ? AND total > ?", sqlText)
	assert.Equal(t, []any{"paid", 50}, qb.Bindings())
}
