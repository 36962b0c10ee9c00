package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	migrations, err := Migrations().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	ids := make([]string, 0, len(migrations))
	for _, m := range migrations {
		ids = append(ids, m.Id)
		assert.NotEmpty(t, m.Up, "migration %s has no up statements", m.Id)
		assert.NotEmpty(t, m.Down, "migration %s has no down statements", m.Id)
	}
	assert.Equal(t, []string{"0001_customers_pockets.sql", "0002_transactions.sql", "0003_bills.sql"}, ids)
}

func TestSchemaCarriesLedgerIndexes(t *testing.T) {
	migrations, err := Migrations().FindMigrations()
	require.NoError(t, err)

	schema := strings.Join(migrations[1].Up, "\n")
	assert.Contains(t, schema, "(sender, receiver)")
	assert.Contains(t, schema, "transactions_customer_idx")

	pockets := strings.Join(migrations[0].Up, "\n")
	assert.Contains(t, pockets, "owner_id    UUID NOT NULL UNIQUE")
}
