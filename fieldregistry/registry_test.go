package fieldregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFields = StaticRegistry{
	"product": {
		Name:           "product",
		InDatabaseName: "ProductName",
		Namespace:      NamespaceRawCrash,
	},
	"uptime": {
		Name:           "uptime",
		InDatabaseName: "uptime",
		Namespace:      NamespaceProcessedCrash,
	},
	"build_id": {
		Name:           "build_id",
		InDatabaseName: "build",
		Namespace:      NamespaceProcessedCrash,
	},
	"search_only": {
		Name:      "search_only",
		Namespace: NamespaceProcessedCrash,
	},
}

func TestRenameTable(t *testing.T) {
	fields, err := testFields.Fields(context.Background())
	require.NoError(t, err)

	is := assert.New(t)
	is.Equal(map[string]string{"ProductName": "product"}, RenameTable(fields, NamespaceRawCrash))
	is.Equal(map[string]string{"uptime": "uptime", "build": "build_id"}, RenameTable(fields, NamespaceProcessedCrash))
	is.Empty(RenameTable(fields, "other"))
}

func TestStaticRegistry_ReturnsCopy(t *testing.T) {
	fields, err := testFields.Fields(context.Background())
	require.NoError(t, err)

	delete(fields, "product")
	assert.Contains(t, testFields, "product")
}

func TestStaticRegistry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFields.Fields(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"build_id", "product", "search_only", "uptime"}, Names(testFields))
}
