package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/skewcube/skewcube-backend-go/models"
)

func catalog(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{ID: primitive.NewObjectID(), Name: fmt.Sprintf("p%d", i)}
	}
	return products
}

func TestRandomGroupsShape(t *testing.T) {
	groups := RandomGroups(catalog(30), 4, 10)
	require.Len(t, groups, 4)
	for i := 1; i <= 4; i++ {
		group := groups[fmt.Sprintf("group%d", i)]
		require.Len(t, group, 10)

		seen := map[primitive.ObjectID]bool{}
		for _, p := range group {
			require.False(t, seen[p.ID], "duplicate product within a group")
			seen[p.ID] = true
		}
	}
}

func TestRandomGroupsSmallCatalog(t *testing.T) {
	// fewer products than the group size: groups shrink instead of looping
	groups := RandomGroups(catalog(3), 4, 10)
	require.Len(t, groups, 4)
	for _, group := range groups {
		require.Len(t, group, 3)
	}
}

func TestRandomGroupsEmptyCatalog(t *testing.T) {
	groups := RandomGroups(nil, 2, 10)
	require.Len(t, groups, 2)
	for _, group := range groups {
		require.Empty(t, group)
	}
}
