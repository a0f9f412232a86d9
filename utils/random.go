package utils

import (
	"fmt"
	"math/rand"

	"github.com/skewcube/skewcube-backend-go/models"
)

// RandomGroups builds groupCount independently shuffled product groups of up
// to groupSize items each. A group never repeats a product; when the catalog
// holds fewer than groupSize items the group size is capped at the catalog
// size instead of looping forever looking for more.
func RandomGroups(products []models.Product, groupCount, groupSize int) map[string][]models.Product {
	if groupCount < 1 {
		groupCount = 1
	}
	if groupSize > len(products) {
		groupSize = len(products)
	}

	result := make(map[string][]models.Product, groupCount)
	for i := 1; i <= groupCount; i++ {
		shuffled := make([]models.Product, len(products))
		copy(shuffled, products)
		rand.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		result[fmt.Sprintf("group%d", i)] = shuffled[:groupSize]
	}
	return result
}
