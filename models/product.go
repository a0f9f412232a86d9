package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductImage struct {
	URL string `bson:"url" json:"url"`
	Key string `bson:"public_id" json:"public_id"` // object key in storage, needed for deletion
}

type Product struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Description   string               `bson:"description" json:"description"`
	Rating        float64              `bson:"rating" json:"rating"`
	Price         float64              `bson:"price" json:"price"`
	DiscountPrice float64              `bson:"discountPrice" json:"discountPrice"`
	Stock         int                  `bson:"stock" json:"stock"`
	Category      primitive.ObjectID   `bson:"category,omitempty" json:"category"`
	Brand         string               `bson:"brand" json:"brand"`
	Images        []ProductImage       `bson:"images" json:"images"`
	Sizes         []string             `bson:"sizes" json:"sizes"`
	Colors        []string             `bson:"colors" json:"colors"`
	NumReviews    int                  `bson:"numReviews" json:"numReviews"`
	Reviews       []primitive.ObjectID `bson:"reviews" json:"reviews"`
	IsFeatured    bool                 `bson:"isFeatured" json:"isFeatured"`
	IsPublished   bool                 `bson:"isPublished" json:"isPublished"`
	Seller        string               `bson:"seller" json:"seller"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}
