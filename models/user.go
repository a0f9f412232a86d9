package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Country string `bson:"country" json:"country"`
	PinCode string `bson:"pinCode" json:"pinCode"`
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

type WishlistItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
}

type OrderRef struct {
	OrderID primitive.ObjectID `bson:"orderId" json:"orderId"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role" json:"role"`
	Address   Address            `bson:"address" json:"address"`
	Phone     string             `bson:"phone" json:"phone"`
	Cart      []CartItem         `bson:"cart" json:"cart"`
	Orders    []OrderRef         `bson:"orders" json:"orders"`
	Wishlist  []WishlistItem     `bson:"wishlist" json:"wishlist"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CartIndex returns the position of productID in the cart, or -1.
func (u *User) CartIndex(productID primitive.ObjectID) int {
	for i, item := range u.Cart {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// InWishlist reports whether productID is already wishlisted.
func (u *User) InWishlist(productID primitive.ObjectID) bool {
	for _, item := range u.Wishlist {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
