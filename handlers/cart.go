package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/models"
)

type CartHandler struct {
	DB *mongo.Database
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil || req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product or quantity"})
	}

	ctx := c.Request().Context()
	if err := h.DB.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err(); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
	}

	// duplicate adds bump the quantity, never duplicate the entry
	if i := user.CartIndex(productID); i >= 0 {
		user.Cart[i].Quantity += req.Quantity
	} else {
		user.Cart = append(user.Cart, models.CartItem{ProductID: productID, Quantity: req.Quantity})
	}

	if err := h.saveUser(ctx, user.ID, bson.M{"cart": user.Cart}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Product added to cart",
		"cart":    user.Cart,
	})
}

func (h *CartHandler) GetCart(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	cart, err := h.joinCart(c.Request().Context(), user.Cart)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching cart"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Cart retrieved successfully",
		"cart":    cart,
	})
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}
	action := c.Param("action")
	if action != "increase" && action != "decrease" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid action"})
	}

	i := user.CartIndex(productID)
	switch {
	case i < 0 && action == "increase":
		user.Cart = append(user.Cart, models.CartItem{ProductID: productID, Quantity: 1})
	case i < 0:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Cannot decrease quantity because product is not in cart."})
	case action == "increase":
		user.Cart[i].Quantity++
	case user.Cart[i].Quantity > 1:
		user.Cart[i].Quantity--
	default:
		// decrement never removes; the floor is one
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Quantity can't be less than 1"})
	}

	ctx := c.Request().Context()
	if err := h.saveUser(ctx, user.ID, bson.M{"cart": user.Cart}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error updating cart quantity"})
	}

	cart, err := h.joinCart(ctx, user.Cart)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching cart"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Quantity " + action + "d",
		"cart":    cart,
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	// removal is idempotent; an absent product is not an error
	kept := user.Cart[:0]
	for _, item := range user.Cart {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	user.Cart = kept

	if err := h.saveUser(c.Request().Context(), user.ID, bson.M{"cart": user.Cart}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Product removed from cart",
		"cart":    user.Cart,
	})
}

func (h *CartHandler) AddToWishlist(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Product ID is required"})
	}

	ctx := c.Request().Context()
	if err := h.DB.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err(); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
	}

	if user.InWishlist(productID) {
		return c.JSON(http.StatusConflict, map[string]string{"message": "Product is already in wishlist"})
	}

	user.Wishlist = append(user.Wishlist, models.WishlistItem{ProductID: productID})
	if err := h.saveUser(ctx, user.ID, bson.M{"wishlist": user.Wishlist}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Product added to wishlist",
		"wishlist": user.Wishlist,
	})
}

func (h *CartHandler) GetWishlist(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	ids := make([]primitive.ObjectID, 0, len(user.Wishlist))
	for _, item := range user.Wishlist {
		ids = append(ids, item.ProductID)
	}

	products := []models.Product{}
	if len(ids) > 0 {
		ctx := c.Request().Context()
		cursor, err := h.DB.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching wishlist"})
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &products); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching wishlist"})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Wishlist retrieved successfully",
		"wishlist": products,
	})
}

func (h *CartHandler) RemoveFromWishlist(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	kept := user.Wishlist[:0]
	for _, item := range user.Wishlist {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	user.Wishlist = kept

	if err := h.saveUser(c.Request().Context(), user.ID, bson.M{"wishlist": user.Wishlist}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Product removed from wishlist",
		"wishlist": user.Wishlist,
	})
}

// MoveToCart moves a product from the wishlist into the cart. It succeeds
// even when the product was never wishlisted.
func (h *CartHandler) MoveToCart(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	kept := user.Wishlist[:0]
	for _, item := range user.Wishlist {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	user.Wishlist = kept

	if i := user.CartIndex(productID); i >= 0 {
		user.Cart[i].Quantity++
	} else {
		user.Cart = append(user.Cart, models.CartItem{ProductID: productID, Quantity: 1})
	}

	err = h.saveUser(c.Request().Context(), user.ID, bson.M{
		"cart":     user.Cart,
		"wishlist": user.Wishlist,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to move product"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Product moved from wishlist to cart"})
}

// saveUser persists the given embedded collections in one document update.
func (h *CartHandler) saveUser(ctx context.Context, userID primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	_, err := h.DB.Collection("users").UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	return err
}

// joinCart resolves cart entries to their product documents.
func (h *CartHandler) joinCart(ctx context.Context, cart []models.CartItem) ([]echo.Map, error) {
	out := []echo.Map{}
	if len(cart) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}

	cursor, err := h.DB.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range cart {
		if p, ok := byID[item.ProductID]; ok {
			out = append(out, echo.Map{"product": p, "quantity": item.Quantity})
		}
	}
	return out, nil
}
