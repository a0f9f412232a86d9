package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/models"
)

type ReviewHandler struct {
	DB *mongo.Database
}

// ratingAfterAdd returns the product mean after a new rating joins it.
func ratingAfterAdd(oldRating float64, oldCount, newRating int) float64 {
	return (oldRating*float64(oldCount) + float64(newRating)) / float64(oldCount+1)
}

// ratingAfterEdit returns the mean after one rating changes value.
func ratingAfterEdit(rating float64, count, oldRating, newRating int) float64 {
	return (rating*float64(count) - float64(oldRating) + float64(newRating)) / float64(count)
}

// ratingAfterDelete returns the mean after one rating leaves; zero when the
// last review goes.
func ratingAfterDelete(rating float64, countAfter, removed int) float64 {
	if countAfter <= 0 {
		return 0
	}
	return (rating*float64(countAfter+1) - float64(removed)) / float64(countAfter)
}

type reviewRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ReviewHandler) Add(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	if req.Rating == nil || req.Comment == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "All fields are required"})
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Rating must be between 1 and 5"})
	}

	ctx := c.Request().Context()
	products := h.DB.Collection("products")
	reviews := h.DB.Collection("reviews")

	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
	}

	if err := reviews.FindOne(ctx, bson.M{"user": user.ID, "product": productID}).Err(); err == nil {
		return c.JSON(http.StatusConflict, map[string]string{"message": "User has already reviewed this product"})
	} else if err != mongo.ErrNoDocuments {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	now := time.Now()
	review := models.Review{
		ID:        primitive.NewObjectID(),
		User:      user.ID,
		Product:   productID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
		Likes:     []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := reviews.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, map[string]string{"message": "User has already reviewed this product"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	// rating, count and the reference move together in one document update
	_, err = products.UpdateOne(ctx, bson.M{"_id": productID}, bson.M{
		"$set": bson.M{
			"rating":     ratingAfterAdd(product.Rating, product.NumReviews, review.Rating),
			"numReviews": product.NumReviews + 1,
			"updatedAt":  now,
		},
		"$push": bson.M{"reviews": review.ID},
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) Edit(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	reviewID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid review ID"})
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	if req.Rating == nil && req.Comment == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "At least one field (rating or comment) is required"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Rating must be a number between 1 and 5"})
	}

	ctx := c.Request().Context()
	reviews := h.DB.Collection("reviews")
	products := h.DB.Collection("products")

	var review models.Review
	if err := reviews.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Review not found"})
	}
	if review.User != user.ID {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Not authorized to update this review"})
	}

	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": review.Product}).Decode(&product); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
	}

	now := time.Now()
	oldRating := review.Rating
	set := bson.M{"updatedAt": now}
	if req.Rating != nil {
		review.Rating = *req.Rating
		set["rating"] = *req.Rating
	}
	if req.Comment != "" {
		review.Comment = req.Comment
		set["comment"] = req.Comment
	}

	if _, err := reviews.UpdateOne(ctx, bson.M{"_id": reviewID}, bson.M{"$set": set}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	_, err = products.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{"$set": bson.M{
		"rating":    ratingAfterEdit(product.Rating, product.NumReviews, oldRating, review.Rating),
		"updatedAt": now,
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Review updated successfully",
		"review":  review,
	})
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	reviewID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid review ID"})
	}

	ctx := c.Request().Context()
	reviews := h.DB.Collection("reviews")
	products := h.DB.Collection("products")

	var review models.Review
	if err := reviews.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Review not found"})
	}
	if review.User != user.ID {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Not authorized to delete this review"})
	}

	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": review.Product}).Decode(&product); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
	}

	countAfter := product.NumReviews - 1
	_, err = products.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{
		"$set": bson.M{
			"rating":     ratingAfterDelete(product.Rating, countAfter, review.Rating),
			"numReviews": countAfter,
			"updatedAt":  time.Now(),
		},
		"$pull": bson.M{"reviews": reviewID},
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	if _, err := reviews.DeleteOne(ctx, bson.M{"_id": reviewID}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Review deleted successfully"})
}
