package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skewcube/skewcube-backend-go/models"
	"github.com/skewcube/skewcube-backend-go/utils"
)

type CategoryHandler struct {
	DB *mongo.Database
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req createCategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Missing required fields"})
	}

	ctx := c.Request().Context()
	categories := h.DB.Collection("categories")

	if err := categories.FindOne(ctx, bson.M{"name": name}).Err(); err == nil {
		return c.JSON(http.StatusConflict, map[string]string{"message": "Category already exists"})
	} else if err != mongo.ErrNoDocuments {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(name)
	}

	now := time.Now()
	category := models.Category{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := categories.InsertOne(ctx, category); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, map[string]string{"message": "Category already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Category added successfully",
		"category": category,
	})
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid category ID"})
	}

	res, err := h.DB.Collection("categories").DeleteOne(c.Request().Context(), bson.M{"_id": id})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	if res.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Category not found"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (h *CategoryHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	cursor, err := h.DB.Collection("categories").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, categories)
}
