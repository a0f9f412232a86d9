package handlers

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/skewcube/skewcube-backend-go/events"
	"github.com/skewcube/skewcube-backend-go/models"
	"github.com/skewcube/skewcube-backend-go/search"
	"github.com/skewcube/skewcube-backend-go/storage"
	"github.com/skewcube/skewcube-backend-go/utils"
)

const maxProductImages = 5

type ProductHandler struct {
	DB      *mongo.Database
	Storage storage.Store
	Search  *search.Service
	Events  *events.Producer
	Log     *slog.Logger
}

type productForm struct {
	Name          string   `json:"name" form:"name"`
	Description   string   `json:"description" form:"description"`
	Price         float64  `json:"price" form:"price"`
	DiscountPrice float64  `json:"discountPrice" form:"discountPrice"`
	Stock         int      `json:"stock" form:"stock"`
	Category      string   `json:"category" form:"category"`
	Brand         string   `json:"brand" form:"brand"`
	Seller        string   `json:"seller" form:"seller"`
	Sizes         []string `json:"sizes" form:"sizes"`
	Colors        []string `json:"colors" form:"colors"`
	IsFeatured    bool     `json:"isFeatured" form:"isFeatured"`
	IsPublished   bool     `json:"isPublished" form:"isPublished"`
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productForm
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	if req.Name == "" || req.Price <= 0 || req.Stock <= 0 || req.Category == "" || req.Brand == "" || req.Seller == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Missing required fields"})
	}

	categoryID, err := primitive.ObjectIDFromHex(req.Category)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid category ID"})
	}

	ctx := c.Request().Context()

	images, err := h.uploadImages(ctx, imageFiles(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Image upload failed"})
	}

	now := time.Now()
	product := models.Product{
		ID:            primitive.NewObjectID(),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		Category:      categoryID,
		Brand:         req.Brand,
		Seller:        req.Seller,
		Sizes:         req.Sizes,
		Colors:        req.Colors,
		Images:        images,
		Reviews:       []primitive.ObjectID{},
		IsFeatured:    req.IsFeatured,
		IsPublished:   req.IsPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := h.DB.Collection("products").InsertOne(ctx, product); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create product"})
	}

	h.indexProduct(c, product)
	h.publish(c, map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID.Hex(),
		"name":      product.Name,
	})

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Product added successfully",
		"product": product,
	})
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	ctx := c.Request().Context()
	products := h.DB.Collection("products")

	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	// every image delete is attempted; failures must not block the record delete
	failed := h.deleteImages(ctx, product.Images)

	if _, err := products.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	if err := h.Search.DeleteProduct(ctx, id); err != nil {
		h.Log.Warn("search deindex failed", "productID", id.Hex(), "err", err)
	}
	h.publish(c, map[string]interface{}{
		"type":      "product_deleted",
		"productID": id.Hex(),
	})

	resp := map[string]interface{}{
		"success": true,
		"message": "Product and images deleted successfully",
	}
	if len(failed) > 0 {
		resp["warning"] = "some stored images could not be deleted"
		resp["failedKeys"] = failed
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) List(c echo.Context) error {
	filter := bson.M{}
	price := bson.M{}
	if v := c.QueryParam("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			price["$gte"] = f
		}
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			price["$lte"] = f
		}
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	return h.listProducts(c, filter)
}

func (h *ProductHandler) ListByCategory(c echo.Context) error {
	filter := bson.M{}
	if slug := c.QueryParam("category"); slug != "" {
		var category models.Category
		err := h.DB.Collection("categories").FindOne(c.Request().Context(), bson.M{"slug": slug}).Decode(&category)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Category not found"})
		}
		filter["category"] = category.ID
	}
	return h.listProducts(c, filter)
}

func (h *ProductHandler) listProducts(c echo.Context, filter bson.M) error {
	ctx := c.Request().Context()
	products := h.DB.Collection("products")

	page, skip, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	sort := parseSort(c.QueryParam("sort"))

	total, err := products.CountDocuments(ctx, filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	cursor, err := products.Find(ctx, filter, options.Find().
		SetSort(sort).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	defer cursor.Close(ctx)

	var items []models.Product
	if err := cursor.All(ctx, &items); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   total,
		"page":    page,
		"pages":   (total + int64(limit) - 1) / int64(limit),
		"data":    items,
	})
}

func (h *ProductHandler) GetByID(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	ctx := c.Request().Context()

	var product models.Product
	if err := h.DB.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{"success": false, "message": "Product not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	reviews, err := h.populateReviews(ctx, product.Reviews)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	// category may have been deleted out from under the product
	categoryName := ""
	var category models.Category
	if err := h.DB.Collection("categories").FindOne(ctx, bson.M{"_id": product.Category}).Decode(&category); err == nil {
		categoryName = category.Name
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": echo.Map{
			"product":      product,
			"reviews":      reviews,
			"categoryName": categoryName,
		},
	})
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product ID"})
	}

	ctx := c.Request().Context()
	products := h.DB.Collection("products")

	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{"success": false, "message": "Product not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	set, err := updateFields(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	// new uploads replace the old image set entirely
	files := imageFiles(c)
	if len(files) > 0 {
		h.deleteImages(ctx, product.Images)
		images, err := h.uploadImages(ctx, files)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Image upload failed"})
		}
		set["images"] = images
	}

	set["updatedAt"] = time.Now()

	var updated models.Product
	err = products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	h.indexProduct(c, updated)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product updated successfully",
		"product": updated,
	})
}

func (h *ProductHandler) RandomGroups(c echo.Context) error {
	groupCount := intQueryDefault(c, "groups", 4)
	groupSize := intQueryDefault(c, "size", 10)

	ctx := c.Request().Context()
	cursor, err := h.DB.Collection("products").Find(ctx, bson.M{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	if len(products) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "No products found"})
	}

	return c.JSON(http.StatusOK, utils.RandomGroups(products, groupCount, groupSize))
}

// populateReviews loads review documents and their author name/email.
func (h *ProductHandler) populateReviews(ctx context.Context, ids []primitive.ObjectID) ([]echo.Map, error) {
	out := []echo.Map{}
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := h.DB.Collection("reviews").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reviews []models.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}

	userIDs := make([]primitive.ObjectID, 0, len(reviews))
	for _, r := range reviews {
		userIDs = append(userIDs, r.User)
	}
	authors := map[primitive.ObjectID]models.User{}
	if len(userIDs) > 0 {
		uc, err := h.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
		if err != nil {
			return nil, err
		}
		defer uc.Close(ctx)
		var users []models.User
		if err := uc.All(ctx, &users); err != nil {
			return nil, err
		}
		for _, u := range users {
			authors[u.ID] = u
		}
	}

	for _, r := range reviews {
		author := authors[r.User]
		out = append(out, echo.Map{
			"id":      r.ID,
			"rating":  r.Rating,
			"comment": r.Comment,
			"likes":   len(r.Likes),
			"user": echo.Map{
				"name":  author.Name,
				"email": author.Email,
			},
		})
	}
	return out, nil
}

func (h *ProductHandler) uploadImages(ctx context.Context, files []*multipart.FileHeader) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	if h.Storage == nil {
		return images, nil
	}
	if len(files) > maxProductImages {
		files = files[:maxProductImages]
	}
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		key := storage.ObjectKey(fh.Filename)
		url, err := h.Storage.Put(ctx, key, src, fh.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, models.ProductImage{URL: url, Key: key})
	}
	return images, nil
}

// deleteImages fans out one delete per stored object, waits for all of them
// and returns the keys that could not be removed.
func (h *ProductHandler) deleteImages(ctx context.Context, images []models.ProductImage) []string {
	if h.Storage == nil || len(images) == 0 {
		return nil
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	for _, img := range images {
		img := img
		g.Go(func() error {
			if err := h.Storage.Delete(ctx, img.Key); err != nil {
				h.Log.Warn("image delete failed", "key", img.Key, "err", err)
				mu.Lock()
				failed = append(failed, img.Key)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return failed
}

func (h *ProductHandler) indexProduct(c echo.Context, p models.Product) {
	if err := h.Search.IndexProduct(c.Request().Context(), p); err != nil {
		h.Log.Warn("search index failed", "productID", p.ID.Hex(), "err", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["productID"].(string)
	if err := h.Events.Publish(ctx, key, event); err != nil {
		h.Log.Warn("event publish failed", "type", event["type"], "err", err)
	}
}

func imageFiles(c echo.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["images"]
}

// updateFields collects only the supplied form/JSON fields into a $set doc.
func updateFields(c echo.Context) (bson.M, error) {
	set := bson.M{}

	var req struct {
		Name          *string  `json:"name" form:"name"`
		Description   *string  `json:"description" form:"description"`
		Price         *float64 `json:"price" form:"price"`
		DiscountPrice *float64 `json:"discountPrice" form:"discountPrice"`
		Stock         *int     `json:"stock" form:"stock"`
		Category      *string  `json:"category" form:"category"`
		Brand         *string  `json:"brand" form:"brand"`
		Seller        *string  `json:"seller" form:"seller"`
		Sizes         []string `json:"sizes" form:"sizes"`
		Colors        []string `json:"colors" form:"colors"`
		IsFeatured    *bool    `json:"isFeatured" form:"isFeatured"`
		IsPublished   *bool    `json:"isPublished" form:"isPublished"`
	}
	if err := c.Bind(&req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Price != nil {
		set["price"] = *req.Price
	}
	if req.DiscountPrice != nil {
		set["discountPrice"] = *req.DiscountPrice
	}
	if req.Stock != nil {
		set["stock"] = *req.Stock
	}
	if req.Category != nil {
		categoryID, err := primitive.ObjectIDFromHex(*req.Category)
		if err != nil {
			return nil, err
		}
		set["category"] = categoryID
	}
	if req.Brand != nil {
		set["brand"] = *req.Brand
	}
	if req.Seller != nil {
		set["seller"] = *req.Seller
	}
	if req.Sizes != nil {
		set["sizes"] = req.Sizes
	}
	if req.Colors != nil {
		set["colors"] = req.Colors
	}
	if req.IsFeatured != nil {
		set["isFeatured"] = *req.IsFeatured
	}
	if req.IsPublished != nil {
		set["isPublished"] = *req.IsPublished
	}
	return set, nil
}

// parseSort turns "price", "-price" or "price,-rating" into a sort doc.
func parseSort(expr string) bson.D {
	if expr == "" {
		expr = "-createdAt"
	}
	sort := bson.D{}
	for _, field := range strings.Split(expr, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	return sort
}

func intQueryDefault(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return def
}
