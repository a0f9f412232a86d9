package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skewcube/skewcube-backend-go/events"
	"github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/models"
)

type OrderHandler struct {
	DB     *mongo.Database
	Events *events.Producer
	Log    *slog.Logger
}

type placeOrderRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *OrderHandler) Place(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid payment method"})
	}

	if len(user.Cart) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Cart is empty"})
	}

	ctx := c.Request().Context()
	products := h.DB.Collection("products")

	// line prices are snapshotted from the current catalog price
	items := make([]models.OrderItem, 0, len(user.Cart))
	var totalPrice float64
	for _, entry := range user.Cart {
		var product models.Product
		if err := products.FindOne(ctx, bson.M{"_id": entry.ProductID}).Decode(&product); err != nil {
			if err == mongo.ErrNoDocuments {
				return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch product"})
		}
		linePrice := product.Price * float64(entry.Quantity)
		items = append(items, models.OrderItem{
			Product:  product.ID,
			Quantity: entry.Quantity,
			Price:    linePrice,
		})
		totalPrice += linePrice
	}

	now := time.Now()
	order := models.Order{
		ID:            primitive.NewObjectID(),
		User:          user.ID,
		Items:         items,
		TotalPrice:    totalPrice,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
		ShippingAddress: models.ShippingAddress{
			FullName: user.Name,
			Street:   user.Address.Street,
			City:     user.Address.City,
			State:    user.Address.State,
			Country:  user.Address.Country,
			PinCode:  user.Address.PinCode,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := h.DB.Collection("orders").InsertOne(ctx, order); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create order"})
	}

	// history append and cart clear commit in one document update
	_, err := h.DB.Collection("users").UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$push": bson.M{"orders": models.OrderRef{OrderID: order.ID}},
		"$set":  bson.M{"cart": []models.CartItem{}, "updatedAt": now},
	})
	if err != nil {
		h.Log.Error("order placed but user update failed", "orderID", order.ID.Hex(), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update user after order"})
	}

	h.publish(c, map[string]interface{}{
		"type":       "order_placed",
		"orderID":    order.ID.Hex(),
		"userID":     user.ID.Hex(),
		"totalPrice": totalPrice,
	})

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListAdmin(c echo.Context) error {
	ctx := c.Request().Context()

	cursor, err := h.DB.Collection("orders").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	out, err := h.joinOrders(ctx, orders, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	ids := make([]primitive.ObjectID, 0, len(user.Orders))
	for _, ref := range user.Orders {
		ids = append(ids, ref.OrderID)
	}

	orders := []models.Order{}
	ctx := c.Request().Context()
	if len(ids) > 0 {
		cursor, err := h.DB.Collection("orders").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &orders); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
		}
	}

	out, err := h.joinOrders(ctx, orders, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid order ID"})
	}

	ctx := c.Request().Context()
	orders := h.DB.Collection("orders")

	var order models.Order
	if err := orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Order not found"})
	}

	if user.Role != models.RoleAdmin && order.User != user.ID {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Unauthorized to cancel this order"})
	}

	if !models.Cancellable(order.OrderStatus) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Order cannot be canceled at this stage"})
	}

	order.OrderStatus = models.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	_, err = orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{
		"orderStatus": order.OrderStatus,
		"updatedAt":   order.UpdatedAt,
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	h.publish(c, map[string]interface{}{
		"type":    "order_status_changed",
		"orderID": orderID.Hex(),
		"status":  string(models.OrderStatusCancelled),
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid order ID"})
	}

	status := models.OrderStatus(c.Param("orderStatus"))
	if !models.ValidStatusUpdate(status) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid order status"})
	}

	ctx := c.Request().Context()
	now := time.Now()
	set := bson.M{"orderStatus": status, "updatedAt": now}
	if status == models.OrderStatusDelivered {
		set["deliveredAt"] = now
	}

	var order models.Order
	err = h.DB.Collection("orders").FindOneAndUpdate(ctx, bson.M{"_id": orderID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Order not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	h.publish(c, map[string]interface{}{
		"type":    "order_status_changed",
		"orderID": orderID.Hex(),
		"status":  string(status),
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Order status updated successfully",
		"order":   order,
	})
}

func (h *OrderHandler) Delete(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid order ID"})
	}

	ctx := c.Request().Context()
	orders := h.DB.Collection("orders")

	var order models.Order
	if err := orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Order not found"})
	}

	// drop the history pointer first so a failed delete leaves no dangling ref
	_, err = h.DB.Collection("users").UpdateOne(ctx, bson.M{"_id": order.User}, bson.M{
		"$pull": bson.M{"orders": bson.M{"orderId": orderID}},
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	if _, err := orders.DeleteOne(ctx, bson.M{"_id": orderID}); err != nil {
		h.Log.Error("order history pruned but order delete failed", "orderID", orderID.Hex(), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

// joinOrders attaches product summaries (and user summaries for admins).
func (h *OrderHandler) joinOrders(ctx context.Context, orders []models.Order, withUser bool) ([]echo.Map, error) {
	productIDs := []primitive.ObjectID{}
	userIDs := []primitive.ObjectID{}
	for _, o := range orders {
		userIDs = append(userIDs, o.User)
		for _, item := range o.Items {
			productIDs = append(productIDs, item.Product)
		}
	}

	productsByID := map[primitive.ObjectID]models.Product{}
	if len(productIDs) > 0 {
		cursor, err := h.DB.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			return nil, err
		}
		for _, p := range products {
			productsByID[p.ID] = p
		}
	}

	usersByID := map[primitive.ObjectID]models.User{}
	if withUser && len(userIDs) > 0 {
		cursor, err := h.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		var users []models.User
		if err := cursor.All(ctx, &users); err != nil {
			return nil, err
		}
		for _, u := range users {
			usersByID[u.ID] = u
		}
	}

	out := []echo.Map{}
	for _, o := range orders {
		items := make([]echo.Map, 0, len(o.Items))
		for _, item := range o.Items {
			entry := echo.Map{
				"quantity": item.Quantity,
				"price":    item.Price,
			}
			if p, ok := productsByID[item.Product]; ok {
				entry["product"] = echo.Map{
					"id":            p.ID,
					"name":          p.Name,
					"price":         p.Price,
					"description":   p.Description,
					"images":        p.Images,
					"brand":         p.Brand,
					"discountPrice": p.DiscountPrice,
				}
			} else {
				entry["product"] = echo.Map{"id": item.Product}
			}
			items = append(items, entry)
		}

		row := echo.Map{
			"id":              o.ID,
			"items":           items,
			"totalPrice":      o.TotalPrice,
			"paymentMethod":   o.PaymentMethod,
			"paymentStatus":   o.PaymentStatus,
			"orderStatus":     o.OrderStatus,
			"shippingAddress": o.ShippingAddress,
			"deliveredAt":     o.DeliveredAt,
			"createdAt":       o.CreatedAt,
		}
		if withUser {
			if u, ok := usersByID[o.User]; ok {
				row["user"] = echo.Map{"id": u.ID, "name": u.Name, "email": u.Email, "phone": u.Phone}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (h *OrderHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["orderID"].(string)
	if err := h.Events.Publish(ctx, key, event); err != nil {
		h.Log.Warn("event publish failed", "type", event["type"], "err", err)
	}
}
