package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/skewcube/skewcube-backend-go/models"
)

func (env *testEnv) setCart(user *models.User, items []models.CartItem) {
	user.Cart = items
	_, err := env.db.Collection("users").UpdateOne(context.Background(),
		bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"cart": items}})
	require.NoError(env.t, err)
}

func (env *testEnv) placeOrder(user *models.User) models.Order {
	rec, c := env.request(http.MethodPost, "/order", map[string]interface{}{
		"paymentMethod": "COD",
	}, user)
	require.NoError(env.t, env.order.Place(c))
	require.Equal(env.t, http.StatusCreated, rec.Code)

	var order models.Order
	decodeInto(env.t, rec.Body.Bytes(), &order)
	return order
}

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 2}})

	order := env.placeOrder(&user)

	require.InDelta(t, 20, order.TotalPrice, 1e-9)
	require.Len(t, order.Items, 1)
	require.Equal(t, product.ID, order.Items[0].Product)
	require.Equal(t, 2, order.Items[0].Quantity)
	require.InDelta(t, 20, order.Items[0].Price, 1e-9)
	require.Equal(t, models.OrderStatusPending, order.OrderStatus)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, user.Address.Street, order.ShippingAddress.Street)

	fresh := env.getUser(user.ID)
	require.Empty(t, fresh.Cart, "cart clears once the order is placed")
	require.Len(t, fresh.Orders, 1)
	require.Equal(t, order.ID, fresh.Orders[0].OrderID)
}

func TestPlaceOrderPriceFrozenAfterCatalogChange(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer2@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})

	order := env.placeOrder(&user)

	_, err := env.db.Collection("products").UpdateOne(context.Background(),
		bson.M{"_id": product.ID}, bson.M{"$set": bson.M{"price": 99.0}})
	require.NoError(t, err)

	stored := env.getOrder(order.ID)
	require.InDelta(t, 10, stored.Items[0].Price, 1e-9, "line price stays as charged")
	require.InDelta(t, 10, stored.TotalPrice, 1e-9)
}

func TestPlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer3@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)

	// empty cart
	rec, c := env.request(http.MethodPost, "/order", map[string]interface{}{
		"paymentMethod": "COD",
	}, &user)
	require.NoError(t, env.order.Place(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown payment method
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	rec, c = env.request(http.MethodPost, "/order", map[string]interface{}{
		"paymentMethod": "Barter",
	}, &user)
	require.NoError(t, env.order.Place(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// cart entry pointing at a vanished product
	env.setCart(&user, []models.CartItem{{ProductID: primitive.NewObjectID(), Quantity: 1}})
	rec, c = env.request(http.MethodPost, "/order", map[string]interface{}{
		"paymentMethod": "COD",
	}, &user)
	require.NoError(t, env.order.Place(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrderByOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer4@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	order := env.placeOrder(&user)

	rec, c := env.request(http.MethodPut, "/ordercancel/x", nil, &user)
	setParams(c, "orderId", order.ID.Hex())
	require.NoError(t, env.order.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, models.OrderStatusCancelled, env.getOrder(order.ID).OrderStatus)
}

func TestCancelOrderForbiddenForStranger(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer5@example.com", models.RoleUser)
	stranger := env.createUser("stranger@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	order := env.placeOrder(&user)

	rec, c := env.request(http.MethodPut, "/ordercancel/x", nil, &stranger)
	setParams(c, "orderId", order.ID.Hex())
	require.NoError(t, env.order.Cancel(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, models.OrderStatusPending, env.getOrder(order.ID).OrderStatus)
}

func TestCancelOrderRejectedOnceShipped(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer6@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)

	for _, status := range []models.OrderStatus{models.OrderStatusShipped, models.OrderStatusDelivered} {
		env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
		order := env.placeOrder(&user)
		_, err := env.db.Collection("orders").UpdateOne(context.Background(),
			bson.M{"_id": order.ID}, bson.M{"$set": bson.M{"orderStatus": status}})
		require.NoError(t, err)

		rec, c := env.request(http.MethodPut, "/ordercancel/x", nil, &user)
		setParams(c, "orderId", order.ID.Hex())
		require.NoError(t, env.order.Cancel(c))
		require.Equal(t, http.StatusBadRequest, rec.Code, "status %s must not be cancellable", status)
	}
}

func TestUpdateStatusDeliveredStampsTime(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer7@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	order := env.placeOrder(&user)

	rec, c := env.request(http.MethodPut, "/order/x/status/x", nil, nil)
	setParams(c, "orderId", order.ID.Hex(), "orderStatus", "Delivered")
	require.NoError(t, env.order.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored := env.getOrder(order.ID)
	require.Equal(t, models.OrderStatusDelivered, stored.OrderStatus)
	require.NotNil(t, stored.DeliveredAt)
}

func TestUpdateStatusRejectsInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer8@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	order := env.placeOrder(&user)

	for _, status := range []string{"Cancelled", "Teleported"} {
		rec, c := env.request(http.MethodPut, "/order/x/status/x", nil, nil)
		setParams(c, "orderId", order.ID.Hex(), "orderStatus", status)
		require.NoError(t, env.order.UpdateStatus(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestDeleteOrderPrunesUserHistory(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("buyer9@example.com", models.RoleUser)
	product := env.createProduct("mug", 10)
	env.setCart(&user, []models.CartItem{{ProductID: product.ID, Quantity: 1}})
	order := env.placeOrder(&user)

	rec, c := env.request(http.MethodDelete, "/orderdelete/x", nil, nil)
	setParams(c, "orderId", order.ID.Hex())
	require.NoError(t, env.order.Delete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := env.db.Collection("orders").CountDocuments(context.Background(), bson.M{"_id": order.ID})
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, env.getUser(user.ID).Orders)

	// deleting again reports not found
	rec, c = env.request(http.MethodDelete, "/orderdelete/x", nil, nil)
	setParams(c, "orderId", order.ID.Hex())
	require.NoError(t, env.order.Delete(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
