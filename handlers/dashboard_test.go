package handlers

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/skewcube/skewcube-backend-go/models"
)

func (env *testEnv) insertOrder(status models.OrderStatus, createdAt time.Time) models.Order {
	order := models.Order{
		ID:            primitive.NewObjectID(),
		User:          primitive.NewObjectID(),
		Items:         []models.OrderItem{},
		PaymentMethod: "COD",
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   status,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	_, err := env.db.Collection("orders").InsertOne(context.Background(), order)
	require.NoError(env.t, err)
	return order
}

func TestDashboardSummaryCounts(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	env.insertOrder(models.OrderStatusPending, now)
	env.insertOrder(models.OrderStatusPending, now)
	env.insertOrder(models.OrderStatusShipped, now)
	env.insertOrder(models.OrderStatusDelivered, now)
	env.insertOrder(models.OrderStatusCancelled, now)

	rec, c := env.request(http.MethodGet, "/dashboard", nil, nil)
	require.NoError(t, env.dash.Summary(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]interface{})
	require.EqualValues(t, 5, summary["totalOrders"])
	require.EqualValues(t, 2, summary["pendingOrders"])
	require.EqualValues(t, 1, summary["shippedOrders"])
	require.EqualValues(t, 1, summary["deliveredOrders"])
}

func TestDashboardTrendBucketsByDayAscending(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	env.insertOrder(models.OrderStatusPending, now.AddDate(0, 0, -2))
	env.insertOrder(models.OrderStatusPending, now.AddDate(0, 0, -1))
	env.insertOrder(models.OrderStatusShipped, now.AddDate(0, 0, -1))
	env.insertOrder(models.OrderStatusDelivered, now)
	// outside the trailing window, must not appear
	env.insertOrder(models.OrderStatusPending, now.AddDate(0, 0, -30))

	rec, c := env.request(http.MethodGet, "/dashboard?days=7", nil, nil)
	require.NoError(t, env.dash.Summary(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	raw := body["trends"].([]interface{})
	require.Len(t, raw, 3)

	dates := make([]string, 0, len(raw))
	counts := map[string]int{}
	for _, entry := range raw {
		bucket := entry.(map[string]interface{})
		date := bucket["date"].(string)
		dates = append(dates, date)
		counts[date] = int(bucket["totalOrders"].(float64))
	}
	require.True(t, sort.StringsAreSorted(dates), "buckets must be in ascending date order")

	require.Equal(t, 1, counts[now.AddDate(0, 0, -2).Format("2006-01-02")])
	require.Equal(t, 2, counts[now.AddDate(0, 0, -1).Format("2006-01-02")])
	require.Equal(t, 1, counts[now.Format("2006-01-02")])
}
