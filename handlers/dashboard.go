package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skewcube/skewcube-backend-go/models"
)

type DashboardHandler struct {
	DB *mongo.Database
}

type trendBucket struct {
	Date        string `bson:"_id" json:"date"`
	TotalOrders int    `bson:"totalOrders" json:"totalOrders"`
}

func (h *DashboardHandler) Summary(c echo.Context) error {
	days := intQueryDefault(c, "days", 7)

	ctx := c.Request().Context()
	orders := h.DB.Collection("orders")

	now := time.Now()
	from := now.AddDate(0, 0, -days)

	total, err := orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}
	shipped, err := orders.CountDocuments(ctx, bson.M{"orderStatus": models.OrderStatusShipped})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}
	pending, err := orders.CountDocuments(ctx, bson.M{"orderStatus": models.OrderStatusPending})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}
	delivered, err := orders.CountDocuments(ctx, bson.M{"orderStatus": models.OrderStatusDelivered})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": from, "$lte": now},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"totalOrders": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := orders.Aggregate(ctx, pipeline)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}
	defer cursor.Close(ctx)

	trends := []trendBucket{}
	if err := cursor.All(ctx, &trends); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dashboard data"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"summary": echo.Map{
			"totalOrders":     total,
			"shippedOrders":   shipped,
			"pendingOrders":   pending,
			"deliveredOrders": delivered,
		},
		"trends": trends,
	})
}
