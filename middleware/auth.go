package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skewcube/skewcube-backend-go/models"
	"github.com/skewcube/skewcube-backend-go/utils"
)

// ContextUserKey is the echo context key Auth stores the resolved user under.
const ContextUserKey = "user"

// Auth resolves the token cookie to a full user document and stores it on the
// request context. Requests without a valid cookie get 401.
func Auth(db *mongo.Database) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("token")
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Please login"})
			}

			claims, err := utils.ValidateJWT(cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token subject"})
			}

			var user models.User
			err = db.Collection("users").FindOne(c.Request().Context(), bson.M{"_id": userID}).Decode(&user)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User does not exist"})
			}

			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// AdminOnly rejects authenticated users whose role is not admin.
// It must run after Auth.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get(ContextUserKey).(models.User)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Please login"})
		}
		if user.Role != models.RoleAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Access denied. Admins only."})
		}
		return next(c)
	}
}

// CurrentUser returns the user placed on the context by Auth.
func CurrentUser(c echo.Context) (models.User, bool) {
	user, ok := c.Get(ContextUserKey).(models.User)
	return user, ok
}
