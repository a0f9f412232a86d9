package handlers

import (
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/models"
	"github.com/skewcube/skewcube-backend-go/utils"
)

type AuthHandler struct {
	DB  *mongo.Database
	Log *slog.Logger
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Name is required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email is not valid"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Password must be at least 8 characters"})
	}

	ctx := c.Request().Context()
	users := h.DB.Collection("users")

	if err := users.FindOne(ctx, bson.M{"email": req.Email}).Err(); err == nil {
		return c.JSON(http.StatusConflict, map[string]string{"message": "Email already registered"})
	} else if err != mongo.ErrNoDocuments {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create user"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to process password"})
	}

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashed),
		Role:      models.RoleUser,
		Cart:      []models.CartItem{},
		Orders:    []models.OrderRef{},
		Wishlist:  []models.WishlistItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, map[string]string{"message": "Email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create user"})
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to generate token"})
	}
	setTokenCookie(c, token)

	h.Log.Info("user registered", "userID", user.ID.Hex())
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "User added successfully",
		"data":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	var user models.User
	err := h.DB.Collection("users").FindOne(c.Request().Context(), bson.M{"email": req.Email}).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to generate token"})
	}
	setTokenCookie(c, token)

	// cart/wishlist/orders stay out of the login payload
	user.Cart, user.Wishlist, user.Orders = nil, nil, nil
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"data":    user,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *AuthHandler) ViewProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}
	user.Cart, user.Wishlist, user.Orders = nil, nil, nil
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "User profile retrieved successfully",
		"data":    user,
	})
}

type editProfileRequest struct {
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Address *models.Address `json:"address"`
}

func (h *AuthHandler) EditProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Please login"})
	}

	var req editProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request format"})
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Phone != "" {
		set["phone"] = req.Phone
	}
	if req.Address != nil {
		set["address"] = req.Address
	}

	var updated models.User
	err := h.DB.Collection("users").FindOneAndUpdate(
		c.Request().Context(),
		bson.M{"_id": user.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Server error while updating user"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"data":    updated,
	})
}

func setTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(utils.TokenTTL),
		HttpOnly: true,
	})
}
