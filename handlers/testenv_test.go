package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/skewcube/skewcube-backend-go/database"
	"github.com/skewcube/skewcube-backend-go/logging"
	"github.com/skewcube/skewcube-backend-go/middleware"
	"github.com/skewcube/skewcube-backend-go/models"
	"github.com/skewcube/skewcube-backend-go/search"
)

// testEnv wires the handlers against a live MongoDB named by MONGO_TEST_URI.
// Tests are skipped when the variable is unset.
type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *mongo.Database

	auth     *AuthHandler
	category *CategoryHandler
	product  *ProductHandler
	cart     *CartHandler
	review   *ReviewHandler
	order    *OrderHandler
	dash     *DashboardHandler
}

func newTestEnv(t *testing.T) *testEnv {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	t.Setenv("JWT_SECRET", "test-secret")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("skewcube_test_%d", time.Now().UnixNano()))
	require.NoError(t, database.EnsureIndexes(ctx, db))

	logger := logging.New("error")
	searchSvc := &search.Service{DB: db, Index: "products_test"}

	env := &testEnv{
		t:        t,
		e:        echo.New(),
		db:       db,
		auth:     &AuthHandler{DB: db, Log: logger},
		category: &CategoryHandler{DB: db},
		product:  &ProductHandler{DB: db, Search: searchSvc, Log: logger},
		cart:     &CartHandler{DB: db},
		review:   &ReviewHandler{DB: db},
		order:    &OrderHandler{DB: db, Log: logger},
		dash:     &DashboardHandler{DB: db},
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return env
}

// request builds an echo context carrying a JSON body; when user is non-nil
// it is seeded on the context the way the auth middleware would.
func (env *testEnv) request(method, path string, body interface{}, user *models.User) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.ContextUserKey, *user)
	}
	return rec, c
}

func (env *testEnv) createUser(email, role string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(env.t, err)

	now := time.Now()
	user := models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Test User",
		Email:    email,
		Password: string(hash),
		Role:     role,
		Address: models.Address{
			Street: "1 Main St", City: "Pune", State: "MH", Country: "IN", PinCode: "411001",
		},
		Cart:      []models.CartItem{},
		Orders:    []models.OrderRef{},
		Wishlist:  []models.WishlistItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = env.db.Collection("users").InsertOne(context.Background(), user)
	require.NoError(env.t, err)
	return user
}

func (env *testEnv) createProduct(name string, price float64) models.Product {
	now := time.Now()
	product := models.Product{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Price:     price,
		Stock:     100,
		Category:  primitive.NewObjectID(),
		Brand:     "acme",
		Seller:    "skewcube in house",
		Images:    []models.ProductImage{},
		Reviews:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := env.db.Collection("products").InsertOne(context.Background(), product)
	require.NoError(env.t, err)
	return product
}

func (env *testEnv) getUser(id primitive.ObjectID) models.User {
	var user models.User
	err := env.db.Collection("users").FindOne(context.Background(), bson.M{"_id": id}).Decode(&user)
	require.NoError(env.t, err)
	return user
}

func (env *testEnv) getProduct(id primitive.ObjectID) models.Product {
	var product models.Product
	err := env.db.Collection("products").FindOne(context.Background(), bson.M{"_id": id}).Decode(&product)
	require.NoError(env.t, err)
	return product
}

func (env *testEnv) getOrder(id primitive.ObjectID) models.Order {
	var order models.Order
	err := env.db.Collection("orders").FindOne(context.Background(), bson.M{"_id": id}).Decode(&order)
	require.NoError(env.t, err)
	return order
}

func decodeInto(t *testing.T, data []byte, out interface{}) {
	require.NoError(t, json.Unmarshal(data, out))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func setParams(c echo.Context, pairs ...string) {
	names := make([]string, 0, len(pairs)/2)
	values := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		names = append(names, pairs[i])
		values = append(values, pairs[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}
