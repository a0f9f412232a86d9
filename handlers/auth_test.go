package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/skewcube/skewcube-backend-go/models"
)

func TestSignupStoresDigestNotPlaintext(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/signup", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "s3cret-password",
	}, nil)
	require.NoError(t, env.auth.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.User
	err := env.db.Collection("users").FindOne(context.Background(), bson.M{"email": "asha@example.com"}).Decode(&stored)
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret-password")))
	require.Equal(t, models.RoleUser, stored.Role)
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("dup@example.com", models.RoleUser)

	rec, c := env.request(http.MethodPost, "/signup", map[string]string{
		"name":     "Dup",
		"email":    "dup@example.com",
		"password": "password123",
	}, nil)
	require.NoError(t, env.auth.Signup(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]string{
		{"email": "a@example.com", "password": "password123"},          // no name
		{"name": "A", "email": "not-an-email", "password": "password123"},
		{"name": "A", "email": "a@example.com", "password": "short"},
	}
	for _, body := range cases {
		rec, c := env.request(http.MethodPost, "/signup", body, nil)
		require.NoError(t, env.auth.Signup(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("login@example.com", models.RoleUser)

	rec, c := env.request(http.MethodPost, "/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	}, nil)
	require.NoError(t, env.auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	var found bool
	for _, ck := range cookies {
		if ck.Name == "token" && ck.Value != "" {
			found = true
		}
	}
	require.True(t, found, "login must set a token cookie")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("login2@example.com", models.RoleUser)

	rec, c := env.request(http.MethodPost, "/login", map[string]string{
		"email":    "login2@example.com",
		"password": "wrong-password",
	}, nil)
	require.NoError(t, env.auth.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, c = env.request(http.MethodPost, "/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	}, nil)
	require.NoError(t, env.auth.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEditProfilePartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("edit@example.com", models.RoleUser)

	rec, c := env.request(http.MethodPut, "/user/edit", map[string]string{
		"phone": "9999999999",
	}, &user)
	require.NoError(t, env.auth.EditProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	updated := env.getUser(user.ID)
	require.Equal(t, "9999999999", updated.Phone)
	require.Equal(t, user.Name, updated.Name)
	require.Equal(t, user.Address, updated.Address)
}
