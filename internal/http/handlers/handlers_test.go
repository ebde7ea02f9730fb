package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/notify"
	"github.com/hongminglow/farmconnect/internal/services"
	"github.com/hongminglow/farmconnect/internal/storage/memory"
)

const testPassword = "correct-horse-battery"

func register(t *testing.T, a *app, email string, userType models.UserType) models.User {
	t.Helper()
	rec, env := a.do(t, http.MethodPost, "/register", map[string]any{
		"email":     email,
		"password":  testPassword,
		"full_name": "Test " + string(userType),
		"user_type": userType,
		"location":  "Nakuru",
	})
	expectStatus(t, rec, http.StatusCreated)
	var out dto.LoginResponse
	decodeData(t, env, &out)
	return out.User
}

func logout(t *testing.T, a *app) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/logout", nil)
	expectStatus(t, rec, http.StatusSeeOther)
}

func TestAnonymousRequestsAreGated(t *testing.T) {
	a := newApp(t, memory.New())

	rec, _ := a.do(t, http.MethodGet, "/dashboard", nil)
	expectStatus(t, rec, http.StatusFound)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec, _ = a.do(t, http.MethodGet, "/", nil)
	expectStatus(t, rec, http.StatusFound)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec, _ = a.do(t, http.MethodPost, "/products", map[string]any{"name": "Kale"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec, env := a.do(t, http.MethodGet, "/session", nil)
	expectStatus(t, rec, http.StatusOK)
	var snap dto.SessionResponse
	decodeData(t, env, &snap)
	assert.Equal(t, "anonymous", snap.State)
	assert.Nil(t, snap.User)

	rec, _ = a.do(t, http.MethodGet, "/login", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newApp(t, memory.New())

	user := register(t, a, "amina@example.com", models.Farmer)
	assert.Equal(t, models.Farmer, user.UserType)
	assert.NotEmpty(t, user.ID)

	rec, _ := a.do(t, http.MethodGet, "/login", nil)
	expectStatus(t, rec, http.StatusSeeOther)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec, env := a.do(t, http.MethodGet, "/profile", nil)
	expectStatus(t, rec, http.StatusOK)
	var profile models.User
	decodeData(t, env, &profile)
	assert.Equal(t, user.ID, profile.ID)

	logout(t, a)
	_, ok := a.sessions.User()
	assert.False(t, ok)

	rec, env = a.do(t, http.MethodPost, "/login", dto.LoginRequest{Email: "amina@example.com", Password: "wrong-password"})
	expectStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "invalid_credentials", env.Error)

	rec, env = a.do(t, http.MethodPost, "/login", dto.LoginRequest{Email: "amina@example.com", Password: testPassword})
	expectStatus(t, rec, http.StatusOK)
	var login dto.LoginResponse
	decodeData(t, env, &login)
	assert.Equal(t, user.ID, login.User.ID)

	rec, env = a.do(t, http.MethodGet, "/notifications", nil)
	expectStatus(t, rec, http.StatusOK)
	var notices []notify.Notice
	decodeData(t, env, &notices)
	require.NotEmpty(t, notices)
	assert.Equal(t, "Signed in successfully!", notices[len(notices)-1].Message)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	a := newApp(t, memory.New())

	rec, env := a.do(t, http.MethodPost, "/register", map[string]any{
		"email": "amina@example.com", "password": testPassword, "user_type": "admin",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "invalid_input", env.Error)

	rec, _ = a.do(t, http.MethodPost, "/register", map[string]any{"email": "amina@example.com", "surprise": true})
	expectStatus(t, rec, http.StatusBadRequest)

	register(t, a, "amina@example.com", models.Buyer)
	logout(t, a)
	rec, env = a.do(t, http.MethodPost, "/register", map[string]any{
		"email": "amina@example.com", "password": testPassword, "user_type": "buyer",
	})
	expectStatus(t, rec, http.StatusConflict)
	assert.Equal(t, "user_already_exists", env.Error)
}

func TestProfileUpdate(t *testing.T) {
	a := newApp(t, memory.New())
	register(t, a, "amina@example.com", models.Farmer)

	rec, env := a.do(t, http.MethodPatch, "/profile", map[string]any{"location": "Eldoret"})
	expectStatus(t, rec, http.StatusOK)
	var updated models.User
	decodeData(t, env, &updated)
	assert.Equal(t, "Eldoret", updated.Location)
	assert.Equal(t, "Test farmer", updated.FullName)

	user, _ := a.sessions.User()
	assert.Equal(t, "Eldoret", user.Location)

	rec, _ = a.do(t, http.MethodPatch, "/profile", map[string]any{"user_type": "buyer"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestProductLifecycle(t *testing.T) {
	a := newApp(t, memory.New())
	farmer := register(t, a, "amina@example.com", models.Farmer)

	rec, env := a.do(t, http.MethodPost, "/products", dto.CreateProductRequest{
		Name: "Tomatoes", Category: "vegetables", Price: 2.4, Quantity: 50, Unit: "kg",
	})
	expectStatus(t, rec, http.StatusCreated)
	var product models.Product
	decodeData(t, env, &product)
	assert.Equal(t, farmer.ID, product.FarmerID)
	assert.Equal(t, "Nakuru", product.Location)

	rec, env = a.do(t, http.MethodGet, "/products?mine=true", nil)
	expectStatus(t, rec, http.StatusOK)
	var page models.Page[models.Product]
	decodeData(t, env, &page)
	assert.Equal(t, 1, page.Count)

	rec, env = a.do(t, http.MethodGet, "/products?page=9223372036854775807", nil)
	expectStatus(t, rec, http.StatusOK)
	var far models.Page[models.Product]
	decodeData(t, env, &far)
	assert.Equal(t, 1, far.Count)
	assert.Empty(t, far.Items)

	rec, env = a.do(t, http.MethodPatch, "/products/"+product.ID, map[string]any{"price": 3.1})
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, env, &product)
	assert.Equal(t, 3.1, product.Price)

	rec, env = a.do(t, http.MethodGet, "/products/categories", nil)
	expectStatus(t, rec, http.StatusOK)
	var cats []string
	decodeData(t, env, &cats)
	assert.Equal(t, []string{"vegetables"}, cats)

	rec, _ = a.do(t, http.MethodDelete, "/products/"+product.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = a.do(t, http.MethodGet, "/products/"+product.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)

	logout(t, a)
	register(t, a, "buyer@example.com", models.Buyer)
	rec, env = a.do(t, http.MethodPost, "/products", dto.CreateProductRequest{
		Name: "Beans", Category: "legumes", Price: 1, Quantity: 1, Unit: "kg",
	})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	assert.Equal(t, "precondition_failed", env.Error)
}

func TestMessagingAndDashboard(t *testing.T) {
	a := newApp(t, memory.New())
	buyer := register(t, a, "buyer@example.com", models.Buyer)
	logout(t, a)
	farmer := register(t, a, "amina@example.com", models.Farmer)

	for i := 0; i < 2; i++ {
		rec, _ := a.do(t, http.MethodPost, "/messages/"+buyer.ID, dto.SendMessageRequest{Content: fmt.Sprintf("offer %d", i)})
		expectStatus(t, rec, http.StatusCreated)
	}
	logout(t, a)

	rec, env := a.do(t, http.MethodPost, "/login", dto.LoginRequest{Email: "buyer@example.com", Password: testPassword})
	expectStatus(t, rec, http.StatusOK)

	rec, env = a.do(t, http.MethodGet, "/dashboard", nil)
	expectStatus(t, rec, http.StatusOK)
	var dash services.DashboardData
	decodeData(t, env, &dash)
	assert.Equal(t, 2, dash.UnreadMessages)

	rec, env = a.do(t, http.MethodGet, "/messages", nil)
	expectStatus(t, rec, http.StatusOK)
	var inbox []models.Conversation
	decodeData(t, env, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, farmer.ID, inbox[0].CounterpartID)

	rec, env = a.do(t, http.MethodGet, "/messages/"+farmer.ID+"?page_size=1", nil)
	expectStatus(t, rec, http.StatusOK)
	var conv models.Page[models.Message]
	decodeData(t, env, &conv)
	assert.Equal(t, 2, conv.Count)
	assert.Len(t, conv.Items, 1)

	rec, _ = a.do(t, http.MethodPost, "/messages/"+farmer.ID+"/read", nil)
	expectStatus(t, rec, http.StatusOK)

	rec, env = a.do(t, http.MethodGet, "/dashboard", nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, env, &dash)
	assert.Zero(t, dash.UnreadMessages)

	rec, env = a.do(t, http.MethodGet, "/buyers", nil)
	expectStatus(t, rec, http.StatusOK)
	var buyers models.Page[models.User]
	decodeData(t, env, &buyers)
	assert.Equal(t, 1, buyers.Count)
}

func TestAlertsAndPrices(t *testing.T) {
	a := newApp(t, memory.New())
	register(t, a, "buyer@example.com", models.Buyer)

	rec, env := a.do(t, http.MethodPost, "/alerts", dto.CreateAlertRequest{Product: "Maize", MinPrice: 0.4, MaxPrice: 0.7})
	expectStatus(t, rec, http.StatusCreated)
	var alert models.PriceAlert
	decodeData(t, env, &alert)
	assert.True(t, alert.Active)

	rec, env = a.do(t, http.MethodPatch, "/alerts/"+alert.ID, dto.ToggleAlertRequest{Active: false})
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, env, &alert)
	assert.False(t, alert.Active)

	rec, _ = a.do(t, http.MethodPost, "/alerts", dto.CreateAlertRequest{Product: "Maize", MinPrice: 2, MaxPrice: 1})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec, env = a.do(t, http.MethodGet, "/market-prices?product=maize", nil)
	expectStatus(t, rec, http.StatusOK)
	var prices dto.MarketPricesResponse
	decodeData(t, env, &prices)
	assert.Zero(t, prices.Count)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t, memory.New())

	rec, env := a.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	var status map[string]string
	decodeData(t, env, &status)
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "0", status["orphaned_signups"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = a.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, rec, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "farmconnect_http_requests_total")

	rec, _ = a.do(t, http.MethodGet, "/nowhere", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestHealthReportsOrphanedSignUps(t *testing.T) {
	a := newApp(t, memory.New())
	ctx := context.Background()
	identity, err := a.client.SignUp(ctx, "amina@example.com", testPassword)
	require.NoError(t, err)
	fields := models.ProfileFields{FullName: "Amina", UserType: models.Farmer}
	require.NoError(t, a.client.RecordOrphanedIdentity(ctx, identity, fields, errors.New("insert failed")))

	rec, env := a.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	var status map[string]string
	decodeData(t, env, &status)
	assert.Equal(t, "1", status["orphaned_signups"])

	rec, _ = a.do(t, http.MethodPost, "/register/resume", fields)
	expectStatus(t, rec, http.StatusCreated)

	_, env = a.do(t, http.MethodGet, "/health", nil)
	decodeData(t, env, &status)
	assert.Equal(t, "0", status["orphaned_signups"])
}
