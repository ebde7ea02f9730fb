package services_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/auth"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/cache"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/services"
	"github.com/hongminglow/farmconnect/internal/storage"
	"github.com/hongminglow/farmconnect/internal/storage/memory"
)

const password = "correct-horse-battery"

type env struct {
	db     *memory.Store
	client *backend.Client
	svc    services.Set
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memory.New()
	tokens := auth.NewTokenManager("test-secret", "farmconnect-test", time.Hour)
	client := backend.New(db, db, tokens, cache.NewMemory(), backend.WithHashCost(bcrypt.MinCost))
	return &env{db: db, client: client, svc: services.New(client)}
}

// register creates an identity and profile and leaves it signed in.
func (e *env) register(t *testing.T, email string, fields models.ProfileFields) models.User {
	t.Helper()
	ctx := context.Background()
	identity, err := e.client.SignUp(ctx, email, password)
	require.NoError(t, err)
	user, err := e.svc.Profiles.Create(ctx, identity.ID, identity.Email, fields)
	require.NoError(t, err)
	return user
}

func (e *env) signInAs(t *testing.T, email string) {
	t.Helper()
	_, err := e.client.SignInWithPassword(context.Background(), email, password)
	require.NoError(t, err)
}

func (e *env) listProduct(t *testing.T, owner models.User, name, category string) models.Product {
	t.Helper()
	p, err := e.svc.Products.Create(context.Background(), owner, models.Product{
		Name: name, Category: category, Price: 1.5, Quantity: 10, Unit: "kg",
	})
	require.NoError(t, err)
	return p
}

func TestProductListFiltersByFarmer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	other := e.register(t, "other@example.com", models.ProfileFields{UserType: models.Farmer})
	e.listProduct(t, other, "Kale", "vegetables")

	amina := e.register(t, "amina@example.com", models.ProfileFields{UserType: models.Farmer, Location: "Nakuru"})
	e.listProduct(t, amina, "Tomatoes", "vegetables")
	e.listProduct(t, amina, "Mangoes", "fruit")

	page, err := e.svc.Products.List(ctx, 1, 0, services.ProductFilter{FarmerID: amina.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Items, 2)
	for _, p := range page.Items {
		assert.Equal(t, amina.ID, p.FarmerID)
	}
	assert.Equal(t, "Mangoes", page.Items[0].Name, "newest first")

	page, err = e.svc.Products.List(ctx, 1, 0, services.ProductFilter{Category: "vegetables"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	cats, err := e.svc.Products.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fruit", "vegetables"}, cats)
}

func TestProductListPages(t *testing.T) {
	e := newEnv(t)
	farmer := e.register(t, "amina@example.com", models.ProfileFields{UserType: models.Farmer})
	for i := 0; i < 12; i++ {
		e.listProduct(t, farmer, fmt.Sprintf("Crate %d", i), "vegetables")
	}

	page, err := e.svc.Products.List(context.Background(), 2, 0, services.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Count)
	assert.Equal(t, services.DefaultProductPageSize, page.PageSize)
	assert.Len(t, page.Items, 2)

	page, err = e.svc.Products.List(context.Background(), math.MaxInt, 0, services.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Count)
	assert.Empty(t, page.Items)
}

func TestProductCreateDefaultsLocationAndRequiresFarmer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	farmer := e.register(t, "amina@example.com", models.ProfileFields{UserType: models.Farmer, Location: "Nakuru"})
	p := e.listProduct(t, farmer, "Tomatoes", "vegetables")
	assert.Equal(t, "Nakuru", p.Location)
	assert.NotEmpty(t, p.ID)

	buyer := e.register(t, "buyer@example.com", models.ProfileFields{UserType: models.Buyer})
	_, err := e.svc.Products.Create(ctx, buyer, models.Product{Name: "Beans", Category: "legumes", Unit: "kg"})
	var preErr *apperr.PreconditionError
	require.ErrorAs(t, err, &preErr)

	// Lying about the user type is still refused by the table policy.
	buyer.UserType = models.Farmer
	_, err = e.svc.Products.Create(ctx, buyer, models.Product{Name: "Beans", Category: "legumes", Unit: "kg"})
	var queryErr *apperr.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodePolicy, queryErr.Code)
}

func TestProductUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.register(t, "amina@example.com", models.ProfileFields{UserType: models.Farmer})
	p := e.listProduct(t, owner, "Tomatoes", "vegetables")

	price := 2.25
	updated, err := e.svc.Products.Update(ctx, owner, p.ID, models.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, "Tomatoes", updated.Name)

	intruder := e.register(t, "other@example.com", models.ProfileFields{UserType: models.Farmer})
	_, err = e.svc.Products.Update(ctx, intruder, p.ID, models.ProductUpdate{Price: &price})
	var queryErr *apperr.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodeNotFound, queryErr.Code)

	err = e.svc.Products.Delete(ctx, intruder, p.ID)
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodeNotFound, queryErr.Code)

	e.signInAs(t, "amina@example.com")
	require.NoError(t, e.svc.Products.Delete(ctx, owner, p.ID))
	_, err = e.svc.Products.Get(ctx, p.ID)
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodeNotFound, queryErr.Code)
}

func TestMessagesInboxAndReadState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	buyer := e.register(t, "buyer@example.com", models.ProfileFields{FullName: "Baraka", UserType: models.Buyer})
	farmer := e.register(t, "amina@example.com", models.ProfileFields{FullName: "Amina", UserType: models.Farmer})

	_, err := e.svc.Messages.Send(ctx, farmer.ID, buyer.ID, "Fresh tomatoes this week")
	require.NoError(t, err)
	_, err = e.svc.Messages.Send(ctx, farmer.ID, buyer.ID, "  50kg available  ")
	require.NoError(t, err)

	_, err = e.svc.Messages.Send(ctx, farmer.ID, buyer.ID, "   ")
	var preErr *apperr.PreconditionError
	require.ErrorAs(t, err, &preErr)

	// Only the sender may be the signed-in identity.
	_, err = e.svc.Messages.Send(ctx, buyer.ID, farmer.ID, "spoofed")
	var queryErr *apperr.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodePolicy, queryErr.Code)

	e.signInAs(t, "buyer@example.com")

	unread, err := e.svc.Messages.UnreadCount(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	inbox, err := e.svc.Messages.Inbox(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, farmer.ID, inbox[0].CounterpartID)
	assert.Equal(t, 2, inbox[0].Unread)
	assert.Equal(t, "50kg available", inbox[0].LastMessage.Content)
	require.NotNil(t, inbox[0].Counterpart)
	assert.Equal(t, "Amina", inbox[0].Counterpart.FullName)

	conv, err := e.svc.Messages.Conversation(ctx, buyer.ID, farmer.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, conv.Count)

	n, err := e.svc.Messages.MarkRead(ctx, buyer.ID, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err = e.svc.Messages.UnreadCount(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestBuyersDirectorySearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "baraka@example.com", models.ProfileFields{FullName: "Baraka Otieno", UserType: models.Buyer, Location: "Kisumu"})
	e.register(t, "wanjiru@example.com", models.ProfileFields{FullName: "Wanjiru", UserType: models.Buyer, Location: "Nairobi"})
	e.register(t, "amina@example.com", models.ProfileFields{FullName: "Amina", UserType: models.Farmer, Location: "Kisumu"})

	page, err := e.svc.Profiles.Buyers(ctx, 1, 0, services.BuyerFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	page, err = e.svc.Profiles.Buyers(ctx, 1, 0, services.BuyerFilter{Location: "kisu"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Baraka Otieno", page.Items[0].FullName)

	page, err = e.svc.Profiles.Buyers(ctx, 1, 0, services.BuyerFilter{Search: "WANJ"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "wanjiru@example.com", page.Items[0].Email)

	require.NoError(t, e.client.SignOut(ctx))
	_, err = e.svc.Profiles.Buyers(ctx, 1, 0, services.BuyerFilter{})
	var queryErr *apperr.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodePolicy, queryErr.Code)
}

func TestAlertsLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "buyer@example.com", models.ProfileFields{UserType: models.Buyer})

	_, err := e.svc.Alerts.Create(ctx, user.ID, "Maize", 5, 1)
	var preErr *apperr.PreconditionError
	require.ErrorAs(t, err, &preErr)

	alert, err := e.svc.Alerts.Create(ctx, user.ID, "Maize", 0.4, 0.7)
	require.NoError(t, err)
	assert.True(t, alert.Active)

	count, err := e.svc.Alerts.ActiveCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	alert, err = e.svc.Alerts.SetActive(ctx, user.ID, alert.ID, false)
	require.NoError(t, err)
	assert.False(t, alert.Active)

	count, err = e.svc.Alerts.ActiveCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	alerts, err := e.svc.Alerts.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func seedPrices(t *testing.T, db *memory.Store) {
	t.Helper()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Seed(storage.TableMarketPrices,
		storage.Row{"product": "Maize", "price": 0.55, "market": "Wakulima", "location": "Nairobi", "updated_at": base},
		storage.Row{"product": "Tomatoes", "price": 2.4, "market": "Central", "location": "Nairobi", "updated_at": base.Add(time.Hour)},
		storage.Row{"product": "Maize", "price": 0.6, "market": "Kibuye", "location": "Kisumu", "updated_at": base.Add(2 * time.Hour)},
	))
}

func TestMarketPrices(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedPrices(t, e.db)

	latest, err := e.svc.Prices.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "Kibuye", latest[0].Market)
	assert.Equal(t, "Tomatoes", latest[1].Product)

	page, err := e.svc.Prices.List(ctx, 1, 0, services.PriceFilter{Product: "maize"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	page, err = e.svc.Prices.List(ctx, 1, 0, services.PriceFilter{Location: "Kisumu"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	products, err := e.svc.Prices.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maize", "Tomatoes"}, products)

	_, err = e.client.Insert(ctx, storage.TableMarketPrices, storage.Row{"product": "Beans", "price": 1.0})
	var queryErr *apperr.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, apperr.CodePolicy, queryErr.Code)
}

func TestDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedPrices(t, e.db)

	buyer := e.register(t, "buyer@example.com", models.ProfileFields{UserType: models.Buyer})
	farmer := e.register(t, "amina@example.com", models.ProfileFields{UserType: models.Farmer})
	e.listProduct(t, farmer, "Tomatoes", "vegetables")
	_, err := e.svc.Alerts.Create(ctx, farmer.ID, "Maize", 0.4, 0.7)
	require.NoError(t, err)

	e.signInAs(t, "buyer@example.com")
	_, err = e.svc.Messages.Send(ctx, buyer.ID, farmer.ID, "Do you deliver?")
	require.NoError(t, err)

	buyerView, err := e.svc.Dashboard.Load(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, buyerView.MarketPrices, 3)
	assert.Empty(t, buyerView.Products)
	assert.Zero(t, buyerView.ActiveAlerts)

	e.signInAs(t, "amina@example.com")
	farmerView, err := e.svc.Dashboard.Load(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, 1, farmerView.ProductCount)
	assert.Equal(t, 1, farmerView.UnreadMessages)
	assert.Equal(t, 1, farmerView.ActiveAlerts)
}
