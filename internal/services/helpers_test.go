package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/internal/db"
	"github.com/contractpro/contractpro/internal/metrics"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/policy"
)

var t0 = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t   *testing.T
	db  *gorm.DB
	clk *testclock.Clock

	users     *UserService
	clients   *ClientService
	contracts *ContractService
	invoices  *InvoiceService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvAt(t, t0)
}

func newTestEnvAt(t *testing.T, start time.Time) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	clk := testclock.NewClock(start)
	deps := Deps{
		DB:      conn,
		Clock:   clk,
		Gate:    policy.NewAuthGate(conn, clk, time.Minute),
		Log:     zerolog.Nop(),
		Metrics: metrics.New(),
	}
	return &testEnv{
		t:         t,
		db:        conn,
		clk:       clk,
		users:     NewUserService(deps, auth.NewTokens("test-secret", time.Hour, clk)),
		clients:   NewClientService(deps),
		contracts: NewContractService(deps),
		invoices:  NewInvoiceService(deps),
		dashboard: NewDashboardService(deps),
	}
}

// tick moves the clock forward so records get distinct timestamps.
func (e *testEnv) tick() { e.clk.Advance(time.Minute) }

func (e *testEnv) advance(d time.Duration) { e.clk.Advance(d) }

func (e *testEnv) now() time.Time { return e.clk.Now().UTC() }

// signIn creates a user with role and returns a context carrying its id.
func (e *testEnv) signIn(name, email string, role models.Role) (*models.User, context.Context) {
	e.t.Helper()
	u := &models.User{Name: name, Email: email, Password: "x", Role: role, IsActive: true}
	require.NoError(e.t, e.db.Create(u).Error)
	return u, auth.WithUserID(context.Background(), u.ID)
}

func (e *testEnv) freelancer(email string) context.Context {
	_, ctx := e.signIn("Freelancer "+email, email, models.RoleFreelancer)
	return ctx
}

func (e *testEnv) newClient(ctx context.Context, email string) *models.Client {
	e.t.Helper()
	c, err := e.clients.Create(ctx, ClientInput{Name: "Acme Rep", Email: email, Company: "Acme"})
	require.NoError(e.t, err)
	e.tick()
	return c
}

func (e *testEnv) contractInput(clientID string, amount int64, expiresIn time.Duration) ContractInput {
	return ContractInput{
		ClientID:  clientID,
		Title:     "Website redesign",
		Content:   "Redesign the marketing site.",
		Amount:    decimal.NewFromInt(amount),
		ExpiresAt: e.now().Add(expiresIn),
	}
}

func (e *testEnv) newContract(ctx context.Context, clientID string, amount int64, expiresIn time.Duration) *models.Contract {
	e.t.Helper()
	c, err := e.contracts.Create(ctx, e.contractInput(clientID, amount, expiresIn))
	require.NoError(e.t, err)
	e.tick()
	return c
}

// sentContract creates a contract and sends it for signature.
func (e *testEnv) sentContract(ctx context.Context, clientID string, amount int64, expiresIn time.Duration) *models.Contract {
	e.t.Helper()
	c := e.newContract(ctx, clientID, amount, expiresIn)
	c, err := e.contracts.SendForSignature(ctx, c.ID)
	require.NoError(e.t, err)
	e.tick()
	return c
}

func (e *testEnv) signedContract(ctx context.Context, clientID string, amount int64) *models.Contract {
	e.t.Helper()
	c := e.sentContract(ctx, clientID, amount, 30*24*time.Hour)
	c, err := e.contracts.Sign(ctx, c.ID)
	require.NoError(e.t, err)
	e.tick()
	return c
}

// invoiceInput bills 10 x 100 at 8.5% tax, a total of 1085.
func (e *testEnv) invoiceInput(clientID string, dueIn time.Duration) InvoiceInput {
	return InvoiceInput{
		ClientID: clientID,
		Items: []ItemInput{
			{Description: "Design work", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(100)},
		},
		TaxRate: decimal.RequireFromString("8.5"),
		DueDate: e.now().Add(dueIn),
	}
}

func (e *testEnv) newInvoice(ctx context.Context, clientID string, dueIn time.Duration) *models.Invoice {
	e.t.Helper()
	inv, err := e.invoices.Create(ctx, e.invoiceInput(clientID, dueIn))
	require.NoError(e.t, err)
	e.tick()
	return inv
}

func (e *testEnv) sentInvoice(ctx context.Context, clientID string, dueIn time.Duration) *models.Invoice {
	e.t.Helper()
	inv := e.newInvoice(ctx, clientID, dueIn)
	inv, err := e.invoices.Send(ctx, inv.ID)
	require.NoError(e.t, err)
	e.tick()
	return inv
}

func (e *testEnv) paidInvoice(ctx context.Context, clientID string) *models.Invoice {
	e.t.Helper()
	inv := e.sentInvoice(ctx, clientID, 30*24*time.Hour)
	inv, err := e.invoices.MarkPaid(ctx, inv.ID)
	require.NoError(e.t, err)
	e.tick()
	return inv
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
