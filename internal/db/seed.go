package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/internal/models"
)

// DemoEmail is the account created by Seed; its presence marks a seeded database.
const DemoEmail = "demo@contractpro.com"

const day = 24 * time.Hour

// SeedSummary reports what Seed created.
type SeedSummary struct {
	Users, Clients, Contracts, Invoices int
	Skipped                             bool
}

type seedUser struct {
	name, email, password string
}

var seedUsers = []seedUser{
	{"Demo User", DemoEmail, "demo123"},
	{"John Freelancer", "john@example.com", "password123"},
	{"Sarah Designer", "sarah@example.com", "password123"},
}

var seedClients = []models.Client{
	{
		Name: "John Smith", Email: "john.smith@acmecorp.com", Company: "Acme Corporation", Phone: "+1234567890",
		Address: models.Address{Street: "123 Business Ave", City: "San Francisco", State: "CA", ZipCode: "94105"},
		Notes:   "Main contact for web development projects",
	},
	{
		Name: "Emily Johnson", Email: "emily@techsolutions.com", Company: "Tech Solutions Inc", Phone: "+1987654321",
		Address: models.Address{Street: "456 Innovation Dr", City: "Austin", State: "TX", ZipCode: "73301"},
		Notes:   "E-commerce development specialist",
	},
	{
		Name: "Michael Brown", Email: "mike@digitalmarketing.com", Company: "Digital Marketing Pro", Phone: "+1555123456",
		Address: models.Address{Street: "789 Marketing Blvd", City: "New York", State: "NY", ZipCode: "10001"},
		Notes:   "Regular client for branding projects",
	},
	{
		Name: "Lisa Wilson", Email: "lisa@startupventure.com", Company: "Startup Venture", Phone: "+1444789012",
		Address: models.Address{Street: "321 Startup St", City: "Seattle", State: "WA", ZipCode: "98101"},
		Notes:   "New startup, mobile app development",
	},
	{
		Name: "David Martinez", Email: "david@consultingfirm.com", Company: "Elite Consulting", Phone: "+1333567890",
		Address: models.Address{Street: "654 Professional Way", City: "Chicago", State: "IL", ZipCode: "60601"},
		Notes:   "Corporate consulting projects",
	},
}

// seedContract offsets are in days relative to the seed time; zero means unset.
type seedContract struct {
	client         int
	title, content string
	terms          string
	amount         int64
	status         models.ContractStatus
	sent, signed   int
	expires        int
}

var seedContracts = []seedContract{
	{0, "Website Development Project",
		"Complete website development including frontend and backend development, responsive design, and SEO optimization. Project includes 5 pages, contact forms, and content management system.",
		"Payment terms: 50% upfront, 50% on completion. Project timeline: 6 weeks.",
		5000, models.ContractStatusSigned, -15, -10, 30},
	{1, "E-commerce Platform Development",
		"Development of a comprehensive e-commerce platform with payment integration, inventory management, and admin dashboard. Includes mobile responsive design and security implementation.",
		"Payment terms: 30% upfront, 30% at milestone, 40% on completion.",
		8500, models.ContractStatusSent, -5, 0, 25},
	{2, "Brand Identity Design Package",
		"Complete brand identity design including logo design, business cards, letterhead, and brand guidelines. Includes 3 initial concepts and unlimited revisions.",
		"Payment terms: 50% upfront, 50% on final delivery.",
		2500, models.ContractStatusDraft, 0, 0, 45},
	{3, "Mobile App Development",
		"Native mobile application development for iOS and Android platforms. Includes UI/UX design, backend API development, and app store submission.",
		"Payment terms: 25% upfront, 25% at design approval, 25% at development completion, 25% at launch.",
		12000, models.ContractStatusSent, -2, 0, 20},
}

type seedItem struct {
	description string
	quantity    int64
	rate        int64
}

type seedInvoice struct {
	client          int
	items           []seedItem
	status          models.InvoiceStatus
	issued, due     int
	paid            int
	notes           string
	reminderDaysAgo []int
}

var seedInvoices = []seedInvoice{
	{0, []seedItem{{"Website Development - Frontend", 1, 2500}, {"Website Development - Backend", 1, 2000}, {"SEO Optimization", 1, 500}},
		models.InvoiceStatusPaid, -30, -15, -10, "Thank you for your business!", nil},
	{1, []seedItem{{"E-commerce Development - Phase 1", 1, 4000}, {"Payment Gateway Integration", 1, 1500}},
		models.InvoiceStatusSent, -10, 20, 0, "Phase 1 completion payment. Phase 2 invoice to follow.", nil},
	// Sent and past due; Recompute turns it overdue.
	{2, []seedItem{{"Logo Design - Initial Concepts", 3, 300}, {"Business Card Design", 1, 200}},
		models.InvoiceStatusSent, -25, -5, 0, "First payment for brand identity project.", []int{3}},
	{3, []seedItem{{"Mobile App - UI/UX Design", 1, 3000}, {"Project Setup and Planning", 1, 500}},
		models.InvoiceStatusPaid, -20, -5, -3, "First milestone payment for mobile app development.", nil},
	{4, []seedItem{{"Consulting Services - Q1", 40, 125}, {"Strategy Documentation", 1, 800}},
		models.InvoiceStatusSent, -5, 25, 0, "Monthly consulting retainer and strategy documentation.", nil},
}

var seedTaxRate = decimal.NewFromFloat(8.5)

// Seed loads the demo dataset. It does nothing when the demo user already
// exists, so running it twice is safe.
func Seed(ctx context.Context, conn *gorm.DB, clk clock.Clock, log zerolog.Logger) (SeedSummary, error) {
	var summary SeedSummary
	var existing models.User
	err := conn.WithContext(ctx).Where("email = ?", DemoEmail).First(&existing).Error
	if err == nil {
		log.Info().Str("email", DemoEmail).Msg("demo data already present, skipping seed")
		summary.Skipped = true
		return summary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return summary, fmt.Errorf("check demo user: %w", err)
	}

	now := clk.Now().UTC()
	at := func(days int) time.Time { return now.Add(time.Duration(days) * day) }

	err = conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]models.User, 0, len(seedUsers))
		for _, su := range seedUsers {
			hash, err := auth.HashPassword(su.password)
			if err != nil {
				return err
			}
			u := models.User{
				CreatedAt: now, UpdatedAt: now,
				Name: su.name, Email: su.email, Password: hash,
				Role: models.RoleFreelancer, IsEmailVerified: true, IsActive: true,
			}
			if su.email == DemoEmail {
				u.LastLoginAt = &now
			}
			users = append(users, u)
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		owner := users[0].ID

		clients := make([]models.Client, len(seedClients))
		for n, c := range seedClients {
			c.UserID, c.IsActive = owner, true
			c.CreatedAt, c.UpdatedAt = now, now
			clients[n] = c
		}
		if err := tx.Create(&clients).Error; err != nil {
			return fmt.Errorf("seed clients: %w", err)
		}

		for _, sc := range seedContracts {
			c := models.Contract{
				CreatedAt: now, UpdatedAt: now,
				UserID: owner, ClientID: clients[sc.client].ID,
				Title: sc.title, Content: sc.content, Terms: sc.terms,
				Amount: decimal.NewFromInt(sc.amount), Currency: models.CurrencyUSD,
				Status: sc.status, ExpiresAt: at(sc.expires), IsActive: true,
			}
			if sc.sent != 0 {
				sent := at(sc.sent)
				sig := models.NewSignatureID()
				c.SentAt, c.SignatureID = &sent, &sig
			}
			if sc.signed != 0 {
				signed := at(sc.signed)
				c.SignedAt = &signed
			}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed contract %q: %w", sc.title, err)
			}
			summary.Contracts++
		}

		var count int64
		if err := tx.Model(&models.Invoice{}).Count(&count).Error; err != nil {
			return err
		}
		for n, si := range seedInvoices {
			inv := models.Invoice{
				CreatedAt: now, UpdatedAt: now,
				UserID: owner, ClientID: clients[si.client].ID,
				InvoiceNumber: models.GenerateInvoiceNumber(count + int64(n)),
				TaxRate:       seedTaxRate, Currency: models.CurrencyUSD,
				Status:    si.status,
				IssueDate: at(si.issued), DueDate: at(si.due),
				Notes: si.notes, IsActive: true,
			}
			for _, it := range si.items {
				inv.Items = append(inv.Items, models.InvoiceItem{
					Description: it.description,
					Quantity:    decimal.NewFromInt(it.quantity),
					Rate:        decimal.NewFromInt(it.rate),
				})
			}
			if si.paid != 0 {
				paid := at(si.paid)
				inv.PaidAt = &paid
			}
			for pos, ago := range si.reminderDaysAgo {
				inv.Reminders = append(inv.Reminders, models.InvoiceReminder{
					Position: pos, DateSent: at(-ago),
					Type: models.ReminderFirst, Status: models.ReminderStatusSent,
				})
			}
			inv.Recompute(now)
			if err := tx.Create(&inv).Error; err != nil {
				return fmt.Errorf("seed invoice %s: %w", inv.InvoiceNumber, err)
			}
			summary.Invoices++
		}

		summary.Users, summary.Clients = len(users), len(clients)
		return nil
	})
	if err != nil {
		return SeedSummary{}, err
	}
	log.Info().
		Int("users", summary.Users).
		Int("clients", summary.Clients).
		Int("contracts", summary.Contracts).
		Int("invoices", summary.Invoices).
		Msg("demo data seeded")
	return summary, nil
}
