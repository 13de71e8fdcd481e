package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/internal/models"
)

const (
	deadlineWindow       = 30 * 24 * time.Hour
	contractUrgentDays   = 3
	activityContracts    = 5
	activityInvoices     = 5
	activityClients      = 3
	DefaultActivityLimit = 10
	DefaultProjectLimit  = 5
)

var (
	activeContractStatuses = []models.ContractStatus{models.ContractStatusSent, models.ContractStatusSigned}
	pendingInvoiceStatuses = []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusOverdue}
)

// Stats summarises a freelancer's business.
type Stats struct {
	TotalClients    int64           `json:"totalClients"`
	ActiveContracts int64           `json:"activeContracts"`
	PendingInvoices int64           `json:"pendingInvoices"`
	OverdueInvoices int64           `json:"overdueInvoices"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	MonthlyRevenue  decimal.Decimal `json:"monthlyRevenue"`
}

// RevenuePoint is the paid revenue of one calendar month.
type RevenuePoint struct {
	Year     int             `json:"year"`
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Invoices int             `json:"invoices"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	RelatedID   string    `json:"relatedId"`
}

// Deadline is an upcoming contract expiry or invoice due date.
type Deadline struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Client    string    `json:"client"`
	Date      time.Time `json:"date"`
	DaysUntil int       `json:"daysUntil"`
	Urgent    bool      `json:"urgent"`
}

// ClientStats summarises the work commissioned by a client account.
type ClientStats struct {
	ActiveProjects    int64           `json:"activeProjects"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	MonthlySpent      decimal.Decimal `json:"monthlySpent"`
	ActiveFreelancers int             `json:"activeFreelancers"`
	PendingPayments   int64           `json:"pendingPayments"`
}

// ClientProject is a contract as seen by its client.
type ClientProject struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Freelancer string          `json:"freelancer"`
	Deadline   time.Time       `json:"deadline"`
	Budget     decimal.Decimal `json:"budget"`
	Status     string          `json:"status"`
}

// FreelancerSummary aggregates the signed work of one freelancer for a client.
type FreelancerSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Projects    int             `json:"projects"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
}

// AdminStats covers the whole platform.
type AdminStats struct {
	TotalUsers       int64           `json:"totalUsers"`
	TotalFreelancers int64           `json:"totalFreelancers"`
	TotalClients     int64           `json:"totalClients"`
	ActiveProjects   int64           `json:"activeProjects"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	MonthlyRevenue   decimal.Decimal `json:"monthlyRevenue"`
	PendingApprovals int64           `json:"pendingApprovals"`
}

// DashboardService computes the read-only dashboard views.
type DashboardService struct {
	Deps
}

func NewDashboardService(d Deps) *DashboardService {
	return &DashboardService{Deps: d}
}

// refresh applies the deadline rules before aggregating so counts reflect
// current statuses. An empty userID refreshes every user's records.
func (s *DashboardService) refresh(ctx context.Context, userID string, now time.Time) error {
	if err := expireContracts(ctx, s.DB, userID, now); err != nil {
		return err
	}
	return markInvoicesOverdue(ctx, s.DB, userID, now)
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func sumDecimals(values []decimal.Decimal) decimal.Decimal {
	return lo.Reduce(values, func(acc decimal.Decimal, v decimal.Decimal, _ int) decimal.Decimal {
		return acc.Add(v)
	}, decimal.Zero)
}

// sum plucks column from q and adds it up exactly.
func sum(q *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := q.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, errors.Annotatef(err, "sum %s", column)
	}
	return sumDecimals(values), nil
}

// Stats returns the headline numbers of the caller's dashboard.
func (s *DashboardService) Stats(ctx context.Context) (*Stats, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.refresh(ctx, userID, now); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	contracts := func() *gorm.DB {
		return db.Model(&models.Contract{}).Where("user_id = ? AND is_active = ?", userID, true)
	}
	invoices := func() *gorm.DB {
		return db.Model(&models.Invoice{}).Where("user_id = ? AND is_active = ?", userID, true)
	}

	var st Stats
	if err := db.Model(&models.Client{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&st.TotalClients).Error; err != nil {
		return nil, errors.Annotate(err, "count clients")
	}
	if err := contracts().Where("status IN ?", activeContractStatuses).Count(&st.ActiveContracts).Error; err != nil {
		return nil, errors.Annotate(err, "count contracts")
	}
	if err := invoices().Where("status IN ?", pendingInvoiceStatuses).Count(&st.PendingInvoices).Error; err != nil {
		return nil, errors.Annotate(err, "count pending invoices")
	}
	if err := invoices().Where("status = ?", models.InvoiceStatusOverdue).Count(&st.OverdueInvoices).Error; err != nil {
		return nil, errors.Annotate(err, "count overdue invoices")
	}
	if st.TotalRevenue, err = sum(invoices().Where("status = ?", models.InvoiceStatusPaid), "total"); err != nil {
		return nil, err
	}
	from, to := monthBounds(now)
	st.MonthlyRevenue, err = sum(invoices().
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.InvoiceStatusPaid, from, to), "total")
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Revenue groups paid invoices by calendar month of payment, oldest first.
// period is "6months" (default) or "1year".
func (s *DashboardService) Revenue(ctx context.Context, period string) ([]RevenuePoint, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	start := now.AddDate(0, -6, 0)
	if period == "1year" {
		start = now.AddDate(-1, 0, 0)
	}

	var paid []models.Invoice
	err = s.DB.WithContext(ctx).Select("id", "total", "paid_at").
		Where("user_id = ? AND is_active = ? AND status = ? AND paid_at >= ? AND paid_at <= ?",
			userID, true, models.InvoiceStatusPaid, start, now).
		Find(&paid).Error
	if err != nil {
		return nil, errors.Annotate(err, "load paid invoices")
	}

	byMonth := lo.GroupBy(paid, func(inv models.Invoice) time.Time {
		p := inv.PaidAt.UTC()
		return time.Date(p.Year(), p.Month(), 1, 0, 0, 0, 0, time.UTC)
	})
	months := lo.Keys(byMonth)
	slices.SortFunc(months, func(a, b time.Time) int { return a.Compare(b) })
	return lo.Map(months, func(m time.Time, _ int) RevenuePoint {
		invs := byMonth[m]
		return RevenuePoint{
			Year:     m.Year(),
			Month:    m.Format("Jan"),
			Revenue:  sumDecimals(lo.Map(invs, func(inv models.Invoice, _ int) decimal.Decimal { return inv.Total })),
			Invoices: len(invs),
		}
	}), nil
}

// Activity merges recent contract, invoice and client events, newest first,
// and keeps at most limit of them.
func (s *DashboardService) Activity(ctx context.Context, limit int) ([]Activity, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultActivityLimit
	}
	db := s.DB.WithContext(ctx)
	clientName := func(c *models.Client) string {
		if c == nil {
			return ""
		}
		return c.Name
	}

	var contracts []models.Contract
	err = db.Preload("Client", preloadClientSummary).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").Limit(activityContracts).Find(&contracts).Error
	if err != nil {
		return nil, errors.Annotate(err, "recent contracts")
	}
	var invoices []models.Invoice
	err = db.Preload("Client", preloadClientSummary).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").Limit(activityInvoices).Find(&invoices).Error
	if err != nil {
		return nil, errors.Annotate(err, "recent invoices")
	}
	var clients []models.Client
	err = db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").Limit(activityClients).Find(&clients).Error
	if err != nil {
		return nil, errors.Annotate(err, "recent clients")
	}

	feed := make([]Activity, 0, len(contracts)+len(invoices)+len(clients))
	for _, c := range contracts {
		a := Activity{ID: c.ID, RelatedID: c.ID, Description: clientName(c.Client) + " - " + c.Title}
		switch {
		case c.SignedAt != nil:
			a.Type, a.Title, a.Timestamp = "contract_signed", "Contract signed", *c.SignedAt
		case c.SentAt != nil:
			a.Type, a.Title, a.Timestamp = "contract_sent", "Contract sent", *c.SentAt
		default:
			continue
		}
		feed = append(feed, a)
	}
	for _, inv := range invoices {
		switch {
		case inv.PaidAt != nil:
			feed = append(feed, Activity{
				ID: inv.ID, RelatedID: inv.ID, Type: "invoice_paid", Title: "Invoice paid",
				Description: fmt.Sprintf("%s - $%s", clientName(inv.Client), inv.Total.String()),
				Timestamp:   *inv.PaidAt,
			})
		case inv.Status == models.InvoiceStatusSent:
			feed = append(feed, Activity{
				ID: inv.ID, RelatedID: inv.ID, Type: "invoice_sent", Title: "Invoice sent",
				Description: clientName(inv.Client) + " - " + inv.InvoiceNumber,
				Timestamp:   inv.UpdatedAt,
			})
		}
	}
	for _, c := range clients {
		feed = append(feed, Activity{
			ID: c.ID, RelatedID: c.ID, Type: "client_added", Title: "New client added",
			Description: c.Name + " - " + c.Company,
			Timestamp:   c.CreatedAt,
		})
	}
	slices.SortStableFunc(feed, func(a, b Activity) int { return b.Timestamp.Compare(a.Timestamp) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// daysUntil rounds the remaining time up to whole days.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// UpcomingDeadlines lists sent contracts expiring and open invoices falling
// due within the next 30 days, soonest first.
func (s *DashboardService) UpcomingDeadlines(ctx context.Context) ([]Deadline, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.refresh(ctx, userID, now); err != nil {
		return nil, err
	}
	until := now.Add(deadlineWindow)
	db := s.DB.WithContext(ctx)

	var contracts []models.Contract
	err = db.Preload("Client", preloadClientSummary).
		Where("user_id = ? AND is_active = ? AND status = ? AND expires_at >= ? AND expires_at <= ?",
			userID, true, models.ContractStatusSent, now, until).
		Order("expires_at").Find(&contracts).Error
	if err != nil {
		return nil, errors.Annotate(err, "expiring contracts")
	}
	var invoices []models.Invoice
	err = db.Preload("Client", preloadClientSummary).
		Where("user_id = ? AND is_active = ? AND status IN ? AND due_date >= ? AND due_date <= ?",
			userID, true, pendingInvoiceStatuses, now, until).
		Order("due_date").Find(&invoices).Error
	if err != nil {
		return nil, errors.Annotate(err, "due invoices")
	}

	deadlines := lo.Map(contracts, func(c models.Contract, _ int) Deadline {
		days := daysUntil(c.ExpiresAt, now)
		return Deadline{
			ID: c.ID, Type: "contract", Title: "Contract expires",
			Client: lo.FromPtr(c.Client).Name, Date: c.ExpiresAt,
			DaysUntil: days, Urgent: days <= contractUrgentDays,
		}
	})
	deadlines = append(deadlines, lo.Map(invoices, func(inv models.Invoice, _ int) Deadline {
		days := daysUntil(inv.DueDate, now)
		return Deadline{
			ID: inv.ID, Type: "invoice", Title: "Invoice due",
			Client: lo.FromPtr(inv.Client).Name, Date: inv.DueDate,
			DaysUntil: days, Urgent: days <= 0 || inv.Status == models.InvoiceStatusOverdue,
		}
	})...)
	slices.SortStableFunc(deadlines, func(a, b Deadline) int { return a.Date.Compare(b.Date) })
	return deadlines, nil
}

// linkedClientIDs returns the client records whose email is the caller's.
// A client account sees the work commissioned under those records.
func (s *DashboardService) linkedClientIDs(ctx context.Context) ([]string, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.DB.WithContext(ctx).Select("id", "email").Where("id = ?", userID).First(&u).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserGone
		}
		return nil, errors.Annotate(err, "load user")
	}
	var ids []string
	err = s.DB.WithContext(ctx).Model(&models.Client{}).
		Where("email = ? AND is_active = ?", u.Email, true).Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Annotate(err, "linked clients")
	}
	return ids, nil
}

// ClientStats summarises the projects of the caller as a client.
func (s *DashboardService) ClientStats(ctx context.Context) (*ClientStats, error) {
	ids, err := s.linkedClientIDs(ctx)
	if err != nil {
		return nil, err
	}
	st := &ClientStats{}
	if len(ids) == 0 {
		return st, nil
	}
	now := s.now()
	if err := s.refresh(ctx, "", now); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	contracts := func() *gorm.DB {
		return db.Model(&models.Contract{}).Where("client_id IN ? AND is_active = ?", ids, true)
	}

	if err := contracts().Where("status IN ?", activeContractStatuses).Count(&st.ActiveProjects).Error; err != nil {
		return nil, errors.Annotate(err, "count projects")
	}
	if st.TotalSpent, err = sum(contracts().Where("status = ?", models.ContractStatusSigned), "amount"); err != nil {
		return nil, err
	}
	from, to := monthBounds(now)
	st.MonthlySpent, err = sum(contracts().
		Where("status = ? AND signed_at >= ? AND signed_at < ?", models.ContractStatusSigned, from, to), "amount")
	if err != nil {
		return nil, err
	}
	var freelancers []string
	if err := contracts().Where("status IN ?", activeContractStatuses).Distinct().Pluck("user_id", &freelancers).Error; err != nil {
		return nil, errors.Annotate(err, "count freelancers")
	}
	st.ActiveFreelancers = len(lo.Uniq(freelancers))
	err = db.Model(&models.Invoice{}).
		Where("client_id IN ? AND is_active = ? AND status IN ?", ids, true, pendingInvoiceStatuses).
		Count(&st.PendingPayments).Error
	if err != nil {
		return nil, errors.Annotate(err, "count pending payments")
	}
	return st, nil
}

type contractWithFreelancer struct {
	models.Contract
	FreelancerName  string
	FreelancerEmail string
}

func (s *DashboardService) clientContracts(ctx context.Context, ids []string, statuses []models.ContractStatus, order string) ([]contractWithFreelancer, error) {
	var rows []contractWithFreelancer
	err := s.DB.WithContext(ctx).Model(&models.Contract{}).
		Select("contracts.*, users.name AS freelancer_name, users.email AS freelancer_email").
		Joins("LEFT JOIN users ON users.id = contracts.user_id").
		Where("contracts.client_id IN ? AND contracts.is_active = ? AND contracts.status IN ?", ids, true, statuses).
		Order(order).Scan(&rows).Error
	return rows, errors.Annotate(err, "client contracts")
}

// ClientProjects lists the caller's active projects as a client, most
// recently updated first.
func (s *DashboardService) ClientProjects(ctx context.Context, limit int) ([]ClientProject, error) {
	if limit < 1 {
		limit = DefaultProjectLimit
	}
	ids, err := s.linkedClientIDs(ctx)
	if err != nil || len(ids) == 0 {
		return []ClientProject{}, err
	}
	if err := expireContracts(ctx, s.DB, "", s.now()); err != nil {
		return nil, err
	}
	rows, err := s.clientContracts(ctx, ids, activeContractStatuses, "contracts.updated_at DESC")
	if err != nil {
		return nil, err
	}
	projects := lo.Map(rows, func(r contractWithFreelancer, _ int) ClientProject {
		p := ClientProject{
			ID: r.ID, Title: r.Title, Freelancer: r.FreelancerName,
			Deadline: r.ExpiresAt, Budget: r.Amount, Status: "Pending",
		}
		if p.Freelancer == "" {
			p.Freelancer = "Unknown"
		}
		if r.Status == models.ContractStatusSigned {
			p.Status = "In Progress"
		}
		return p
	})
	if len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

// ClientFreelancers ranks the freelancers the caller signed contracts with
// by total contracted amount.
func (s *DashboardService) ClientFreelancers(ctx context.Context, limit int) ([]FreelancerSummary, error) {
	if limit < 1 {
		limit = DefaultProjectLimit
	}
	ids, err := s.linkedClientIDs(ctx)
	if err != nil || len(ids) == 0 {
		return []FreelancerSummary{}, err
	}
	rows, err := s.clientContracts(ctx, ids, []models.ContractStatus{models.ContractStatusSigned}, "contracts.signed_at DESC")
	if err != nil {
		return nil, err
	}
	byFreelancer := lo.GroupBy(rows, func(r contractWithFreelancer) string { return r.UserID })
	summaries := lo.MapToSlice(byFreelancer, func(id string, rs []contractWithFreelancer) FreelancerSummary {
		return FreelancerSummary{
			ID:       id,
			Name:     rs[0].FreelancerName,
			Email:    rs[0].FreelancerEmail,
			Projects: len(rs),
			TotalEarned: sumDecimals(lo.Map(rs, func(r contractWithFreelancer, _ int) decimal.Decimal {
				return r.Amount
			})),
		}
	})
	slices.SortFunc(summaries, func(a, b FreelancerSummary) int {
		if c := b.TotalEarned.Cmp(a.TotalEarned); c != 0 {
			return c
		}
		return b.Projects - a.Projects
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// AdminStats returns platform-wide numbers.
func (s *DashboardService) AdminStats(ctx context.Context) (*AdminStats, error) {
	now := s.now()
	if err := s.refresh(ctx, "", now); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	users := func() *gorm.DB { return db.Model(&models.User{}).Where("is_active = ?", true) }
	contracts := func() *gorm.DB { return db.Model(&models.Contract{}).Where("is_active = ?", true) }
	paid := func() *gorm.DB {
		return db.Model(&models.Invoice{}).Where("is_active = ? AND status = ?", true, models.InvoiceStatusPaid)
	}

	var st AdminStats
	var err error
	if err = users().Count(&st.TotalUsers).Error; err != nil {
		return nil, errors.Annotate(err, "count users")
	}
	if err = users().Where("role = ?", models.RoleFreelancer).Count(&st.TotalFreelancers).Error; err != nil {
		return nil, errors.Annotate(err, "count freelancers")
	}
	if err = users().Where("role = ?", models.RoleClient).Count(&st.TotalClients).Error; err != nil {
		return nil, errors.Annotate(err, "count client users")
	}
	if err = contracts().Where("status IN ?", activeContractStatuses).Count(&st.ActiveProjects).Error; err != nil {
		return nil, errors.Annotate(err, "count projects")
	}
	if err = contracts().Where("status = ?", models.ContractStatusDraft).Count(&st.PendingApprovals).Error; err != nil {
		return nil, errors.Annotate(err, "count drafts")
	}
	if st.TotalRevenue, err = sum(paid(), "total"); err != nil {
		return nil, err
	}
	from, to := monthBounds(now)
	if st.MonthlyRevenue, err = sum(paid().Where("paid_at >= ? AND paid_at < ?", from, to), "total"); err != nil {
		return nil, err
	}
	return &st, nil
}
