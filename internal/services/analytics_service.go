package services

import (
	"context"
	"sort"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// Sales periods accepted by SalesByPeriod.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

const topCustomersLimit = 5

var periodDays = map[string]int{
	PeriodWeek:  7,
	PeriodMonth: 30,
	PeriodYear:  365,
}

// ProductSales is the aggregate of one product's order lines.
type ProductSales struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// SalesReport summarizes the orders of a period.
type SalesReport struct {
	Period       string         `json:"period"`
	Since        time.Time      `json:"since"`
	TotalOrders  int            `json:"totalOrders"`
	TotalRevenue int64          `json:"totalRevenue"`
	Products     []ProductSales `json:"products"`
}

// DayRevenue is the revenue of one local calendar day.
type DayRevenue struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Revenue int64  `json:"revenue"`
	Orders  int    `json:"orders"`
}

// CustomerSpend is one entry of the top customers list.
type CustomerSpend struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	TotalSpent int64  `json:"totalSpent"`
	OrderCount int    `json:"orderCount"`
}

// DashboardSummary holds whole-table counts for the admin dashboard.
type DashboardSummary struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalProducts int64 `json:"totalProducts"`
	TotalOrders   int64 `json:"totalOrders"`
	TotalRevenue  int64 `json:"totalRevenue"`
}

// Overview is the admin analytics page.
type Overview struct {
	DailyRevenue      []DayRevenue    `json:"dailyRevenue"`
	TopCustomers      []CustomerSpend `json:"topCustomers"`
	TotalRevenue      int64           `json:"totalRevenue"`
	TotalOrders       int             `json:"totalOrders"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// Analytics is the read side used by the admin handlers.
type Analytics interface {
	SalesByPeriod(ctx context.Context, period string) (*SalesReport, error)
	DailyRevenue(ctx context.Context) ([]DayRevenue, error)
	TopCustomers(ctx context.Context) ([]CustomerSpend, error)
	DashboardSummary(ctx context.Context) (*DashboardSummary, error)
	Overview(ctx context.Context) (*Overview, error)
}

// AnalyticsService derives read-only reports from the order table.
type AnalyticsService struct {
	store repositories.Store
	now   func() time.Time
	loc   *time.Location
}

// NewAnalyticsService creates an AnalyticsService reporting calendar days in loc.
func NewAnalyticsService(store repositories.Store, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, now: time.Now, loc: loc}
}

// SetClock replaces the time source.
func (s *AnalyticsService) SetClock(now func() time.Time) {
	s.now = now
}

// SalesByPeriod groups the order lines of the period by product, highest
// revenue first. An empty period means week.
func (s *AnalyticsService) SalesByPeriod(ctx context.Context, period string) (*SalesReport, error) {
	if period == "" {
		period = PeriodWeek
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, apperror.New(apperror.InvalidInput, "invalid period %q: use week, month or year", period)
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	orders, err := s.store.Orders().ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{Period: period, Since: since.UTC(), TotalOrders: len(orders)}
	byProduct := make(map[string]*ProductSales)
	for _, order := range orders {
		report.TotalRevenue += order.TotalAmount
		for _, item := range order.Items {
			sales, ok := byProduct[item.ProductID]
			if !ok {
				sales = &ProductSales{ProductID: item.ProductID, Name: item.Name}
				byProduct[item.ProductID] = sales
			}
			sales.Quantity += item.Quantity
			sales.Revenue += item.Revenue()
		}
	}

	report.Products = make([]ProductSales, 0, len(byProduct))
	for _, sales := range byProduct {
		report.Products = append(report.Products, *sales)
	}
	sort.Slice(report.Products, func(i, j int) bool {
		a, b := report.Products[i], report.Products[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ProductID < b.ProductID
	})
	return report, nil
}

// DailyRevenue reports the seven local calendar days ending today, oldest
// first. Days without orders are reported with zeros.
func (s *AnalyticsService) DailyRevenue(ctx context.Context) ([]DayRevenue, error) {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	start := today.AddDate(0, 0, -6)

	orders, err := s.store.Orders().ListSince(ctx, start)
	if err != nil {
		return nil, err
	}
	return s.bucketByDay(orders, start), nil
}

func (s *AnalyticsService) bucketByDay(orders []models.Order, start time.Time) []DayRevenue {
	days := make([]DayRevenue, 7)
	index := make(map[string]int, 7)
	for i := range days {
		day := start.AddDate(0, 0, i)
		days[i] = DayRevenue{Date: day.Format("2006-01-02"), Label: day.Format("02 Jan")}
		index[days[i].Date] = i
	}
	for _, order := range orders {
		i, ok := index[order.CreatedAt.In(s.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		days[i].Revenue += order.TotalAmount
		days[i].Orders++
	}
	return days
}

// TopCustomers returns the five biggest spenders. Users deleted since
// ordering are shown as "Unknown User".
func (s *AnalyticsService) TopCustomers(ctx context.Context) ([]CustomerSpend, error) {
	orders, err := s.store.Orders().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.topCustomers(ctx, orders)
}

func (s *AnalyticsService) topCustomers(ctx context.Context, orders []models.Order) ([]CustomerSpend, error) {
	byUser := make(map[string]*CustomerSpend)
	for _, order := range orders {
		spend, ok := byUser[order.UserID]
		if !ok {
			spend = &CustomerSpend{UserID: order.UserID}
			byUser[order.UserID] = spend
		}
		spend.TotalSpent += order.TotalAmount
		spend.OrderCount++
	}

	customers := make([]CustomerSpend, 0, len(byUser))
	for _, spend := range byUser {
		customers = append(customers, *spend)
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].TotalSpent != customers[j].TotalSpent {
			return customers[i].TotalSpent > customers[j].TotalSpent
		}
		return customers[i].UserID < customers[j].UserID
	})
	if len(customers) > topCustomersLimit {
		customers = customers[:topCustomersLimit]
	}

	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.UserID
	}
	users, err := s.store.Users().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range customers {
		if u, ok := byID[customers[i].UserID]; ok {
			customers[i].Username = u.Username
			customers[i].Email = u.Email
		} else {
			customers[i].Username = "Unknown User"
			customers[i].Email = "N/A"
		}
	}
	return customers, nil
}

// DashboardSummary counts customers, products and orders and sums revenue.
func (s *AnalyticsService) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	var err error
	if summary.TotalUsers, err = s.store.Users().CountCustomers(ctx); err != nil {
		return nil, err
	}
	if summary.TotalProducts, err = s.store.Products().Count(ctx); err != nil {
		return nil, err
	}
	if summary.TotalOrders, err = s.store.Orders().Count(ctx); err != nil {
		return nil, err
	}
	if summary.TotalRevenue, err = s.store.Orders().SumTotal(ctx); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Overview combines daily revenue, top customers and all-time totals.
func (s *AnalyticsService) Overview(ctx context.Context) (*Overview, error) {
	orders, err := s.store.Orders().ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -6)
	overview := &Overview{
		DailyRevenue:      s.bucketByDay(orders, start),
		TotalOrders:       len(orders),
		AverageOrderValue: decimal.Zero,
	}
	if overview.TopCustomers, err = s.topCustomers(ctx, orders); err != nil {
		return nil, err
	}
	for _, order := range orders {
		overview.TotalRevenue += order.TotalAmount
	}
	if overview.TotalOrders > 0 {
		overview.AverageOrderValue = decimal.NewFromInt(overview.TotalRevenue).
			Div(decimal.NewFromInt(int64(overview.TotalOrders))).
			Round(2)
	}
	return overview, nil
}
