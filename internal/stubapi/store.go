package stubapi

// In-memory data store behind the stub backend. Deliberately not backed by a
// database: the stub exists for integration tests and local development, and
// everything it serves is disposable seed data.

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shophub/internal/models"
)

// Notification is the server-side record the stub serves. It mirrors the
// wire shape the real back-office API emits.
type Notification struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
	IsRead      bool      `json:"is_read"`
	SourceEvent string    `json:"source_event"`
}

type account struct {
	user         models.User
	passwordHash []byte
}

// Store holds all stub data behind one mutex.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]*account // keyed by username
	notifications []*Notification     // newest first
	products      []models.Product
	categories    []models.Category
	brands        []models.Brand
	orders        []models.Order
	suppliers     []models.Supplier
	branches      []models.Branch
	promotions    []models.Promotion
	customers     []models.Customer
}

// NewStore builds a store populated with seed data. The default operator is
// admin / admin123.
func NewStore() *Store {
	s := &Store{accounts: make(map[string]*account)}
	s.seed()
	return s
}

// Authenticate checks credentials and returns the matching user.
func (s *Store) Authenticate(username, password string) (*models.User, error) {
	s.mu.RLock()
	acct, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown user %q", username)
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	user := acct.user
	return &user, nil
}

// UserByID resolves a user from a token subject.
func (s *Store) UserByID(id string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.accounts {
		if acct.user.ID == id {
			user := acct.user
			return &user, true
		}
	}
	return nil, false
}

// Notifications returns the collection newest first.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	for i, n := range s.notifications {
		out[i] = *n
	}
	return out
}

// AddNotification prepends a new unread notification and returns it.
func (s *Store) AddNotification(kind, message, sourceEvent string) Notification {
	n := &Notification{
		ID:          uuid.NewString(),
		Kind:        kind,
		Message:     message,
		OccurredAt:  time.Now().UTC(),
		SourceEvent: sourceEvent,
	}
	s.mu.Lock()
	s.notifications = append([]*Notification{n}, s.notifications...)
	s.mu.Unlock()
	return *n
}

// MarkRead flips one notification to read. Idempotent: marking an
// already-read or unknown id reports success to keep the endpoint a no-op
// from the caller's perspective.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id {
			n.IsRead = true
			return true
		}
	}
	return false
}

// MarkAllRead flips every notification to read.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		n.IsRead = true
	}
}

// page slices a collection into the API's pagination envelope fields.
func page[T any](items []T, pageNum, pageSize int) (data []T, total int64, totalPages int) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total = int64(len(items))
	totalPages = (len(items) + pageSize - 1) / pageSize
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return []T{}, total, totalPages
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, totalPages
}

func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...)
}

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...)
}

func (s *Store) Brands() []models.Brand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Brand(nil), s.brands...)
}

func (s *Store) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Order(nil), s.orders...)
}

func (s *Store) Suppliers() []models.Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Supplier(nil), s.suppliers...)
}

func (s *Store) Branches() []models.Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Branch(nil), s.branches...)
}

func (s *Store) Promotions() []models.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Promotion(nil), s.promotions...)
}

func (s *Store) Customers() []models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Customer(nil), s.customers...)
}

func (s *Store) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := models.User{
		ID:        uuid.NewString(),
		Username:  "admin",
		FullName:  "Store Administrator",
		Email:     "admin@shophub.local",
		Role:      "admin",
		CreatedAt: time.Now().UTC(),
	}
	s.accounts["admin"] = &account{user: admin, passwordHash: hash}

	now := time.Now().UTC()

	s.categories = []models.Category{
		{ID: uuid.NewString(), Name: "Beverages", Slug: "beverages", Active: true},
		{ID: uuid.NewString(), Name: "Snacks", Slug: "snacks", Active: true},
		{ID: uuid.NewString(), Name: "Household", Slug: "household", Active: true},
	}
	s.brands = []models.Brand{
		{ID: uuid.NewString(), Name: "Acme", Country: "US", Active: true},
		{ID: uuid.NewString(), Name: "Nordsee", Country: "DE", Active: true},
	}

	for i := 1; i <= 12; i++ {
		s.products = append(s.products, models.Product{
			ID:         uuid.NewString(),
			SKU:        fmt.Sprintf("SKU-%04d", i),
			Name:       fmt.Sprintf("Product %d", i),
			CategoryID: s.categories[i%len(s.categories)].ID,
			BrandID:    s.brands[i%len(s.brands)].ID,
			Price:      float64(5 + i*3),
			Stock:      (i * 7) % 40,
			Active:     true,
			CreatedAt:  now.AddDate(0, 0, -i),
		})
	}

	s.customers = []models.Customer{
		{ID: uuid.NewString(), Name: "Lina Tran", Phone: "555-0101", JoinedAt: now.AddDate(0, -2, 0)},
		{ID: uuid.NewString(), Name: "Marcus Webb", Phone: "555-0102", JoinedAt: now.AddDate(0, -1, 0)},
	}
	s.branches = []models.Branch{
		{ID: uuid.NewString(), Name: "Downtown", Address: "1 Main St", Active: true},
		{ID: uuid.NewString(), Name: "Riverside", Address: "42 River Rd", Active: true},
	}
	s.suppliers = []models.Supplier{
		{ID: uuid.NewString(), Name: "Global Foods Ltd", Email: "sales@globalfoods.test", Active: true},
	}
	s.promotions = []models.Promotion{
		{ID: uuid.NewString(), Name: "Summer Sale", Percent: 15, StartsAt: now.AddDate(0, 0, -7), EndsAt: now.AddDate(0, 0, 7), Active: true, CreatedAt: now},
	}

	statuses := []string{
		models.OrderPending, models.OrderConfirmed, models.OrderShipping,
		models.OrderCompleted, models.OrderCanceled,
	}
	for i := 1; i <= 20; i++ {
		lines := []models.OrderLine{{
			ProductID:   s.products[i%len(s.products)].ID,
			ProductName: s.products[i%len(s.products)].Name,
			Quantity:    1 + i%4,
			UnitPrice:   s.products[i%len(s.products)].Price,
		}}
		total := float64(lines[0].Quantity) * lines[0].UnitPrice
		s.orders = append(s.orders, models.Order{
			ID:         uuid.NewString(),
			Code:       fmt.Sprintf("ORD-%05d", i),
			CustomerID: s.customers[i%len(s.customers)].ID,
			BranchID:   s.branches[i%len(s.branches)].ID,
			Status:     statuses[i%len(statuses)],
			Total:      total,
			Lines:      lines,
			PlacedAt:   now.AddDate(0, 0, -(i % 10)),
		})
	}
	sort.Slice(s.orders, func(i, j int) bool {
		return s.orders[i].PlacedAt.After(s.orders[j].PlacedAt)
	})

	seedNotes := []struct{ kind, event, message string }{
		{"order", "created", "Order ORD-00020 was placed"},
		{"import-receipt", "approved", "Import receipt IR-104 approved"},
		{"inventory", "updated", "Stock adjusted for SKU-0007"},
		{"export-receipt", "rejected", "Export receipt ER-051 rejected"},
	}
	for i, sn := range seedNotes {
		s.notifications = append(s.notifications, &Notification{
			ID:          uuid.NewString(),
			Kind:        sn.kind,
			Message:     sn.message,
			OccurredAt:  now.Add(-time.Duration(i+1) * time.Hour),
			IsRead:      i >= 2, // older seeds start read
			SourceEvent: sn.event,
		})
	}
}
