package model

// Receivable is one customer row of the cartera report.
type Receivable struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Total       int64  `json:"total"`
	Paid        int64  `json:"paid"`
	Balance     int64  `json:"balance"`
	SellerID    int64  `json:"seller_id,omitempty"`
	SellerColor string `json:"seller_color,omitempty"`
	Seats       []int  `json:"seats,omitempty"`
}

// ReceivableFilter narrows the cartera report.
type ReceivableFilter struct {
	Name  string
	Phone string
}

// Expense is one row of the gastos ledger.
type Expense struct {
	ID        int64  `json:"id"`
	Concept   string `json:"concept"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ExpenseCreate is the body used to record an expense.
type ExpenseCreate struct {
	Concept string `json:"concepto"`
	Amount  int64  `json:"valor"`
	Note    string `json:"observacion,omitempty"`
}

// ProductivityDrawRow is one draw's sales aggregate.
type ProductivityDrawRow struct {
	DrawID       int64   `json:"draw_id"`
	Draw         string  `json:"draw"`
	Date         string  `json:"date,omitempty"`
	State        string  `json:"state"`
	TotalSold    int64   `json:"total_sold"`
	TotalPaid    int64   `json:"total_paid"`
	TotalBalance int64   `json:"total_balance"`
	OccupancyPct float64 `json:"occupancy_pct"`
}

// ProductivitySellerRow is one salesperson's aggregate.
type ProductivitySellerRow struct {
	SellerID       int64   `json:"seller_id,omitempty"`
	Seller         string  `json:"seller"`
	SalesCount     int64   `json:"sales_count"`
	TotalSold      int64   `json:"total_sold"`
	TotalCollected int64   `json:"total_collected"`
	TotalBalance   int64   `json:"total_balance"`
	EffectivePct   float64 `json:"effective_pct"`
}

// ProductivityMonth is the monthly productivity report.
type ProductivityMonth struct {
	Year    int                     `json:"year"`
	Month   int                     `json:"month"`
	Draws   []ProductivityDrawRow   `json:"draws"`
	Sellers []ProductivitySellerRow `json:"sellers,omitempty"`
}

// ProductivityDraw is the per-draw productivity report.
type ProductivityDraw struct {
	ProductivityDrawRow
	Sellers []ProductivitySellerRow `json:"sellers,omitempty"`
}

// SellerSales is one seller's paid and partially paid totals in a draw.
// SellerID is nil for sales without a recorded seller.
type SellerSales struct {
	SellerID  *int64 `json:"seller_id"`
	Seller    string `json:"seller"`
	TotalPaid int64  `json:"total_paid"`
	TotalPart int64  `json:"total_partial"`
}

// DrawSellerSales is the seller breakdown of one draw's sales.
type DrawSellerSales struct {
	DrawID  int64         `json:"draw_id"`
	Sellers []SellerSales `json:"sellers"`
}

// GalleryYear is one year bucket of the public photo gallery.
type GalleryYear struct {
	Year   int `json:"year"`
	Photos int `json:"photos"`
}

// Occupancy summarizes a draw's seat grid.
type Occupancy struct {
	Total     int `json:"total"`
	Sold      int `json:"sold"`
	Remaining int `json:"remaining"`
}
