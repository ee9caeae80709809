package models

type AuthorizationRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type CreateOrderRequest struct {
	Phone    string  `json:"phone"`
	Operator string  `json:"operator"`
	Amount   float64 `json:"amount"`
	IsCredit bool    `json:"is_credit"`
}

type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type GetOrdersResponse []OrderResponse

type OrderResponse struct {
	ID        string  `json:"id"`
	Phone     string  `json:"phone"`
	Operator  string  `json:"operator"`
	Amount    float64 `json:"amount"`
	Bonus     float64 `json:"bonus,omitempty"`
	Total     float64 `json:"total"`
	IsCredit  bool    `json:"is_credit"`
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type CreditLevelResponse struct {
	Name       string  `json:"name"`
	MinScore   int     `json:"min_score"`
	Limit      float64 `json:"credit_limit"`
	Discount   float64 `json:"discount"`
	EntryBonus float64 `json:"bonus,omitempty"`
}

type CreditInfoResponse struct {
	CreditScore        int                  `json:"credit_score"`
	CreditLevel        CreditLevelResponse  `json:"credit_level"`
	NextLevel          *CreditLevelResponse `json:"next_level,omitempty"`
	CreditLimit        float64              `json:"credit_limit"`
	TotalSpent         float64              `json:"total_spent"`
	ConsecutiveSuccess int                  `json:"consecutive_success"`
}

type GetMessagesResponse []SiteMessageResponse

type SiteMessageResponse struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	OrderID   string `json:"order_id,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

type AdminUpdateOrderRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AdminListOrdersResponse struct {
	Orders GetOrdersResponse `json:"orders"`
	Total  int               `json:"total"`
	Page   int               `json:"page"`
}

type StatsResponse struct {
	TotalCustomers  int     `json:"total_customers"`
	TotalOrders     int     `json:"total_orders"`
	CompletedOrders int     `json:"completed_orders"`
	PendingOrders   int     `json:"pending_orders"`
	TotalRevenue    float64 `json:"total_revenue"`
	TodayOrders     int     `json:"today_orders"`
}
