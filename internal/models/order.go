package models

import "time"

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentMomo         PaymentMethod = "momo"
	PaymentZaloPay      PaymentMethod = "zalo_pay"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentBankTransfer, PaymentMomo, PaymentZaloPay:
		return true
	}
	return false
}

type OrderAction string

const (
	OrderActionApprove OrderAction = "approve"
	OrderActionReject  OrderAction = "reject"
)

type Order struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        uint          `json:"user_id" gorm:"not null;index"`
	CourseID      uint          `json:"course_id" gorm:"not null;index"`
	Amount        float64       `json:"amount" gorm:"not null"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentProof  *string       `json:"payment_proof" gorm:"size:500"`
	Note          *string       `json:"note" gorm:"type:text"`
	NoteFromAdmin *string       `json:"note_from_admin" gorm:"type:text"`
	Status        OrderStatus   `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	CreatedAt     time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ApproveAt     *time.Time    `json:"approve_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderWithDetails is an order joined with the buyer and course it refers to.
type OrderWithDetails struct {
	Order
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	CourseName  string  `json:"course_name"`
	CoursePrice float64 `json:"course_price"`
	Banner      string  `json:"course_banner"`
}
