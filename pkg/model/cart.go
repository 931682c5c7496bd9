package model

const (
	CartItemClass      = "class"
	CartItemWorkshop   = "workshop"
	CartItemMembership = "membership"
	CartItemPass       = "pass"
	CartItemPrivate    = "private"
)

// MaxCartQuantity bounds one cart line, however it was reached.
const MaxCartQuantity = 100

type CartItem struct {
	ID             string         `json:"id" validate:"required,max=128"`
	Type           string         `json:"type" validate:"required,oneof=class workshop membership pass private"`
	Name           string         `json:"name" validate:"required,max=200"`
	Date           string         `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time           string         `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	Price          float64        `json:"price" validate:"gte=0"`
	Quantity       int            `json:"quantity" validate:"gte=1,lte=100"`
	InstructorName string         `json:"instructor_name,omitempty"`
	StudioName     string         `json:"studio_name,omitempty"`
	Location       string         `json:"location,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
