package api

// CreateTransactionRequest accepts two wire forms on the same endpoint.
// The structured form carries explicit customer + cart (item prices already
// in cents); the legacy flat form has top-level name/email/cpf/phone and
// items priced in reais. Presence of customer+cart selects the form.
type CreateTransactionRequest struct {
	Amount        float64             `json:"amount"`
	OfferHash     string              `json:"offer_hash"`
	PaymentMethod string              `json:"payment_method"`
	Customer      *CustomerDTO        `json:"customer"`
	Cart          []StructuredItemDTO `json:"cart"`
	Installments  int                 `json:"installments"`
	ExpireInDays  int                 `json:"expire_in_days"`
	Tracking      map[string]any      `json:"tracking"`
	PostbackURL   string              `json:"postback_url"`

	// legacy flat form
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	CPF         string          `json:"cpf"`
	Phone       string          `json:"phone"`
	Items       []LegacyItemDTO `json:"items"`
	UTMs        map[string]any  `json:"utms"`
	SessionID   string          `json:"sessionId"`
	UserAgent   string          `json:"userAgent"`
	Referrer    string          `json:"referrer"`
	RedirectURL string          `json:"redirectUrl"`
}

// Structured reports whether the request uses the customer+cart form.
func (r *CreateTransactionRequest) Structured() bool {
	return r.Customer != nil && len(r.Cart) > 0
}

type CustomerDTO struct {
	Name         string `json:"name"         validate:"required"`
	Email        string `json:"email"        validate:"required,email"`
	PhoneNumber  string `json:"phone_number" validate:"required"`
	Document     string `json:"document"     validate:"required,cpfdigits"`
	StreetName   string `json:"street_name"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

// StructuredItemDTO prices in minor units (cents), as the storefront sends.
type StructuredItemDTO struct {
	ProductHash string `json:"product_hash"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// LegacyItemDTO tolerates the loose legacy typing: price and quantity arrive
// as numbers or numeric strings, priced in reais.
type LegacyItemDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    any    `json:"price"`
	Quantity any    `json:"quantity"`
}

type PixDTO struct {
	Qrcode         string `json:"qrcode"`
	QrcodeImage    string `json:"qrcodeImage"`
	ExpirationDate string `json:"expirationDate"`
	End2EndID      string `json:"end2EndId"`
}

type CreateTransactionResponse struct {
	Status    string  `json:"status"`
	ID        string  `json:"id"`
	Pix       *PixDTO `json:"pix"`
	DebugInfo any     `json:"debugInfo,omitempty"`
}

type TransactionStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Method    string  `json:"method"`
	CustomID  *string `json:"customId"`
	CreatedAt *string `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
	Amount    float64 `json:"amount,omitempty"`
	Pix       *PixDTO `json:"pix,omitempty"`
	DebugInfo any     `json:"debugInfo,omitempty"`
}

type PostbackAck struct {
	OK            bool    `json:"ok"`
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod"`
	Amount        float64 `json:"amount,omitempty"`
	ReceivedAt    string  `json:"receivedAt"`
}
