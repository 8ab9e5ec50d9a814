package paymentemail

type Item struct {
	Name       string `json:"name" validate:"required,max=255"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
	UnitAmount int64  `json:"unitAmount" validate:"gte=0"`
}

// Request describes a Stripe payment the customer must be told about.
// Amounts are in cents.
type Request struct {
	Email           string `json:"email" validate:"required,email"`
	Name            string `json:"name" validate:"omitempty,max=255"`
	PaymentIntentID string `json:"paymentIntentId" validate:"required,max=255"`
	Amount          int64  `json:"amount" validate:"gt=0"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	Items           []Item `json:"items" validate:"omitempty,max=100,dive"`
	FailureReason   string `json:"failureReason" validate:"omitempty,max=500"`
	RetryURL        string `json:"retryUrl" validate:"omitempty,url"`
}

type Accepted struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}

type ClientConfig struct {
	PublishableKey string `json:"publishableKey"`
}
