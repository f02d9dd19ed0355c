package marketplace_http

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"marketplace/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type InitiateCheckoutRequest struct {
	ResourceID string `json:"resource_id" validate:"required"`
}

// PurchaseChartRequest carries millisecond Unix timestamps.
type PurchaseChartRequest struct {
	Start    int64  `json:"start" validate:"required,gt=0"`
	End      int64  `json:"end" validate:"required,gtefield=Start"`
	Resource string `json:"resource,omitempty"`
}

type UpdateResourceRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4096"`
	Thread      *string `json:"thread,omitempty" validate:"omitempty,max=512"`
}

func (r UpdateResourceRequest) toUpdate() domain.ResourceUpdate {
	return domain.ResourceUpdate{Name: r.Name, Description: r.Description, Thread: r.Thread}
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	BuyerID       string     `json:"buyer_id"`
	RecipientID   string     `json:"recipient_id"`
	ResourceID    string     `json:"resource_id"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	PaymentIntent string     `json:"payment_intent,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		BuyerID:       p.BuyerID,
		RecipientID:   p.RecipientID,
		ResourceID:    p.ResourceID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		PaymentIntent: p.PaymentIntent,
		CreatedAt:     p.CreatedAt,
		ConfirmedAt:   p.ConfirmedAt,
	}
}

type PaymentSummaryResponse struct {
	PaymentResponse
	ResourceName string               `json:"resource_name"`
	Buyer        domain.BuyerIdentity `json:"buyer"`
}

func toSummaryResponses(list []domain.PaymentSummary) []PaymentSummaryResponse {
	out := make([]PaymentSummaryResponse, 0, len(list))
	for i := range list {
		out = append(out, PaymentSummaryResponse{
			PaymentResponse: toPaymentResponse(&list[i].Payment),
			ResourceName:    list[i].ResourceName,
			Buyer:           list[i].Buyer,
		})
	}
	return out
}

type ResourceResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Thread      string  `json:"thread,omitempty"`
	OwnerID     string  `json:"owner_id"`
	TeamID      *string `json:"team_id,omitempty"`
	Price       int64   `json:"price"`
	HasIcon     bool    `json:"has_icon"`
	Downloads   int64   `json:"downloads"`
}

func toResourceResponse(r *domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Thread:      r.Thread,
		OwnerID:     r.OwnerID,
		TeamID:      r.TeamID,
		Price:       r.Price,
		HasIcon:     r.HasIcon,
		Downloads:   r.Downloads,
	}
}

type SellerResponse struct {
	Seller bool `json:"seller"`
}

type LinkResponse struct {
	URL string `json:"url"`
}

type WebhookAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// validationMessage flattens validator errors into "field: tag" pairs.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
