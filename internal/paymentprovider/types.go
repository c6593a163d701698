package paymentprovider

import (
	"bytes"
	"encoding/json"
)

// CustomerData содержит поля клиента Stripe, которые использует биллинг.
type CustomerData struct {
	ID       string
	Email    string
	Name     string
	Deleted  bool
	Metadata map[string]string
}

// SubscriptionItem — первая позиция подписки.
type SubscriptionItem struct {
	PriceID          string
	ProductID        string
	CurrentPeriodEnd int64
}

// SubscriptionData содержит поля подписки Stripe, которые использует биллинг.
// Item равен nil, если у подписки нет позиций.
type SubscriptionData struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	Metadata          map[string]string
	Item              *SubscriptionItem
}

// expandableID принимает как строковый ID, так и развёрнутый объект с полем id.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type rawSubscription struct {
	ID                string            `json:"id"`
	Customer          expandableID      `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID      string       `json:"id"`
				Product expandableID `json:"product"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// До API 2025-03-31 конец периода лежал в корне подписки, позже переехал в позиции.
func (r rawSubscription) data() *SubscriptionData {
	out := &SubscriptionData{
		ID:                r.ID,
		CustomerID:        string(r.Customer),
		Status:            r.Status,
		CancelAtPeriodEnd: r.CancelAtPeriodEnd,
		Metadata:          r.Metadata,
	}
	if len(r.Items.Data) > 0 {
		item := r.Items.Data[0]
		periodEnd := item.CurrentPeriodEnd
		if periodEnd == 0 {
			periodEnd = r.CurrentPeriodEnd
		}
		out.Item = &SubscriptionItem{
			PriceID:          item.Price.ID,
			ProductID:        string(item.Price.Product),
			CurrentPeriodEnd: periodEnd,
		}
	}
	return out
}

type rawCheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     expandableID      `json:"customer"`
	Subscription expandableID      `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type rawInvoice struct {
	ID               string       `json:"id"`
	Customer         expandableID `json:"customer"`
	CustomerEmail    string       `json:"customer_email"`
	AmountPaid       int64        `json:"amount_paid"`
	AmountDue        int64        `json:"amount_due"`
	Currency         string       `json:"currency"`
	HostedInvoiceURL string       `json:"hosted_invoice_url"`
}
