package payments

import "context"

// Gateway is the hosted checkout provider the billing service talks to.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (Checkout, error)
	GetStatus(ctx context.Context, orderID string) (StatusResult, error)
}
