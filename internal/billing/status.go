package billing

import (
	"strings"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"
)

// Normalize maps the gateway vocabulary onto pending/success/failed. A
// capture only counts once fraud screening accepted it; anything the gateway
// adds later stays pending until it resolves into a known status.
func Normalize(native payments.NativeStatus, fraudStatus string) paymentsrepo.Status {
	switch native {
	case payments.NativeCapture:
		if strings.EqualFold(strings.TrimSpace(fraudStatus), payments.FraudAccept) {
			return paymentsrepo.StatusSuccess
		}
		return paymentsrepo.StatusPending
	case payments.NativeSettlement:
		return paymentsrepo.StatusSuccess
	case payments.NativeCancel, payments.NativeDeny, payments.NativeExpire:
		return paymentsrepo.StatusFailed
	default:
		return paymentsrepo.StatusPending
	}
}
