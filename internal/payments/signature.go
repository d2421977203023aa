package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureKey computes hex(SHA512(order_id + status_code + gross_amount + serverKey)).
func SignatureKey(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a notification against the server key. The compare
// is constant time and case sensitive.
func VerifySignature(n Notification, serverKey string) error {
	if n.SignatureKey == "" {
		return ErrInvalidSignature
	}
	want := SignatureKey(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	if !hmac.Equal([]byte(want), []byte(n.SignatureKey)) {
		return ErrInvalidSignature
	}
	return nil
}
