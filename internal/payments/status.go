package payments

import "strings"

// NativeStatus is the gateway's transaction_status vocabulary collapsed to
// the values this service acts on. Anything unrecognized becomes NativeOther.
type NativeStatus string

const (
	NativeCapture    NativeStatus = "capture"
	NativeSettlement NativeStatus = "settlement"
	NativeCancel     NativeStatus = "cancel"
	NativeDeny       NativeStatus = "deny"
	NativeExpire     NativeStatus = "expire"
	NativePending    NativeStatus = "pending"
	NativeOther      NativeStatus = "other"
)

const FraudAccept = "accept"

func ParseNativeStatus(s string) NativeStatus {
	switch NativeStatus(strings.ToLower(strings.TrimSpace(s))) {
	case NativeCapture:
		return NativeCapture
	case NativeSettlement:
		return NativeSettlement
	case NativeCancel:
		return NativeCancel
	case NativeDeny:
		return NativeDeny
	case NativeExpire:
		return NativeExpire
	case NativePending:
		return NativePending
	}
	return NativeOther
}
