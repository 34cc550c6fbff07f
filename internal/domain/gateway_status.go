package domain

// MapGatewayStatus maps a raw gateway payment status onto an order state.
// ok is false for unknown or empty statuses, which must not cause a transition.
func MapGatewayStatus(status string) (state OrderState, ok bool) {
	switch status {
	case "approved", "accredited":
		return OrderStatePaid, true
	case "pending", "in_process":
		return OrderStatePending, true
	case "rejected", "cancelled", "refunded", "charged_back":
		return OrderStateCancelled, true
	default:
		return "", false
	}
}

// NormalizePaymentStatus maps a raw gateway status onto the stored payment status.
func NormalizePaymentStatus(status string) (PaymentStatus, bool) {
	switch status {
	case "approved", "accredited":
		return PaymentStatusApproved, true
	case "pending":
		return PaymentStatusPending, true
	case "in_process":
		return PaymentStatusInProcess, true
	case "rejected", "cancelled", "refunded", "charged_back":
		return PaymentStatusRejected, true
	default:
		return "", false
	}
}
