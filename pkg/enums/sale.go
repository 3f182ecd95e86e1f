package enums

// SaleEventType is the booking event type reported by the travel provider.
type SaleEventType string

const (
	SaleEventConfirmation         SaleEventType = "CONFIRMATION"
	SaleEventRejection            SaleEventType = "REJECTION"
	SaleEventAmendment            SaleEventType = "AMENDMENT"
	SaleEventCancellation         SaleEventType = "CANCELLATION"
	SaleEventCustomerCancellation SaleEventType = "CUSTOMER_CANCELLATION"
)

var saleEventTypes = set[SaleEventType]{
	SaleEventConfirmation,
	SaleEventRejection,
	SaleEventAmendment,
	SaleEventCancellation,
	SaleEventCustomerCancellation,
}

func (e SaleEventType) IsValid() bool { return saleEventTypes.has(e) }

// IsCommissionable reports whether a sale with this event type earns commission.
func (e SaleEventType) IsCommissionable() bool {
	return e == SaleEventConfirmation || e == SaleEventAmendment
}

// ParseSaleEventType accepts the provider's event names in any letter case.
func ParseSaleEventType(value string) (SaleEventType, error) {
	return saleEventTypes.parse("sale event type", value, true)
}

// SaleStatus maps to the sale_status enum in Postgres.
type SaleStatus string

const (
	SaleStatusConfirmed SaleStatus = "confirmed"
	SaleStatusRejected  SaleStatus = "rejected"
	SaleStatusAmended   SaleStatus = "amended"
)

// SaleStatusForEvent derives the stored sale status from the reported event type.
// Unknown and cancellation events keep the confirmed status.
func SaleStatusForEvent(event SaleEventType) SaleStatus {
	switch event {
	case SaleEventRejection:
		return SaleStatusRejected
	case SaleEventAmendment:
		return SaleStatusAmended
	default:
		return SaleStatusConfirmed
	}
}
