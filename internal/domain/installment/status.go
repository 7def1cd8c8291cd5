package installment

// Status is the lifecycle state of an obligation
type Status string

const (
	StatusPending Status = "PENDIENTE" // Pending balance, not yet due
	StatusOverdue Status = "VENCIDO"   // Pending balance, due date passed
	StatusPaid    Status = "PAGADO"    // Nothing left to pay
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsOpen returns true while a balance is still owed
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusOverdue
}

// DocumentKind is the type of credit document an installment belongs to
type DocumentKind string

const (
	DocumentKindSale     DocumentKind = "SALE"
	DocumentKindPurchase DocumentKind = "PURCHASE"
)

// IsValid checks if the document kind is valid
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindSale || k == DocumentKindPurchase
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}
