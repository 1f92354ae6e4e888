package model

// Supplier represents a provider of parts or services.
type Supplier struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	SupplyContactID int64  `json:"supply_contact_id"`
}

func (s Supplier) String() string {
	return s.Name
}

// Part is a purchasable component provided by a supplier.
type Part struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SupplierID int64  `json:"supplier_id"`
}

func (p Part) String() string {
	return p.Name
}

// Service is a purchasable service provided by a supplier.
type Service struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SupplierID int64  `json:"supplier_id"`
}

func (s Service) String() string {
	return s.Name
}
