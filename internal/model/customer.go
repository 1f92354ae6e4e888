package model

// CustomerAccount represents a partner that has an account with the business.
type CustomerAccount struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SalesContactID int64  `json:"sales_contact_id"`
}

func (a CustomerAccount) String() string {
	return a.Name
}

// CustomerLocation is a physical site belonging to a CustomerAccount.
type CustomerLocation struct {
	ID                    int64  `json:"id"`
	Address               string `json:"address"`
	City                  string `json:"city"`
	CustomerAccountID     int64  `json:"customer_account_id"`
	InstallationContactID int64  `json:"installation_contact_id"`
}

func (l CustomerLocation) String() string {
	return l.Address
}
