package app

// CreatePayableResult is returned on successful payable creation.
type CreatePayableResult struct {
	DocumentID int `json:"documentId"`
}
