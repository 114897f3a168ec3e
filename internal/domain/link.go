package domain

// AvailabilityLink is a join record meaning "product is available at branch".
// Both foreign keys are stored flat.
type AvailabilityLink struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
}

// AlternativeLink is a join record meaning the referenced product is a
// substitute for the owning product. Links are maintained as reciprocal
// pairs: whenever (A, B) exists, (B, A) exists as well.
type AlternativeLink struct {
	ID                   string `json:"id"`
	ProductID            string `json:"product_id"`
	AlternativeProductID string `json:"alternative_product_id"`
}
