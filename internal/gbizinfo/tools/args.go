package tools

// CorporateNumberArgs is the argument object of every detail getter.
type CorporateNumberArgs struct {
	CorporateNumber string `json:"corporateNumber" jsonschema:"description=13-digit corporate number (法人番号)"`
}

// UpdateInfoArgs is the argument object of every update feed.
type UpdateInfoArgs struct {
	From string `json:"from" jsonschema:"description=Start date (yyyyMMdd)"`
	To   string `json:"to" jsonschema:"description=End date (yyyyMMdd)"`
	Page *int   `json:"page,omitempty" jsonschema:"description=Page number starting at 1,default=1"`
}
