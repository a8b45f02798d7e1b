package models

// PriceOption is one selectable package of a case category.
type PriceOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CaseCategoryOption defines a case category as served by the lookup endpoint.
type CaseCategoryOption struct {
	Category        string        `json:"category"`
	CountrySpecific bool          `json:"countrySpecific"`
	Prices          []PriceOption `json:"prices"`
}

// HasPrice reports whether value is one of the category's packages.
func (c CaseCategoryOption) HasPrice(value string) bool {
	for _, p := range c.Prices {
		if p.Value == value {
			return true
		}
	}
	return false
}
