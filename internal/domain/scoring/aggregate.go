package scoring

import (
	"github.com/okian/ltvrank/internal/domain/model"
)

// Aggregates holds per-customer totals over deduplicated records.
type Aggregates struct {
	Amounts map[string]float64
	Visits  map[string]int
	// Customers lists registered customer ids in the order their CUSTOMER
	// records were encountered. Only these receive an LTV.
	Customers []string
}

// Aggregate sums ORDER totals and counts SITE_VISIT records per customer and
// collects CUSTOMER keys. Records of other types are ignored.
func Aggregate(records []model.Record, currencySuffix string) (Aggregates, error) {
	agg := Aggregates{
		Amounts: make(map[string]float64),
		Visits:  make(map[string]int),
	}
	for _, rec := range records {
		switch rec.Type {
		case model.TypeOrder:
			id, err := rec.Require(model.FieldCustomerID, rec.CustomerID, model.ErrMissingField)
			if err != nil {
				return Aggregates{}, err
			}
			raw, ok := rec.Details[model.FieldTotalAmount]
			if !ok {
				return Aggregates{}, model.NewRecordError(rec, model.FieldTotalAmount, model.ErrMissingField, nil)
			}
			amount, err := ParseAmount(raw, currencySuffix)
			if err != nil {
				return Aggregates{}, model.NewRecordError(rec, model.FieldTotalAmount, model.ErrMalformedAmount, err)
			}
			agg.Amounts[id] += amount
		case model.TypeSiteVisit:
			id, err := rec.Require(model.FieldCustomerID, rec.CustomerID, model.ErrMissingField)
			if err != nil {
				return Aggregates{}, err
			}
			agg.Visits[id]++
		case model.TypeCustomer:
			key, err := rec.Require(model.FieldKey, rec.Key, model.ErrMissingKey)
			if err != nil {
				return Aggregates{}, err
			}
			agg.Customers = append(agg.Customers, key)
		}
	}
	return agg, nil
}
