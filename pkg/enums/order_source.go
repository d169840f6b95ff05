package enums

import "fmt"

// OrderSource records where an order row originated. It arbitrates overwrite
// conflicts between the accounting sync and human-entered data.
type OrderSource string

const (
	OrderSourceManual     OrderSource = "manual"
	OrderSourceExcel      OrderSource = "excel"
	OrderSourceAccounting OrderSource = "accounting"
)

var validOrderSources = []OrderSource{
	OrderSourceManual,
	OrderSourceExcel,
	OrderSourceAccounting,
}

func (o OrderSource) String() string {
	return string(o)
}

func (o OrderSource) IsValid() bool {
	for _, candidate := range validOrderSources {
		if candidate == o {
			return true
		}
	}
	return false
}

func ParseOrderSource(value string) (OrderSource, error) {
	for _, candidate := range validOrderSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order source %q", value)
}
