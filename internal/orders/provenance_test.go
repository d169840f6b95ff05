package orders

import (
	"testing"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

func TestCanOverwrite(t *testing.T) {
	cases := []struct {
		existing enums.OrderSource
		incoming enums.OrderSource
		want     bool
	}{
		{enums.OrderSourceAccounting, enums.OrderSourceAccounting, true},
		{enums.OrderSourceManual, enums.OrderSourceAccounting, false},
		{enums.OrderSourceExcel, enums.OrderSourceAccounting, false},
		{enums.OrderSourceAccounting, enums.OrderSourceExcel, true},
		{enums.OrderSourceAccounting, enums.OrderSourceManual, true},
		{enums.OrderSourceManual, enums.OrderSourceExcel, true},
		{enums.OrderSourceExcel, enums.OrderSourceManual, true},
	}
	for _, tc := range cases {
		if got := CanOverwrite(tc.existing, tc.incoming); got != tc.want {
			t.Errorf("CanOverwrite(%s, %s) = %v, want %v", tc.existing, tc.incoming, got, tc.want)
		}
	}
}

func TestSourceAfterHumanEdit(t *testing.T) {
	if got := SourceAfterHumanEdit(enums.OrderSourceAccounting); got != enums.OrderSourceManual {
		t.Fatalf("accounting rows should downgrade to manual, got %s", got)
	}
	if got := SourceAfterHumanEdit(enums.OrderSourceManual); got != enums.OrderSourceManual {
		t.Fatalf("manual rows keep their source, got %s", got)
	}
	if got := SourceAfterHumanEdit(enums.OrderSourceExcel); got != enums.OrderSourceExcel {
		t.Fatalf("excel rows keep their source, got %s", got)
	}
}
