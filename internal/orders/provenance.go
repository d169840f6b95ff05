package orders

import (
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// CanOverwrite arbitrates upsert conflicts between ingestion paths. Accounting
// sync may only replace rows it owns; it never overwrites manual or excel data.
// Human and excel writes always win.
func CanOverwrite(existing, incoming enums.OrderSource) bool {
	if incoming == enums.OrderSourceAccounting {
		return existing == enums.OrderSourceAccounting
	}
	return true
}

// SourceAfterHumanEdit returns the provenance an order carries after a human
// edits it through the update path. Accounting-owned rows downgrade to manual
// so subsequent syncs stop replacing the human's changes.
func SourceAfterHumanEdit(current enums.OrderSource) enums.OrderSource {
	if current == enums.OrderSourceAccounting {
		return enums.OrderSourceManual
	}
	return current
}
