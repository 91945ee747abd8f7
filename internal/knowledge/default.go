package knowledge

import (
	_ "embed"
	"encoding/json"
)

//go:embed data/company-info.json
var defaultCompanyJSON []byte

// DefaultJSON returns a copy of the bundled default record.
func DefaultJSON() json.RawMessage {
	return append(json.RawMessage(nil), defaultCompanyJSON...)
}

// Default returns the bundled default record.
func Default() Company {
	c, err := Parse(defaultCompanyJSON)
	if err != nil {
		panic("knowledge: bundled default is invalid: " + err.Error())
	}
	return c
}
