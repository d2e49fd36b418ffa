// Package directory is the identity directory: the insurance authority's
// mapping from a hospital's declared name to the account address authorized
// to act for it.
package directory

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Hospital maps to the hospitals table. One entry per name, last write wins.
type Hospital struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	UpdatedAt time.Time      `json:"updated_at"`
}
