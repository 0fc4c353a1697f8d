// Package reconcile computes the delta between two cart snapshots.
// The cart store attaches it to every change event so observers can react to
// what changed instead of re-rendering the whole cart.
package reconcile

import "shop-session/internal/model"

// LineDiff describes how one cart snapshot became another.
// Each slice follows snapshot order: Added and Updated follow the new
// snapshot, Removed follows the old one.
type LineDiff struct {
	Added   []LineAdded   `json:"added,omitempty"`
	Removed []LineRemoved `json:"removed,omitempty"`
	Updated []LineUpdated `json:"updated,omitempty"`
}

// LineAdded is a product that appeared in the cart.
type LineAdded struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// LineRemoved is a product that left the cart.
type LineRemoved struct {
	ProductID   int `json:"productId"`
	OldQuantity int `json:"oldQuantity"`
}

// LineUpdated is a product whose quantity changed.
type LineUpdated struct {
	ProductID   int `json:"productId"`
	OldQuantity int `json:"oldQuantity"`
	NewQuantity int `json:"newQuantity"`
}

// IsEmpty returns true if the snapshots hold the same lines and quantities.
func (d *LineDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

// DiffLines computes the delta between before and after.
// Matching is by product id. Line order changes alone are not reported.
//
// Algorithm:
//  1. Index before by id
//  2. Walk after in order: unknown id → added; known with different qty → updated
//  3. Walk before in order: id missing from after → removed
func DiffLines(before, after []model.CartLine) *LineDiff {
	diff := &LineDiff{}

	beforeByID := make(map[int]int, len(before))
	for _, l := range before {
		beforeByID[l.ID] = l.Quantity
	}

	afterIDs := make(map[int]struct{}, len(after))
	for _, l := range after {
		afterIDs[l.ID] = struct{}{}

		oldQty, exists := beforeByID[l.ID]
		switch {
		case !exists:
			diff.Added = append(diff.Added, LineAdded{ProductID: l.ID, Quantity: l.Quantity})
		case oldQty != l.Quantity:
			diff.Updated = append(diff.Updated, LineUpdated{
				ProductID:   l.ID,
				OldQuantity: oldQty,
				NewQuantity: l.Quantity,
			})
		}
	}

	for _, l := range before {
		if _, exists := afterIDs[l.ID]; !exists {
			diff.Removed = append(diff.Removed, LineRemoved{ProductID: l.ID, OldQuantity: l.Quantity})
		}
	}

	return diff
}
