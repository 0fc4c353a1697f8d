package reconcile

import (
	"testing"

	"shop-session/internal/model"
)

func line(id, qty int) model.CartLine {
	return model.CartLine{Product: model.Product{ID: id, Price: 1}, Quantity: qty}
}

func TestDiffLines_EmptyToItems(t *testing.T) {
	diff := DiffLines(nil, []model.CartLine{line(1, 2), line(2, 1)})

	if len(diff.Added) != 2 {
		t.Fatalf("Added = %d, want 2", len(diff.Added))
	}
	if diff.Added[0].ProductID != 1 || diff.Added[1].ProductID != 2 {
		t.Errorf("Added order = %+v, want ids 1,2", diff.Added)
	}
	if len(diff.Removed) != 0 {
		t.Errorf("Removed = %d, want 0", len(diff.Removed))
	}
	if len(diff.Updated) != 0 {
		t.Errorf("Updated = %d, want 0", len(diff.Updated))
	}
}

func TestDiffLines_ItemsToEmpty(t *testing.T) {
	diff := DiffLines([]model.CartLine{line(1, 2), line(2, 1)}, []model.CartLine{})

	if len(diff.Added) != 0 {
		t.Errorf("Added = %d, want 0", len(diff.Added))
	}
	if len(diff.Removed) != 2 {
		t.Fatalf("Removed = %d, want 2", len(diff.Removed))
	}
	if diff.Removed[0].OldQuantity != 2 {
		t.Errorf("Removed[0].OldQuantity = %d, want 2", diff.Removed[0].OldQuantity)
	}
}

func TestDiffLines_QuantityUpdate(t *testing.T) {
	diff := DiffLines([]model.CartLine{line(1, 2)}, []model.CartLine{line(1, 3)})

	if len(diff.Updated) != 1 {
		t.Fatalf("Updated = %d, want 1", len(diff.Updated))
	}
	u := diff.Updated[0]
	if u.ProductID != 1 || u.OldQuantity != 2 || u.NewQuantity != 3 {
		t.Errorf("Updated[0] = %+v", u)
	}
}

func TestDiffLines_Mixed(t *testing.T) {
	before := []model.CartLine{line(1, 1), line(2, 1), line(3, 4)}
	after := []model.CartLine{line(1, 1), line(3, 5), line(4, 1)}

	diff := DiffLines(before, after)

	if len(diff.Added) != 1 || diff.Added[0].ProductID != 4 {
		t.Errorf("Added = %+v, want [4]", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].ProductID != 2 {
		t.Errorf("Removed = %+v, want [2]", diff.Removed)
	}
	if len(diff.Updated) != 1 || diff.Updated[0].ProductID != 3 {
		t.Errorf("Updated = %+v, want [3]", diff.Updated)
	}
}

func TestDiffLines_NoChange(t *testing.T) {
	lines := []model.CartLine{line(1, 1), line(2, 3)}

	diff := DiffLines(lines, lines)
	if !diff.IsEmpty() {
		t.Errorf("diff = %+v, want empty", diff)
	}
}

func TestDiffLines_ReorderIsNotAChange(t *testing.T) {
	diff := DiffLines([]model.CartLine{line(1, 1), line(2, 1)}, []model.CartLine{line(2, 1), line(1, 1)})
	if !diff.IsEmpty() {
		t.Errorf("diff = %+v, want empty", diff)
	}
}
