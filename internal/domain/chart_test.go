package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestBuildAccountTree_RollsUpBalances(t *testing.T) {
	accounts := []*Account{
		{ID: "assets", Code: "1", Balance: decimal.Zero},
		{ID: "bank", Code: "12", ParentID: strPtr("assets"), Balance: decimal.NewFromInt(250)},
		{ID: "cash", Code: "11", ParentID: strPtr("assets"), Balance: decimal.NewFromInt(100)},
		{ID: "petty", Code: "111", ParentID: strPtr("cash"), Balance: decimal.NewFromInt(5)},
		{ID: "revenue", Code: "4", Balance: decimal.NewFromInt(40)},
	}

	roots, err := BuildAccountTree(accounts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}

	assets := roots[0]
	if assets.Account.ID != "assets" {
		t.Fatalf("expected roots ordered by code, got %s first", assets.Account.Code)
	}
	if !assets.EffectiveBalance.Equal(decimal.NewFromInt(355)) {
		t.Errorf("expected assets rollup 355, got %s", assets.EffectiveBalance)
	}
	if assets.Children[0].Account.Code != "11" {
		t.Errorf("expected children ordered by code, got %s", assets.Children[0].Account.Code)
	}

	cash := FindNode(roots, "cash")
	if cash == nil || !cash.EffectiveBalance.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("expected cash rollup 105, got %+v", cash)
	}

	if total := SumEffective(roots); !total.Equal(decimal.NewFromInt(395)) {
		t.Errorf("expected forest total 395, got %s", total)
	}
}

func TestBuildAccountTree_DetectsCycle(t *testing.T) {
	accounts := []*Account{
		{ID: "root", Code: "1"},
		{ID: "a", Code: "2", ParentID: strPtr("b")},
		{ID: "b", Code: "3", ParentID: strPtr("a")},
	}

	_, err := BuildAccountTree(accounts)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for cycle, got %v", err)
	}
}

func TestWouldCreateCycle(t *testing.T) {
	accounts := []*Account{
		{ID: "a"},
		{ID: "b", ParentID: strPtr("a")},
		{ID: "c", ParentID: strPtr("b")},
		{ID: "d"},
	}

	tests := []struct {
		name      string
		accountID string
		newParent string
		want      bool
	}{
		{"move under own grandchild", "a", "c", true},
		{"move under itself", "b", "b", true},
		{"move under unrelated root", "c", "d", false},
		{"detach to root", "c", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WouldCreateCycle(accounts, tt.accountID, tt.newParent); got != tt.want {
				t.Errorf("WouldCreateCycle(%s, %s) = %v, want %v", tt.accountID, tt.newParent, got, tt.want)
			}
		})
	}
}

func TestNextChildCode(t *testing.T) {
	tests := []struct {
		name     string
		parent   string
		siblings []string
		want     string
	}{
		{"first child extends parent", "11", nil, "111"},
		{"increments highest sibling", "11", []string{"111", "113", "112"}, "114"},
		{"keeps zero padding", "1", []string{"0101", "0109"}, "0110"},
		{"non numeric siblings fall back", "AB", []string{"AB-X"}, "AB2"},
		{"first root", "", nil, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextChildCode(tt.parent, tt.siblings); got != tt.want {
				t.Errorf("NextChildCode(%q, %v) = %q, want %q", tt.parent, tt.siblings, got, tt.want)
			}
		})
	}
}
