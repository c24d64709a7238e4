package domain

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// BuildAccountTree arranges accounts into a forest ordered by code and
// computes each node's effective balance bottom-up.
func BuildAccountTree(accounts []*Account) ([]*AccountNode, error) {
	nodes := make(map[string]*AccountNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &AccountNode{Account: a}
	}

	var roots []*AccountNode
	for _, a := range accounts {
		node := nodes[a.ID]
		if a.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*a.ParentID]
		if !ok {
			// Orphans surface as roots so their balances are never lost.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	visited := make(map[string]bool, len(accounts))
	for _, root := range roots {
		if err := rollup(root, visited, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	if len(visited) != len(accounts) {
		return nil, fmt.Errorf("%w: account graph contains a cycle", ErrValidation)
	}

	sortNodes(roots)

	return roots, nil
}

func rollup(node *AccountNode, visited, onPath map[string]bool) error {
	id := node.Account.ID
	if onPath[id] {
		return fmt.Errorf("%w: account graph contains a cycle at %s", ErrValidation, node.Account.Code)
	}
	onPath[id] = true
	visited[id] = true

	total := node.Account.Balance
	for _, child := range node.Children {
		if err := rollup(child, visited, onPath); err != nil {
			return err
		}
		total = total.Add(child.EffectiveBalance)
	}
	node.EffectiveBalance = total

	delete(onPath, id)

	return nil
}

func sortNodes(nodes []*AccountNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Account.Code < nodes[j].Account.Code
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// FindNode returns the node with the given id anywhere in the forest.
func FindNode(roots []*AccountNode, id string) *AccountNode {
	for _, n := range roots {
		if n.Account.ID == id {
			return n
		}
		if found := FindNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// SumEffective totals the effective balances of the given nodes.
func SumEffective(nodes []*AccountNode) decimal.Decimal {
	total := decimal.Zero
	for _, n := range nodes {
		total = total.Add(n.EffectiveBalance)
	}
	return total
}

// WouldCreateCycle reports whether re-parenting accountID under newParentID
// makes accountID its own ancestor.
func WouldCreateCycle(accounts []*Account, accountID, newParentID string) bool {
	parents := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if !a.IsRoot() {
			parents[a.ID] = *a.ParentID
		}
	}

	current := newParentID
	for steps := 0; current != "" && steps <= len(accounts); steps++ {
		if current == accountID {
			return true
		}
		current = parents[current]
	}

	return false
}

// NextChildCode proposes a code for a new account under parentCode.
// Numeric sibling codes are incremented from the highest one; otherwise
// the parent code is extended with a sequence digit.
func NextChildCode(parentCode string, siblingCodes []string) string {
	var highest *big.Int
	width := 0
	for _, code := range siblingCodes {
		n, ok := new(big.Int).SetString(code, 10)
		if !ok {
			continue
		}
		if highest == nil || n.Cmp(highest) > 0 {
			highest = n
			width = len(code)
		}
	}

	if highest != nil {
		next := new(big.Int).Add(highest, big.NewInt(1)).String()
		for len(next) < width {
			next = "0" + next
		}
		return next
	}

	if parentCode == "" {
		return strconv.Itoa(len(siblingCodes) + 1)
	}

	return parentCode + strconv.Itoa(len(siblingCodes)+1)
}
