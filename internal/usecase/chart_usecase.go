package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// ChartUseCase manages the chart of accounts.
type ChartUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	journalRepo JournalRepository
	authorizer  Authorizer
	idGen       IDGenerator
	rec         recorder
	opts        options
}

// NewChartUseCase creates a new ChartUseCase.
func NewChartUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	authorizer Authorizer,
	idGen IDGenerator,
	opts ...Option,
) *ChartUseCase {
	return &ChartUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		authorizer:  authorizer,
		idGen:       idGen,
		rec:         recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen},
		opts:        buildOptions(opts),
	}
}

// CreateAccountInput represents input for creating an account.
// An empty Code is generated from the siblings; an empty Nature follows Type.
type CreateAccountInput struct {
	Code             string
	Name             string
	Type             domain.AccountType
	Nature           domain.Nature
	ParentID         *string
	OpeningBalance   decimal.Decimal
	AllowManualEntry *bool
}

// UpdateAccountInput patches an account. A ParentID pointing at an empty
// string moves the account to the root.
type UpdateAccountInput struct {
	Code             *string
	Name             *string
	Type             *domain.AccountType
	Nature           *domain.Nature
	ParentID         *string
	OpeningBalance   *decimal.Decimal
	AllowManualEntry *bool
}

// Tree returns the chart as a forest ordered by code with rolled-up balances.
func (uc *ChartUseCase) Tree(ctx context.Context) ([]*domain.AccountNode, error) {
	accounts, err := uc.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return domain.BuildAccountTree(accounts)
}

// GetAccountNode returns an account with its subtree and effective balance.
func (uc *ChartUseCase) GetAccountNode(ctx context.Context, id string) (*domain.AccountNode, error) {
	roots, err := uc.Tree(ctx)
	if err != nil {
		return nil, err
	}
	node := domain.FindNode(roots, id)
	if node == nil {
		return nil, domain.ErrAccountNotFound
	}
	return node, nil
}

// GetAccount retrieves an account by ID.
func (uc *ChartUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return account, nil
}

// ListAccounts lists accounts ordered by code.
func (uc *ChartUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	return accounts, nil
}

// CreateChild creates an account under parentID.
func (uc *ChartUseCase) CreateChild(ctx context.Context, parentID string, input CreateAccountInput) (*domain.Account, error) {
	input.ParentID = &parentID
	return uc.CreateAccount(ctx, input)
}

// CreateAccount creates a root or child account whose balance starts at the opening balance.
func (uc *ChartUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.TrimSpace(input.Code)
	if input.Nature == "" {
		input.Nature = domain.DefaultNature(input.Type)
	}
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountClass(input.Type, input.Nature); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmountScale(input.OpeningBalance); err != nil {
		return nil, err
	}
	if input.Code != "" {
		if err := domain.ValidateAccountCode(input.Code); err != nil {
			return nil, err
		}
	}
	if input.ParentID != nil && *input.ParentID == "" {
		input.ParentID = nil
	}

	allowManual := true
	if input.AllowManualEntry != nil {
		allowManual = *input.AllowManualEntry
	}

	var account *domain.Account
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		if err := authorize(ctx, uc.authorizer, domain.ActionAccountsManage, ""); err != nil {
			return err
		}

		parentCode := ""
		if input.ParentID != nil {
			if _, err := uc.accountRepo.LockHierarchy(ctx, tx); err != nil {
				return err
			}
			parent, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, *input.ParentID)
			if err != nil {
				return err
			}
			parentCode = parent.Code
		}

		code := input.Code
		if code == "" {
			siblings, err := uc.accountRepo.ListChildCodes(ctx, tx, input.ParentID)
			if err != nil {
				return err
			}
			code = domain.NextChildCode(parentCode, siblings)
		}

		now := uc.opts.now()
		account = &domain.Account{
			ID:               uc.idGen.Generate(),
			Code:             code,
			Name:             input.Name,
			Type:             input.Type,
			Nature:           input.Nature,
			ParentID:         input.ParentID,
			OpeningBalance:   input.OpeningBalance,
			Balance:          input.OpeningBalance,
			AllowManualEntry: allowManual,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionAccountCreate,
			resourceType: domain.ResourceTypeAccount,
			resourceID:   account.ID,
			after:        account,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated, accountPayload(account))
	})
	if err != nil {
		return nil, err
	}

	uc.count("create")
	invalidateReports(ctx, uc.opts.invalidator)
	return account, nil
}

// Update applies a patch to an account.
func (uc *ChartUseCase) Update(ctx context.Context, id string, input UpdateAccountInput) (*domain.Account, error) {
	var account *domain.Account
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		if err := authorize(ctx, uc.authorizer, domain.ActionAccountsManage, ""); err != nil {
			return err
		}

		var (
			chart []*domain.Account
			err   error
		)
		if input.ParentID != nil && *input.ParentID != "" {
			if chart, err = uc.accountRepo.LockHierarchy(ctx, tx); err != nil {
				return err
			}
		}

		account, err = uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		before := *account

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if err := domain.ValidateAccountName(name); err != nil {
				return err
			}
			account.Name = name
		}
		if input.Code != nil {
			code := strings.TrimSpace(*input.Code)
			if err := domain.ValidateAccountCode(code); err != nil {
				return err
			}
			account.Code = code
		}
		if input.Type != nil {
			account.Type = *input.Type
			if input.Nature == nil {
				account.Nature = domain.DefaultNature(account.Type)
			}
		}
		if input.Nature != nil {
			account.Nature = *input.Nature
		}
		if err := domain.ValidateAccountClass(account.Type, account.Nature); err != nil {
			return err
		}
		if account.Nature != before.Nature {
			hasPostings, err := uc.journalRepo.HasPostingsForAccount(ctx, tx, account.ID)
			if err != nil {
				return err
			}
			if hasPostings {
				return fmt.Errorf("%w: nature cannot change", domain.ErrAccountHasPostings)
			}
		}

		if input.ParentID != nil {
			if err := uc.reparent(ctx, tx, chart, account, *input.ParentID); err != nil {
				return err
			}
		}
		if input.OpeningBalance != nil {
			if err := domain.ValidateAmountScale(*input.OpeningBalance); err != nil {
				return err
			}
			delta := input.OpeningBalance.Sub(account.OpeningBalance)
			account.OpeningBalance = *input.OpeningBalance
			account.Balance = account.Balance.Add(delta)
		}
		if input.AllowManualEntry != nil {
			account.AllowManualEntry = *input.AllowManualEntry
		}
		account.UpdatedAt = uc.opts.now()

		if err := uc.accountRepo.Update(ctx, tx, account); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionAccountUpdate,
			resourceType: domain.ResourceTypeAccount,
			resourceID:   account.ID,
			before:       &before,
			after:        account,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountUpdated, accountPayload(account))
	})
	if err != nil {
		return nil, err
	}

	uc.count("update")
	invalidateReports(ctx, uc.opts.invalidator)
	return account, nil
}

func (uc *ChartUseCase) reparent(ctx context.Context, tx Transaction, chart []*domain.Account, account *domain.Account, parentID string) error {
	if parentID == "" {
		account.ParentID = nil
		return nil
	}
	if parentID == account.ID {
		return fmt.Errorf("%w: an account cannot be its own parent", domain.ErrValidation)
	}

	if _, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, parentID); err != nil {
		return err
	}
	if domain.WouldCreateCycle(chart, account.ID, parentID) {
		return fmt.Errorf("%w: moving %s under %s creates a cycle", domain.ErrValidation, account.ID, parentID)
	}

	account.ParentID = &parentID
	return nil
}

// Delete removes an account that has neither postings nor children.
func (uc *ChartUseCase) Delete(ctx context.Context, id string) error {
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		if err := authorize(ctx, uc.authorizer, domain.ActionAccountsManage, ""); err != nil {
			return err
		}

		account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		children, err := uc.accountRepo.CountChildren(ctx, tx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return domain.ErrAccountHasChildren
		}

		hasPostings, err := uc.journalRepo.HasPostingsForAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		if hasPostings {
			return domain.ErrAccountHasPostings
		}

		if err := uc.accountRepo.Delete(ctx, tx, id); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionAccountDelete,
			resourceType: domain.ResourceTypeAccount,
			resourceID:   id,
			before:       account,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeAccount, id, domain.EventTypeAccountDeleted, accountPayload(account))
	})
	if err != nil {
		return err
	}

	uc.count("delete")
	invalidateReports(ctx, uc.opts.invalidator)
	return nil
}

func (uc *ChartUseCase) count(operation string) {
	if uc.opts.metrics != nil {
		uc.opts.metrics.AccountOperations.WithLabelValues(operation).Inc()
	}
}

func accountPayload(a *domain.Account) map[string]any {
	payload := map[string]any{
		"account_id": a.ID,
		"code":       a.Code,
		"name":       a.Name,
		"type":       string(a.Type),
		"nature":     string(a.Nature),
		"balance":    a.Balance.String(),
	}
	if a.ParentID != nil {
		payload["parent_id"] = *a.ParentID
	}
	return payload
}
