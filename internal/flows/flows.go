// Package flows binds the generic wizard shape to the concrete
// money-movement screens: Send Money, Cash Out, Cash In, Withdraw
// Request and Cash Request. Each flow terminates in exactly one
// mutating API call and adopts the server's authoritative balance.
package flows

import (
	"context"
	"fmt"

	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/directory"
	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/session"
	"github.com/lenden-pay/lenden/internal/wizard"
)

// maxReferenceLen caps the optional free-text reference on transfers.
const maxReferenceLen = 25

// Service builds wizard flows wired to the backend.
type Service struct {
	client   *api.Client
	sessions *session.Store
	dir      *directory.Service
}

func NewService(client *api.Client, sessions *session.Store, dir *directory.Service) *Service {
	return &Service{client: client, sessions: sessions, dir: dir}
}

func (s *Service) currentIdentity(ctx context.Context) (identity.Identity, error) {
	// Refresh first so the funds check runs against the backend's
	// current balance, not a stale cached one.
	s.sessions.Refresh(ctx)
	id, ok := s.sessions.Current()
	if !ok {
		return identity.Identity{}, api.ErrSessionExpired
	}
	return id, nil
}

type transferRequest struct {
	RecipientPhone string `json:"recipientPhone"`
	Amount         int64  `json:"amount"`
	PIN            string `json:"pin"`
	Reference      string `json:"reference,omitempty"`
}

type transferResponse struct {
	api.Envelope
	TransactionID string `json:"transactionId"`
	SenderBalance int64  `json:"senderBalance"`
}

// SendMoney starts the P2P transfer wizard. It returns the flow plus the
// recipient directory for the selection step.
func (s *Service) SendMoney(ctx context.Context) (*wizard.Flow, []identity.Counterparty, error) {
	id, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}
	contacts, err := s.dir.Users(ctx)
	if err != nil {
		return nil, nil, err
	}

	rules := wizard.Rules{
		MinAmount:    money.MinTransfer,
		Fee:          money.TransferFee,
		CheckFunds:   true,
		RequirePIN:   true,
		MaxReference: maxReferenceLen,
	}
	flow := wizard.New(rules, id.Balance, func(ctx context.Context, sub wizard.Submission) (wizard.Result, error) {
		req := transferRequest{
			RecipientPhone: sub.Counterparty.Phone,
			Amount:         sub.Amount,
			PIN:            sub.PIN,
			Reference:      sub.Reference,
		}
		var resp transferResponse
		if err := s.client.Post(ctx, "/transactions/send-money", req, &resp); err != nil {
			return wizard.Result{}, err
		}
		s.sessions.UpdateBalance(resp.SenderBalance)
		return wizard.Result{
			TransactionID: resp.TransactionID,
			NewBalance:    resp.SenderBalance,
			Message:       resp.Message,
		}, nil
	})
	return flow, contacts, nil
}

type cashOutRequest struct {
	AgentPhone string `json:"agentPhone"`
	Amount     int64  `json:"amount"`
	PIN        string `json:"pin"`
}

type cashOutResponse struct {
	api.Envelope
	TransactionID string `json:"transactionId"`
	NewBalance    int64  `json:"newBalance"`
}

// CashOut starts the cash-out wizard against the approved-agent
// directory. The 1.5% fee counts toward the funds check.
func (s *Service) CashOut(ctx context.Context) (*wizard.Flow, []identity.Counterparty, error) {
	id, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}
	agents, err := s.dir.ApprovedAgents(ctx)
	if err != nil {
		return nil, nil, err
	}

	rules := wizard.Rules{
		Fee:        money.CashOutFee,
		CheckFunds: true,
		RequirePIN: true,
	}
	flow := wizard.New(rules, id.Balance, func(ctx context.Context, sub wizard.Submission) (wizard.Result, error) {
		req := cashOutRequest{AgentPhone: sub.Counterparty.Phone, Amount: sub.Amount, PIN: sub.PIN}
		var resp cashOutResponse
		if err := s.client.Post(ctx, "/transactions/cash-out", req, &resp); err != nil {
			return wizard.Result{}, err
		}
		s.sessions.UpdateBalance(resp.NewBalance)
		return wizard.Result{
			TransactionID: resp.TransactionID,
			NewBalance:    resp.NewBalance,
			Message:       resp.Message,
		}, nil
	})
	return flow, agents, nil
}

type cashInRequest struct {
	UserPhone string `json:"userPhone"`
	Amount    int64  `json:"amount"`
	PIN       string `json:"pin"`
	Reference string `json:"reference,omitempty"`
}

type cashInResponse struct {
	api.Envelope
	TransactionID string `json:"transactionId"`
	UserBalance   int64  `json:"userBalance"`
	AgentBalance  int64  `json:"agentBalance"`
}

// CashIn starts the agent-side deposit wizard. No fee and no local
// funds gate; the backend enforces the agent's float.
func (s *Service) CashIn(ctx context.Context) (*wizard.Flow, []identity.Counterparty, error) {
	id, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}
	if id.Role != identity.RoleAgent {
		return nil, nil, fmt.Errorf("cash-in is an agent operation")
	}
	users, err := s.dir.Users(ctx)
	if err != nil {
		return nil, nil, err
	}

	rules := wizard.Rules{
		RequirePIN:   true,
		MaxReference: maxReferenceLen,
	}
	flow := wizard.New(rules, id.Balance, func(ctx context.Context, sub wizard.Submission) (wizard.Result, error) {
		req := cashInRequest{
			UserPhone: sub.Counterparty.Phone,
			Amount:    sub.Amount,
			PIN:       sub.PIN,
			Reference: sub.Reference,
		}
		var resp cashInResponse
		if err := s.client.Post(ctx, "/transactions/cash-in", req, &resp); err != nil {
			return wizard.Result{}, err
		}
		s.sessions.UpdateBalance(resp.AgentBalance)
		return wizard.Result{
			TransactionID: resp.TransactionID,
			NewBalance:    resp.AgentBalance,
			Message:       resp.Message,
		}, nil
	})
	return flow, users, nil
}

type agentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type agentRequestResponse struct {
	api.Envelope
	RequestID string `json:"requestId"`
}

// WithdrawRequest starts the wizard through which an agent asks admin to
// pay out earned income. The counterparty is implicitly the admin, and
// the amount is capped by the agent's income. No PIN is collected; the
// request only enters a pending queue.
func (s *Service) WithdrawRequest(ctx context.Context) (*wizard.Flow, error) {
	id, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if id.Role != identity.RoleAgent {
		return nil, fmt.Errorf("withdraw requests are an agent operation")
	}

	rules := wizard.Rules{
		CheckFunds:        true,
		FixedCounterparty: true,
	}
	flow := wizard.New(rules, id.AgentIncome, func(ctx context.Context, sub wizard.Submission) (wizard.Result, error) {
		req := agentRequest{Amount: sub.Amount, Reason: sub.Reference}
		var resp agentRequestResponse
		if err := s.client.Post(ctx, "/agents/withdraw-request", req, &resp); err != nil {
			return wizard.Result{}, err
		}
		// Income is untouched until admin approval.
		return wizard.Result{
			TransactionID: resp.RequestID,
			NewBalance:    id.AgentIncome,
			Message:       resp.Message,
		}, nil
	})
	return flow, nil
}

// CashRequest starts the fixed-amount recharge request an agent sends to
// admin when their float runs low.
func (s *Service) CashRequest(ctx context.Context) (*wizard.Flow, error) {
	id, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if id.Role != identity.RoleAgent {
		return nil, fmt.Errorf("cash requests are an agent operation")
	}

	rules := wizard.Rules{
		FixedCounterparty: true,
		FixedAmount:       money.CashRequestAmount,
	}
	flow := wizard.New(rules, id.Balance, func(ctx context.Context, sub wizard.Submission) (wizard.Result, error) {
		req := agentRequest{Amount: sub.Amount, Reason: sub.Reference}
		var resp agentRequestResponse
		if err := s.client.Post(ctx, "/agents/cash-request", req, &resp); err != nil {
			return wizard.Result{}, err
		}
		return wizard.Result{
			TransactionID: resp.RequestID,
			NewBalance:    id.Balance,
			Message:       resp.Message,
		}, nil
	})
	return flow, nil
}
