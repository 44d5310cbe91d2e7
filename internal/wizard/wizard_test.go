package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
)

var alice = identity.Counterparty{ID: "u1", Name: "Alice", Phone: "01711111111"}

func countingSubmit(calls *int, res Result, err error) SubmitFunc {
	return func(context.Context, Submission) (Result, error) {
		*calls++
		return res, err
	}
}

func transferRules() Rules {
	return Rules{
		MinAmount:    money.MinTransfer,
		Fee:          money.TransferFee,
		CheckFunds:   true,
		RequirePIN:   true,
		MaxReference: 25,
	}
}

func TestFlowHappyPath(t *testing.T) {
	calls := 0
	flow := New(transferRules(), 500_00, countingSubmit(&calls, Result{TransactionID: "tx1", NewBalance: 294_00}, nil))

	if err := flow.Select(alice); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := flow.SetAmount(201_00); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if flow.Fee() != 5_00 {
		t.Fatalf("fee = %d, want 500", flow.Fee())
	}
	if flow.Total() != 206_00 {
		t.Fatalf("total = %d", flow.Total())
	}
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	flow.SetPIN("12345")

	res, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("submit called %d times", calls)
	}
	if res.TransactionID != "tx1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if flow.Step() != StepSelectCounterparty {
		t.Fatalf("flow not reset after success, step %v", flow.Step())
	}
	if flow.Available() != 294_00 {
		t.Fatalf("available not adopted from server: %d", flow.Available())
	}
}

func TestProceedRejectsBelowMinimum(t *testing.T) {
	calls := 0
	flow := New(transferRules(), 500_00, countingSubmit(&calls, Result{}, nil))

	if err := flow.Select(alice); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := flow.SetAmount(49_99); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	err := flow.Proceed()
	if err == nil {
		t.Fatal("proceed accepted an amount below the minimum")
	}
	if !IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatal("submit reached on invalid input")
	}
}

func TestProceedRejectsWhenFeeExceedsBalance(t *testing.T) {
	flow := New(transferRules(), 203_00, func(context.Context, Submission) (Result, error) {
		t.Fatal("submit must not run")
		return Result{}, nil
	})

	if err := flow.Select(alice); err != nil {
		t.Fatalf("select: %v", err)
	}
	// Amount alone fits, amount plus the flat fee does not.
	if err := flow.SetAmount(200_00); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if err := flow.Proceed(); err == nil {
		t.Fatal("proceed ignored the fee in the funds check")
	}
}

func TestSubmitRequiresValidPIN(t *testing.T) {
	calls := 0
	flow := New(transferRules(), 500_00, countingSubmit(&calls, Result{}, nil))

	flow.Select(alice)
	flow.SetAmount(60_00)
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	for _, pin := range []string{"", "1234", "123456", "12a45"} {
		flow.SetPIN(pin)
		if _, err := flow.Submit(context.Background()); err == nil {
			t.Fatalf("submit accepted PIN %q", pin)
		}
	}
	if calls != 0 {
		t.Fatalf("submit reached %d times with an invalid PIN", calls)
	}
}

func TestBackPreservesCounterpartyAndClearsAmount(t *testing.T) {
	flow := New(transferRules(), 500_00, nil)

	flow.Select(alice)
	flow.SetAmount(200_00)
	flow.Proceed()
	flow.SetPIN("12345")

	flow.Back()
	if flow.Step() != StepEnterAmount {
		t.Fatalf("back from confirm landed on %v", flow.Step())
	}
	if flow.Amount() != 200_00 {
		t.Fatal("back from confirm should keep the amount")
	}

	flow.Back()
	if flow.Step() != StepSelectCounterparty {
		t.Fatalf("back from amount landed on %v", flow.Step())
	}
	if flow.Amount() != 0 || flow.Fee() != 0 {
		t.Fatal("leaving amount entry should clear amount and fee")
	}
	if _, ok := flow.Counterparty(); !ok {
		t.Fatal("counterparty cleared too early")
	}
}

func TestFeeRecomputedOnEveryAmountChange(t *testing.T) {
	flow := New(transferRules(), 10_000_00, nil)
	flow.Select(alice)

	flow.SetAmount(200_00)
	if flow.Fee() != 5_00 {
		t.Fatalf("fee = %d after large amount", flow.Fee())
	}
	flow.SetAmount(60_00)
	if flow.Fee() != 0 {
		t.Fatalf("stale fee %d kept after amount dropped below threshold", flow.Fee())
	}
}

func TestSubmitFailureKeepsState(t *testing.T) {
	wrongPIN := errors.New("incorrect PIN")
	calls := 0
	flow := New(transferRules(), 500_00, func(context.Context, Submission) (Result, error) {
		calls++
		return Result{}, wrongPIN
	})

	flow.Select(alice)
	flow.SetAmount(200_00)
	flow.Proceed()
	flow.SetPIN("11111")

	if _, err := flow.Submit(context.Background()); !errors.Is(err, wrongPIN) {
		t.Fatalf("submit error = %v", err)
	}
	if flow.Step() != StepConfirm {
		t.Fatalf("failed submit reset the flow to %v", flow.Step())
	}
	if flow.Amount() != 200_00 {
		t.Fatal("failed submit lost the amount")
	}

	// Retry with the corrected PIN still performs exactly one more call.
	flow.SetPIN("12345")
	flow.submit = countingSubmit(&calls, Result{NewBalance: 295_00}, nil)
	if _, err := flow.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("submit calls = %d, want 2", calls)
	}
}

func TestFixedCounterpartySkipsSelection(t *testing.T) {
	rules := Rules{CheckFunds: true, FixedCounterparty: true}
	flow := New(rules, 40_00, nil)

	if flow.Step() != StepEnterAmount {
		t.Fatalf("fixed counterparty flow starts at %v", flow.Step())
	}
	flow.Back()
	if flow.Step() != StepEnterAmount {
		t.Fatal("back escaped the fixed counterparty flow")
	}
}

func TestFixedAmountLocksEdits(t *testing.T) {
	rules := Rules{FixedCounterparty: true, FixedAmount: money.CashRequestAmount}
	flow := New(rules, 0, nil)

	if flow.Amount() != money.CashRequestAmount {
		t.Fatalf("amount = %d, want the fixed request amount", flow.Amount())
	}
	if err := flow.SetAmount(1_00); err == nil {
		t.Fatal("fixed amount accepted an edit")
	}
	if err := flow.Proceed(); err != nil {
		t.Fatalf("proceed with fixed amount: %v", err)
	}
}
