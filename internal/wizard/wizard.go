package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
)

// Step identifies a stage of the linear transactional wizard.
type Step int

const (
	StepSelectCounterparty Step = iota
	StepEnterAmount
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepSelectCounterparty:
		return "select"
	case StepEnterAmount:
		return "amount"
	case StepConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidationError is a client-side input rejection, raised before any
// network call and suitable for inline display.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a local input rejection.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// Rules parameterise the shared wizard shape for a specific flow.
type Rules struct {
	// MinAmount is the smallest accepted amount; zero means any
	// positive amount.
	MinAmount int64
	// Fee computes the charge for a candidate amount. Nil means free.
	Fee func(amount int64) int64
	// CheckFunds gates EnterAmount -> Confirm on amount+fee not
	// exceeding the known available balance.
	CheckFunds bool
	// RequirePIN demands an exact-length PIN before submission.
	RequirePIN bool
	// MaxReference caps the optional free-text reference.
	MaxReference int
	// FixedCounterparty skips the selection step for flows whose
	// counterparty is implicit (agent requests to admin).
	FixedCounterparty bool
	// FixedAmount pre-sets and locks the amount when non-zero.
	FixedAmount int64
}

// Submission is the single mutating call a completed wizard produces.
type Submission struct {
	Counterparty identity.Counterparty
	Amount       int64
	Fee          int64
	Reference    string
	PIN          string
}

// Result carries the authoritative outcome of a submission. NewBalance
// is the server's post-transaction value, never a client estimate.
type Result struct {
	TransactionID string
	NewBalance    int64
	Message       string
}

// SubmitFunc performs the flow's one mutating API call.
type SubmitFunc func(ctx context.Context, sub Submission) (Result, error)

// Flow is a finite linear wizard: select counterparty, enter amount,
// confirm. State only advances after the preceding step validates, and
// only regresses through Back, which clears exactly the fields owned by
// the step being exited.
type Flow struct {
	rules  Rules
	submit SubmitFunc

	available int64
	step      Step

	counterparty    identity.Counterparty
	hasCounterparty bool
	amount          int64
	fee             int64
	reference       string
	pin             string
}

// New builds a flow against the known available balance. The submit
// function is invoked exactly once per successful confirmation.
func New(rules Rules, available int64, submit SubmitFunc) *Flow {
	f := &Flow{rules: rules, submit: submit, available: available}
	f.reset()
	return f
}

func (f *Flow) reset() {
	f.counterparty = identity.Counterparty{}
	f.hasCounterparty = false
	f.amount = 0
	f.fee = 0
	f.reference = ""
	f.pin = ""
	if f.rules.FixedCounterparty {
		f.step = StepEnterAmount
	} else {
		f.step = StepSelectCounterparty
	}
	if f.rules.FixedAmount > 0 {
		f.amount = f.rules.FixedAmount
		f.fee = f.feeFor(f.amount)
	}
}

func (f *Flow) feeFor(amount int64) int64 {
	if f.rules.Fee == nil {
		return 0
	}
	return f.rules.Fee(amount)
}

// Step reports the current stage.
func (f *Flow) Step() Step { return f.step }

// Available returns the balance the funds check runs against.
func (f *Flow) Available() int64 { return f.available }

// SetAvailable refreshes the known balance, e.g. after a profile fetch.
func (f *Flow) SetAvailable(balance int64) { f.available = balance }

// Counterparty returns the current selection, if any.
func (f *Flow) Counterparty() (identity.Counterparty, bool) {
	return f.counterparty, f.hasCounterparty
}

// Amount returns the entered amount in minor units.
func (f *Flow) Amount() int64 { return f.amount }

// AmountFixed reports whether the rules lock the amount, leaving the
// user nothing to edit on the amount step.
func (f *Flow) AmountFixed() bool { return f.rules.FixedAmount > 0 }

// Fee returns the charge computed for the current amount.
func (f *Flow) Fee() int64 { return f.fee }

// Total returns amount plus fee, the figure shown before confirmation.
func (f *Flow) Total() int64 { return f.amount + f.fee }

// Reference returns the optional free-text note.
func (f *Flow) Reference() string { return f.reference }

// Select records the chosen counterparty and advances to amount entry.
func (f *Flow) Select(c identity.Counterparty) error {
	if f.step != StepSelectCounterparty {
		return validationf("counterparty already chosen")
	}
	f.counterparty = c
	f.hasCounterparty = true
	f.step = StepEnterAmount
	return nil
}

// SetAmount records a new amount and recomputes the fee. Only legal
// while entering the amount; fixed-amount flows reject edits.
func (f *Flow) SetAmount(amount int64) error {
	if f.step != StepEnterAmount {
		return validationf("amount cannot change at the %s step", f.step)
	}
	if f.rules.FixedAmount > 0 {
		return validationf("this request has a fixed amount of %s", money.Format(f.rules.FixedAmount))
	}
	f.amount = amount
	f.fee = f.feeFor(amount)
	return nil
}

// SetReference records the optional note, enforcing the length cap.
func (f *Flow) SetReference(ref string) error {
	if f.rules.MaxReference > 0 && len(ref) > f.rules.MaxReference {
		return validationf("reference must be at most %d characters", f.rules.MaxReference)
	}
	f.reference = ref
	return nil
}

// SetPIN records the confirmation PIN.
func (f *Flow) SetPIN(pin string) { f.pin = pin }

// Proceed validates the amount and advances to confirmation. Violations
// block the transition; nothing is silently corrected.
func (f *Flow) Proceed() error {
	if f.step != StepEnterAmount {
		return validationf("nothing to proceed from the %s step", f.step)
	}
	if f.amount <= 0 {
		return validationf("please enter a valid amount")
	}
	if f.rules.MinAmount > 0 && f.amount < f.rules.MinAmount {
		return validationf("minimum amount is %s", money.Format(f.rules.MinAmount))
	}
	if f.rules.CheckFunds && f.amount+f.fee > f.available {
		return validationf("insufficient balance")
	}
	f.step = StepConfirm
	return nil
}

// Back regresses one step, clearing only the fields owned by the step
// being exited: the PIN when leaving Confirm, amount and fee when
// leaving EnterAmount. The counterparty selection survives a
// back-then-forward cycle untouched.
func (f *Flow) Back() {
	switch f.step {
	case StepConfirm:
		f.pin = ""
		f.step = StepEnterAmount
	case StepEnterAmount:
		if f.rules.FixedCounterparty {
			return
		}
		if f.rules.FixedAmount == 0 {
			f.amount = 0
			f.fee = 0
		}
		f.step = StepSelectCounterparty
	}
}

// Submit performs the flow's single mutating call. Success resets the
// wizard to its initial state; failure leaves every field intact so the
// user can retry after, say, a mistyped PIN.
func (f *Flow) Submit(ctx context.Context) (Result, error) {
	if f.step != StepConfirm {
		return Result{}, validationf("confirm the details before submitting")
	}
	if f.rules.RequirePIN && !identity.ValidPIN(f.pin) {
		return Result{}, validationf("please enter a valid %d-digit PIN", identity.PINLength)
	}

	sub := Submission{
		Counterparty: f.counterparty,
		Amount:       f.amount,
		Fee:          f.fee,
		Reference:    f.reference,
		PIN:          f.pin,
	}
	res, err := f.submit(ctx, sub)
	if err != nil {
		return Result{}, err
	}
	f.available = res.NewBalance
	f.reset()
	return res, nil
}
