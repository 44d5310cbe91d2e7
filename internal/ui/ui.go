// Package ui renders the interactive terminal dashboard. Every screen
// maps to one navigation destination; business rules live in the flow
// and service packages, the UI only collects input and prints results.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lenden-pay/lenden/internal/adminops"
	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/directory"
	"github.com/lenden-pay/lenden/internal/flows"
	"github.com/lenden-pay/lenden/internal/history"
	"github.com/lenden-pay/lenden/internal/identity"
	"github.com/lenden-pay/lenden/internal/money"
	"github.com/lenden-pay/lenden/internal/nav"
	"github.com/lenden-pay/lenden/internal/session"
	"github.com/lenden-pay/lenden/internal/wizard"
)

type UI struct {
	sessions *session.Store
	flows    *flows.Service
	dir      *directory.Service
	hist     *history.Service
	admin    *adminops.Service

	in  *bufio.Reader
	out io.Writer
	eof bool
}

func New(sessions *session.Store, fl *flows.Service, dir *directory.Service, hist *history.Service, admin *adminops.Service, in *bufio.Reader, out io.Writer) *UI {
	return &UI{sessions: sessions, flows: fl, dir: dir, hist: hist, admin: admin, in: in, out: out}
}

// Run drives the outer loop: the auth screen while logged out, the
// role-specific dashboard while logged in. Returns when the user exits.
func (u *UI) Run(ctx context.Context) {
	u.sessions.Refresh(ctx)
	for {
		if u.eof {
			return
		}
		id, ok := u.sessions.Current()
		if !ok {
			if !u.authScreen(ctx) {
				return
			}
			continue
		}
		if !u.dashboard(ctx, id) {
			return
		}
	}
}

// authScreen handles login and registration. Returns false on exit.
func (u *UI) authScreen(ctx context.Context) bool {
	fmt.Fprintln(u.out, "\n=== Lenden ===")
	fmt.Fprintln(u.out, "1) Login")
	fmt.Fprintln(u.out, "2) Register as user")
	fmt.Fprintln(u.out, "3) Register as agent")
	fmt.Fprintln(u.out, "0) Exit")
	fmt.Fprint(u.out, "> ")
	switch u.readChoice() {
	case "1":
		u.login(ctx)
	case "2":
		u.register(ctx, identity.RoleUser)
	case "3":
		u.register(ctx, identity.RoleAgent)
	case "0":
		return false
	}
	return true
}

func (u *UI) login(ctx context.Context) {
	fmt.Fprintln(u.out, "\n=== Login ===")
	fmt.Fprint(u.out, "Email or mobile number: ")
	who := u.readLine()
	fmt.Fprint(u.out, "PIN: ")
	pin := u.readLine()

	id, err := u.sessions.Login(ctx, who, pin)
	if err != nil {
		fmt.Fprintln(u.out, "Error:", err)
		return
	}
	fmt.Fprintf(u.out, "Welcome, %s!\n", id.Name)
}

func (u *UI) register(ctx context.Context, role identity.Role) {
	fmt.Fprintln(u.out, "\n=== Registration ===")
	fmt.Fprint(u.out, "Name: ")
	name := u.readLine()
	fmt.Fprint(u.out, "Email: ")
	email := u.readLine()
	fmt.Fprint(u.out, "Mobile number: ")
	phone := u.readLine()
	fmt.Fprint(u.out, "National ID: ")
	nid := u.readLine()
	fmt.Fprintf(u.out, "Choose a %d-digit PIN: ", identity.PINLength)
	pin := u.readLine()

	id, message, err := u.sessions.Register(ctx, session.RegisterInput{
		Name:        name,
		Email:       email,
		Phone:       phone,
		NationalID:  nid,
		PIN:         pin,
		AccountType: role,
	})
	if err != nil {
		fmt.Fprintln(u.out, "Error:", err)
		return
	}
	if message != "" {
		fmt.Fprintln(u.out, message)
	}
	fmt.Fprintf(u.out, "Logged in as %s.\n", id.Name)
}

// dashboard renders the menu for the session's role and dispatches the
// chosen destination. Returns false when the user exits the program.
func (u *UI) dashboard(ctx context.Context, id identity.Identity) bool {
	menu := nav.MenuFor(id.Role)
	fmt.Fprintf(u.out, "\n=== %s ===\n", nav.HomeFor(id.Role).Title)
	for i, dest := range menu {
		fmt.Fprintf(u.out, "%d) %s\n", i+1, dest.Title)
	}
	fmt.Fprintln(u.out, "0) Exit")
	fmt.Fprint(u.out, "> ")

	choice := u.readChoice()
	if choice == "0" {
		return false
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(menu) {
		return true
	}
	dest := menu[n-1]

	_, authenticated := u.sessions.Current()
	decision := nav.Guard(true, authenticated, dest)
	if !decision.Allowed {
		fmt.Fprintln(u.out, "Your session has expired. Please log in again.")
		return true
	}

	u.open(ctx, dest, id)
	return true
}

func (u *UI) open(ctx context.Context, dest nav.Destination, id identity.Identity) {
	switch dest.Key {
	case nav.UserHome.Key, nav.AgentHome.Key:
		u.profileScreen(ctx)
	case nav.AdminHome.Key:
		u.adminHome(ctx)
	case nav.SendMoney.Key:
		u.sendMoney(ctx)
	case nav.CashOut.Key:
		u.cashOut(ctx)
	case nav.CashIn.Key:
		u.cashIn(ctx)
	case nav.CashRequest.Key:
		u.cashRequest(ctx)
	case nav.WithdrawRequest.Key:
		u.withdrawRequest(ctx)
	case nav.Transactions.Key:
		u.transactions(ctx, id)
	case nav.ManageUsers.Key:
		u.roster(ctx, "Manage Users", adminops.NewUserRoster(u.admin), u.admin.ToggleUserBlock)
	case nav.ManageAgents.Key:
		u.roster(ctx, "Manage Agents", adminops.NewAgentRoster(u.admin), u.admin.ToggleAgentBlock)
	case nav.AgentApprovals.Key:
		u.agentApprovals(ctx)
	case nav.CashRequests.Key:
		u.requests(ctx, "Cash Requests", u.admin.CashRequests, u.admin.ResolveCashRequest)
	case nav.WithdrawRequests.Key:
		u.requests(ctx, "Withdraw Requests", u.admin.WithdrawRequests, u.admin.ResolveWithdrawRequest)
	case nav.Logout.Key:
		if err := u.sessions.Logout(ctx); err != nil {
			fmt.Fprintln(u.out, "Error:", err)
			return
		}
		fmt.Fprintln(u.out, "Logged out.")
	}
}

func (u *UI) profileScreen(ctx context.Context) {
	u.sessions.Refresh(ctx)
	id, ok := u.sessions.Current()
	if !ok {
		fmt.Fprintln(u.out, "Your session has expired. Please log in again.")
		return
	}
	fmt.Fprintf(u.out, "\n%s  (%s)\n", id.Name, id.Role)
	fmt.Fprintf(u.out, "Email:   %s\n", id.Email)
	fmt.Fprintf(u.out, "Mobile:  %s\n", id.Phone)
	fmt.Fprintf(u.out, "Balance: %s\n", money.Format(id.Balance))
	if id.Role == identity.RoleAgent {
		fmt.Fprintf(u.out, "Income:  %s\n", money.Format(id.AgentIncome))
		if !id.Approved {
			fmt.Fprintln(u.out, "Your agent account awaits admin approval.")
		}
	}
}

func (u *UI) adminHome(ctx context.Context) {
	stats, err := u.admin.SystemStats(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	fmt.Fprintln(u.out, "\n=== System Overview ===")
	fmt.Fprintf(u.out, "Users:          %d\n", stats.TotalUsers)
	fmt.Fprintf(u.out, "Agents:         %d\n", stats.TotalAgents)
	fmt.Fprintf(u.out, "Transactions:   %d\n", stats.TotalTransactions)
	fmt.Fprintf(u.out, "System balance: %s\n", money.Format(stats.SystemBalance))
	fmt.Fprintf(u.out, "Agent income:   %s\n", money.Format(stats.TotalAgentIncome))

	if recent, err := u.admin.RecentUsers(ctx); err == nil && len(recent) > 0 {
		fmt.Fprintln(u.out, "Recent users:")
		for _, row := range recent {
			fmt.Fprintf(u.out, "- %s  %s\n", row.Name, row.Phone)
		}
	}
	if recent, err := u.admin.RecentAgents(ctx); err == nil && len(recent) > 0 {
		fmt.Fprintln(u.out, "Recent agents:")
		for _, row := range recent {
			fmt.Fprintf(u.out, "- %s  %s\n", row.Name, row.Phone)
		}
	}
}

func (u *UI) sendMoney(ctx context.Context) {
	flow, contacts, err := u.flows.SendMoney(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	u.runWizard(ctx, "Send Money", flow, contacts)
}

func (u *UI) cashOut(ctx context.Context) {
	flow, agents, err := u.flows.CashOut(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	u.runWizard(ctx, "Cash Out", flow, agents)
}

func (u *UI) cashIn(ctx context.Context) {
	flow, users, err := u.flows.CashIn(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	u.runWizard(ctx, "Cash In", flow, users)
}

func (u *UI) cashRequest(ctx context.Context) {
	flow, err := u.flows.CashRequest(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	fmt.Fprintln(u.out, "\n=== Request Cash ===")
	fmt.Fprintf(u.out, "A cash request asks the admin for a fixed float of %s.\n", money.Format(flow.Amount()))
	u.runWizard(ctx, "Request Cash", flow, nil)
}

func (u *UI) withdrawRequest(ctx context.Context) {
	flow, err := u.flows.WithdrawRequest(ctx)
	if err != nil {
		u.reportError(err)
		return
	}
	fmt.Fprintln(u.out, "\n=== Withdraw Income ===")
	fmt.Fprintf(u.out, "Available income: %s\n", money.Format(flow.Available()))
	u.runWizard(ctx, "Withdraw Income", flow, nil)
}

// runWizard walks a flow through its steps, prompting only for what the
// current step needs. Empty input cancels the wizard.
func (u *UI) runWizard(ctx context.Context, title string, flow *wizard.Flow, contacts []identity.Counterparty) {
	for {
		if u.eof {
			return
		}
		switch flow.Step() {
		case wizard.StepSelectCounterparty:
			chosen, ok := u.pickCounterparty(contacts)
			if !ok {
				return
			}
			if err := flow.Select(chosen); err != nil {
				fmt.Fprintln(u.out, "Error:", err)
				return
			}

		case wizard.StepEnterAmount:
			if !flow.AmountFixed() {
				if cur := flow.Amount(); cur != 0 {
					fmt.Fprintf(u.out, "Amount [%s] (empty to cancel): ", money.Format(cur))
				} else {
					fmt.Fprintf(u.out, "Amount (e.g. 100.50, balance %s): ", money.Format(flow.Available()))
				}
				raw := u.readLine()
				if raw == "" {
					return
				}
				amount, err := money.Parse(raw)
				if err != nil {
					fmt.Fprintln(u.out, "Invalid amount. Example: 100.50")
					continue
				}
				if err := flow.SetAmount(amount); err != nil {
					fmt.Fprintln(u.out, "Error:", err)
					continue
				}
			}
			fmt.Fprint(u.out, "Reference (optional): ")
			if err := flow.SetReference(u.readLine()); err != nil {
				fmt.Fprintln(u.out, "Error:", err)
				continue
			}
			if err := flow.Proceed(); err != nil {
				fmt.Fprintln(u.out, "Error:", err)
				// Only the amount can fail here; when the flow fixes
				// it there is nothing the user can change.
				if flow.AmountFixed() {
					return
				}
				continue
			}

		case wizard.StepConfirm:
			fmt.Fprintf(u.out, "\n=== Confirm %s ===\n", title)
			if c, ok := flow.Counterparty(); ok {
				fmt.Fprintf(u.out, "To:     %s (%s)\n", c.Name, c.Phone)
			}
			fmt.Fprintf(u.out, "Amount: %s\n", money.Format(flow.Amount()))
			if flow.Fee() > 0 {
				fmt.Fprintf(u.out, "Fee:    %s\n", money.Format(flow.Fee()))
				fmt.Fprintf(u.out, "Total:  %s\n", money.Format(flow.Total()))
			}
			fmt.Fprint(u.out, "PIN to confirm (empty to go back): ")
			pin := u.readLine()
			if pin == "" {
				flow.Back()
				if flow.AmountFixed() {
					// nothing editable behind Confirm for a fixed
					// request, so going back means cancelling
					return
				}
				continue
			}
			flow.SetPIN(pin)

			res, err := flow.Submit(ctx)
			if err != nil {
				if wizard.IsValidation(err) {
					fmt.Fprintln(u.out, "Error:", err)
					continue
				}
				u.reportError(err)
				return
			}
			if res.Message != "" {
				fmt.Fprintln(u.out, res.Message)
			} else {
				fmt.Fprintln(u.out, "Done.")
			}
			if res.TransactionID != "" {
				fmt.Fprintf(u.out, "Transaction %s, new balance %s\n", res.TransactionID, money.Format(res.NewBalance))
			}
			return
		}
	}
}

// pickCounterparty lists contacts with an optional name or phone filter.
func (u *UI) pickCounterparty(contacts []identity.Counterparty) (identity.Counterparty, bool) {
	visible := contacts
	for {
		if len(visible) == 0 {
			fmt.Fprintln(u.out, "Nobody matches.")
		}
		for i, c := range visible {
			fmt.Fprintf(u.out, "%d) %s  %s\n", i+1, c.Name, c.Phone)
		}
		fmt.Fprint(u.out, "Pick a number, type to search, empty to cancel: ")
		raw := u.readLine()
		if raw == "" {
			return identity.Counterparty{}, false
		}
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(visible) {
			return visible[n-1], true
		}
		visible = directory.Filter(contacts, raw)
	}
}

func (u *UI) transactions(ctx context.Context, id identity.Identity) {
	q := history.Query{Limit: 20}
	switch id.Role {
	case identity.RoleAgent:
		q.AgentID = id.ID
	case identity.RoleAdmin:
		// Admin sees everything.
	default:
		q.UserID = id.ID
	}
	records, err := u.hist.List(ctx, q)
	if err != nil {
		u.reportError(err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(u.out, "No transactions yet.")
		return
	}
	fmt.Fprintln(u.out, "\n=== Transactions ===")
	for _, r := range records {
		line := fmt.Sprintf("- %s  %-12s  %s", r.CreatedAt.Format("2006-01-02 15:04"), r.Type, money.Format(r.Amount))
		if r.Fee > 0 {
			line += fmt.Sprintf("  (fee %s)", money.Format(r.Fee))
		}
		fmt.Fprintln(u.out, line)
		if strings.TrimSpace(r.Reference) != "" {
			fmt.Fprintf(u.out, "    %s\n", r.Reference)
		}
	}
}

// roster drives the shared admin account management screen: each search
// replaces the listing wholesale, and a block toggle refetches it.
func (u *UI) roster(ctx context.Context, title string, r *adminops.Roster, toggle func(context.Context, string) error) {
	if err := r.Search(ctx, ""); err != nil {
		u.reportError(err)
		return
	}
	for {
		fmt.Fprintf(u.out, "\n=== %s ===\n", title)
		rows := r.Rows()
		if len(rows) == 0 {
			fmt.Fprintln(u.out, "No accounts match.")
		}
		for i, row := range rows {
			status := "active"
			if row.Blocked {
				status = "blocked"
			}
			fmt.Fprintf(u.out, "%d) %-20s %-14s %-10s %s\n", i+1, row.Name, row.Phone, money.Format(row.Balance), status)
		}
		fmt.Fprint(u.out, "Number to toggle block, 's' to search, empty to go back: ")
		raw := u.readLine()
		switch {
		case raw == "":
			return
		case raw == "s":
			fmt.Fprint(u.out, "Phone search: ")
			if err := r.Search(ctx, u.readLine()); err != nil {
				u.reportError(err)
				return
			}
		default:
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > len(rows) {
				continue
			}
			if err := toggle(ctx, rows[n-1].ID); err != nil {
				u.reportError(err)
				return
			}
			if err := r.Refetch(ctx); err != nil {
				u.reportError(err)
				return
			}
		}
	}
}

func (u *UI) agentApprovals(ctx context.Context) {
	for {
		pending, err := u.admin.PendingAgents(ctx)
		if err != nil {
			u.reportError(err)
			return
		}
		if len(pending) == 0 {
			fmt.Fprintln(u.out, "No agents awaiting approval.")
			return
		}
		fmt.Fprintln(u.out, "\n=== Agent Approvals ===")
		for i, row := range pending {
			fmt.Fprintf(u.out, "%d) %s  %s  %s\n", i+1, row.Name, row.Phone, row.Email)
		}
		fmt.Fprint(u.out, "Number to act on, empty to go back: ")
		raw := u.readLine()
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > len(pending) {
			continue
		}
		fmt.Fprint(u.out, "a) approve  r) reject: ")
		switch u.readChoice() {
		case "a":
			err = u.admin.ApproveAgent(ctx, pending[n-1].ID)
		case "r":
			err = u.admin.RejectAgent(ctx, pending[n-1].ID)
		default:
			continue
		}
		if err != nil {
			u.reportError(err)
			return
		}
	}
}

func (u *UI) requests(ctx context.Context, title string, list func(context.Context) ([]adminops.RequestRow, error), resolve func(context.Context, string, bool) error) {
	for {
		rows, err := list(ctx)
		if err != nil {
			u.reportError(err)
			return
		}
		if len(rows) == 0 {
			fmt.Fprintln(u.out, "No pending requests.")
			return
		}
		fmt.Fprintf(u.out, "\n=== %s ===\n", title)
		for i, row := range rows {
			fmt.Fprintf(u.out, "%d) %s  %s  %s\n", i+1, row.AgentName, row.AgentPhone, money.Format(row.Amount))
		}
		fmt.Fprint(u.out, "Number to act on, empty to go back: ")
		raw := u.readLine()
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > len(rows) {
			continue
		}
		fmt.Fprint(u.out, "a) approve  r) reject: ")
		switch u.readChoice() {
		case "a":
			err = resolve(ctx, rows[n-1].ID, true)
		case "r":
			err = resolve(ctx, rows[n-1].ID, false)
		default:
			continue
		}
		if err != nil {
			u.reportError(err)
			return
		}
	}
}

// reportError distinguishes an expired session, which the session store
// already cleared, from ordinary backend rejections.
func (u *UI) reportError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, api.ErrSessionExpired) {
		fmt.Fprintln(u.out, "Your session has expired. Please log in again.")
		return
	}
	fmt.Fprintln(u.out, "Error:", err)
}

func (u *UI) readLine() string {
	s, err := u.in.ReadString('\n')
	if err != nil && s == "" {
		u.eof = true
	}
	return strings.TrimSpace(s)
}

func (u *UI) readChoice() string {
	return strings.ToLower(u.readLine())
}
