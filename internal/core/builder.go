package core

import (
	"strings"
	"time"
)

// recordDraft is the private working copy shared by ExpenseBuilder and
// IncomeBuilder. Setters validate eagerly; the first failure is recorded and
// later setters become no-ops, so a half-valid draft never escapes. Build
// re-checks the required fields because a caller may skip setters entirely.
type recordDraft struct {
	amount    float64
	amountSet bool
	currency  string
	label     string // categoryId for expenses, source for incomes
	labelSet  bool
	memberID  string
	date      time.Time
	notes     string
	err       error
}

func (d *recordDraft) setAmount(v float64) {
	if d.err != nil {
		return
	}
	if v <= 0 {
		d.err = validationErr("amount", "amount must be greater than 0")
		return
	}
	d.amount = v
	d.amountSet = true
}

func (d *recordDraft) setCurrency(v string) {
	if d.err != nil {
		return
	}
	if v != "" {
		d.currency = v
		return
	}
	d.currency = NativeCurrency
}

func (d *recordDraft) setLabel(field, v string) {
	if d.err != nil {
		return
	}
	if strings.TrimSpace(v) == "" {
		d.err = validationErr(field, "%s must be a non-empty string", field)
		return
	}
	// Stored untrimmed; only the emptiness check trims.
	d.label = v
	d.labelSet = true
}

func (d *recordDraft) setMemberID(v string) {
	if d.err != nil {
		return
	}
	if v != "" {
		d.memberID = v
	}
}

func (d *recordDraft) setDate(v string) {
	if d.err != nil {
		return
	}
	if v == "" {
		// Resolved to "now" at build time so each Build observes a fresh instant.
		return
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		d.err = validationErr("date", "invalid date %q", v)
		return
	}
	d.date = t
}

func (d *recordDraft) setNotes(v string) {
	if d.err != nil {
		return
	}
	if v != "" {
		d.notes = v
	}
}

// resolve returns a finalized copy of the draft with defaults filled in, or
// the first validation failure. The draft itself is left untouched.
func (d *recordDraft) resolve(labelField string) (recordDraft, error) {
	if d.err != nil {
		return recordDraft{}, d.err
	}
	if !d.amountSet {
		return recordDraft{}, validationErr("amount", "amount is required")
	}
	if !d.labelSet {
		return recordDraft{}, validationErr(labelField, "%s is required", labelField)
	}
	out := *d
	if out.currency == "" {
		out.currency = NativeCurrency
	}
	if out.date.IsZero() {
		out.date = time.Now().UTC()
	}
	return out, nil
}

// ExpenseBuilder incrementally validates and assembles an Expense.
// One builder instance serves exactly one record construction.
type ExpenseBuilder struct {
	d recordDraft
}

func NewExpenseBuilder() *ExpenseBuilder {
	return &ExpenseBuilder{}
}

func (b *ExpenseBuilder) SetAmount(v float64) *ExpenseBuilder {
	b.d.setAmount(v)
	return b
}

func (b *ExpenseBuilder) SetCurrency(v string) *ExpenseBuilder {
	b.d.setCurrency(v)
	return b
}

func (b *ExpenseBuilder) SetCategory(v string) *ExpenseBuilder {
	b.d.setLabel("categoryId", v)
	return b
}

func (b *ExpenseBuilder) SetMemberID(v string) *ExpenseBuilder {
	b.d.setMemberID(v)
	return b
}

func (b *ExpenseBuilder) SetDate(v string) *ExpenseBuilder {
	b.d.setDate(v)
	return b
}

func (b *ExpenseBuilder) SetNotes(v string) *ExpenseBuilder {
	b.d.setNotes(v)
	return b
}

// Build returns a caller-owned snapshot, or the first validation failure.
func (b *ExpenseBuilder) Build() (Expense, error) {
	d, err := b.d.resolve("categoryId")
	if err != nil {
		return Expense{}, err
	}
	return Expense{
		Amount:     d.amount,
		Currency:   d.currency,
		CategoryID: d.label,
		MemberID:   d.memberID,
		Date:       d.date,
		Notes:      d.notes,
	}, nil
}

// IncomeBuilder incrementally validates and assembles an Income.
type IncomeBuilder struct {
	d recordDraft
}

func NewIncomeBuilder() *IncomeBuilder {
	return &IncomeBuilder{}
}

func (b *IncomeBuilder) SetAmount(v float64) *IncomeBuilder {
	b.d.setAmount(v)
	return b
}

func (b *IncomeBuilder) SetCurrency(v string) *IncomeBuilder {
	b.d.setCurrency(v)
	return b
}

func (b *IncomeBuilder) SetSource(v string) *IncomeBuilder {
	b.d.setLabel("source", v)
	return b
}

func (b *IncomeBuilder) SetMemberID(v string) *IncomeBuilder {
	b.d.setMemberID(v)
	return b
}

func (b *IncomeBuilder) SetDate(v string) *IncomeBuilder {
	b.d.setDate(v)
	return b
}

func (b *IncomeBuilder) SetNotes(v string) *IncomeBuilder {
	b.d.setNotes(v)
	return b
}

func (b *IncomeBuilder) Build() (Income, error) {
	d, err := b.d.resolve("source")
	if err != nil {
		return Income{}, err
	}
	return Income{
		Amount:   d.amount,
		Currency: d.currency,
		Source:   d.label,
		MemberID: d.memberID,
		Date:     d.date,
		Notes:    d.notes,
	}, nil
}

// ExpenseInput is the raw, untrusted request body for expense creation.
// Zero values mean "absent": 0, "" and a missing key are indistinguishable.
type ExpenseInput struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	CategoryID string  `json:"categoryId"`
	MemberID   string  `json:"memberId"`
	Date       string  `json:"date"`
	Notes      string  `json:"notes"`
}

// IncomeInput is the raw, untrusted request body for income creation.
type IncomeInput struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Source   string  `json:"source"`
	MemberID string  `json:"memberId"`
	Date     string  `json:"date"`
	Notes    string  `json:"notes"`
}

// ExpenseFromRequest runs every setter in fixed order and builds the record.
func ExpenseFromRequest(in ExpenseInput) (Expense, error) {
	return NewExpenseBuilder().
		SetAmount(in.Amount).
		SetCurrency(in.Currency).
		SetCategory(in.CategoryID).
		SetMemberID(in.MemberID).
		SetDate(in.Date).
		SetNotes(in.Notes).
		Build()
}

// IncomeFromRequest runs every setter in fixed order and builds the record.
func IncomeFromRequest(in IncomeInput) (Income, error) {
	return NewIncomeBuilder().
		SetAmount(in.Amount).
		SetCurrency(in.Currency).
		SetSource(in.Source).
		SetMemberID(in.MemberID).
		SetDate(in.Date).
		SetNotes(in.Notes).
		Build()
}

// ParseTimestamp accepts RFC3339 timestamps and bare dates (YYYY-MM-DD).
func ParseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
