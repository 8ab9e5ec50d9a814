package emailtemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var files embed.FS

// Rendered is a ready to send message body.
type Rendered struct {
	Subject string
	HTML    string
}

type Ticket struct {
	ID           string
	Title        string
	Description  string
	Status       string
	Priority     string
	ReporterName string
	AssigneeName string
	Resolution   string
	URL          string
	Changes      []Change
}

type Change struct {
	Field string
	From  string
	To    string
}

type PaymentItem struct {
	Name       string
	Quantity   int
	UnitAmount int64
}

type Payment struct {
	CustomerName    string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Items           []PaymentItem
	FailureReason   string
	RetryURL        string
}

type Referral struct {
	ReferrerName  string
	ReferredName  string
	AffiliateCode string
}

type DueReminder struct {
	Title        string
	AssigneeName string
	DueAt        time.Time
	URL          string
}

// Credentials is the first access of a newly onboarded organization admin.
type Credentials struct {
	Name              string
	Email             string
	OrganizationName  string
	TemporaryPassword string
	SetupURL          string
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"money":    FormatMoney,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	},
}

var templates = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"ticket_created", "ticket_updated", "ticket_resolved",
		"payment_confirmation", "payment_failure",
		"referral_received", "task_due_reminder", "password_setup",
	} {
		templates[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name+".html"))
	}
}

// renderMarkdown converts user supplied markdown to HTML. Raw HTML in the
// source is dropped by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// FormatMoney renders an amount in minor units, "R$ 1.234,56" for BRL and
// "USD 12.00" style otherwise.
func FormatMoney(cents int64, currency string) string {
	currency = strings.ToUpper(currency)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units, frac := cents/100, cents%100

	if currency == "BRL" || currency == "" {
		s := fmt.Sprintf("%d", units)
		var grouped []string
		for len(s) > 3 {
			grouped = append([]string{s[len(s)-3:]}, grouped...)
			s = s[:len(s)-3]
		}
		grouped = append([]string{s}, grouped...)
		return fmt.Sprintf("%sR$ %s,%02d", sign, strings.Join(grouped, "."), frac)
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, units, frac)
}

func render(name, subject string, data any) (*Rendered, error) {
	var buf bytes.Buffer
	err := templates[name].ExecuteTemplate(&buf, "layout", struct {
		Subject string
		Data    any
	}{subject, data})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Rendered{Subject: subject, HTML: buf.String()}, nil
}

func TicketCreated(t Ticket) (*Rendered, error) {
	return render("ticket_created", fmt.Sprintf("[#%s] Novo chamado: %s", t.ID, t.Title), t)
}

func TicketUpdated(t Ticket) (*Rendered, error) {
	return render("ticket_updated", fmt.Sprintf("[#%s] Chamado atualizado: %s", t.ID, t.Title), t)
}

func TicketResolved(t Ticket) (*Rendered, error) {
	return render("ticket_resolved", fmt.Sprintf("[#%s] Chamado resolvido: %s", t.ID, t.Title), t)
}

func PaymentConfirmation(p Payment) (*Rendered, error) {
	return render("payment_confirmation", "Pagamento confirmado", p)
}

func PaymentFailure(p Payment) (*Rendered, error) {
	return render("payment_failure", "Falha no pagamento", p)
}

func ReferralReceived(r Referral) (*Rendered, error) {
	return render("referral_received", "Você recebeu uma nova indicação", r)
}

func TaskDueReminder(d DueReminder) (*Rendered, error) {
	return render("task_due_reminder", fmt.Sprintf("Lembrete: %s vence em breve", d.Title), d)
}

func PasswordSetup(c Credentials) (*Rendered, error) {
	return render("password_setup", "Seu acesso à Endurancy", c)
}
