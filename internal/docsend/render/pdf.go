package render

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/pkg/syncx"
)

type Config struct {
	// Concurrency bounds simultaneous renders. Zero disables rendering.
	Concurrency int
	Now         func() time.Time
}

// PDFEngine is the process-wide renderer. Each render builds its own maroto
// instance, so concurrent renders share nothing but the slot pool.
type PDFEngine struct {
	slots  *syncx.Slots
	now    func() time.Time
	closed atomic.Bool
}

// Open prepares the engine.
func Open(cfg Config) (*PDFEngine, error) {
	if cfg.Concurrency <= 0 {
		return nil, ErrNotConfigured
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PDFEngine{slots: syncx.NewSlots(cfg.Concurrency), now: cfg.Now}, nil
}

// Close stops accepting renders. Renders already running finish.
func (e *PDFEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func (e *PDFEngine) Render(ctx context.Context, in Input) (Artifact, error) {
	if e.closed.Load() {
		return Artifact{}, ErrClosed
	}
	release, err := e.slots.Acquire(ctx)
	if err != nil {
		return Artifact{}, err
	}
	defer release()

	m := maroto.New(config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build())
	layout(m, in)

	doc, err := m.Generate()
	if err != nil {
		return Artifact{}, fmt.Errorf("render: generate: %w", err)
	}
	return Artifact{
		Filename:    Filename(&in.Document, in.Client.Name, e.now()),
		ContentType: "application/pdf",
		Data:        doc.GetBytes(),
	}, nil
}

var (
	bold  = props.Text{Style: fontstyle.Bold}
	right = props.Text{Align: align.Right}
	title = props.Text{Size: 16, Style: fontstyle.Bold}
)

func layout(m core.Maroto, in Input) {
	d := &in.Document

	heading := "Invoice"
	if d.Type == domain.TypeOffer {
		heading = "Offer"
	}
	if d.Number != "" {
		heading += " " + d.Number
	}

	m.AddRows(text.NewRow(12, heading, title))
	m.AddRow(6,
		text.NewCol(6, in.Settings.CompanyName, bold),
		text.NewCol(6, in.Client.Name, props.Text{Align: align.Right, Style: fontstyle.Bold}),
	)
	m.AddRow(6,
		text.NewCol(6, in.Sender.DisplayName+" <"+in.Sender.Email+">"),
		text.NewCol(6, in.Client.Email, right),
	)
	for _, row := range dateRows(d) {
		m.AddRow(5, text.NewCol(6, row[0]), text.NewCol(6, row[1], right))
	}
	m.AddRows(line.NewRow(6))

	m.AddRow(7,
		text.NewCol(6, "Description", bold),
		text.NewCol(2, "Qty", props.Text{Align: align.Right, Style: fontstyle.Bold}),
		text.NewCol(2, "Unit price", props.Text{Align: align.Right, Style: fontstyle.Bold}),
		text.NewCol(2, "Amount", props.Text{Align: align.Right, Style: fontstyle.Bold}),
	)
	for _, li := range d.LineItems {
		qty := strconv.FormatFloat(li.Quantity, 'f', -1, 64)
		if li.Unit != "" {
			qty += " " + li.Unit
		}
		m.AddRow(6,
			text.NewCol(6, li.Description),
			text.NewCol(2, qty, right),
			text.NewCol(2, money(li.UnitPrice, d.Currency), right),
			text.NewCol(2, money(li.Net(), d.Currency), right),
		)
	}
	m.AddRows(line.NewRow(6))

	net, tax, gross := d.Totals()
	m.AddRow(6, text.NewCol(10, "Net", right), text.NewCol(2, money(net, d.Currency), right))
	m.AddRow(6, text.NewCol(10, "Tax "+strconv.FormatFloat(d.TaxRate, 'f', -1, 64)+"%", right), text.NewCol(2, money(tax, d.Currency), right))
	m.AddRow(7, text.NewCol(10, "Total", props.Text{Align: align.Right, Style: fontstyle.Bold}),
		text.NewCol(2, money(gross, d.Currency), props.Text{Align: align.Right, Style: fontstyle.Bold}))

	if d.Notes != "" {
		m.AddRows(text.NewRow(14, d.Notes, props.Text{Top: 6}))
	}
}

func dateRows(d *domain.Document) [][2]string {
	var rows [][2]string
	add := func(label string, t *time.Time) {
		if t != nil {
			rows = append(rows, [2]string{label, t.UTC().Format(domain.DateLayout)})
		}
	}
	add("Issue date", d.IssueDate)
	if d.Type == domain.TypeOffer {
		add("Valid until", d.ValidUntil)
	} else {
		add("Due date", d.DueDate)
	}
	return rows
}

func money(v float64, currency string) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if currency != "" {
		s += " " + currency
	}
	return s
}
