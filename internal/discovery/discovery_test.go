package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

const listURL = "https://jobs.test/ofertas"

func idPage(next string, ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><a href=\"/\">Inicio</a>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="result"><button data-joboffer="%s">Ver</button></div>`, id)
	}
	if next != "" {
		fmt.Fprintf(&b, `<a class="pager" href="%s"> Siguiente </a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func pageURL(n int) string { return fmt.Sprintf("%s?page=%d", listURL, n) }

func newDriver(p *fakePage) *Driver {
	return New("test", p, discardLogger())
}

func states(trace []Transition) []State {
	out := []State{StateStart}
	for _, t := range trace {
		out = append(out, t.To)
	}
	return out
}

func TestMachine_Transitions(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Fire(EventLoaded))
	require.NoError(t, m.Fire(EventGrew))
	require.NoError(t, m.Fire(EventAdvanced))
	require.NoError(t, m.Fire(EventStalled))

	assert.True(t, m.Done())
	assert.Equal(t, 1, m.Steps())
	assert.Equal(t, model.StopNoNewItems, m.Reason())
	assert.Equal(t,
		[]State{StateStart, StateExtracting, StateAdvancing, StateExtracting, StateExhausted},
		states(m.Trace()))

	assert.Error(t, m.Fire(EventGrew), "terminal state accepts no events")
}

func TestMachine_InvalidTransitionLeavesState(t *testing.T) {
	m := NewMachine()
	assert.Error(t, m.Fire(EventAdvanced))
	assert.Equal(t, StateStart, m.State())

	require.NoError(t, m.Fire(EventLoadFailed))
	assert.Equal(t, StateAborted, m.State())
	assert.Equal(t, model.StopNavigationFailed, m.Reason())
	assert.True(t, m.Reason().Partial())
}

func TestNextControl(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{"siguiente", `<a href="/1">1</a><a href="/2">  Siguiente </a>`, 1},
		{"case and glyph", `<a>NEXT</a><a>»</a>`, 0},
		{"chevron", `<a>2</a><a>›</a>`, 1},
		{"partial text is not a control", `<a>Página siguiente de resultados</a>`, -1},
		{"no anchors", `<button>Siguiente</button>`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := extract.Parse("<html><body>"+tt.markup+"</body></html>", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, NextControl(s))
		})
	}
}

func TestCollectIDs_PaginatesUntilNoNext(t *testing.T) {
	p := newFakePage(map[string]string{
		listURL:    idPage("/ofertas?page=2", "a1", "a2"),
		pageURL(2): idPage("/ofertas?page=3", "a2", "a3"),
		pageURL(3): idPage("", "a4"),
	})

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, res.IDs)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, model.StopNoNextControl, res.Reason)
	assert.Equal(t, []string{listURL, pageURL(2), pageURL(3)}, p.navs)
}

// liveDOMPage hides anchors inside <template>, as a rendered page does while
// the captured markup still contains them.
type liveDOMPage struct{ *fakePage }

func (p liveDOMPage) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	els, err := p.fakePage.Find(ctx, selector)
	if err != nil {
		return nil, err
	}
	var live []browser.Element
	for _, el := range els {
		if fe, ok := el.(fakeElement); ok && fe.sel.ParentsFiltered("template").Length() > 0 {
			continue
		}
		live = append(live, el)
	}
	return live, nil
}

func TestCollectIDs_NextControlMatchedByTextOnLivePage(t *testing.T) {
	first := strings.Replace(idPage("/ofertas?page=2", "a1"), "<body>",
		`<body><template><a href="/promo">Promo</a><a href="/otra">Otra</a></template>`, 1)
	p := newFakePage(map[string]string{
		listURL:    first,
		pageURL(2): idPage("", "a2"),
	})

	res := New("test", liveDOMPage{p}, discardLogger()).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"a1", "a2"}, res.IDs)
	assert.Equal(t, []string{listURL, pageURL(2)}, p.navs)
}

func TestCollectIDs_RepeatedSnapshotDoesNotGrow(t *testing.T) {
	// The next control points back at the same listing.
	p := newFakePage(map[string]string{
		listURL: idPage("/ofertas", "a1", "a2", "a3"),
	})

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	assert.Len(t, res.IDs, 3)
	assert.Equal(t, model.StopNoNewItems, res.Reason)
	assert.Equal(t, 1, res.Steps)
}

func TestCollectIDs_StopsAtMaxSteps(t *testing.T) {
	pages := map[string]string{listURL: idPage("/ofertas?page=2", "p1")}
	for n := 2; n <= 20; n++ {
		pages[pageURL(n)] = idPage(fmt.Sprintf("/ofertas?page=%d", n+1), fmt.Sprintf("p%d", n))
	}
	p := newFakePage(pages)

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL, MaxSteps: 3})

	assert.Equal(t, model.StopMaxSteps, res.Reason)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, res.IDs)
}

func TestCollectIDs_EmptyFirstPage(t *testing.T) {
	p := newFakePage(map[string]string{listURL: idPage("")})

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	require.NoError(t, res.Err)
	assert.Empty(t, res.IDs)
	assert.Equal(t, model.StopNoCards, res.Reason)
	assert.Equal(t, 0, res.Steps)
}

func TestCollectIDs_InitialNavigationFailureAborts(t *testing.T) {
	p := newFakePage(map[string]string{})
	p.navErr[listURL] = fmt.Errorf("%w: 90s", model.ErrNavigationTimeout)

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	require.Error(t, res.Err)
	assert.True(t, model.IsTimeout(res.Err))
	assert.Equal(t, model.StopNavigationFailed, res.Reason)
	assert.Equal(t, []State{StateStart, StateAborted}, states(res.Trace))
}

func TestCollectIDs_StepFailureKeepsPartialResults(t *testing.T) {
	p := newFakePage(map[string]string{
		listURL:    idPage("/ofertas?page=2", "a1"),
		pageURL(2): idPage("/ofertas?page=3", "a2"),
	})
	p.clickErr["/ofertas?page=3"] = errors.New("element is detached")

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"a1", "a2"}, res.IDs)
	assert.Equal(t, model.StopStepFailed, res.Reason)
}

func TestCollectIDs_Scroll(t *testing.T) {
	p := newFakePage(map[string]string{listURL: idPage("", "s1", "s2")})
	p.onScroll = func(n int) string {
		switch n {
		case 1:
			return idPage("", "s1", "s2", "s3")
		default:
			return idPage("", "s1", "s2", "s3", "s4")
		}
	}

	res := newDriver(p).CollectIDs(context.Background(), IDConfig{StartURL: listURL, Advance: AdvanceScroll})

	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, res.IDs)
	assert.Equal(t, model.StopNoNewItems, res.Reason)
	assert.Equal(t, 3, p.scrolls)
}

var cardSchema = model.MustSchema("test-card", 1,
	model.FieldTitle, model.FieldSalary, model.FieldURL, model.FieldJobID,
)

func cardExtractor() *extract.Extractor {
	return extract.New(extract.Profile{
		Schema: cardSchema,
		Fields: []extract.FieldSpec{
			{Name: model.FieldTitle, Cascade: extract.CSSCascade("h2"), Fallback: extract.LineAt(0)},
			{Name: model.FieldSalary, Cascade: extract.CSSCascade(".salary"), Accept: extract.SalarySignal, Fallback: extract.SalaryLine},
			{Name: model.FieldURL, Cascade: extract.Cascade{extract.Attr("a", "href")}, URL: true},
			{Name: model.FieldJobID, Cascade: extract.Cascade{extract.Attr("[data-id]", "data-id")}},
		},
	}, discardLogger())
}

func cardPage(class string, from, to int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := from; i <= to; i++ {
		fmt.Fprintf(&b, `<div class="%s" data-id="j%d"><h2>Puesto %d</h2><a href="/empleo/%d">ver</a></div>`, class, i, i, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func titles(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Get(model.FieldTitle)
	}
	return out
}

func TestCollectCards_StopsOnEmptyPage(t *testing.T) {
	p := newFakePage(map[string]string{
		pageURL(1): cardPage("job-card", 1, 2),
		pageURL(2): cardPage("job-card", 3, 4),
		pageURL(3): cardPage("job-card", 5, 5),
		pageURL(4): "<html><body><p>Sin resultados</p></body></html>",
		pageURL(5): cardPage("job-card", 6, 6),
	})

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  pageURL(1),
		PageURL:   listURL + "?page={page}",
		Selectors: []string{"div.job-card"},
		Extractor: cardExtractor(),
		MaxPages:  10,
	})

	assert.Equal(t, model.StopNoCards, res.Reason)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, []string{"Puesto 1", "Puesto 2", "Puesto 3", "Puesto 4", "Puesto 5"}, titles(res.Records))
	assert.Equal(t, pageURL(4), p.navs[len(p.navs)-1])
	assert.Equal(t, "https://jobs.test/empleo/3", res.Records[2].Get(model.FieldURL))
}

func TestCollectCards_CascadePriority(t *testing.T) {
	markup := `<html><body>
		<article class="offer" data-id="x1"><h2>Primario</h2></article>
		<div class="card" data-id="y1"><h2>Secundario A</h2></div>
		<div class="card" data-id="y2"><h2>Secundario B</h2></div>
	</body></html>`
	p := newFakePage(map[string]string{listURL: markup})

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  listURL,
		Selectors: []string{"div.missing", "article.offer", "div.card"},
		Extractor: cardExtractor(),
	})

	assert.Equal(t, []string{"Primario"}, titles(res.Records))
	assert.Equal(t, model.StopMaxSteps, res.Reason, "single page run ends on the page bound")
}

func TestCollectCards_SalaryOnlyWhereCurrencyShown(t *testing.T) {
	markup := `<html><body>
		<div class="card" data-id="1"><h2>Cajero</h2><span class="salary">A convenir</span></div>
		<div class="card" data-id="2"><h2>Bodeguero</h2><span class="salary">₡400 000</span></div>
		<div class="card" data-id="3"><h2>Chofer</h2><p>₡450,000 mensual</p></div>
	</body></html>`
	p := newFakePage(map[string]string{listURL: markup})

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  listURL,
		Selectors: []string{"div.card"},
		Extractor: cardExtractor(),
	})

	require.Len(t, res.Records, 3)
	assert.Empty(t, res.Records[0].Get(model.FieldSalary))
	assert.Equal(t, "₡400 000", res.Records[1].Get(model.FieldSalary))
	assert.Equal(t, "₡450,000 mensual", res.Records[2].Get(model.FieldSalary))
	for _, r := range res.Records {
		assert.Equal(t, cardSchema.Fields(), r.Schema().Fields())
	}
}

func TestCollectCards_MaxCardsAndNextControl(t *testing.T) {
	withNext := func(from, to, next int) string {
		return strings.Replace(cardPage("card", from, to), "</body>",
			fmt.Sprintf(`<a href="/ofertas?page=%d">siguiente</a></body>`, next), 1)
	}
	p := newFakePage(map[string]string{
		listURL:    withNext(1, 3, 2),
		pageURL(2): withNext(4, 6, 3),
		pageURL(3): withNext(7, 9, 4),
	})

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  listURL,
		Selectors: []string{"div.card"},
		Extractor: cardExtractor(),
		MaxCards:  5,
		MaxPages:  10,
	})

	assert.Len(t, res.Records, 5)
	assert.Equal(t, model.StopMaxItems, res.Reason)
	assert.Equal(t, 1, res.Steps)
}

func TestCollectCards_RepeatedPageStalls(t *testing.T) {
	p := newFakePage(map[string]string{
		pageURL(1): cardPage("card", 1, 3),
		pageURL(2): cardPage("card", 1, 3),
	})

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  pageURL(1),
		PageURL:   listURL + "?page={page}",
		Selectors: []string{"div.card"},
		Extractor: cardExtractor(),
		MaxPages:  5,
	})

	assert.Len(t, res.Records, 3)
	assert.Equal(t, model.StopNoNewItems, res.Reason)
}

func TestCollectCards_NextPageFailureKeepsCards(t *testing.T) {
	p := newFakePage(map[string]string{pageURL(1): cardPage("card", 1, 2)})
	p.navErr[pageURL(2)] = fmt.Errorf("%w", model.ErrNavigationTimeout)

	res := newDriver(p).CollectCards(context.Background(), CardConfig{
		StartURL:  pageURL(1),
		PageURL:   listURL + "?page={page}",
		Selectors: []string{"div.card"},
		Extractor: cardExtractor(),
		MaxPages:  5,
	})

	require.NoError(t, res.Err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, model.StopStepFailed, res.Reason)
}

func TestCollectModal(t *testing.T) {
	list := `<html><body>
		<div class="card"><button class="qv" data-i="1">Vista rápida</button></div>
		<div class="card"><button class="qv" data-i="2">Vista rápida</button></div>
		<div class="card"><button class="qv" data-i="3">Vista rápida</button></div>
		<div class="card"><button class="other">Guardar</button></div>
	</body></html>`
	p := newFakePage(map[string]string{listURL: list})
	p.onClick = func(sel *goquery.Selection) (string, error) {
		i, _ := sel.Attr("data-i")
		if i == "2" {
			return "", errors.New("click intercepted")
		}
		return strings.Replace(list, "</body>", fmt.Sprintf(
			`<div role="dialog" data-id="m%s"><h2>Modal %s</h2><span class="salary">₡%s00 000</span></div></body>`, i, i, i), 1), nil
	}

	res := newDriver(p).CollectModal(context.Background(), ModalConfig{
		StartURL:   listURL,
		Triggers:   []Locator{{Selector: ".js-quick-view"}, {Selector: "button", Text: "vista rapida"}},
		Containers: []string{"[class*='modal']", "[role='dialog']"},
		Closers:    []Locator{{Selector: "button.modal-close"}},
		Extractor:  cardExtractor(),
	})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"Modal 1", "Modal 3"}, titles(res.Records))
	assert.Equal(t, "₡300 000", res.Records[1].Get(model.FieldSalary))
	assert.Equal(t, model.StopNoNextControl, res.Reason)
	// No close button exists, so every modal is dismissed with Escape.
	assert.Equal(t, []string{"Escape", "Escape", "Escape"}, p.presses)
}

func TestCollectModal_NoTriggers(t *testing.T) {
	p := newFakePage(map[string]string{listURL: cardPage("card", 1, 2)})

	res := newDriver(p).CollectModal(context.Background(), ModalConfig{
		StartURL:  listURL,
		Triggers:  []Locator{{Selector: ".js-quick-view"}},
		Extractor: cardExtractor(),
	})

	assert.Empty(t, res.Records)
	assert.Equal(t, model.StopNoCards, res.Reason)
}

var detailSchema = model.MustSchema("test-detail", 1,
	model.FieldJobID, model.FieldTitle, model.FieldSalary, model.FieldDescription, model.FieldURL,
)

func detailExtractor() *extract.Extractor {
	return extract.New(extract.Profile{
		Schema: detailSchema,
		Fields: []extract.FieldSpec{
			{Name: model.FieldTitle, Cascade: extract.CSSCascade("h1")},
			{Name: model.FieldDescription, Cascade: extract.Cascade{extract.Block(".description")}},
		},
	}, discardLogger())
}

func TestEnrichIDs(t *testing.T) {
	const tmpl = "https://jobs.test/oferta/{id}"
	p := newFakePage(map[string]string{
		"https://jobs.test/oferta/1": `<html><body><h1>Cajero</h1><div class="description">Atender clientes</div></body></html>`,
		"https://jobs.test/oferta/3": `<html><body><h1>Chofer</h1></body></html>`,
		"https://jobs.test/oferta/6": "",
	})
	p.navErr["https://jobs.test/oferta/4"] = model.ErrNavigationTimeout

	recs, reason := newDriver(p).EnrichIDs(context.Background(), []string{"1", "2", "3", "6", "4", "5"}, tmpl,
		EnrichConfig{Extractor: detailExtractor()})

	assert.Equal(t, model.StopStepFailed, reason)
	// 2 is a 404 and 4 times out: both keep bare rows, as does 5 after the
	// pass stopped. Only the empty page 6 is dropped.
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.Get(model.FieldJobID))
		assert.Equal(t, detailSchema.Fields(), r.Schema().Fields())
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)

	assert.Equal(t, "Atender clientes", recs[0].Get(model.FieldDescription))
	assert.Equal(t, "https://jobs.test/oferta/2", recs[1].Get(model.FieldURL))
	assert.Empty(t, recs[1].Get(model.FieldTitle))
	assert.Equal(t, "Chofer", recs[2].Get(model.FieldTitle))
	assert.Equal(t, "https://jobs.test/oferta/5", recs[4].Get(model.FieldURL))
	assert.NotContains(t, p.navs, "https://jobs.test/oferta/5")
}

func TestEnrichRecords_MergesDetailOverCard(t *testing.T) {
	card := model.NewRecord(cardSchema, map[string]string{
		model.FieldTitle:  "Cajero (card)",
		model.FieldSalary: "₡400 000",
		model.FieldURL:    "https://jobs.test/oferta/1",
	})
	noURL := model.NewRecord(cardSchema, map[string]string{model.FieldTitle: "Sin enlace"})
	broken := model.NewRecord(cardSchema, map[string]string{
		model.FieldTitle: "Roto",
		model.FieldURL:   "https://jobs.test/oferta/404",
	})
	p := newFakePage(map[string]string{
		"https://jobs.test/oferta/1": `<html><body><h1>Cajero</h1><div class="description">Turnos rotativos</div></body></html>`,
	})

	recs, reason := newDriver(p).EnrichRecords(context.Background(), []model.Record{card, noURL, broken},
		EnrichConfig{Extractor: detailExtractor()})

	assert.Equal(t, model.StopNone, reason)
	require.Len(t, recs, 3)
	assert.Equal(t, "Cajero", recs[0].Get(model.FieldTitle))
	assert.Equal(t, "₡400 000", recs[0].Get(model.FieldSalary), "card value kept where detail is empty")
	assert.Equal(t, "Turnos rotativos", recs[0].Get(model.FieldDescription))
	assert.Equal(t, "Sin enlace", recs[1].Get(model.FieldTitle))
	assert.Equal(t, "Roto", recs[2].Get(model.FieldTitle))
	for _, r := range recs {
		assert.Equal(t, detailSchema.Fields(), r.Schema().Fields())
	}
	assert.Equal(t, "Cajero (card)", card.Get(model.FieldTitle), "input records are not modified")
}

func TestSettler(t *testing.T) {
	var slept []time.Duration
	s := NewSettler(50 * time.Millisecond)
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	for range 20 {
		require.NoError(t, s.Wait(context.Background(), time.Second))
	}
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, time.Second+50*time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewSettler(0).Wait(ctx, time.Hour), context.Canceled)
}
