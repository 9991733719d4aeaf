package site

import (
	"net/url"
	"slices"
	"time"

	"github.com/amishk599/jobharvest/internal/discovery"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

var presets = map[string]func() Site{
	"elempleo":     elempleo,
	"computrabajo": computrabajo,
	"indeed":       indeed,
	"jooble":       jooble,
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (Site, bool) {
	f, ok := presets[name]
	if !ok {
		return Site{}, false
	}
	s := f()
	s.Preset = name
	return s, true
}

// PresetNames lists the known presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Shared quick-view cascades; the elempleo listing uses these class names.
var (
	quickViewTriggers = []discovery.Locator{
		{Selector: "button", Text: "Vista rápida"},
		{Selector: "a", Text: "Vista rápida"},
		{Selector: `[class*="quick-view"]`},
		{Selector: `[class*="vista-rapida"]`},
		{Selector: `button[class*="quick"]`},
		{Selector: ".js-quick-view"},
	}
	quickViewContainers = []string{
		`[class*="modal"]`, `[class*="popup"]`, `[class*="quick-view"]`,
		`[role="dialog"]`, ".overlay-content",
	}
	quickViewClosers = []discovery.Locator{
		{Selector: `button[aria-label="Close"]`},
		{Selector: `button[class*="close"]`},
		{Selector: `[class*="close-button"]`},
		{Selector: ".modal-close"},
		{Selector: "button", Text: "×"},
		{Selector: "button", Text: "Cerrar"},
	}
)

// listingSelectors are the site-specific selectors placed ahead of the
// generic ones in each listing field cascade.
type listingSelectors struct {
	id       []extract.Matcher
	title    []string
	company  []string
	location []string
	salary   []string
	date     []string
	link     []string
}

func listingProfile(source string, sel listingSelectors) extract.Profile {
	idCascade := append(slices.Clone(sel.id), extract.Attr("[data-id]", "data-id"))
	linkCascade := extract.Cascade{}
	for _, l := range append(slices.Clone(sel.link), "a[href]") {
		linkCascade = append(linkCascade, extract.Attr(l, "href"))
	}
	return extract.Profile{
		Schema: ListingSchema,
		Fields: []extract.FieldSpec{
			{Name: model.FieldJobID, Cascade: idCascade},
			{
				Name:     model.FieldTitle,
				Cascade:  extract.CSSCascade(append(sel.title, "h1", "h2", "h3", ".job-title", `[class*="title"]`)...),
				Accept:   extract.MinLen(4),
				Fallback: extract.LineAt(0),
			},
			{
				Name:     model.FieldCompany,
				Cascade:  extract.CSSCascade(append(sel.company, ".company", ".company-name", `[class*="empresa"]`, `[class*="company"]`)...),
				Accept:   extract.MinLen(2),
				Fallback: extract.LineAt(1),
			},
			{
				Name:     model.FieldLocation,
				Cascade:  extract.CSSCascade(append(sel.location, ".location", `[class*="ubicacion"]`, `[class*="location"]`)...),
				Accept:   extract.KnownPlace,
				Fallback: extract.PlaceLine,
			},
			{
				Name:     model.FieldSalary,
				Cascade:  extract.CSSCascade(append(sel.salary, ".salary", `[class*="salario"]`, `[class*="sueldo"]`)...),
				Accept:   extract.SalarySignal,
				Fallback: extract.SalaryLine,
			},
			{
				Name:     model.FieldPostingDate,
				Cascade:  extract.CSSCascade(append(sel.date, ".date", ".posted-date", "time", `[class*="fecha"]`, `[class*="publicado"]`)...),
				Fallback: extract.DateLine,
			},
			{
				Name:     model.FieldDescription,
				Cascade:  extract.Cascade{extract.Block(".description"), extract.Block(".job-description"), extract.Block(`[class*="descripcion"]`)},
				Accept:   extract.MinLen(100),
			},
			{Name: model.FieldExperience, Fallback: extract.ExperienceLine},
			{Name: model.FieldType, Cascade: extract.Cascade{jobTypeKeyword("")}},
			{Name: model.FieldURL, Cascade: linkCascade, URL: true},
		},
		Defaults:     map[string]string{model.FieldSourceSite: source},
		DeriveSalary: true,
	}
}

func jobTypeKeyword(scope string) extract.Matcher {
	return extract.Keyword(scope,
		extract.Label{Token: "medio tiempo", Value: "Medio tiempo"},
		extract.Label{Token: "remoto", Value: "Remoto"},
		extract.Label{Token: "tiempo completo", Value: "Tiempo completo"},
	)
}

func elempleo() Site {
	const source = "elempleo.com"
	return Site{
		Strategy:   StrategyIDs,
		StartURL:   "https://www.elempleo.com/cr/ofertas-empleo/",
		DetailURL:  "https://www.elempleo.com/cr/ofertas-trabajo/" + discovery.IDToken,
		Advance:    discovery.AdvancePaginate,
		StepDelay:  2500 * time.Millisecond,
		MaxSteps:   100,
		MaxPages:   1,
		Enrich:     true,
		IDSelector: "button[data-joboffer]",
		IDAttr:     "data-joboffer",
		Cards: []string{
			".js-joboffer-result", "article", `[class*="result"]`,
			`[class*="offer"]`, `[class*="job"]`, `div[class*="item"]`,
		},
		Triggers:   quickViewTriggers,
		Containers: quickViewContainers,
		Closers:    quickViewClosers,
		Listing: listingProfile(source, listingSelectors{
			id:       []extract.Matcher{extract.Attr("[data-joboffer]", "data-joboffer")},
			title:    []string{".js-offer-title", ".result-item h2"},
			company:  []string{".js-offer-company"},
			location: []string{".js-offer-city"},
			salary:   []string{".js-offer-salary"},
			date:     []string{".js-offer-date"},
			link:     []string{`a[href*="/ofertas-trabajo/"]`, `a[href*="/empleo/"]`, `a[href*="/oferta/"]`},
		}),
		Detail: elempleoDetail(source),
	}
}

func elempleoDetail(source string) extract.Profile {
	return extract.Profile{
		Schema: DetailSchema,
		Fields: []extract.FieldSpec{
			{
				Name:    model.FieldFeaturedImg,
				Cascade: extract.Cascade{extract.Attr("img[src*='empleo']", "src"), extract.Attr("img[src*='ofertas']", "src")},
				URL:     true,
			},
			{
				Name: model.FieldDescription,
				Cascade: extract.Cascade{
					extract.Block(".description-block span"),
					extract.Block(".description-block"),
					extract.Block(`[class*="descripcion"]`),
				},
			},
			{
				Name:     model.FieldTitle,
				Cascade:  extract.CSSCascade("h1", ".js-jobOffer-title", ".category", `[class*="categoria"]`, ".breadcrumb li:last-child"),
				Accept:   extract.MinLen(4),
				Fallback: extract.LineAt(0),
			},
			{Name: model.FieldCompany, Cascade: extract.CSSCascade(".js-company-name", ".company-name", `[class*="empresa"]`)},
			{Name: model.FieldCategory, Cascade: extract.CSSCascade(".js-position-area")},
			{Name: model.FieldType, Cascade: extract.Cascade{jobTypeKeyword(".data-column, .description-block")}},
			{
				Name:     model.FieldSalary,
				Cascade:  extract.CSSCascade(`[class*="salario"]`, ".js-joboffer-salary", ".compensation"),
				Accept:   extract.SalarySignal,
				Fallback: extract.SalaryLine,
			},
			{
				Name:     model.FieldLocation,
				Cascade:  extract.CSSCascade(`[class*="ubicacion"]`, ".js-joboffer-city", `[itemprop="addressLocality"]`),
				Accept:   extract.KnownPlace,
				Fallback: extract.PlaceLine,
			},
			{
				Name:    model.FieldAddress,
				Cascade: extract.CSSCascade(`[itemprop="streetAddress"]`, `[class*="ubicacion"]`, ".js-joboffer-city", `[itemprop="addressLocality"]`),
				Accept:  extract.KnownPlace,
			},
			{
				Name:     model.FieldPostingDate,
				Cascade:  extract.CSSCascade(".js-publish-date", `[class*="publicado"]`, `[class*="fecha"]`, "time"),
				Fallback: extract.DateLine,
			},
			{Name: model.FieldExpiryDate, Cascade: extract.CSSCascade(".js-expiration-date", `[class*="vence"]`)},
			{
				Name:     model.FieldExperience,
				Cascade:  extract.CSSCascade(".data-column span"),
				Accept:   extract.ContainsAny("experiencia", "años"),
				Fallback: extract.ExperienceLine,
			},
			{Name: model.FieldQualify, Cascade: extract.CSSCascade(`[class*="js-education-level"]`, `[class*="formacion"]`)},
			{Name: model.FieldCareerLevel, Cascade: extract.CSSCascade("i.fa-level-down + span", ".js-career-level")},
		},
		Defaults: map[string]string{
			model.FieldSourceSite: source,
			model.FieldType:       "Tiempo completo",
			model.FieldTag:        "Costa Rica",
			model.FieldFeatured:   "1",
			model.FieldFilled:     "0",
			model.FieldUrgent:     "0",
		},
		Contact:           &extract.ContactRule{Links: extract.DefaultContactRule().Links, LinkType: extract.ApplyExternal},
		PlaceholderExpiry: true,
		DeriveSalary:      true,
	}
}

// genericDetail serves card sites that enable enrichment without a tailored
// detail profile.
func genericDetail(source string) extract.Profile {
	p := listingProfile(source, listingSelectors{})
	p.Schema = DetailSchema
	p.Fields = slices.DeleteFunc(p.Fields, func(f extract.FieldSpec) bool {
		return f.Name == model.FieldURL || f.Name == model.FieldDescription
	})
	p.Fields = append(p.Fields, extract.FieldSpec{
		Name: model.FieldDescription,
		Cascade: extract.Cascade{
			extract.Block(".description"), extract.Block(".job-description"),
			extract.Block(`[class*="descripcion"]`), extract.Block("article"), extract.Block(".content"),
		},
		Accept: extract.MinLen(100),
	})
	p.Contact = extract.DefaultContactRule()
	p.PlaceholderExpiry = true
	return p
}

func computrabajo() Site {
	const source = "computrabajo.com"
	return Site{
		Strategy:  StrategyCards,
		StartURL:  "https://cr.computrabajo.com/",
		StepDelay: 3 * time.Second,
		MaxPages:  1,
		MaxCards:  50,
		Cards:     []string{"article", ".bRS", "[data-tracking]", ".js-o-link", `[class*="result"]`, "div.box"},
		Listing: listingProfile(source, listingSelectors{
			title:    []string{"h2 a.js-o-link", "a.js-o-link"},
			company:  []string{"p.dFlex a", "a.fc_base.t_ellipsis"},
			location: []string{"p.fs16 span.mr10", "span.mr10"},
			salary:   []string{"span.dIB.mr10", `[class*="salary"]`},
			date:     []string{"p.fs13.fc_aux"},
			link:     []string{"a.js-o-link"},
		}),
		Detail: genericDetail(source),
	}
}

func indeed() Site {
	const source = "indeed.com"
	return Site{
		Strategy:  StrategyCards,
		StartURL:  "https://cr.indeed.com/jobs?q=&l=Costa+Rica",
		StepDelay: 3 * time.Second,
		MaxPages:  1,
		MaxCards:  50,
		Cards: []string{
			"li.job_seen_beacon", "div.job_seen_beacon", "div[data-jk]",
			"div.jobsearch-SerpJobCard", `div[class*="result"]`, "td.resultContent",
		},
		Listing: listingProfile(source, listingSelectors{
			id:       []extract.Matcher{extract.Attr("[data-jk]", "data-jk")},
			title:    []string{"h2.jobTitle", "a.jcs-JobTitle"},
			company:  []string{`[data-testid="company-name"]`, ".companyName"},
			location: []string{`[data-testid="text-location"]`, ".companyLocation"},
			salary:   []string{".salary-snippet-container", `[data-testid="attribute_snippet_testid"]`},
			date:     []string{".date"},
			link:     []string{"a.jcs-JobTitle", "h2 a"},
		}),
		Detail: genericDetail(source),
	}
}

func jooble() Site {
	const source = "jooble.org"
	return Site{
		Strategy:  StrategyCards,
		StartURL:  "https://cr.jooble.org/",
		StepDelay: 3 * time.Second,
		MaxPages:  1,
		MaxCards:  50,
		Cards:     []string{"article", `div[class*="vacancy"]`, `div[class*="job"]`, `div[class*="result"]`, `[data-test*="vacancy"]`},
		Listing: listingProfile(source, listingSelectors{
			title:    []string{`[data-test-name="_jobCardTitle"]`},
			company:  []string{`[data-test-name="_companyName"]`},
			location: []string{`[data-test-name="_jobCardLocation"]`},
			link:     []string{`a[href*="/desc/"]`},
		}),
		Detail: genericDetail(source),
	}
}

// custom is the starting point for sites configured without a preset.
func custom(name string) Site {
	return Site{
		Strategy:  StrategyCards,
		StepDelay: 3 * time.Second,
		MaxPages:  1,
		Cards:     []string{"article", `[class*="result"]`, `[class*="job"]`},
		Listing:   listingProfile(name, listingSelectors{}),
		Detail:    genericDetail(name),
	}
}
