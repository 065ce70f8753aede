// Package charts renders the dashboard panels as go-echarts charts.
package charts

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/event"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"a3p/internal/core"
	"a3p/internal/coverage"
	"a3p/internal/services"
)

// DefaultAssetsHost serves echarts.min.js and the preset maps.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// BrazilMap is the map type registered by the Brazil geometry script.
const BrazilMap = "brazil"

// Options configures a Renderer.
type Options struct {
	AssetsHost string
	// MapScript registers the BrazilMap geometry with echarts. The page
	// loads it after echarts.min.js.
	MapScript string
	Width     string
	Height    string
}

// Renderer builds the dashboard charts.
type Renderer struct {
	opts Options
}

func New(o Options) *Renderer {
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}
	if o.MapScript == "" {
		o.MapScript = "/static/js/brazil-map.js"
	}
	if o.Width == "" {
		o.Width = "100%"
	}
	if o.Height == "" {
		o.Height = "420px"
	}
	return &Renderer{opts: o}
}

// AssetsHost returns the base URL of the echarts assets.
func (r *Renderer) AssetsHost() string { return r.opts.AssetsHost }

// MapScript returns the URL of the Brazil map registration script.
func (r *Renderer) MapScript() string { return r.opts.MapScript }

func (r *Renderer) init(id, title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  title,
		ChartID:    id,
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		AssetsHost: r.opts.AssetsHost,
	})
}

// SpherePie is the donut of active adhesions per sphere.
func (r *Renderer) SpherePie(data []core.LabelCount) *charts.Pie {
	const title = "Distribuição Percentual de Adesões por Esfera"
	items := make([]opts.PieData, 0, len(data))
	for _, lc := range data {
		items = append(items, opts.PieData{Name: lc.Label, Value: lc.Total})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		r.init("sphere_pie", title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Orient: "vertical", Left: "left", Top: "middle"}),
	)
	pie.AddSeries("Esfera", items,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// PowerBar is the horizontal bar of spheres for one power.
func (r *Renderer) PowerBar(power string, data []core.LabelCount) *charts.Bar {
	title := fmt.Sprintf("Esferas para o Poder %s", power)
	labels := make([]string, 0, len(data))
	values := make([]opts.BarData, 0, len(data))
	for _, lc := range data {
		labels = append(labels, lc.Label)
		values = append(values, opts.BarData{Value: lc.Total})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		r.init("power_bar", title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Total", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Esfera"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Total", values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
		)
	bar.XYReversal()
	return bar
}

// StatesMap is the choropleth of records per state. Clicking a state
// selects it in the filter form, or through the "state" query parameter on
// pages without one.
func (r *Renderer) StatesMap(states []core.StateCount) *charts.Map {
	const title = "Adesões por Estado"
	items := make([]opts.MapData, 0, len(states))
	peak := 0
	for _, sc := range states {
		items = append(items, opts.MapData{Name: core.UFNames[sc.State], Value: sc.Total})
		peak = max(peak, sc.Total)
	}

	m := charts.NewMap()
	m.RegisterMapType(BrazilMap)
	m.SetGlobalOptions(
		r.init("states_map", title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max(peak, 1)),
			Left:       "left",
			InRange:    &opts.VisualMapInRange{Color: []string{"#e0f3f8", "#abd9e9", "#74add1", "#4575b4", "#313695"}},
		}),
		charts.WithEventListeners(event.Listener{
			EventName: "click",
			Handler:   opts.FuncOpts(selectStateHandler()),
		}),
	)
	m.AddSeries("Adesões", items)
	return m
}

func selectStateHandler() string {
	codes := make(map[string]string, len(core.UFNames))
	for code, name := range core.UFNames {
		codes[name] = code
	}
	lookup, _ := json.Marshal(codes)
	return fmt.Sprintf(`function (params) {
	var code = (%s)[params.name];
	if (!code) { return; }
	var sel = document.getElementById("state");
	if (sel) {
		sel.value = code;
		sel.dispatchEvent(new Event("change", { bubbles: true }));
		return;
	}
	var q = new URLSearchParams(window.location.search);
	q.set("state", code);
	window.location.search = q.toString();
}`, lookup)
}

// DailyLine plots record starts per day. The x axis spans [from, today].
func (r *Renderer) DailyLine(daily []core.DailyCount, from, today core.Date) *charts.Line {
	title := fmt.Sprintf("Evolução das Adesões até %s", today.Format("02/01/2006"))
	points := make([]opts.LineData, 0, len(daily))
	for _, dc := range daily {
		points = append(points, opts.LineData{Value: []interface{}{dc.Date.String(), dc.Total}})
	}

	xAxis := opts.XAxis{Type: "time", Name: "Data de Início"}
	if !from.IsEmpty() {
		xAxis.Min = from.String()
	}
	if !today.IsEmpty() {
		xAxis.Max = today.String()
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		r.init("daily_line", title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Name: "Número de Adesões", Type: "value"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", Start: 0, End: 100},
			opts.DataZoom{Type: "slider", Start: 0, End: 100},
		),
	)
	line.AddSeries("Adesões", points,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	)
	return line
}

// CoverageLine plots the per-period peak of active adhesions, with the
// mean as a reference line.
func (r *Renderer) CoverageLine(points []core.PeriodPoint, g coverage.Granularity) *charts.Line {
	const title = "Adesões Vigentes"
	labels := make([]string, 0, len(points))
	values := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.Label)
		values = append(values, opts.LineData{Value: p.Max})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		r.init("coverage_line", title),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "Máximo diário por " + periodName(g)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vigentes", Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(labels).
		AddSeries("Vigentes", values,
			charts.WithLineChartOpts(opts.LineChart{Step: "end"}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
			charts.WithMarkLineNameTypeItemOpts(opts.MarkLineNameTypeItem{Name: "Média", Type: "average"}),
		)
	return line
}

func periodName(g coverage.Granularity) string {
	switch g {
	case coverage.Day:
		return "dia"
	case coverage.Week:
		return "semana"
	case coverage.Month:
		return "mês"
	case coverage.Year:
		return "ano"
	default:
		return "trimestre"
	}
}

// Panel is a chart split into the element and script halves that the page
// template places separately.
type Panel struct {
	Element template.HTML
	Script  template.HTML
}

// Panels holds the rendered charts of a dashboard. Panels without data are
// nil.
type Panels struct {
	SpherePie *Panel
	PowerBar  *Panel
	StatesMap *Panel
	Daily     *Panel
	Coverage  *Panel
}

// Panels renders every chart of d that has data.
func (r *Renderer) Panels(d *services.Dashboard) Panels {
	var p Panels
	if len(d.SpherePie) > 0 {
		p.SpherePie = snippet(r.SpherePie(d.SpherePie))
	}
	if len(d.PowerBar) > 0 {
		p.PowerBar = snippet(r.PowerBar(d.Power, d.PowerBar))
	}
	if len(d.States) > 0 {
		p.StatesMap = snippet(r.StatesMap(d.States))
	}
	if len(d.Daily) > 0 {
		p.Daily = snippet(r.DailyLine(d.Daily, d.DailyMin, d.Today))
	}
	if len(d.Coverage) > 0 {
		p.Coverage = snippet(r.CoverageLine(d.Coverage, d.Granularity))
	}
	return p
}

// Page renders every chart of d as a standalone go-echarts page.
func (r *Renderer) Page(d *services.Dashboard) *components.Page {
	page := components.NewPage()
	page.SetPageTitle("Adesões à A3P")
	page.SetAssetsHost(r.opts.AssetsHost)
	if len(d.SpherePie) > 0 {
		page.AddCharts(r.SpherePie(d.SpherePie))
	}
	if len(d.PowerBar) > 0 {
		page.AddCharts(r.PowerBar(d.Power, d.PowerBar))
	}
	if len(d.Daily) > 0 {
		page.AddCharts(r.DailyLine(d.Daily, d.DailyMin, d.Today))
	}
	if len(d.Coverage) > 0 {
		page.AddCharts(r.CoverageLine(d.Coverage, d.Granularity))
	}
	return page
}

type snippetRenderer interface {
	RenderSnippet() render.ChartSnippet
}

// snippet scopes the chart script in a function so that swapping a panel
// in again does not redeclare its top-level bindings.
func snippet(c snippetRenderer) *Panel {
	s := c.RenderSnippet()
	body := strings.TrimSpace(s.Script)
	body = strings.TrimPrefix(body, `<script type="text/javascript">`)
	body = strings.TrimSuffix(body, "</script>")
	return &Panel{
		Element: template.HTML(s.Element),
		Script:  template.HTML("<script type=\"text/javascript\">(function () {" + body + "})();</script>"),
	}
}
