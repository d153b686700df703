package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jameshartig/solarwatts/pkg/series"
	"github.com/jameshartig/solarwatts/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"format":    series.FormatValue,
	"highlight": series.Highlight,
	"month": func(r types.DisplayRecord) string {
		return r.PeriodEnd.Format("Jan 2006")
	},
	"degrees": func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64) + "°"
	},
	"num": func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	},
}).ParseFS(templateFS, "templates/dashboard.html"))

const (
	chartWidth  = 720
	chartHeight = 320
)

// Chart is a prepared SVG line chart of the AC and POA channels.
type Chart struct {
	Width     int
	Height    int
	Max       float64
	ACPoints  string
	POAPoints string
	Labels    []ChartLabel
}

// ChartLabel is an x axis label.
type ChartLabel struct {
	X    float64
	Text string
}

func newChart(records []types.DisplayRecord) Chart {
	c := Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Max:    series.ChartMax(records),
	}
	if len(records) == 0 {
		return c
	}
	step := float64(chartWidth)
	if len(records) > 1 {
		step = float64(chartWidth) / float64(len(records)-1)
	}
	var ac, poa []string
	for i, r := range records {
		x := float64(i) * step
		ac = append(ac, point(x, r.ACValue, c.Max))
		poa = append(poa, point(x, r.POAValue, c.Max))
		c.Labels = append(c.Labels, ChartLabel{X: x, Text: r.PeriodEnd.Format("Jan")})
	}
	c.ACPoints = strings.Join(ac, " ")
	c.POAPoints = strings.Join(poa, " ")
	return c
}

func point(x, v, top float64) string {
	y := float64(chartHeight) - v/top*float64(chartHeight)
	return fmt.Sprintf("%.1f,%.1f", x, y)
}

// View is the data handed to the dashboard template.
type View struct {
	State
	Title    string
	Defaults Params
	Chart    Chart
}

// NewView prepares st for rendering.
func NewView(st State) View {
	return View{
		State: st,
		Title: fmt.Sprintf("Solar Data (Tilt: %s°, Azimuth: %s°)",
			strconv.FormatFloat(st.Params.Tilt, 'f', -1, 64),
			strconv.FormatFloat(st.Params.Azimuth, 'f', -1, 64),
		),
		Defaults: DefaultParams(),
		Chart:    newChart(st.Records),
	}
}

// RenderHTML writes the dashboard page for st.
func RenderHTML(w io.Writer, st State) error {
	return pageTemplate.Execute(w, NewView(st))
}

// RenderText writes st as a plain text table.
func RenderText(w io.Writer, st State) error {
	v := NewView(st)
	if _, err := fmt.Fprintf(w, "%s  multiplier=%s\n", v.Title, strconv.FormatFloat(st.Params.Multiplier, 'f', -1, 64)); err != nil {
		return err
	}
	if st.Error != "" {
		_, err := fmt.Fprintf(w, "error: %s\n", st.Error)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Period End\tAC Monthly\tPOA Monthly\tSOLRAD Monthly\t")
	for _, r := range st.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			r.PeriodEnd.Format("2006-01-02"),
			series.FormatValue(r.ACValue),
			series.FormatValue(r.POAValue),
			series.FormatValue(r.SolradValue),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !st.UpdatedAt.IsZero() {
		_, err := fmt.Fprintf(w, "Last data update: %s\n", st.UpdatedAt.Format("2006-01-02 15:04:05"))
		return err
	}
	return nil
}
