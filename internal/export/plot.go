package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/sweeney/temp-logger/internal/session"
)

// Plot geometry on an A4 landscape page, in millimeters.
const (
	plotLeft   = 25.0
	plotTop    = 30.0
	plotWidth  = 240.0
	plotHeight = 140.0
)

// seriesColors cycles per channel.
var seriesColors = [][3]int{
	{31, 119, 180},
	{255, 127, 14},
	{44, 160, 44},
	{214, 39, 40},
	{148, 103, 189},
	{140, 86, 75},
	{227, 119, 194},
	{127, 127, 127},
}

type series struct {
	name    string
	seconds []float64
	temps   []float64
}

// writePlotPDF renders one time-series line per channel. Absent values are
// excluded from the plotted series, never coerced to zero.
func writePlotPDF(snap session.Snapshot, path string) error {
	all := collectSeries(snap)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Temperature Logs")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Session: %s  #%03d  %s  (duration %s)",
		snap.Name, snap.Counter, snap.Token, sessionDuration(snap).Truncate(1e9)))

	minX, maxX, minY, maxY, any := dataRange(all)
	if !any {
		pdf.Ln(10)
		pdf.Cell(0, 6, "No plottable data (all values absent).")
	} else {
		drawAxes(pdf, minX, maxX, minY, maxY)
		for i, s := range all {
			c := seriesColors[i%len(seriesColors)]
			pdf.SetDrawColor(c[0], c[1], c[2])
			pdf.SetLineWidth(0.4)
			drawSeries(pdf, s, minX, maxX, minY, maxY)
		}
		drawLegend(pdf, all)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return err
	}
	return writeAtomically(path, buf.Bytes())
}

func collectSeries(snap session.Snapshot) []series {
	out := make([]series, len(snap.Columns))
	for i, col := range snap.Columns {
		out[i].name = col.Name
		for _, row := range snap.Rows {
			v := row.Values[i]
			if !v.Valid {
				continue
			}
			out[i].seconds = append(out[i].seconds, row.Seconds)
			out[i].temps = append(out[i].temps, v.Temp)
		}
	}
	return out
}

func dataRange(all []series) (minX, maxX, minY, maxY float64, any bool) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	for _, s := range all {
		for i := range s.seconds {
			any = true
			minX = math.Min(minX, s.seconds[i])
			maxX = math.Max(maxX, s.seconds[i])
			minY = math.Min(minY, s.temps[i])
			maxY = math.Max(maxY, s.temps[i])
		}
	}
	// Degenerate ranges (single sample, flat line) get padding so the
	// projection below never divides by zero.
	if maxX-minX < 1 {
		maxX = minX + 1
	}
	if maxY-minY < 1 {
		minY -= 0.5
		maxY += 0.5
	}
	return minX, maxX, minY, maxY, any
}

func projectX(x, minX, maxX float64) float64 {
	return plotLeft + (x-minX)/(maxX-minX)*plotWidth
}

func projectY(y, minY, maxY float64) float64 {
	return plotTop + plotHeight - (y-minY)/(maxY-minY)*plotHeight
}

func drawAxes(pdf *gofpdf.Fpdf, minX, maxX, minY, maxY float64) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(plotLeft, plotTop, plotWidth, plotHeight, "D")

	pdf.SetFont("Arial", "", 8)
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / ticks

		x := minX + frac*(maxX-minX)
		px := projectX(x, minX, maxX)
		pdf.Line(px, plotTop+plotHeight, px, plotTop+plotHeight+1.5)
		pdf.Text(px-5, plotTop+plotHeight+6, fmt.Sprintf("%.0f", x))

		y := minY + frac*(maxY-minY)
		py := projectY(y, minY, maxY)
		pdf.Line(plotLeft-1.5, py, plotLeft, py)
		pdf.Text(plotLeft-16, py+1, fmt.Sprintf("%.1f", y))
	}

	pdf.Text(plotLeft+plotWidth/2-10, plotTop+plotHeight+12, "Seconds")
	pdf.TransformBegin()
	pdf.TransformRotate(90, plotLeft-18, plotTop+plotHeight/2)
	pdf.Text(plotLeft-18, plotTop+plotHeight/2, "Temperature (C)")
	pdf.TransformEnd()
}

func drawSeries(pdf *gofpdf.Fpdf, s series, minX, maxX, minY, maxY float64) {
	for i := 1; i < len(s.seconds); i++ {
		pdf.Line(
			projectX(s.seconds[i-1], minX, maxX), projectY(s.temps[i-1], minY, maxY),
			projectX(s.seconds[i], minX, maxX), projectY(s.temps[i], minY, maxY),
		)
	}
	if len(s.seconds) == 1 {
		// A single point still gets a visible mark.
		x := projectX(s.seconds[0], minX, maxX)
		y := projectY(s.temps[0], minY, maxY)
		pdf.Circle(x, y, 0.6, "D")
	}
}

func drawLegend(pdf *gofpdf.Fpdf, all []series) {
	x := plotLeft + 4.0
	y := plotTop + 4.0
	pdf.SetFont("Arial", "", 8)
	for i, s := range all {
		if len(s.seconds) == 0 {
			continue
		}
		c := seriesColors[i%len(seriesColors)]
		pdf.SetFillColor(c[0], c[1], c[2])
		pdf.Rect(x, y-2, 3, 3, "F")
		pdf.Text(x+4, y+0.5, s.name)
		y += 5
	}
}
