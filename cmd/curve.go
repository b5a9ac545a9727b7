package cmd

import (
	"fmt"

	"github.com/notargets/galpot/coord"
	"github.com/notargets/galpot/potential"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// CurveCmd represents the curve command
var CurveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Tabulate the rotation curve and enclosed mass in the disk plane",
	Long: `
Tabulates the circular velocity, the potential and the enclosed mass at
logarithmically spaced radii in the equatorial plane, followed by the total
mass of the model.

galpot curve -I galaxy.yaml --rMin 0.1 --rMax 30 --n 25 --plot vc.png`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			rMin, rMax float64
			n          int
			plotFile   string
			err        error
		)
		if rMin, err = cmd.Flags().GetFloat64("rMin"); err != nil {
			panic(err)
		}
		if rMax, err = cmd.Flags().GetFloat64("rMax"); err != nil {
			panic(err)
		}
		if n, err = cmd.Flags().GetInt("n"); err != nil {
			panic(err)
		}
		if plotFile, err = cmd.Flags().GetString("plot"); err != nil {
			panic(err)
		}
		if !(rMin > 0) || !(rMax > rMin) || n < 2 {
			panic(fmt.Errorf("need 0 < rMin < rMax and n > 1, have rMin=%g, rMax=%g, n=%d", rMin, rMax, n))
		}
		gp, pot := loadGalaxy()
		rows := rotationCurve(pot, rMin, rMax, n)
		printCurveRows(rows)
		fmt.Printf("Total mass %14.7g\n", potential.TotalMass(pot))
		if plotFile != "" {
			if err = plotCurve(rows, gp.Title, plotFile); err != nil {
				panic(err)
			}
			fmt.Println("Wrote", plotFile)
		}
	},
}

func init() {
	rootCmd.AddCommand(CurveCmd)
	CurveCmd.Flags().Float64("rMin", 0.1, "innermost radius")
	CurveCmd.Flags().Float64("rMax", 30, "outermost radius")
	CurveCmd.Flags().IntP("n", "n", 25, "number of radii")
	CurveCmd.Flags().String("plot", "", "also draw the rotation curve into this image file (.png, .svg, .pdf)")
}

type curveRow struct {
	R, Vc, Phi, Mass float64
}

func rotationCurve(pot potential.Potential, rMin, rMax float64, n int) (rows []curveRow) {
	radii := make([]float64, n)
	floats.LogSpan(radii, rMin, rMax)
	rows = make([]curveRow, n)
	for i, R := range radii {
		rows[i] = curveRow{
			R:    R,
			Vc:   potential.CircularVelocity(pot, R),
			Phi:  potential.Value(pot, coord.PosCyl{R: R}),
			Mass: potential.EnclosedMass(pot, R),
		}
	}
	return
}

func printCurveRows(rows []curveRow) {
	fmt.Printf("%10s %14s %14s %14s\n", "R", "Vcirc", "Phi", "M(<r)")
	for _, r := range rows {
		fmt.Printf("%10.4g %14.7g %14.7g %14.7g\n", r.R, r.Vc, r.Phi, r.Mass)
	}
}

// plotCurve draws the circular velocity against radius, the image format
// follows the file extension
func plotCurve(rows []curveRow, title, fileName string) (err error) {
	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i] = plotter.XY{X: r.R, Y: r.Vc}
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "R"
	p.Y.Label.Text = "Vcirc"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	if err = plotutil.AddLines(p, "Vcirc", pts); err != nil {
		return
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, fileName)
}
